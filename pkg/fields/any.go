package fields

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// AnyField accepts any JSON-serializable value. The canonical form is a JSON
// round trip with object keys sorted, so equal values always compare equal.
// Null is always permitted.
type AnyField struct {
	spec *grammar.Spec
}

// Any creates an arbitrary-JSON field.
func Any(opts ...grammar.Option) *AnyField {
	opts = append(append([]grammar.Option(nil), opts...), grammar.Null())
	return &AnyField{spec: grammar.NewSpec(opts...)}
}

func (f *AnyField) Spec() *grammar.Spec { return f.spec }

func (f *AnyField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	encoded, err := json.Marshal(val)
	if err != nil {
		return nil, grammar.NewInvalidInput("the value must be JSON-serializable")
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, grammar.NewInvalidInput("the value must be JSON-serializable")
	}
	return canonicalizeJSON(decoded), nil
}

// canonicalizeJSON rebuilds a decoded JSON value with sorted object keys and
// integers kept integral.
func canonicalizeJSON(val any) any {
	switch v := val.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := grammar.NewObject()
		for _, k := range keys {
			obj.Set(k, canonicalizeJSON(v[k]))
		}
		return obj
	case []any:
		res := make([]any, len(v))
		for i, el := range v {
			res[i] = canonicalizeJSON(el)
		}
		return res
	case json.Number:
		if !strings.ContainsAny(v.String(), ".eE") {
			if i, err := v.Int64(); err == nil {
				return i
			}
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}

func (f *AnyField) Describe() string {
	return "An arbitrary JSON-like object."
}
