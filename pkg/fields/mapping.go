package fields

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// MappingField validates an open set of key/value pairs: keys against a
// string-valued field kind, values against an arbitrary field. The canonical
// form is ordered by key, numerically when the key kind is an integer string.
type MappingField struct {
	spec    *grammar.Spec
	key     grammar.Field
	content grammar.Field
}

// Mapping creates a mapping field. The key field must be one of the
// string-valued kinds.
func Mapping(key, content grammar.Field, opts ...grammar.Option) *MappingField {
	return &MappingField{spec: grammar.NewSpec(opts...), key: key, content: content}
}

// Key reports the key field for inspection by rendering layers.
func (f *MappingField) Key() grammar.Field { return f.key }

// Content reports the value field for inspection by rendering layers.
func (f *MappingField) Content() grammar.Field { return f.content }

func (f *MappingField) Spec() *grammar.Spec { return f.spec }

func (f *MappingField) Check(reg *grammar.Registry) error {
	if f.key == nil || f.content == nil {
		return grammar.NewInternal("a mapping needs both a key field and a content field")
	}
	if _, ok := f.key.(stringKeyed); !ok {
		return grammar.NewInternal("the mapping must map a string-valued field to an arbitrary field; %T has non-string values", f.key)
	}
	return nil
}

func (f *MappingField) Children() []grammar.Field {
	return []grammar.Field{f.key, f.content}
}

func (f *MappingField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	entries, ok := mappingEntries(val)
	if !ok {
		return nil, grammar.NewInvalidInput("the value must be a dictionary")
	}

	type pair struct {
		key   string
		value any
	}
	validated := make([]pair, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		canonicalKey, err := f.validateKey(reg, entry.key, vctx, args)
		if err != nil {
			return nil, err
		}
		done, err := vctx.Enter(fmt.Sprintf("value for key '%s'", entry.key), entry.value)
		if err != nil {
			return nil, err
		}
		value, err := reg.ValidateField(f.content, entry.value, vctx, args)
		if err != nil {
			return nil, err
		}
		done()
		// Key kinds may collapse different spellings into one canonical
		// key: '1' and ' 1' as integer strings, for example.
		if _, dup := seen[canonicalKey]; dup {
			return nil, grammar.NewInvalidInput("after validating and simplifying, the key '%s' occurs more than once.", canonicalKey)
		}
		seen[canonicalKey] = struct{}{}
		validated = append(validated, pair{key: canonicalKey, value: value})
	}

	numeric := false
	if _, ok := f.key.(*IntegerStringField); ok {
		numeric = true
	}
	sort.SliceStable(validated, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseInt(validated[i].key, 10, 64)
			b, _ := strconv.ParseInt(validated[j].key, 10, 64)
			return a < b
		}
		return validated[i].key < validated[j].key
	})

	res := grammar.NewObject()
	for _, p := range validated {
		res.Set(p.key, p.value)
	}
	return res, nil
}

func (f *MappingField) validateKey(reg *grammar.Registry, key string, vctx *grammar.Context, args grammar.Args) (string, error) {
	done, err := vctx.Enter("key", key)
	if err != nil {
		return "", err
	}
	validated, err := f.key.Validate(reg, key, vctx, args)
	if err != nil {
		if msg, ok := invalidInputMessage(err); ok {
			return "", grammar.NewInvalidInput("could not parse the key '%s'. The problem was:\n%s", key, msg)
		}
		return "", err
	}
	done()
	canonical, ok := validated.(string)
	if !ok {
		return "", grammar.NewInternal("fields: the mapping key kind %T produced a non-string canonical key", f.key)
	}
	return canonical, nil
}

type mappingEntry struct {
	key   string
	value any
}

// mappingEntries flattens the two object shapes into a deterministic entry
// list: canonical objects keep their order, raw maps are read in sorted key
// order.
func mappingEntries(val any) ([]mappingEntry, bool) {
	switch m := val.(type) {
	case *grammar.Object:
		entries := make([]mappingEntry, 0, m.Len())
		for p := m.Oldest(); p != nil; p = p.Next() {
			entries = append(entries, mappingEntry{key: p.Key, value: p.Value})
		}
		return entries, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]mappingEntry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, mappingEntry{key: k, value: m[k]})
		}
		return entries, true
	default:
		return nil, false
	}
}

func (f *MappingField) Describe() string {
	return fmt.Sprintf("A mapping from string keys to content.\nThe string keys are:\n%s\nThe content is:\n%s",
		f.key.Describe(), f.content.Describe())
}
