package grammar

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is the canonical object representation produced by validation. Keys
// keep their insertion order, so a validated tree marshals to JSON with the
// merged field declaration order intact.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty canonical object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// IsPrimitive reports whether val is a scalar tree value (string, number or
// boolean). nil is not a primitive.
func IsPrimitive(val any) bool {
	switch val.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// isObject reports whether val is an object in either raw or canonical form.
func isObject(val any) bool {
	switch val.(type) {
	case map[string]any, *Object:
		return true
	}
	return false
}

// objectKey reads a key from either a raw map or a canonical object.
func objectKey(val any, key string) (any, bool) {
	switch m := val.(type) {
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case *Object:
		return m.Get(key)
	}
	return nil, false
}

// objectKeys lists the keys of either object form. Raw map keys are sorted so
// behaviour stays deterministic; canonical objects keep their own order.
func objectKeys(val any) []string {
	switch m := val.(type) {
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	case *Object:
		keys := make([]string, 0, m.Len())
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
		return keys
	}
	return nil
}

// objectLen reports the number of keys of either object form.
func objectLen(val any) int {
	switch m := val.(type) {
	case map[string]any:
		return len(m)
	case *Object:
		return m.Len()
	}
	return 0
}

// withTagFirst returns a copy of obj with the discriminator tag as its first
// key. Any pre-existing "type" entry is replaced.
func withTagFirst(obj *Object, tag string) *Object {
	out := NewObject()
	out.Set("type", tag)
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "type" {
			continue
		}
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// deepCopyValue structurally clones a tree-shaped value. Values outside the
// tree vocabulary (drivers, functions) are aliased; anything a node mutates
// must therefore be tree-shaped or live in a shared slot.
func deepCopyValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deepCopyValue(item)
		}
		return out
	case *Object:
		out := NewObject()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, deepCopyValue(pair.Value))
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
