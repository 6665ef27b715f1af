package grammar

import (
	"encoding/json"
	"fmt"
)

// Snapshot limits. Whatever the input size, an error payload stays small:
// long strings are truncated, long lists are capped with a remainder count,
// wide objects collapse to a placeholder and nesting is cut off early.
const (
	snapshotMaxObjectFields = 10
	snapshotMaxListLen      = 3
	snapshotMaxStringLen    = 100
	snapshotMaxDepth        = 2
)

// Snapshot renders a bounded JSON representation of a value for use in error
// messages.
func Snapshot(val any) string {
	shortened := shortenValue(val, snapshotMaxDepth)
	payload, err := json.MarshalIndent(shortened, "", "    ")
	if err != nil {
		return fmt.Sprintf("%v", shortened)
	}
	return string(payload)
}

func shortenValue(val any, remainingDepth int) any {
	switch v := val.(type) {
	case map[string]any:
		if len(v) > snapshotMaxObjectFields {
			return fmt.Sprintf("[an object with %d fields, which is too many to display here]", len(v))
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			if remainingDepth <= 0 {
				out[k] = "..."
				continue
			}
			out[k] = shortenValue(item, remainingDepth-1)
		}
		return out
	case *Object:
		if v.Len() > snapshotMaxObjectFields {
			return fmt.Sprintf("[an object with %d fields, which is too many to display here]", v.Len())
		}
		out := NewObject()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if remainingDepth <= 0 {
				out.Set(pair.Key, "...")
				continue
			}
			out.Set(pair.Key, shortenValue(pair.Value, remainingDepth-1))
		}
		return out
	case []any:
		out := make([]any, 0, snapshotMaxListLen+1)
		for i, item := range v {
			if i >= snapshotMaxListLen {
				break
			}
			out = append(out, shortenValue(item, remainingDepth-1))
		}
		if len(v) > snapshotMaxListLen {
			out = append(out, fmt.Sprintf("[%d additional elements]", len(v)-snapshotMaxListLen))
		}
		return out
	case string:
		if len(v) > snapshotMaxStringLen {
			return v[:snapshotMaxStringLen-3] + "..."
		}
		return v
	default:
		return val
	}
}
