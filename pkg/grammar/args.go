package grammar

// Args is the side channel of caller-supplied parameters passed down the
// validation call tree, distinct from the value being validated. An Args map
// is never mutated in place: every recursion step receives a freshly merged
// map, so a subtree can override an entry without affecting its siblings.
type Args map[string]any

type passAlong struct{}

// PassAlong is a sentinel value for field-declared argument templates. An
// entry set to PassAlong takes its value from the caller's Args instead of
// the field declaration, handing the argument down unchanged.
var PassAlong any = passAlong{}

type forcedArg struct {
	value any
}

// Force wraps a caller argument so it overrides the field's own declaration
// for the subtree, reversing the usual precedence.
func Force(value any) any {
	return forcedArg{value: value}
}

// MergeArgs computes the Args for a subtree from the caller's live Args and
// the template a field declared. The template wins by default; PassAlong
// entries defer to the caller, and Force entries in the caller's Args win
// unconditionally. The result is always a fresh map.
func MergeArgs(caller Args, field Args) Args {
	out := make(Args, len(field))
	for name, value := range field {
		if value == PassAlong {
			out[name] = caller[name]
			continue
		}
		out[name] = value
	}
	for name, value := range caller {
		if forced, ok := value.(forcedArg); ok {
			out[name] = forced.value
		}
	}
	return out
}
