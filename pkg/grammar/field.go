package grammar

// Field is a typed validation rule. Scalar kinds check and canonicalise a
// primitive; composite kinds recurse back into the registry for nested
// structure. Implementations live in the fields package; the engine only
// relies on this contract.
type Field interface {
	// Spec exposes the shared attributes (null policy, default, help text).
	Spec() *Spec
	// Validate checks a non-null raw value and returns its canonical form.
	// The null policy of the Spec has already been applied by the engine.
	Validate(reg *Registry, val any, vctx *Context, args Args) (any, error)
	// Describe returns the documentation sentence for what the field may
	// contain. It may use [[name]] link shortforms.
	Describe() string
}

// Checker is implemented by fields with definition-time invariants of their
// own (bound ordering, member lists). The registry runs these during
// Finalize.
type Checker interface {
	Check(reg *Registry) error
}

// TypeRef names one node type or group a composite field points at.
type TypeRef struct {
	Node  string
	Group string
}

// Referencer is implemented by fields that reference node types or groups.
// Finalize uses the reported references for dangling-name checks.
type Referencer interface {
	References() []TypeRef
}

// Container is implemented by fields that wrap other fields (lists, mappings,
// unions) so the registry can walk nested definitions.
type Container interface {
	Children() []Field
}

// ValidateField applies the field's null policy, then its own validation
// rule. This is the single entry point node logic should use when validating
// a field value by hand.
func (r *Registry) ValidateField(f Field, val any, vctx *Context, args Args) (any, error) {
	spec := f.Spec()
	if val == nil {
		if !spec.Null {
			return nil, NewInvalidInput("the value is not allowed to be null")
		}
		if spec.ValidateNulls {
			return f.Validate(r, val, vctx, args)
		}
		return nil, nil
	}
	return f.Validate(r, val, vctx, args)
}

// walkFields visits a field and every nested field reachable through
// Container implementations.
func walkFields(f Field, visit func(Field) error) error {
	if f == nil {
		return nil
	}
	if err := visit(f); err != nil {
		return err
	}
	if container, ok := f.(Container); ok {
		for _, child := range container.Children() {
			if child == nil {
				continue
			}
			if err := walkFields(child, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
