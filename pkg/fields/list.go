package fields

import (
	"fmt"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// Elem declares what a list may contain: a single node type, a group, a
// primitive field, or a node/group reference with a primitive alternative for
// elements given as bare scalars.
type Elem struct {
	Node      string
	Group     string
	Primitive grammar.Field
}

// ListField validates lists element by element, each under its own trace
// frame.
type ListField struct {
	spec *grammar.Spec
	elem Elem
	args grammar.Args
	min  *int
}

// List creates a list field. args is the argument template forwarded when
// elements recurse into the registry.
func List(elem Elem, args grammar.Args, opts ...grammar.Option) *ListField {
	return &ListField{spec: grammar.NewSpec(opts...), elem: elem, args: args}
}

// MinLen sets the inclusive minimum number of elements.
func (f *ListField) MinLen(min int) *ListField {
	f.min = &min
	return f
}

// Elem reports the element declaration for inspection by rendering layers.
func (f *ListField) Elem() Elem { return f.elem }

func (f *ListField) Spec() *grammar.Spec { return f.spec }

func (f *ListField) Check(reg *grammar.Registry) error {
	if f.elem.Node != "" && f.elem.Group != "" {
		return grammar.NewInternal("a list element must reference either one node type or a group, not both")
	}
	if f.elem.Node == "" && f.elem.Group == "" && f.elem.Primitive == nil {
		return grammar.NewInternal("a list element must reference a node type, a group or a primitive field")
	}
	if f.min != nil && *f.min < 0 {
		return grammar.NewInternal("the minimum length must not be negative")
	}
	return nil
}

func (f *ListField) References() []grammar.TypeRef {
	var refs []grammar.TypeRef
	if f.elem.Node != "" {
		refs = append(refs, grammar.TypeRef{Node: f.elem.Node})
	}
	if f.elem.Group != "" {
		refs = append(refs, grammar.TypeRef{Group: f.elem.Group})
	}
	return refs
}

func (f *ListField) Children() []grammar.Field {
	if f.elem.Primitive != nil {
		return []grammar.Field{f.elem.Primitive}
	}
	return nil
}

func (f *ListField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	list, ok := val.([]any)
	if !ok {
		return nil, grammar.NewInvalidInput("the value must be a list")
	}
	if f.min != nil && len(list) < *f.min {
		plural := "s"
		if *f.min == 1 {
			plural = ""
		}
		return nil, grammar.NewInvalidInput("the list must have at least %d element%s", *f.min, plural)
	}
	res := make([]any, 0, len(list))
	for i, element := range list {
		done, err := vctx.Enter(fmt.Sprintf("index %d", i), element)
		if err != nil {
			return nil, err
		}
		validated, err := f.validateElement(reg, element, vctx, args)
		if err != nil {
			return nil, err
		}
		done()
		res = append(res, validated)
	}
	return res, nil
}

// validateElement routes one element: primitives use the primitive
// alternative when one is declared, everything else recurses into the
// referenced node type or group.
func (f *ListField) validateElement(reg *grammar.Registry, element any, vctx *grammar.Context, args grammar.Args) (any, error) {
	usePrimitive := f.elem.Primitive != nil && grammar.IsPrimitive(element)
	if f.elem.Node == "" && f.elem.Group == "" {
		usePrimitive = f.elem.Primitive != nil
	}
	if usePrimitive {
		return reg.ValidateField(f.elem.Primitive, element, vctx, args)
	}
	target := grammar.Target{Node: f.elem.Node, Group: f.elem.Group}
	return reg.Dispatch(grammar.OpValidate, target, element, vctx, grammar.MergeArgs(args, f.args))
}

func (f *ListField) Describe() string {
	var doc string
	switch {
	case f.elem.Node != "":
		doc = fmt.Sprintf("A list of [[%s]] objects", f.elem.Node)
	case f.elem.Group != "":
		doc = fmt.Sprintf("A list of [[%s]] objects", f.elem.Group)
	default:
		return fmt.Sprintf("A list of %s.", f.elem.Primitive.Spec().Help)
	}
	if f.elem.Primitive != nil {
		doc += fmt.Sprintf(" or %s", f.elem.Primitive.Spec().Help)
	}
	return doc + "."
}
