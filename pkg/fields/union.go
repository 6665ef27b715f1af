package fields

import (
	"fmt"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// PrimitiveOrField combines two fields into one: primitive values use the
// first, everything else the second. Intended for values that can be given
// either as a quick constant or as a complex rule describing how to derive
// them.
type PrimitiveOrField struct {
	spec      *grammar.Spec
	primitive grammar.Field
	complex   grammar.Field
}

// PrimitiveOr creates the union of a primitive field and a complex field.
func PrimitiveOr(primitive, complex grammar.Field, opts ...grammar.Option) *PrimitiveOrField {
	return &PrimitiveOrField{spec: grammar.NewSpec(opts...), primitive: primitive, complex: complex}
}

// Primitive reports the primitive variant for inspection by rendering layers.
func (f *PrimitiveOrField) Primitive() grammar.Field { return f.primitive }

// Complex reports the complex variant for inspection by rendering layers.
func (f *PrimitiveOrField) Complex() grammar.Field { return f.complex }

func (f *PrimitiveOrField) Spec() *grammar.Spec { return f.spec }

func (f *PrimitiveOrField) Check(reg *grammar.Registry) error {
	if f.primitive == nil || f.complex == nil {
		return grammar.NewInternal("a primitive-or-complex union needs both variants")
	}
	return nil
}

func (f *PrimitiveOrField) Children() []grammar.Field {
	return []grammar.Field{f.primitive, f.complex}
}

func (f *PrimitiveOrField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	if grammar.IsPrimitive(val) {
		return reg.ValidateField(f.primitive, val, vctx, args)
	}
	return reg.ValidateField(f.complex, val, vctx, args)
}

func (f *PrimitiveOrField) Describe() string {
	return fmt.Sprintf("The simple variant is:\n%s\nThe complex variant is:\n%s",
		f.primitive.Describe(), f.complex.Describe())
}
