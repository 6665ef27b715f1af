package grammar

import "sync/atomic"

// fieldOrder hands out creation-order numbers. Field position after an
// inheritance merge follows the creation order of the field objects, so
// ancestor fields come first and an overriding redeclaration sorts by its
// own, younger stamp.
var fieldOrder atomic.Int64

// Spec carries the attributes every field kind shares: null policy, default
// handling, documentation text and the flags controlling how the node
// validation contract treats the field.
type Spec struct {
	// Null permits an explicit null value (and a null default).
	Null bool
	// Default is a primitive literal used when the field is absent from the
	// input. Non-primitive defaults must be produced by DefaultFn so no two
	// instances ever share a mutable value.
	Default any
	// DefaultFn lazily produces the default value. It must be pure.
	DefaultFn func() any
	// NoAutoValidate excludes the field from the automatic per-field walk;
	// custom node logic fills it instead.
	NoAutoValidate bool
	// Derived marks a field that is never supplied by input.
	Derived bool
	// OmitDefault drops the field from the result when absent from the
	// input, instead of materialising the default.
	OmitDefault bool
	// ValidateNulls forwards null values into the field's own validation
	// rule instead of short-circuiting them.
	ValidateNulls bool
	// Help is the mandatory purpose text shown in generated documentation.
	Help string

	order int64
}

// Option configures a Spec at field construction time.
type Option func(*Spec)

// Null permits explicit null values for the field.
func Null() Option {
	return func(s *Spec) { s.Null = true }
}

// Default sets a primitive default value. Use typed literals (int64, float64)
// so default-filled trees are bit-identical with re-validated ones.
func Default(value any) Option {
	return func(s *Spec) { s.Default = value }
}

// DefaultFn sets a generator for non-primitive defaults. The generator must
// return a fresh value on every call.
func DefaultFn(fn func() any) Option {
	return func(s *Spec) { s.DefaultFn = fn }
}

// Help sets the documentation purpose text.
func Help(text string) Option {
	return func(s *Spec) { s.Help = text }
}

// OmitDefault drops the field from results when it is absent from the input.
func OmitDefault() Option {
	return func(s *Spec) { s.OmitDefault = true }
}

// NoAutoValidate excludes the field from automatic validation.
func NoAutoValidate() Option {
	return func(s *Spec) { s.NoAutoValidate = true }
}

// Derived marks the field as filled by node logic, never by input.
func Derived() Option {
	return func(s *Spec) { s.Derived = true }
}

// ValidateNulls forwards nulls into the field's validation rule.
func ValidateNulls() Option {
	return func(s *Spec) { s.ValidateNulls = true }
}

// NewSpec builds a Spec from options and stamps its creation order.
func NewSpec(opts ...Option) *Spec {
	s := &Spec{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.order = fieldOrder.Add(1)
	return s
}

// Required reports whether the field must be present in the input: it is
// required exactly when it has no default and may not be null.
func (s *Spec) Required() bool {
	return s.Default == nil && s.DefaultFn == nil && !s.Null
}

// DefaultValue materialises the default, invoking the generator if one is
// set. Callers receive an owned value.
func (s *Spec) DefaultValue() any {
	if s.DefaultFn != nil {
		return s.DefaultFn()
	}
	return s.Default
}

// Order returns the creation-order stamp.
func (s *Spec) Order() int64 {
	return s.order
}

// check enforces the definition-time invariants of the Spec itself.
func (s *Spec) check() error {
	if s.Default != nil && !IsPrimitive(s.Default) {
		return NewInternal("a literal default must be a primitive; use DefaultFn for %T values", s.Default)
	}
	if s.Default != nil && s.DefaultFn != nil {
		return NewInternal("a field cannot have both a literal default and a default generator")
	}
	return nil
}
