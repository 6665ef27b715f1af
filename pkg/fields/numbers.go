package fields

import (
	"fmt"
	"math"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// toInt64 canonicalises the integer representations a decoder may hand us.
// Floats count only when they are integral, since YAML and JSON decoders
// deliver whole numbers as float64.
func toInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		f := float64(v)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
		return 0, false
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// toFloat64 canonicalises any numeric representation to float64.
func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		if i, ok := toInt64(val); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// IntegerField validates whole numbers, canonicalised to int64.
type IntegerField struct {
	spec *grammar.Spec
	min  *int64
	max  *int64
}

// Integer creates an integer field.
func Integer(opts ...grammar.Option) *IntegerField {
	return &IntegerField{spec: grammar.NewSpec(opts...)}
}

// Min sets the inclusive lower bound.
func (f *IntegerField) Min(min int64) *IntegerField {
	f.min = &min
	return f
}

// Max sets the inclusive upper bound.
func (f *IntegerField) Max(max int64) *IntegerField {
	f.max = &max
	return f
}

// Range reports the configured bounds for inspection by rendering layers.
func (f *IntegerField) Range() (min, max *int64) {
	return f.min, f.max
}

func (f *IntegerField) Spec() *grammar.Spec { return f.spec }

func (f *IntegerField) Check(reg *grammar.Registry) error {
	if f.min != nil && f.max != nil && *f.min > *f.max {
		return grammar.NewInternal("the minimum is greater than the maximum")
	}
	return nil
}

func (f *IntegerField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	i, ok := toInt64(val)
	if !ok {
		return nil, grammar.NewInvalidInput("the value must be an integer")
	}
	if f.min != nil && *f.min > i {
		return nil, grammar.NewInvalidInput("the value is below the minimum of %d", *f.min)
	}
	if f.max != nil && *f.max < i {
		return nil, grammar.NewInvalidInput("the value is above the maximum of %d", *f.max)
	}
	return i, nil
}

func (f *IntegerField) Describe() string {
	switch {
	case f.min != nil && f.max != nil:
		return fmt.Sprintf("An Integer in the range [%d ; %d].", *f.min, *f.max)
	case f.min != nil:
		return fmt.Sprintf("An Integer with minimum value %d.", *f.min)
	case f.max != nil:
		return fmt.Sprintf("An Integer with maximum value %d.", *f.max)
	default:
		return "An Integer value."
	}
}

// FloatField validates finite numbers, canonicalised to float64. NaN and the
// infinities are always rejected because they have no JSON representation.
type FloatField struct {
	spec *grammar.Spec
	min  *float64
	max  *float64
}

// Float creates a float field.
func Float(opts ...grammar.Option) *FloatField {
	return &FloatField{spec: grammar.NewSpec(opts...)}
}

// Min sets the inclusive lower bound.
func (f *FloatField) Min(min float64) *FloatField {
	f.min = &min
	return f
}

// Max sets the inclusive upper bound.
func (f *FloatField) Max(max float64) *FloatField {
	f.max = &max
	return f
}

// Range reports the configured bounds for inspection by rendering layers.
func (f *FloatField) Range() (min, max *float64) {
	return f.min, f.max
}

func (f *FloatField) Spec() *grammar.Spec { return f.spec }

func (f *FloatField) Check(reg *grammar.Registry) error {
	for _, bound := range []*float64{f.min, f.max} {
		if bound != nil && (math.IsNaN(*bound) || math.IsInf(*bound, 0)) {
			return grammar.NewInternal("a bound must be a finite number")
		}
	}
	if f.min != nil && f.max != nil && *f.min > *f.max {
		return grammar.NewInternal("the minimum is greater than the maximum")
	}
	return nil
}

func (f *FloatField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	n, ok := toFloat64(val)
	if !ok {
		return nil, grammar.NewInvalidInput("the value must be an int or a float")
	}
	if math.IsNaN(n) {
		return nil, grammar.NewInvalidInput("the value must not be NaN.")
	}
	if math.IsInf(n, 0) {
		return nil, grammar.NewInvalidInput("the value must not be infinite.")
	}
	if f.min != nil && *f.min > n {
		return nil, grammar.NewInvalidInput("the value is below the minimum of %v", *f.min)
	}
	if f.max != nil && *f.max < n {
		return nil, grammar.NewInvalidInput("the value is above the maximum of %v", *f.max)
	}
	return n, nil
}

func (f *FloatField) Describe() string {
	var doc string
	switch {
	case f.min != nil && f.max != nil:
		doc = fmt.Sprintf("A Float in the range [%v ; %v].", *f.min, *f.max)
	case f.min != nil:
		doc = fmt.Sprintf("A Float with minimum value %v.", *f.min)
	case f.max != nil:
		doc = fmt.Sprintf("A Float with maximum value %v.", *f.max)
	default:
		doc = "A Float value."
	}
	return doc + " Infinity and NaN are invalid."
}

// BooleanField validates booleans.
type BooleanField struct {
	spec *grammar.Spec
}

// Boolean creates a boolean field.
func Boolean(opts ...grammar.Option) *BooleanField {
	return &BooleanField{spec: grammar.NewSpec(opts...)}
}

func (f *BooleanField) Spec() *grammar.Spec { return f.spec }

func (f *BooleanField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	b, ok := val.(bool)
	if !ok {
		return nil, grammar.NewInvalidInput("the field must be a boolean value")
	}
	return b, nil
}

func (f *BooleanField) Describe() string {
	return "A Boolean value."
}
