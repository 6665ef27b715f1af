package fields

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// stringKeyed marks field kinds whose canonical value is a string, making
// them usable as mapping keys.
type stringKeyed interface {
	stringKeyed()
}

func checkString(val any, min, max *int) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", grammar.NewInvalidInput("the value must be a string")
	}
	if min != nil && *min > len(s) {
		return "", grammar.NewInvalidInput("the value is below the minimum length of %d characters by %d characters",
			*min, *min-len(s))
	}
	if max != nil && *max < len(s) {
		return "", grammar.NewInvalidInput("the value exceeds the maximum length of %d characters by %d characters",
			*max, len(s)-*max)
	}
	return s, nil
}

func checkLengthBounds(min, max *int) error {
	if min != nil && *min < 0 {
		return grammar.NewInternal("the minimum length must not be negative")
	}
	if min != nil && max != nil && *min > *max {
		return grammar.NewInternal("the minimum length is greater than the maximum length")
	}
	return nil
}

// StringField validates strings with optional length bounds.
type StringField struct {
	spec *grammar.Spec
	min  *int
	max  *int
}

// String creates a string field.
func String(opts ...grammar.Option) *StringField {
	return &StringField{spec: grammar.NewSpec(opts...)}
}

// MinLength sets the inclusive minimum length in bytes.
func (f *StringField) MinLength(min int) *StringField {
	f.min = &min
	return f
}

// MaxLength sets the inclusive maximum length in bytes.
func (f *StringField) MaxLength(max int) *StringField {
	f.max = &max
	return f
}

// Lengths reports the configured length bounds.
func (f *StringField) Lengths() (min, max *int) {
	return f.min, f.max
}

func (f *StringField) Spec() *grammar.Spec { return f.spec }

func (f *StringField) stringKeyed() {}

func (f *StringField) Check(reg *grammar.Registry) error {
	return checkLengthBounds(f.min, f.max)
}

func (f *StringField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	return checkString(val, f.min, f.max)
}

func (f *StringField) Describe() string {
	switch {
	case f.min != nil && f.max != nil:
		return fmt.Sprintf("A String with minimum length %d and maximum length %d.", *f.min, *f.max)
	case f.min != nil:
		return fmt.Sprintf("A String with minimum length %d.", *f.min)
	case f.max != nil:
		return fmt.Sprintf("A String with maximum length %d.", *f.max)
	default:
		return "A String."
	}
}

// RegexField validates strings that must compile as regular expressions.
type RegexField struct {
	spec *grammar.Spec
	min  *int
	max  *int
}

// Regex creates a regular-expression field.
func Regex(opts ...grammar.Option) *RegexField {
	return &RegexField{spec: grammar.NewSpec(opts...)}
}

// MaxLength sets the inclusive maximum length in bytes.
func (f *RegexField) MaxLength(max int) *RegexField {
	f.max = &max
	return f
}

func (f *RegexField) Spec() *grammar.Spec { return f.spec }

func (f *RegexField) stringKeyed() {}

func (f *RegexField) Check(reg *grammar.Registry) error {
	return checkLengthBounds(f.min, f.max)
}

func (f *RegexField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	s, err := checkString(val, f.min, f.max)
	if err != nil {
		return nil, err
	}
	if _, err := regexp.Compile(s); err != nil {
		return nil, grammar.NewInvalidInput("This is not a valid regular expression.")
	}
	return s, nil
}

// Match reports whether a previously validated pattern matches s, anchored at
// the start.
func (f *RegexField) Match(pattern, s string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, grammar.NewInternal("fields: the pattern %q was accepted by validation but does not compile: %v", pattern, err)
	}
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0, nil
}

func (f *RegexField) Describe() string {
	return "A Regular Expression, matched against the start of the target string."
}

// IntegerStringField validates integers given in string form. JSON allows
// only strings as object keys, so mappings with integer keys use this kind.
// The canonical value is the re-formatted string, which collapses variants
// like " 1" and "01" into "1".
type IntegerStringField struct {
	spec *grammar.Spec
	min  *int64
	max  *int64
}

// IntegerString creates an integer-as-string field.
func IntegerString(opts ...grammar.Option) *IntegerStringField {
	return &IntegerStringField{spec: grammar.NewSpec(opts...)}
}

// Min sets the inclusive lower bound on the parsed value.
func (f *IntegerStringField) Min(min int64) *IntegerStringField {
	f.min = &min
	return f
}

// Max sets the inclusive upper bound on the parsed value.
func (f *IntegerStringField) Max(max int64) *IntegerStringField {
	f.max = &max
	return f
}

func (f *IntegerStringField) Spec() *grammar.Spec { return f.spec }

func (f *IntegerStringField) stringKeyed() {}

func (f *IntegerStringField) Check(reg *grammar.Registry) error {
	if f.min != nil && f.max != nil && *f.min > *f.max {
		return grammar.NewInternal("the minimum is greater than the maximum")
	}
	return nil
}

func (f *IntegerStringField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	s, ok := val.(string)
	if !ok {
		return nil, grammar.NewInvalidInput("the value must be a string that can be parsed into an integer")
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, grammar.NewInvalidInput("the value must be a string that can be parsed into an integer")
	}
	if f.min != nil && *f.min > i {
		return nil, grammar.NewInvalidInput("the value is below the minimum of %d", *f.min)
	}
	if f.max != nil && *f.max < i {
		return nil, grammar.NewInvalidInput("the value is above the maximum of %d", *f.max)
	}
	return strconv.FormatInt(i, 10), nil
}

func (f *IntegerStringField) Describe() string {
	return "An Integer value, given as a String. This is necessary because JSON does not allow non-string values as keys of mappings."
}

// SelectionField validates a string against a closed list of valid values.
type SelectionField struct {
	spec   *grammar.Spec
	values []string
}

// Selection creates a field accepting exactly one of the given values.
func Selection(values []string, opts ...grammar.Option) *SelectionField {
	return &SelectionField{spec: grammar.NewSpec(opts...), values: append([]string(nil), values...)}
}

// Values reports the valid values in declaration order.
func (f *SelectionField) Values() []string {
	return append([]string(nil), f.values...)
}

func (f *SelectionField) Spec() *grammar.Spec { return f.spec }

func (f *SelectionField) stringKeyed() {}

func (f *SelectionField) Check(reg *grammar.Registry) error {
	if len(f.values) == 0 {
		return grammar.NewInternal("a selection needs at least one valid value")
	}
	seen := make(map[string]struct{}, len(f.values))
	for _, v := range f.values {
		if _, dup := seen[v]; dup {
			return grammar.NewInternal("the selection value %q is listed twice", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func (f *SelectionField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	s, err := checkString(val, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, valid := range f.values {
		if s == valid {
			return s, nil
		}
	}
	return nil, grammar.NewInvalidInput("the value '%s' is not valid. Valid values are:\n%s", s, quoteJoin(f.values))
}

func (f *SelectionField) Describe() string {
	return fmt.Sprintf("One of the following String values: %s", quoteJoin(f.values))
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const identifierMessage = "the value must be a valid variable name: " +
	"it may contain only letters, digits and underscores, and may not start with a digit"

// IdentifierField validates variable names.
type IdentifierField struct {
	spec *grammar.Spec
	max  *int
}

// Identifier creates a variable-name field.
func Identifier(opts ...grammar.Option) *IdentifierField {
	return &IdentifierField{spec: grammar.NewSpec(opts...)}
}

// MaxLength sets the inclusive maximum length in bytes.
func (f *IdentifierField) MaxLength(max int) *IdentifierField {
	f.max = &max
	return f
}

func (f *IdentifierField) Spec() *grammar.Spec { return f.spec }

func (f *IdentifierField) stringKeyed() {}

func (f *IdentifierField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	s, err := checkString(val, nil, f.max)
	if err != nil {
		return nil, err
	}
	if !identifierPattern.MatchString(s) {
		return nil, grammar.NewInvalidInput("%s", identifierMessage)
	}
	return s, nil
}

func (f *IdentifierField) Describe() string {
	// The rejection message doubles as the documentation.
	return identifierMessage
}

// MultipleChoiceField validates a subset selection out of a closed list of
// values. It accepts null, a single string or a list of strings; the
// canonical form is always a list, deduplicated and ordered like the
// declaration.
type MultipleChoiceField struct {
	spec   *grammar.Spec
	values []string
}

// MultipleChoice creates a subset-selection field. Null handling is part of
// the kind itself: null canonicalises to the empty list.
func MultipleChoice(values []string, opts ...grammar.Option) *MultipleChoiceField {
	opts = append(append([]grammar.Option(nil), opts...), grammar.Null(), grammar.ValidateNulls())
	return &MultipleChoiceField{spec: grammar.NewSpec(opts...), values: append([]string(nil), values...)}
}

// Values reports the valid values in declaration order.
func (f *MultipleChoiceField) Values() []string {
	return append([]string(nil), f.values...)
}

func (f *MultipleChoiceField) Spec() *grammar.Spec { return f.spec }

func (f *MultipleChoiceField) Check(reg *grammar.Registry) error {
	if len(f.values) == 0 {
		return grammar.NewInternal("a selection needs at least one valid value")
	}
	return nil
}

func (f *MultipleChoiceField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	var given []any
	switch v := val.(type) {
	case nil:
	case string:
		given = []any{v}
	case []any:
		given = v
	case []string:
		given = make([]any, len(v))
		for i, s := range v {
			given[i] = s
		}
	default:
		return nil, f.invalid()
	}
	chosen := make(map[string]struct{}, len(given))
	for _, el := range given {
		s, ok := el.(string)
		if !ok || !contains(f.values, s) {
			return nil, f.invalid()
		}
		chosen[s] = struct{}{}
	}
	// Deduplicate and restore declaration order.
	res := make([]any, 0, len(chosen))
	for _, v := range f.values {
		if _, ok := chosen[v]; ok {
			res = append(res, v)
		}
	}
	return res, nil
}

func (f *MultipleChoiceField) invalid() error {
	return grammar.NewInvalidInput("The value is not valid. Acceptable values are null, "+
		"one of the following values, or a list of any number of the following values:\n%s", quoteJoin(f.values))
}

func (f *MultipleChoiceField) Describe() string {
	return fmt.Sprintf("Acceptable values are null, one of the following values, "+
		"or a list of any number of the following values:\n%s", quoteJoin(f.values))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}

// invalidInputMessage unwraps the bare message of an invalid-input error so
// composite kinds can rewrap it with their own framing.
func invalidInputMessage(err error) (string, bool) {
	var iie *grammar.InvalidInputError
	if errors.As(err, &iie) {
		return iie.Message, true
	}
	return "", false
}
