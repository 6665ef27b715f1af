// Package numeric defines the example grammar of numerical expression nodes:
// constants, user input, sums and constant multiples. It doubles as the
// reference for how a grammar is declared, how arguments flow down the tree
// and how a PostValidate hook folds a subtree at validation time.
package numeric

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-schematree/pkg/fields"
	"github.com/goliatone/go-schematree/pkg/grammar"
)

const (
	// Group is the polymorphic group every numerical node belongs to.
	Group = "numerical_node"

	// ArgAllowUserInput is the argument passed down the tree that controls
	// whether a user_input node may appear in the current branch. Branches
	// that must be known ahead of evaluation set it to false.
	ArgAllowUserInput = "allow_user_input_node"

	// Page is the documentation page the grammar registers on.
	Page = "numerical_nodes"
)

// Register declares the numerical grammar on reg. The registry is left
// unsealed so callers can add their own node types before Finalize.
func Register(reg *grammar.Registry) error {
	reg.SetCurrentPage(Page)

	// The shared parent gives every node an optional _comment field and
	// declares the argument contract once.
	if err := reg.Register(grammar.NodeType{
		Name:         "numerical_base",
		Abstract:     true,
		RequiredArgs: []string{ArgAllowUserInput},
		Fields: []grammar.FieldDef{
			{Name: "_comment", Field: fields.String(
				grammar.Null(),
				grammar.OmitDefault(),
				grammar.Help("An optional textual comment. This does not do anything, "+
					"but will appear in the automatically generated HTML documentation."),
			).MaxLength(10_000)},
		},
	}); err != nil {
		return err
	}

	if err := reg.BeginGroup(Group, "Numerical Node",
		"A group of node types that represent alternatives of each other: "+
			"wherever one of them is a valid entry, the others are also valid. "+
			"All of the alternatives are grouped together in the generated documentation."); err != nil {
		return err
	}

	for _, def := range []grammar.NodeType{
		constantNode(),
		userInputNode(),
		sumNode(),
		constantMultipleNode(),
	} {
		if err := reg.Register(def); err != nil {
			return err
		}
	}

	return reg.EndGroup(Group)
}

// MustRegister panics when registration fails. Useful for init-time wiring.
func MustRegister(reg *grammar.Registry) {
	if err := Register(reg); err != nil {
		panic(err)
	}
}

// New builds and seals a registry containing only the numerical grammar.
func New() (*grammar.Registry, error) {
	reg := grammar.New()
	if err := Register(reg); err != nil {
		return nil, err
	}
	if err := reg.Finalize(); err != nil {
		return nil, err
	}
	return reg, nil
}

func constantNode() grammar.NodeType {
	return grammar.NodeType{
		Name:           "constant",
		Extends:        "numerical_base",
		Group:          Group,
		Tag:            "constant",
		DocName:        "Constant",
		DocDescription: "A [[constant]] represents a single hardcoded number.",
		Shortform: &grammar.Shortform{
			Field: fields.Float(),
			Convert: func(val any) map[string]any {
				return map[string]any{"val": val}
			},
			Doc: "If only a number is given, it is automatically expanded " +
				"and used as the value of this Constant.",
		},
		Fields: []grammar.FieldDef{
			{Name: "val", Field: fields.Float(
				grammar.Help("The value represented by this constant."),
			).Min(-1000).Max(1000)},
		},
		Operations: map[grammar.Operation]grammar.OpFunc{
			grammar.OpEvaluate: evaluateConstant,
		},
	}
}

func userInputNode() grammar.NodeType {
	return grammar.NodeType{
		Name:    "user_input",
		Extends: "numerical_base",
		Group:   Group,
		Tag:     "user_input",
		DocName: "User Input",
		DocDescription: "Represents a number that is obtained by asking the user for input. " +
			"Optionally has an extra field to define what to do on an invalid input.",
		Fields: []grammar.FieldDef{
			{Name: "message", Field: fields.String(
				grammar.Help("This message is shown to the user when they are asked to enter input."),
			)},
			{Name: "on_error", Field: fields.PrimitiveOr(
				fields.Integer(grammar.Help("This is the value that is used if the user fails to input an integer.")),
				fields.Ref("user_input",
					grammar.Args{ArgAllowUserInput: grammar.PassAlong},
					grammar.Help("This recursive [[user_input]] is shown if the user fails to input an integer.")),
				grammar.Default(int64(0)),
				grammar.Help("This specifies what happens if the user fails to enter a valid number as input."),
			)},
		},
		PostValidate: func(reg *grammar.Registry, obj *grammar.Object, vctx *grammar.Context, args grammar.Args) (*grammar.Object, error) {
			if allowed, _ := args[ArgAllowUserInput].(bool); !allowed {
				return nil, grammar.NewInvalidInput("You can't ask for input in this branch!")
			}
			return obj, nil
		},
		Operations: map[grammar.Operation]grammar.OpFunc{
			grammar.OpEvaluate: evaluateUserInput,
		},
	}
}

func sumNode() grammar.NodeType {
	return grammar.NodeType{
		Name:           "sum",
		Extends:        "numerical_base",
		Group:          Group,
		Tag:            "sum",
		DocName:        "Sum",
		DocDescription: "A [[sum]] represents a sum of other numbers.",
		Fields: []grammar.FieldDef{
			{Name: "summands", Field: fields.List(
				fields.Elem{Group: Group},
				grammar.Args{ArgAllowUserInput: grammar.PassAlong},
				grammar.Help("A list of values that are added together. "+
					"Each of these can be any [[numerical_node]]."),
			)},
		},
		Operations: map[grammar.Operation]grammar.OpFunc{
			grammar.OpEvaluate: evaluateSum,
		},
	}
}

func constantMultipleNode() grammar.NodeType {
	return grammar.NodeType{
		Name:           "constant_multiple",
		Extends:        "numerical_base",
		Group:          Group,
		Tag:            "constant_multiple",
		DocName:        "Constant Multiple",
		DocDescription: "A [[constant_multiple]] consists of one constant value and one value that may contain [[user_input]].",
		Fields: []grammar.FieldDef{
			{Name: "constant", Field: fields.Group(Group,
				grammar.Args{ArgAllowUserInput: false},
				grammar.Help("A [[numerical_node]] that must evaluate to a constant, "+
					"i.e. that mustn't contain a [[user_input]] anywhere."))},
			{Name: "rest", Field: fields.Group(Group,
				grammar.Args{ArgAllowUserInput: grammar.PassAlong},
				grammar.Help("A [[numerical_node]] of any type."))},
		},
		PostValidate: foldConstantPart,
		Operations: map[grammar.Operation]grammar.OpFunc{
			grammar.OpEvaluate: evaluateConstantMultiple,
		},
	}
}

// foldConstantPart replaces the validated constant part with its evaluation.
// The branch was validated with user input forbidden, so evaluating it here
// cannot block on a prompt. The folded number re-enters validation as a
// constant node, and the whole object is then base-validated once more.
func foldConstantPart(reg *grammar.Registry, obj *grammar.Object, vctx *grammar.Context, args grammar.Args) (*grammar.Object, error) {
	part, _ := obj.Get("constant")

	done, err := vctx.Enter("[validating constant_multiple, evaluating constant part]", part)
	if err != nil {
		return nil, err
	}
	folded, err := reg.Dispatch(grammar.OpEvaluate, grammar.Target{Group: Group}, part, vctx, grammar.Args{})
	if err != nil {
		return nil, err
	}
	done()

	done, err = vctx.Enter("[validating constant_multiple, re-validating constant part after validation]", folded)
	if err != nil {
		return nil, err
	}
	revalidated, err := reg.Dispatch(grammar.OpValidate, grammar.Target{Node: "constant"}, folded, vctx,
		grammar.Args{ArgAllowUserInput: false})
	if err != nil {
		return nil, err
	}
	done()
	obj.Set("constant", revalidated)

	return reg.ValidateBase("constant_multiple", obj, vctx, args)
}

func evaluateConstant(reg *grammar.Registry, obj any, vctx *grammar.Context, args grammar.Args) (any, error) {
	val, ok := objectField(obj, "val")
	if !ok {
		return nil, grammar.NewInternal("numeric: a constant without a val field reached evaluation")
	}
	return asFloat(val)
}

func evaluateUserInput(reg *grammar.Registry, obj any, vctx *grammar.Context, args grammar.Args) (any, error) {
	driver, err := driverFromContext(vctx)
	if err != nil {
		return nil, err
	}
	message, _ := objectField(obj, "message")
	text, _ := message.(string)
	answer, err := driver.Ask(text)
	if err != nil {
		return nil, err
	}
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(answer), 64); err == nil {
		return parsed, nil
	}
	onError, _ := objectField(obj, "on_error")
	if n, err := asFloat(onError); err == nil {
		return n, nil
	}
	// The fallback is itself a user_input node; ask again with its message.
	return reg.Dispatch(grammar.OpEvaluate, grammar.Target{Node: "user_input"}, onError, vctx, args)
}

func evaluateSum(reg *grammar.Registry, obj any, vctx *grammar.Context, args grammar.Args) (any, error) {
	raw, ok := objectField(obj, "summands")
	if !ok {
		return nil, grammar.NewInternal("numeric: a sum without a summands field reached evaluation")
	}
	summands, ok := raw.([]any)
	if !ok {
		return nil, grammar.NewInternal("numeric: the summands of a sum are a %T, not a list", raw)
	}
	var res float64
	for _, summand := range summands {
		n, err := reg.Dispatch(grammar.OpEvaluate, grammar.Target{Group: Group}, summand, vctx, args)
		if err != nil {
			return nil, err
		}
		f, err := asFloat(n)
		if err != nil {
			return nil, err
		}
		res += f
	}
	return res, nil
}

func evaluateConstantMultiple(reg *grammar.Registry, obj any, vctx *grammar.Context, args grammar.Args) (any, error) {
	done, err := vctx.Enter("[evaluating constant_multiple]", obj)
	if err != nil {
		return nil, err
	}
	part, _ := objectField(obj, "constant")
	doneConstant, err := vctx.Enter("[evaluating constant_multiple, constant part]", part)
	if err != nil {
		return nil, err
	}
	rawConstant, err := reg.Dispatch(grammar.OpEvaluate, grammar.Target{Group: Group}, part, vctx, args)
	if err != nil {
		return nil, err
	}
	doneConstant()
	constant, err := asFloat(rawConstant)
	if err != nil {
		return nil, err
	}

	part, _ = objectField(obj, "rest")
	doneRest, err := vctx.Enter("[evaluating constant_multiple, non-constant part]", part)
	if err != nil {
		return nil, err
	}
	rawRest, err := reg.Dispatch(grammar.OpEvaluate, grammar.Target{Group: Group}, part, vctx, args)
	if err != nil {
		return nil, err
	}
	doneRest()
	rest, err := asFloat(rawRest)
	if err != nil {
		return nil, err
	}

	done()
	return constant * rest, nil
}

// Evaluate validates nothing; it walks an already canonical tree and returns
// its numerical value. The driver answers user_input prompts; pass nil to
// forbid prompting.
func Evaluate(reg *grammar.Registry, obj any, driver PromptDriver, opts ...grammar.ContextOption) (float64, error) {
	ctxOpts := []grammar.ContextOption{grammar.WithSharedSlot(promptSlot)}
	if driver != nil {
		ctxOpts = append(ctxOpts, grammar.WithSlot(promptSlot, driver))
	}
	ctxOpts = append(ctxOpts, opts...)
	vctx := grammar.NewContext(ctxOpts...)
	res, err := reg.Operate(grammar.OpEvaluate, grammar.Target{Group: Group}, obj, vctx, grammar.Args{})
	if err != nil {
		return 0, err
	}
	return asFloat(res)
}

// Validate canonicalises a raw value against the numerical grammar.
// allowUserInput controls whether user_input nodes may appear at the top
// level of the tree.
func Validate(reg *grammar.Registry, raw any, allowUserInput bool, opts ...grammar.ContextOption) (*grammar.Object, error) {
	return reg.Validate(Group, raw, grammar.Args{ArgAllowUserInput: allowUserInput}, opts...)
}

func asFloat(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, grammar.NewInternal("numeric: expected a number, got %T", val)
	}
}

// objectField reads a field from either object shape without caring which
// one evaluation received.
func objectField(obj any, name string) (any, bool) {
	switch o := obj.(type) {
	case *grammar.Object:
		return o.Get(name)
	case map[string]any:
		v, ok := o[name]
		return v, ok
	default:
		return nil, false
	}
}
