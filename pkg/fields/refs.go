package fields

import (
	"fmt"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// RefField references a single node type. Validation recurses into the
// registry with the field's argument template merged over the caller's
// arguments.
type RefField struct {
	spec *grammar.Spec
	node string
	args grammar.Args
}

// Ref creates a reference to the named node type. args is the argument
// template forwarded on recursion; use grammar.PassAlong to defer an argument
// to the caller.
func Ref(node string, args grammar.Args, opts ...grammar.Option) *RefField {
	return &RefField{spec: grammar.NewSpec(opts...), node: node, args: args}
}

// Node reports the referenced node type name.
func (f *RefField) Node() string { return f.node }

func (f *RefField) Spec() *grammar.Spec { return f.spec }

func (f *RefField) References() []grammar.TypeRef {
	return []grammar.TypeRef{{Node: f.node}}
}

func (f *RefField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	return reg.Dispatch(grammar.OpValidate, grammar.Target{Node: f.node}, val, vctx, grammar.MergeArgs(args, f.args))
}

func (f *RefField) Describe() string {
	return fmt.Sprintf("An object: [[%s]].", f.node)
}

// GroupField references a polymorphic group. Validation recurses into the
// registry, which resolves the member by discriminator tag or backtracking.
type GroupField struct {
	spec  *grammar.Spec
	group string
	args  grammar.Args
}

// Group creates a reference to the named group. args is the argument template
// forwarded on recursion.
func Group(group string, args grammar.Args, opts ...grammar.Option) *GroupField {
	return &GroupField{spec: grammar.NewSpec(opts...), group: group, args: args}
}

// GroupName reports the referenced group.
func (f *GroupField) GroupName() string { return f.group }

func (f *GroupField) Spec() *grammar.Spec { return f.spec }

func (f *GroupField) References() []grammar.TypeRef {
	return []grammar.TypeRef{{Group: f.group}}
}

func (f *GroupField) Validate(reg *grammar.Registry, val any, vctx *grammar.Context, args grammar.Args) (any, error) {
	return reg.Dispatch(grammar.OpValidate, grammar.Target{Group: f.group}, val, vctx, grammar.MergeArgs(args, f.args))
}

func (f *GroupField) Describe() string {
	return fmt.Sprintf("One of the [[%s]] objects.", f.group)
}
