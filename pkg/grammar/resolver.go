package grammar

import (
	"fmt"
	"strings"
)

// Target names what a dispatch is aimed at: exactly one of a single node type
// or a polymorphic group.
type Target struct {
	Node  string
	Group string
}

func (t Target) String() string {
	if t.Node != "" {
		return fmt.Sprintf("node type %q", t.Node)
	}
	return fmt.Sprintf("group %q", t.Group)
}

// Dispatch resolves a target against a value and runs the named operation on
// the selected node type. For validation against a group whose discriminator
// tag is absent, resolution falls back to backtracking: every candidate is
// attempted in an isolated copy of the context, and only an unambiguous
// winner is accepted.
//
// Operations other than validation require the tag to be present already;
// validation must have run first, so a missing tag at that point is an
// internal error, never the caller's fault.
func (r *Registry) Dispatch(op Operation, target Target, obj any, vctx *Context, args Args) (any, error) {
	if !r.Finalized() {
		return nil, NewInternal("grammar: dispatch requires a sealed registry; call Finalize first")
	}
	if (target.Node == "") == (target.Group == "") {
		return nil, NewInternal("grammar: a dispatch target needs either a node type or a group, not %s", describeTarget(target))
	}
	if vctx == nil {
		return nil, NewInternal("grammar: dispatch requires a context")
	}
	if args == nil {
		args = Args{}
	}

	candidates, group, err := r.candidates(target)
	if err != nil {
		return nil, err
	}

	// A deliberate shortcut for interactive schema discovery: an empty
	// object against a multi-member group lists the choices instead of
	// failing each of them in turn.
	if len(candidates) > 1 && isObject(obj) && objectLen(obj) == 0 {
		return nil, NewInvalidInput("submitted an empty object.\nValid types are: %s\n"+
			"Select one of the valid types for a description of its fields.",
			strings.Join(nodeNames(candidates), ", "))
	}

	if op == OpValidate {
		for _, candidate := range candidates {
			if err := checkRequiredArgs(candidate, args); err != nil {
				return nil, err
			}
		}
	}

	selected, err := r.selectCandidate(candidates, group, obj)
	if err != nil {
		return nil, err
	}
	if selected != nil {
		return r.run(op, selected, candidates, obj, vctx, args)
	}

	if op != OpValidate {
		return nil, NewInternal("grammar: cannot dispatch operation %q onto unresolved %s: "+
			"validation resolves the ambiguity by stamping the type tag, and must run first", op, target)
	}
	return r.backtrack(candidates, obj, vctx, args)
}

func describeTarget(t Target) string {
	if t.Node != "" && t.Group != "" {
		return "both"
	}
	return "neither"
}

// candidates resolves the target into the ordered list of node types that
// might match, plus the group entry when the target is a group.
func (r *Registry) candidates(target Target) ([]*node, *groupEntry, error) {
	if target.Node != "" {
		n, err := r.lookupNode(target.Node)
		if err != nil {
			return nil, nil, err
		}
		return []*node{n}, nil, nil
	}
	group, err := r.lookupGroup(target.Group)
	if err != nil {
		return nil, nil, err
	}
	members := make([]*node, 0, len(group.members))
	for _, member := range group.members {
		n, err := r.lookupNode(member.Node)
		if err != nil {
			return nil, nil, err
		}
		members = append(members, n)
	}
	if len(members) == 0 {
		return nil, nil, NewInternal("grammar: group %q has no members", target.Group)
	}
	return members, group, nil
}

// checkRequiredArgs verifies the context arguments match a candidate's
// declaration exactly. A mismatch is a programming error in the calling
// grammar, not bad input.
func checkRequiredArgs(candidate *node, args Args) error {
	required := candidate.requiredArgs
	mismatch := len(required) != len(args)
	if !mismatch {
		for _, name := range required {
			if _, ok := args[name]; !ok {
				mismatch = true
				break
			}
		}
	}
	if mismatch {
		return NewInternal("grammar: the context arguments do not match for node type %q.\nWas: %s\nShould be: %s",
			candidate.def.Name, strings.Join(argNames(args), ", "), strings.Join(required, ", "))
	}
	return nil
}

func argNames(args Args) []string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	return names
}

func nodeNames(candidates []*node) []string {
	names := make([]string, len(candidates))
	for i, candidate := range candidates {
		names[i] = candidate.def.Name
	}
	return names
}

// selectCandidate picks the node type directly when no ambiguity exists:
// single candidate, or a discriminator tag on the value. A nil result with a
// nil error means the choice is genuinely ambiguous.
func (r *Registry) selectCandidate(candidates []*node, group *groupEntry, obj any) (*node, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	rawTag, ok := objectKey(obj, "type")
	if !ok {
		return nil, nil
	}
	tag, ok := rawTag.(string)
	if !ok {
		return nil, NewInvalidInput("the \"type\" field must be a string")
	}
	nodeName, ok := group.tags[tag]
	if !ok {
		return nil, NewInvalidInput("the type %q is not valid.\nValid types are: %s",
			tag, strings.Join(groupTags(group), ", "))
	}
	return r.lookupNode(nodeName)
}

func groupTags(group *groupEntry) []string {
	tags := make([]string, len(group.members))
	for i, member := range group.members {
		tags[i] = member.Tag
	}
	return tags
}

// run executes the operation on an unambiguously selected node type.
func (r *Registry) run(op Operation, selected *node, candidates []*node, obj any, vctx *Context, args Args) (any, error) {
	if op != OpValidate {
		fn, ok := selected.def.Operations[op]
		if !ok {
			return nil, NewInternal("grammar: node type %q does not implement operation %q", selected.def.Name, op)
		}
		return fn(r, obj, vctx, args)
	}

	res, err := r.validateNode(selected, obj, vctx, args)
	if err != nil {
		return nil, err
	}
	return r.stampTag(selected, candidates, obj, res)
}

// stampTag places the discriminator tag first in the result of a validation
// when the selected node type belongs to a group. A node's PostValidate hook
// may have replaced the node with another group member; in that case its tag
// is kept, as long as it names one of the candidates.
func (r *Registry) stampTag(selected *node, candidates []*node, obj any, res *Object) (*Object, error) {
	if selected.def.Tag == "" {
		return res, nil
	}
	if given, ok := objectKey(obj, "type"); ok {
		if tag, isString := given.(string); isString && tag != selected.def.Tag {
			return nil, NewInternal("grammar: the input named type %q but validation selected %q; this should not be possible",
				tag, selected.def.Tag)
		}
	}
	if produced, ok := res.Get("type"); ok {
		tag, isString := produced.(string)
		if !isString {
			return nil, NewInternal("grammar: node type %q produced a non-string type tag", selected.def.Name)
		}
		valid := false
		for _, candidate := range candidates {
			if candidate.def.Tag == tag {
				valid = true
				break
			}
		}
		if !valid {
			return nil, NewInternal("grammar: node type %q replaced its tag with %q, which is not one of the requested candidates",
				selected.def.Name, tag)
		}
		return withTagFirst(res, tag), nil
	}
	return withTagFirst(res, selected.def.Tag), nil
}

// backtrack attempts every candidate against the value in a fresh isolated
// context. Exactly one success wins: its result is adopted together with its
// context effects. Zero or multiple successes are input errors that ask the
// caller to disambiguate with an explicit tag.
func (r *Registry) backtrack(candidates []*node, obj any, vctx *Context, args Args) (any, error) {
	type success struct {
		candidate *node
		res       *Object
		branch    *Context
	}
	var successes []success
	for _, candidate := range candidates {
		branch := vctx.clone()
		res, err := r.validateNode(candidate, obj, branch, args)
		if err != nil {
			if IsInvalidInput(err) {
				continue
			}
			return nil, err
		}
		successes = append(successes, success{candidate: candidate, res: res, branch: branch})
	}

	switch len(successes) {
	case 1:
		winner := successes[0]
		stamped, err := r.stampTag(winner.candidate, candidates, obj, winner.res)
		if err != nil {
			return nil, err
		}
		vctx.adopt(winner.branch)
		return stamped, nil
	case 0:
		tags := make([]string, len(candidates))
		for i, candidate := range candidates {
			tags[i] = candidate.def.Tag
		}
		return nil, NewInvalidInput("no valid way to parse this value could be found. "+
			"Set a \"type\" field manually for a more detailed error message.\nPossible types are: %s",
			strings.Join(tags, ", "))
	default:
		tags := make([]string, len(successes))
		for i, s := range successes {
			tags[i] = fmt.Sprintf("%q", s.candidate.def.Tag)
		}
		return nil, NewInvalidInput("the value is ambiguous and matched several possible types. "+
			"Set the \"type\" field manually to one of the valid values: %s", strings.Join(tags, ", "))
	}
}

// Resolve reports which node type a target selects for an already validated
// value without running any operation. Group targets require the
// discriminator tag to be present.
func (r *Registry) Resolve(target Target, obj any) (string, error) {
	if (target.Node == "") == (target.Group == "") {
		return "", NewInternal("grammar: a resolve target needs either a node type or a group")
	}
	candidates, group, err := r.candidates(target)
	if err != nil {
		return "", err
	}
	selected, err := r.selectCandidate(candidates, group, obj)
	if err != nil {
		return "", err
	}
	if selected == nil {
		return "", NewInternal("grammar: cannot resolve unresolved %s: the value carries no type tag", target)
	}
	return selected.def.Name, nil
}

// Validate resolves the named group against a raw value and returns the
// canonical, field-ordered, default-filled tree. On failure the error carries
// the position trace and a bounded snapshot of the offending value.
func (r *Registry) Validate(group string, raw any, args Args, opts ...ContextOption) (*Object, error) {
	vctx := NewContext(opts...)
	res, err := r.Dispatch(OpValidate, Target{Group: group}, raw, vctx, args)
	if err != nil {
		return nil, enrich(err, vctx)
	}
	if vctx.Depth() != 0 {
		return nil, NewInternal("grammar: the trace stack is imbalanced after validation; a node pushes without popping")
	}
	obj, ok := res.(*Object)
	if !ok {
		return nil, NewInternal("grammar: validation produced a %T instead of an object", res)
	}
	return obj, nil
}

// Operate runs a non-validation operation over a canonical value, enriching
// any error with the failure trace. A nil context gets a fresh one.
func (r *Registry) Operate(op Operation, target Target, obj any, vctx *Context, args Args) (any, error) {
	if vctx == nil {
		vctx = NewContext()
	}
	res, err := r.Dispatch(op, target, obj, vctx, args)
	if err != nil {
		return nil, enrich(err, vctx)
	}
	return res, nil
}
