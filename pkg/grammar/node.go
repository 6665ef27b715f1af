package grammar

import "strings"

// Operation names one of the closed set of tree walks the resolver can
// dispatch. Validation is built into the engine; every other operation is
// supplied per node type through NodeType.Operations.
type Operation string

const (
	OpValidate Operation = "validate"
	OpEvaluate Operation = "evaluate"
	OpRender   Operation = "render"
)

// OpFunc implements a non-validation operation for one node type. obj is a
// canonical value previously produced by validation.
type OpFunc func(reg *Registry, obj any, vctx *Context, args Args) (any, error)

// PostValidateFunc wraps the base validation contract with node-specific
// logic. It receives the base-validated object and must return a value
// satisfying the same ordering and defaulting guarantees, typically by
// finishing with Registry.ValidateBase.
type PostValidateFunc func(reg *Registry, obj *Object, vctx *Context, args Args) (*Object, error)

// FieldDef pairs a field name with its validation rule.
type FieldDef struct {
	Name  string
	Field Field
}

// Shortform lets a node accept a non-object literal which is expanded into
// canonical object form before validation proceeds.
type Shortform struct {
	// Field validates the literal before conversion.
	Field Field
	// Convert expands the literal into the canonical object shape.
	Convert func(val any) map[string]any
	// Doc describes the shortform in generated documentation.
	Doc string
}

// NodeType declares a named record type for registration. Fields listed here
// are the type's own declarations; ancestors contribute theirs through
// Extends. All slices are read once at Register time and not retained.
type NodeType struct {
	// Name uniquely identifies the node type.
	Name string
	// Extends names a previously registered (usually abstract) parent whose
	// fields and settings are inherited.
	Extends string
	// Abstract types only contribute fields and settings to descendants;
	// they cannot be validated against and need no documentation.
	Abstract bool
	// Group and Tag place the type into a polymorphic group under a unique
	// discriminator tag. Both or neither must be set.
	Group string
	Tag   string
	// DocName and DocDescription are mandatory for non-abstract types.
	DocName        string
	DocDescription string
	// RequiredArgs lists the context argument names the validation entry
	// point requires. nil inherits the nearest ancestor's declaration; an
	// empty slice declares "none".
	RequiredArgs []string
	// QuietDrop lists input keys that are accepted but dropped from the
	// result. Accumulated across the inheritance chain.
	QuietDrop []string
	// Overrides whitelists field names this type may redeclare over an
	// ancestor's declaration.
	Overrides []string
	// Shortform, if set, allows non-object literals for this type.
	Shortform *Shortform
	// Fields are the type's own field declarations, in declaration order.
	Fields []FieldDef
	// PostValidate runs after the base validation contract.
	PostValidate PostValidateFunc
	// Operations supplies the non-validation operations this type supports.
	Operations map[Operation]OpFunc
}

// node is the resolved, registry-internal form of a NodeType after
// inheritance merging.
type node struct {
	def          NodeType
	fields       []FieldDef
	fieldNames   []string
	requiredArgs []string
	quietDrop    []string
	shortform    *Shortform
	docName      string
	docDesc      string
	docShortform string
	page         string
	level        int
}

func (n *node) hasField(name string) bool {
	for _, candidate := range n.fieldNames {
		if candidate == name {
			return true
		}
	}
	return false
}

func (n *node) quietlyDrops(name string) bool {
	for _, candidate := range n.quietDrop {
		if candidate == name {
			return true
		}
	}
	return false
}

// validateNode implements the per-node validation contract: shortform
// expansion, unknown-key rejection, per-field validation in merged
// declaration order, default filling and the null check, followed by the
// node's own PostValidate hook.
func (r *Registry) validateNode(n *node, obj any, vctx *Context, args Args) (*Object, error) {
	if n.shortform != nil && !isObject(obj) {
		done, err := vctx.Enter("conversion from shortform", obj)
		if err != nil {
			return nil, err
		}
		if _, err := r.ValidateField(n.shortform.Field, obj, vctx, args); err != nil {
			return nil, err
		}
		converted := n.shortform.Convert(obj)
		if converted == nil {
			return nil, NewInternal("grammar: the shortform conversion of %q did not return an object", n.def.Name)
		}
		done()
		obj = map[string]any(converted)
	} else if !isObject(obj) {
		return nil, NewInvalidInput("the value must be an object")
	}

	for _, key := range objectKeys(obj) {
		if n.quietlyDrops(key) {
			continue
		}
		if key == "type" && n.def.Group != "" {
			continue
		}
		if !n.hasField(key) {
			return nil, NewInvalidInput("%q is not a valid field name.\nValid field names are:\n%s",
				key, strings.Join(n.fieldNames, "\n"))
		}
	}

	res := NewObject()
	for _, fd := range n.fields {
		spec := fd.Field.Spec()
		if spec.NoAutoValidate {
			continue
		}
		if val, ok := objectKey(obj, fd.Name); ok {
			done, err := vctx.Enter(fd.Name, val)
			if err != nil {
				return nil, err
			}
			validated, err := r.ValidateField(fd.Field, val, vctx, args)
			if err != nil {
				return nil, err
			}
			done()
			res.Set(fd.Name, validated)
		} else {
			if spec.Required() {
				return nil, NewInvalidInput("missing value for the required field %q", fd.Name)
			}
			if !spec.OmitDefault {
				res.Set(fd.Name, deepCopyValue(spec.DefaultValue()))
			}
		}
		if !spec.OmitDefault {
			if filled, ok := res.Get(fd.Name); ok && filled == nil && !spec.Null {
				return nil, NewInvalidInput("the value of field %q must not be null", fd.Name)
			}
		}
	}

	if n.def.PostValidate != nil {
		return n.def.PostValidate(r, res, vctx, args)
	}
	return res, nil
}

// ValidateBase runs the base validation contract for the named node type,
// skipping its PostValidate hook. Hooks use this to re-validate the object
// they have amended without recursing into themselves.
func (r *Registry) ValidateBase(nodeName string, obj any, vctx *Context, args Args) (*Object, error) {
	n, err := r.lookupNode(nodeName)
	if err != nil {
		return nil, err
	}
	base := *n
	base.def.PostValidate = nil
	return r.validateNode(&base, obj, vctx, args)
}
