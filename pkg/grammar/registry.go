package grammar

import (
	"sort"
	"sync"
)

// groupEntry is the registry-internal form of a polymorphic group.
type groupEntry struct {
	name    string
	tags    map[string]string
	members []Member
	docName string
	docDesc string
	page    string
	level   int
}

// Member describes one group member: the discriminator tag and the node type
// it selects.
type Member struct {
	Tag  string
	Node string
}

// Registry is the process-wide table of node types and polymorphic groups.
// It is populated by explicit registration calls at startup, sealed by
// Finalize, and read-only afterwards: sealed registries are safe for
// concurrent validation without further synchronisation.
type Registry struct {
	mu sync.RWMutex

	nodes     map[string]*node
	nodeOrder []string
	groups    map[string]*groupEntry
	grpOrder  []string

	referencedNodes  map[string]struct{}
	referencedGroups map[string]struct{}

	currentPage string
	groupStack  []string
	pageURL     func(page string) string

	finalized bool
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		nodes:            make(map[string]*node),
		groups:           make(map[string]*groupEntry),
		referencedNodes:  make(map[string]struct{}),
		referencedGroups: make(map[string]struct{}),
	}
}

// SetCurrentPage selects the documentation page for subsequently registered
// node types and groups. Call it between registrations when a schema spans
// multiple pages.
func (r *Registry) SetCurrentPage(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentPage = name
}

// SetPageURLFunc supplies the mapping from a documentation page name to its
// URL. Documentation rendering fails with an internal error until it is set.
func (r *Registry) SetPageURLFunc(fn func(page string) string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pageURL = fn
}

// BeginGroup opens a polymorphic group block: it registers the group with its
// mandatory documentation and makes it the active block node registrations
// must belong to until EndGroup.
func (r *Registry) BeginGroup(name, docName, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return NewInternal("grammar: cannot register group %q: the registry is sealed", name)
	}
	if name == "" {
		return NewInternal("grammar: a group needs a name")
	}
	if _, exists := r.groups[name]; exists {
		return NewInternal("grammar: group %q is already registered", name)
	}
	if docName == "" || description == "" {
		return NewInternal("grammar: group %q needs documentation; both a readable name and a description are mandatory", name)
	}
	r.groups[name] = &groupEntry{
		name:    name,
		tags:    make(map[string]string),
		docName: docName,
		docDesc: description,
		page:    r.currentPage,
		level:   10 * (1 + len(r.groupStack)),
	}
	r.grpOrder = append(r.grpOrder, name)
	r.groupStack = append(r.groupStack, name)
	return nil
}

// EndGroup closes the most recently opened group block.
func (r *Registry) EndGroup(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.groupStack) == 0 || r.groupStack[len(r.groupStack)-1] != name {
		return NewInternal("grammar: group %q is not the currently open group block", name)
	}
	r.groupStack = r.groupStack[:len(r.groupStack)-1]
	return nil
}

// MustBeginGroup panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustBeginGroup(name, docName, description string) {
	if err := r.BeginGroup(name, docName, description); err != nil {
		panic(err)
	}
}

// MustEndGroup panics on failure.
func (r *Registry) MustEndGroup(name string) {
	if err := r.EndGroup(name); err != nil {
		panic(err)
	}
}

// Register adds a node type. Its parent chain must already be registered;
// inherited fields and settings are resolved here, once, so lookups during
// validation are flat.
func (r *Registry) Register(def NodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return NewInternal("grammar: cannot register node type %q: the registry is sealed", def.Name)
	}
	if def.Name == "" {
		return NewInternal("grammar: a node type needs a name")
	}
	if _, exists := r.nodes[def.Name]; exists {
		return NewInternal("grammar: cannot define two node types with the same name: %s", def.Name)
	}
	if (def.Group == "") != (def.Tag == "") {
		return NewInternal("grammar: node type %q: a group membership needs both a group and a tag", def.Name)
	}
	if def.Abstract && def.Group != "" {
		return NewInternal("grammar: abstract node type %q cannot belong to a group", def.Name)
	}

	lineage, err := r.lineageLocked(def)
	if err != nil {
		return err
	}

	resolved, err := r.mergeLineage(def, lineage)
	if err != nil {
		return err
	}

	if !def.Abstract && (resolved.docName == "" || resolved.docDesc == "") {
		return NewInternal("grammar: node type %q needs documentation; both a readable name and a description are mandatory", def.Name)
	}

	if def.Group != "" {
		group, ok := r.groups[def.Group]
		if !ok {
			return NewInternal("grammar: node type %q names group %q, which has no BeginGroup block", def.Name, def.Group)
		}
		if len(r.groupStack) == 0 || r.groupStack[len(r.groupStack)-1] != def.Group {
			return NewInternal("grammar: node type %q registered outside the open block of group %q", def.Name, def.Group)
		}
		if _, dup := group.tags[def.Tag]; dup {
			return NewInternal("grammar: cannot define the tag %q of group %q twice", def.Tag, def.Group)
		}
		group.tags[def.Tag] = def.Name
		group.members = append(group.members, Member{Tag: def.Tag, Node: def.Name})
	}

	resolved.page = r.currentPage
	resolved.level = 10 * (1 + len(r.groupStack))

	for _, fd := range resolved.fields {
		r.recordReferencesLocked(fd.Field)
	}
	if resolved.shortform != nil {
		r.recordReferencesLocked(resolved.shortform.Field)
	}

	r.nodes[def.Name] = resolved
	if !def.Abstract {
		r.nodeOrder = append(r.nodeOrder, def.Name)
	}
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(def NodeType) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// lineageLocked resolves the ancestor chain of def, root-most first.
func (r *Registry) lineageLocked(def NodeType) ([]*node, error) {
	var lineage []*node
	seen := map[string]struct{}{def.Name: {}}
	for parent := def.Extends; parent != ""; {
		if _, cyclic := seen[parent]; cyclic {
			return nil, NewInternal("grammar: node type %q has a cyclic parent chain", def.Name)
		}
		seen[parent] = struct{}{}
		p, ok := r.nodes[parent]
		if !ok {
			return nil, NewInternal("grammar: node type %q extends unknown node type %q", def.Name, parent)
		}
		lineage = append(lineage, p)
		parent = p.def.Extends
	}
	// Collected child-most first; flip to root-most first.
	for i, j := 0, len(lineage)-1; i < j; i, j = i+1, j-1 {
		lineage[i], lineage[j] = lineage[j], lineage[i]
	}
	return lineage, nil
}

// mergeLineage produces the resolved node: fields merged root-most to
// most-specific and ordered by field creation order, settings propagated with
// most-specific-wins (QuietDrop accumulates instead).
func (r *Registry) mergeLineage(def NodeType, lineage []*node) (*node, error) {
	resolved := &node{def: def}

	merged := make(map[string]FieldDef)
	allowOverride := make(map[string]struct{}, len(def.Overrides))
	for _, name := range def.Overrides {
		allowOverride[name] = struct{}{}
	}

	ownFields := func(owner string, defs []FieldDef) error {
		for _, fd := range defs {
			if fd.Name == "" || fd.Field == nil {
				return NewInternal("grammar: node type %q declares an incomplete field definition", owner)
			}
			if _, dup := merged[fd.Name]; dup {
				if _, ok := allowOverride[fd.Name]; !ok {
					return NewInternal("grammar: field %q in node type %q is already defined; "+
						"list it in Overrides to redeclare it on purpose", fd.Name, def.Name)
				}
			}
			merged[fd.Name] = fd
		}
		return nil
	}

	apply := func(ancestor NodeType) error {
		if err := ownFields(ancestor.Name, ancestor.Fields); err != nil {
			return err
		}
		if ancestor.RequiredArgs != nil {
			resolved.requiredArgs = ancestor.RequiredArgs
		}
		resolved.quietDrop = append(resolved.quietDrop, ancestor.QuietDrop...)
		if ancestor.DocName != "" {
			resolved.docName = ancestor.DocName
		}
		if ancestor.DocDescription != "" {
			resolved.docDesc = ancestor.DocDescription
		}
		if ancestor.Shortform != nil {
			resolved.shortform = ancestor.Shortform
			resolved.docShortform = ancestor.Shortform.Doc
		}
		return nil
	}

	for _, ancestor := range lineage {
		if err := apply(ancestor.def); err != nil {
			return nil, err
		}
	}
	if err := apply(def); err != nil {
		return nil, err
	}

	resolved.fields = make([]FieldDef, 0, len(merged))
	for _, fd := range merged {
		resolved.fields = append(resolved.fields, fd)
	}
	sort.Slice(resolved.fields, func(i, j int) bool {
		return resolved.fields[i].Field.Spec().Order() < resolved.fields[j].Field.Spec().Order()
	})
	resolved.fieldNames = make([]string, len(resolved.fields))
	for i, fd := range resolved.fields {
		resolved.fieldNames[i] = fd.Name
	}
	return resolved, nil
}

func (r *Registry) recordReferencesLocked(f Field) {
	if f == nil {
		return
	}
	_ = walkFields(f, func(child Field) error {
		if referencer, ok := child.(Referencer); ok {
			for _, ref := range referencer.References() {
				if ref.Node != "" {
					r.referencedNodes[ref.Node] = struct{}{}
				}
				if ref.Group != "" {
					r.referencedGroups[ref.Group] = struct{}{}
				}
			}
		}
		return nil
	})
}

// Finalize seals the registry and runs the cross-reference consistency
// checks: every referenced node type and group must be defined, no group name
// may collide with a node-type name, and every field definition must be
// internally consistent, including its default value.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return NewInternal("grammar: the registry is already sealed")
	}
	if len(r.groupStack) != 0 {
		open := r.groupStack[len(r.groupStack)-1]
		r.mu.Unlock()
		return NewInternal("grammar: cannot seal the registry while group block %q is still open", open)
	}

	for name := range r.referencedNodes {
		n, ok := r.nodes[name]
		if !ok {
			r.mu.Unlock()
			return NewInternal("grammar: the node type %q was referenced but never defined", name)
		}
		if n.def.Abstract {
			r.mu.Unlock()
			return NewInternal("grammar: the referenced node type %q is abstract and cannot be validated against", name)
		}
	}
	for name := range r.referencedGroups {
		if _, ok := r.groups[name]; !ok {
			r.mu.Unlock()
			return NewInternal("grammar: the group %q was referenced but never defined", name)
		}
	}
	for name := range r.groups {
		if _, collision := r.nodes[name]; collision {
			r.mu.Unlock()
			return NewInternal("grammar: there are both a group and a node type called %q", name)
		}
	}

	// Seal before field checks: default-value validation below runs the
	// normal validation path, which requires a sealed registry.
	r.finalized = true
	r.mu.Unlock()

	for _, n := range r.nodes {
		for _, fd := range n.fields {
			if err := r.checkFieldDefinition(n.def.Name, fd.Name, fd.Field); err != nil {
				return err
			}
		}
		if n.shortform != nil {
			if err := r.checkFieldDefinition(n.def.Name, "(shortform)", n.shortform.Field); err != nil {
				return err
			}
		}
	}
	return nil
}

// MustFinalize panics when sealing fails.
func (r *Registry) MustFinalize() {
	if err := r.Finalize(); err != nil {
		panic(err)
	}
}

func (r *Registry) checkFieldDefinition(nodeName, fieldName string, f Field) error {
	return walkFields(f, func(child Field) error {
		if err := child.Spec().check(); err != nil {
			return NewInternal("grammar: field %q of node type %q: %v", fieldName, nodeName, err)
		}
		if checker, ok := child.(Checker); ok {
			if err := checker.Check(r); err != nil {
				return NewInternal("grammar: field %q of node type %q: %v", fieldName, nodeName, err)
			}
		}
		if def := child.Spec().Default; def != nil {
			vctx := NewContext()
			if _, err := r.ValidateField(child, def, vctx, Args{}); err != nil {
				return NewInternal("grammar: the default value of field %q of node type %q is not valid: %v",
					fieldName, nodeName, err)
			}
		}
		return nil
	})
}

// Finalized reports whether the registry has been sealed.
func (r *Registry) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalized
}

func (r *Registry) lookupNode(name string) (*node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	if !ok {
		return nil, NewInternal("grammar: unknown node type %q", name)
	}
	if n.def.Abstract {
		return nil, NewInternal("grammar: node type %q is abstract and cannot be dispatched to", name)
	}
	return n, nil
}

func (r *Registry) lookupGroup(name string) (*groupEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[name]
	if !ok {
		return nil, NewInternal("grammar: unknown group %q", name)
	}
	return g, nil
}
