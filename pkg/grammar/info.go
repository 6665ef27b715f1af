package grammar

// NodeInfo is the read-only description of a registered node type, exposed
// for documentation and rendering layers. Fields are the fully merged
// declarations in canonical order.
type NodeInfo struct {
	Name           string
	Abstract       bool
	Extends        string
	Group          string
	Tag            string
	DocName        string
	DocDescription string
	ShortformDoc   string
	Page           string
	Level          int
	RequiredArgs   []string
	Fields         []FieldDef
}

// GroupInfo is the read-only description of a registered group.
type GroupInfo struct {
	Name        string
	DocName     string
	Description string
	Page        string
	Level       int
	Members     []Member
}

// Nodes returns the non-abstract node type names in registration order.
func (r *Registry) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.nodeOrder))
	copy(out, r.nodeOrder)
	return out
}

// Groups returns the group names in registration order.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.grpOrder))
	copy(out, r.grpOrder)
	return out
}

// NodeInfo returns the merged description of a node type, abstract ones
// included.
func (r *Registry) NodeInfo(name string) (NodeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	if !ok {
		return NodeInfo{}, NewInternal("grammar: unknown node type %q", name)
	}
	info := NodeInfo{
		Name:           n.def.Name,
		Abstract:       n.def.Abstract,
		Extends:        n.def.Extends,
		Group:          n.def.Group,
		Tag:            n.def.Tag,
		DocName:        n.docName,
		DocDescription: n.docDesc,
		ShortformDoc:   n.docShortform,
		Page:           n.page,
		Level:          n.level,
		RequiredArgs:   append([]string(nil), n.requiredArgs...),
		Fields:         append([]FieldDef(nil), n.fields...),
	}
	return info, nil
}

// GroupInfo returns the description of a group and its members in
// registration order.
func (r *Registry) GroupInfo(name string) (GroupInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[name]
	if !ok {
		return GroupInfo{}, NewInternal("grammar: unknown group %q", name)
	}
	return GroupInfo{
		Name:        g.name,
		DocName:     g.docName,
		Description: g.docDesc,
		Page:        g.page,
		Level:       g.level,
		Members:     append([]Member(nil), g.members...),
	}, nil
}

// GroupMembers returns the tag-to-node membership of a group in registration
// order.
func (r *Registry) GroupMembers(name string) ([]Member, error) {
	info, err := r.GroupInfo(name)
	if err != nil {
		return nil, err
	}
	return info.Members, nil
}

// PageURL maps a documentation page name to its URL using the function set
// with SetPageURLFunc.
func (r *Registry) PageURL(page string) (string, error) {
	r.mu.RLock()
	fn := r.pageURL
	r.mu.RUnlock()
	if fn == nil {
		return "", NewInternal("grammar: no page URL function is set; call SetPageURLFunc before rendering documentation")
	}
	return fn(page), nil
}

// PageOf returns the documentation page a name was registered on, checking
// node types first, then groups.
func (r *Registry) PageOf(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.nodes[name]; ok {
		return n.page, nil
	}
	if g, ok := r.groups[name]; ok {
		return g.page, nil
	}
	return "", NewInternal("grammar: %q is neither a node type nor a group", name)
}
