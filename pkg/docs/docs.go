// Package docs renders HTML reference documentation for a sealed registry:
// one page per documentation page name, with a block per group and per node
// type, field tables, and cross-references resolved from [[name]] link
// shortforms.
package docs

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// Generator builds and caches the documentation pages of one registry.
type Generator struct {
	reg    *grammar.Registry
	theme  *theme.RendererConfig
	policy *bluemonday.Policy

	mu    sync.Mutex
	built bool
	pages map[string]string
}

// Option configures a Generator.
type Option func(*Generator)

// WithTheme attaches a theme whose CSS variables are emitted with every page.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(g *Generator) { g.theme = cfg }
}

// NewGenerator creates a Generator for a sealed registry. Author-provided
// documentation text is sanitised before rendering.
func NewGenerator(reg *grammar.Registry, opts ...Option) *Generator {
	g := &Generator{
		reg:    reg,
		policy: bluemonday.UGCPolicy(),
		pages:  make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Page returns the rendered documentation page. Pages are built lazily on the
// first call, and only once: generation needs the page URL function, which is
// typically wired later than the registry itself.
func (g *Generator) Page(name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		if err := g.buildLocked(); err != nil {
			return "", err
		}
		g.built = true
	}
	page, ok := g.pages[name]
	if !ok {
		return "", grammar.NewInternal("docs: no documentation was registered for page %q", name)
	}
	return page, nil
}

func (g *Generator) buildLocked() error {
	if !g.reg.Finalized() {
		return grammar.NewInternal("docs: the registry must be sealed before documentation can be generated")
	}

	blocks := make(map[string][]string)
	emittedGroups := make(map[string]bool)

	for _, name := range g.reg.Nodes() {
		info, err := g.reg.NodeInfo(name)
		if err != nil {
			return err
		}
		// The first member of a group pulls the group's own block in
		// front of it.
		if info.Group != "" && !emittedGroups[info.Group] {
			emittedGroups[info.Group] = true
			groupInfo, err := g.reg.GroupInfo(info.Group)
			if err != nil {
				return err
			}
			block, err := g.renderGroup(groupInfo)
			if err != nil {
				return err
			}
			blocks[groupInfo.Page] = append(blocks[groupInfo.Page], block)
		}
		block, err := g.renderNode(info)
		if err != nil {
			return err
		}
		blocks[info.Page] = append(blocks[info.Page], block)
	}

	for page, pageBlocks := range blocks {
		rendered, err := g.renderPage(strings.Join(pageBlocks, ""))
		if err != nil {
			return err
		}
		g.pages[page] = rendered
	}
	return nil
}

func (g *Generator) renderPage(content string) (string, error) {
	ctx := pongo2.Context{"content": content}
	if g.theme != nil {
		ctx["themeclass"] = g.theme.Theme
		ctx["style"] = cssVarsStyle(g.theme.CSSVars)
	}
	out, err := pageTemplate.Execute(ctx)
	if err != nil {
		return "", grammar.NewInternal("docs: render page: %v", err)
	}
	return out, nil
}

func (g *Generator) renderNode(info grammar.NodeInfo) (string, error) {
	headerText := fmt.Sprintf("[[%s]]", info.Name)
	if info.Group != "" {
		headerText += fmt.Sprintf(" (A type of [[%s]])", info.Group)
	}
	header, err := g.Enrich(headerText)
	if err != nil {
		return "", err
	}

	descriptionText := info.DocDescription
	if info.ShortformDoc != "" {
		descriptionText += "\nThis node type has a shortform (instead of specifying an object, you can specify only a constant):\n" +
			info.ShortformDoc
	}
	description, err := g.Enrich(g.policy.Sanitize(descriptionText))
	if err != nil {
		return "", err
	}

	fieldRows := make([]pongo2.Context, 0, len(info.Fields))
	for _, fd := range info.Fields {
		row, err := g.fieldRow(fd)
		if err != nil {
			return "", err
		}
		fieldRows = append(fieldRows, row)
	}

	out, err := nodeTemplate.Execute(pongo2.Context{
		"anchor":      info.Name,
		"level":       info.Level,
		"navbar":      info.DocName,
		"header":      header,
		"description": description,
		"fields":      fieldRows,
	})
	if err != nil {
		return "", grammar.NewInternal("docs: render node type %q: %v", info.Name, err)
	}
	return out, nil
}

func (g *Generator) fieldRow(fd grammar.FieldDef) (pongo2.Context, error) {
	spec := fd.Field.Spec()

	var defaultOrRequired string
	switch {
	case spec.Derived:
		defaultOrRequired = "derived field, do not set!"
	case spec.Required():
		defaultOrRequired = "this field is required"
	default:
		encoded, err := json.Marshal(spec.DefaultValue())
		if err != nil {
			return nil, grammar.NewInternal("docs: the default value of field %q is not JSON-serializable: %v", fd.Name, err)
		}
		defaultOrRequired = fmt.Sprintf("default value: %s", encoded)
	}

	null := ""
	if spec.Null {
		null = "can be null"
	}
	classes := ""
	if spec.Derived {
		classes = "field-is-derived"
	}

	purpose, err := g.Enrich(g.policy.Sanitize(spec.Help))
	if err != nil {
		return nil, err
	}
	description, err := g.Enrich(g.policy.Sanitize(fd.Field.Describe()))
	if err != nil {
		return nil, err
	}

	return pongo2.Context{
		"name":        fd.Name,
		"null":        null,
		"default":     defaultOrRequired,
		"classes":     classes,
		"purpose":     purpose,
		"description": description,
	}, nil
}

func (g *Generator) renderGroup(info grammar.GroupInfo) (string, error) {
	header, err := g.Enrich(fmt.Sprintf("[[%s]] (a choice of several types)", info.Name))
	if err != nil {
		return "", err
	}
	description, err := g.Enrich(g.policy.Sanitize(info.Description))
	if err != nil {
		return "", err
	}

	options := make([]pongo2.Context, 0, len(info.Members))
	for _, member := range info.Members {
		memberInfo, err := g.reg.NodeInfo(member.Node)
		if err != nil {
			return "", err
		}
		optionType, err := g.Enrich(fmt.Sprintf("[[%s|%s]]", member.Node, member.Tag))
		if err != nil {
			return "", err
		}
		optionName, err := g.Enrich(fmt.Sprintf("[[%s|%s]]", member.Node, memberInfo.DocName))
		if err != nil {
			return "", err
		}
		optionDescription, err := g.Enrich(g.policy.Sanitize(memberInfo.DocDescription))
		if err != nil {
			return "", err
		}
		options = append(options, pongo2.Context{
			"type":        optionType,
			"name":        optionName,
			"description": optionDescription,
		})
	}

	out, err := groupTemplate.Execute(pongo2.Context{
		"anchor":      info.Name,
		"level":       info.Level,
		"navbar":      info.DocName,
		"header":      header,
		"description": description,
		"options":     options,
	})
	if err != nil {
		return "", grammar.NewInternal("docs: render group %q: %v", info.Name, err)
	}
	return out, nil
}

var linkShortform = regexp.MustCompile(`\[\[([a-zA-Z_\-]+)(\|([a-zA-Z_\-() ]+))?\]\]`)

// Enrich resolves [[target]] and [[target|text]] link shortforms in a
// documentation string into anchors pointing at the target's page, and wraps
// the lines in paragraphs. When no link text is given, the target's readable
// documentation name is used.
func (g *Generator) Enrich(s string) (string, error) {
	matches := linkShortform.FindAllStringSubmatch(s, -1)
	for _, match := range matches {
		target, text := match[1], match[3]
		link, err := g.link(target, text)
		if err != nil {
			return "", err
		}
		s = strings.ReplaceAll(s, match[0], link)
	}

	var paragraphs []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paragraphs = append(paragraphs, "<p>"+line+"</p>")
	}
	return strings.Join(paragraphs, ""), nil
}

// link builds one anchor for a link shortform target, which may name either a
// group or a node type.
func (g *Generator) link(target, text string) (string, error) {
	page, err := g.reg.PageOf(target)
	if err != nil {
		return "", grammar.NewInternal("docs: the link target [[%s]] is neither a node type nor a group", target)
	}
	url, err := g.reg.PageURL(page)
	if err != nil {
		return "", err
	}
	if text == "" {
		if groupInfo, err := g.reg.GroupInfo(target); err == nil {
			text = groupInfo.DocName
		} else if nodeInfo, err := g.reg.NodeInfo(target); err == nil {
			text = nodeInfo.DocName
		}
	}
	return fmt.Sprintf(`<a href="%s#%s">%s</a>`, url, target, text), nil
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}
