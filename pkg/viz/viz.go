// Package viz renders validated trees as annotated HTML: the output reads as
// the JSON description of the object, enriched with links into the generated
// documentation and with highlighting for values that equal their defaults.
// A plain-text rendition is produced alongside for copy-paste use.
package viz

import (
	"encoding/json"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/goliatone/go-schematree/pkg/docs"
	"github.com/goliatone/go-schematree/pkg/fields"
	"github.com/goliatone/go-schematree/pkg/grammar"
)

// Result holds the four renditions of one object: with and without default
// values, each as annotated HTML and as plain JSON text.
type Result struct {
	HTML             string
	Text             string
	HTMLSkipDefaults string
	TextSkipDefaults string
}

// Renderer visualises canonical objects of one registry. The docs generator
// supplies the documentation links for the annotations.
type Renderer struct {
	reg    *grammar.Registry
	docs   *docs.Generator
	indent string
}

// NewRenderer creates a Renderer.
func NewRenderer(reg *grammar.Registry, gen *docs.Generator) *Renderer {
	return &Renderer{reg: reg, docs: gen, indent: strings.Repeat(" ", 4)}
}

// Render visualises a canonical object previously validated against the
// named group.
func (r *Renderer) Render(group string, obj any) (*Result, error) {
	full, err := r.renderOnce(group, obj, false)
	if err != nil {
		return nil, err
	}
	skipped, err := r.renderOnce(group, obj, true)
	if err != nil {
		return nil, err
	}
	return &Result{
		HTML:             full.html.String(),
		Text:             full.text.String(),
		HTMLSkipDefaults: skipped.html.String(),
		TextSkipDefaults: skipped.text.String(),
	}, nil
}

func (r *Renderer) renderOnce(group string, obj any, skipDefaults bool) (*builder, error) {
	b := &builder{indent: r.indent, skipDefaults: skipDefaults}
	nodeName, err := r.reg.Resolve(grammar.Target{Group: group}, obj)
	if err != nil {
		return nil, err
	}
	if err := r.renderObject(nodeName, obj, b); err != nil {
		return nil, err
	}
	return b, nil
}

// builder accumulates the two renditions in parallel. Literal fragments are
// the JSON text itself and go into both outputs, escaped on the HTML side;
// markup fragments exist only in the HTML output.
type builder struct {
	html         strings.Builder
	text         strings.Builder
	level        int
	indent       string
	skipDefaults bool
}

func (b *builder) literal(s string) {
	b.text.WriteString(s)
	b.html.WriteString(html.EscapeString(s))
}

func (b *builder) markup(s string) {
	b.html.WriteString(s)
}

func (b *builder) pad() {
	b.literal(strings.Repeat(b.indent, b.level))
}

// renderObject writes one node object: an annotation linking to the node's
// documentation, the discriminator tag when the node belongs to a group, and
// every printable field in canonical order.
func (r *Renderer) renderObject(nodeName string, obj any, b *builder) error {
	info, err := r.reg.NodeInfo(nodeName)
	if err != nil {
		return err
	}

	annotation := fmt.Sprintf(`value="%s"`, info.Name)
	if info.Group != "" {
		annotation += fmt.Sprintf(` choice="%s"`, info.Group)
	}
	link, err := r.docs.Enrich(fmt.Sprintf("[[%s]]", info.Name))
	if err != nil {
		return err
	}
	b.markup(`<span class="syntax-trees-object-dict">`)
	b.markup(fmt.Sprintf(`<span class="syntax-trees-object-dict-annotation" %s>%s</span>`, annotation, link))

	type printable struct {
		def       *grammar.FieldDef
		value     any
		isDefault bool
	}
	var rows []printable
	if info.Group != "" {
		rows = append(rows, printable{})
	}
	for i := range info.Fields {
		fd := &info.Fields[i]
		spec := fd.Field.Spec()
		value, present := objectField(obj, fd.Name)
		if !present {
			if spec.OmitDefault {
				continue
			}
			// Objects validated under an older schema may lack fields
			// added since; fall back to the default.
			value = spec.DefaultValue()
		}
		isDefault := equalValue(value, spec.DefaultValue())
		if isDefault && b.skipDefaults {
			continue
		}
		rows = append(rows, printable{def: fd, value: value, isDefault: isDefault})
	}

	b.literal("{\n")
	b.level++
	for i, row := range rows {
		b.pad()
		if row.def == nil {
			b.literal(fmt.Sprintf(`"type" : "%s"`, info.Tag))
		} else {
			if row.isDefault {
				b.markup(`<span class="syntax-trees-object-field-value-is-default-value">`)
			}
			name, _ := json.Marshal(row.def.Name)
			b.literal(string(name))
			b.literal(" : ")
			if err := r.renderFieldValue(row.def.Field, row.value, b); err != nil {
				return err
			}
			if row.isDefault {
				b.markup(`</span>`)
			}
		}
		if i != len(rows)-1 {
			b.literal(",")
		}
		b.literal("\n")
	}
	b.level--
	b.pad()
	b.literal("}")
	b.markup(`</span>`)
	return nil
}

// renderFieldValue routes a field value to the rendering its kind requires.
func (r *Renderer) renderFieldValue(f grammar.Field, val any, b *builder) error {
	if val == nil {
		b.literal("null")
		return nil
	}
	switch field := f.(type) {
	case *fields.RefField:
		return r.renderObject(field.Node(), val, b)
	case *fields.GroupField:
		nodeName, err := r.reg.Resolve(grammar.Target{Group: field.GroupName()}, val)
		if err != nil {
			return err
		}
		return r.renderObject(nodeName, val, b)
	case *fields.ListField:
		return r.renderList(field, val, b)
	case *fields.MappingField:
		return r.renderMapping(field, val, b)
	case *fields.PrimitiveOrField:
		if grammar.IsPrimitive(val) {
			return r.renderFieldValue(field.Primitive(), val, b)
		}
		return r.renderFieldValue(field.Complex(), val, b)
	default:
		return r.renderScalar(val, b)
	}
}

func (r *Renderer) renderList(f *fields.ListField, val any, b *builder) error {
	list, ok := val.([]any)
	if !ok {
		return grammar.NewInternal("viz: a list field holds a %T, not a list", val)
	}
	if len(list) == 0 {
		b.literal("[]")
		return nil
	}
	b.literal("[\n")
	b.level++
	elem := f.Elem()
	for i, item := range list {
		b.pad()
		var err error
		switch {
		case elem.Primitive != nil && grammar.IsPrimitive(item):
			err = r.renderFieldValue(elem.Primitive, item, b)
		case elem.Node != "":
			err = r.renderObject(elem.Node, item, b)
		default:
			var nodeName string
			nodeName, err = r.reg.Resolve(grammar.Target{Group: elem.Group}, item)
			if err == nil {
				err = r.renderObject(nodeName, item, b)
			}
		}
		if err != nil {
			return err
		}
		if i != len(list)-1 {
			b.literal(",")
		}
		b.literal("\n")
	}
	b.level--
	b.pad()
	b.literal("]")
	return nil
}

func (r *Renderer) renderMapping(f *fields.MappingField, val any, b *builder) error {
	obj, ok := val.(*grammar.Object)
	if !ok {
		return grammar.NewInternal("viz: a mapping field holds a %T, not an object", val)
	}
	if obj.Len() == 0 {
		b.literal("{}")
		return nil
	}
	b.literal("{\n")
	b.level++
	i := 0
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		b.pad()
		key, _ := json.Marshal(pair.Key)
		b.literal(string(key))
		b.literal(" : ")
		if err := r.renderFieldValue(f.Content(), pair.Value, b); err != nil {
			return err
		}
		if i != obj.Len()-1 {
			b.literal(",")
		}
		b.literal("\n")
		i++
	}
	b.level--
	b.pad()
	b.literal("}")
	return nil
}

func (r *Renderer) renderScalar(val any, b *builder) error {
	encoded, err := json.Marshal(val)
	if err != nil {
		return grammar.NewInternal("viz: a scalar value of type %T is not JSON-serializable", val)
	}
	b.literal(string(encoded))
	return nil
}

// equalValue compares a field value to its default. Numeric values compare by
// value, not by representation, so int64(0) equals float64(0).
func equalValue(a, b any) bool {
	fa, aok := asNumber(a)
	fb, bok := asNumber(b)
	if aok && bok {
		return fa == fb
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

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
