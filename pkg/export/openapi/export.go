// Package openapi exports a sealed registry as an OpenAPI 3 document: every
// node type becomes a component schema, every group a oneOf union with a
// discriminator over the "type" tag. The export covers the structural rules a
// generic client can enforce; hook-based validation stays server-side.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-schematree/pkg/fields"
	"github.com/goliatone/go-schematree/pkg/grammar"
)

const schemaPrefix = "#/components/schemas/"

// Document builds the OpenAPI document for a sealed registry.
func Document(reg *grammar.Registry, title, version string) (*openapi3.T, error) {
	if !reg.Finalized() {
		return nil, grammar.NewInternal("openapi: the registry must be sealed before it can be exported")
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}

	for _, name := range reg.Nodes() {
		info, err := reg.NodeInfo(name)
		if err != nil {
			return nil, err
		}
		schema, err := nodeSchema(info)
		if err != nil {
			return nil, err
		}
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", schema)
	}

	for _, name := range reg.Groups() {
		info, err := reg.GroupInfo(name)
		if err != nil {
			return nil, err
		}
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", groupSchema(info))
	}

	return doc, nil
}

// groupSchema renders a group as a oneOf union discriminated by the type tag.
func groupSchema(info grammar.GroupInfo) *openapi3.Schema {
	schema := openapi3.NewSchema()
	schema.Description = info.Description
	mapping := make(map[string]string, len(info.Members))
	for _, member := range info.Members {
		schema.OneOf = append(schema.OneOf, refTo(member.Node))
		mapping[member.Tag] = schemaPrefix + member.Node
	}
	schema.Discriminator = &openapi3.Discriminator{
		PropertyName: "type",
		Mapping:      mapping,
	}
	return schema
}

func nodeSchema(info grammar.NodeInfo) (*openapi3.Schema, error) {
	schema := openapi3.NewObjectSchema()
	schema.Description = info.DocDescription

	if info.Group != "" {
		tag := openapi3.NewStringSchema()
		tag.Enum = []any{info.Tag}
		tag.Description = "The discriminator selecting this node type within its group."
		schema.Properties["type"] = openapi3.NewSchemaRef("", tag)
	}

	for _, fd := range info.Fields {
		spec := fd.Field.Spec()
		fieldSchema, err := fieldSchema(fd.Field)
		if err != nil {
			return nil, grammar.NewInternal("openapi: field %q of node type %q: %v", fd.Name, info.Name, err)
		}
		fieldSchema.Value.Description = spec.Help
		fieldSchema.Value.Nullable = fieldSchema.Value.Nullable || spec.Null
		if !spec.Required() && spec.Default != nil {
			fieldSchema.Value.Default = spec.Default
		}
		schema.Properties[fd.Name] = fieldSchema
		if spec.Required() && !spec.NoAutoValidate {
			schema.Required = append(schema.Required, fd.Name)
		}
	}
	return schema, nil
}

// fieldSchema maps one field kind onto its OpenAPI schema. Composite kinds
// reference the component schemas of the node types and groups they point at.
func fieldSchema(f grammar.Field) (*openapi3.SchemaRef, error) {
	switch field := f.(type) {
	case *fields.IntegerField:
		schema := openapi3.NewInt64Schema()
		min, max := field.Range()
		if min != nil {
			v := float64(*min)
			schema.Min = &v
		}
		if max != nil {
			v := float64(*max)
			schema.Max = &v
		}
		return inline(schema), nil

	case *fields.FloatField:
		schema := openapi3.NewFloat64Schema()
		schema.Min, schema.Max = field.Range()
		return inline(schema), nil

	case *fields.BooleanField:
		return inline(openapi3.NewBoolSchema()), nil

	case *fields.StringField:
		schema := openapi3.NewStringSchema()
		min, max := field.Lengths()
		if min != nil {
			schema.MinLength = uint64(*min)
		}
		if max != nil {
			v := uint64(*max)
			schema.MaxLength = &v
		}
		return inline(schema), nil

	case *fields.RegexField:
		schema := openapi3.NewStringSchema()
		schema.Format = "regex"
		return inline(schema), nil

	case *fields.IntegerStringField:
		schema := openapi3.NewStringSchema()
		schema.Pattern = `^\s*-?[0-9]+\s*$`
		return inline(schema), nil

	case *fields.SelectionField:
		schema := openapi3.NewStringSchema()
		for _, v := range field.Values() {
			schema.Enum = append(schema.Enum, v)
		}
		return inline(schema), nil

	case *fields.IdentifierField:
		schema := openapi3.NewStringSchema()
		schema.Pattern = `^[A-Za-z_][A-Za-z0-9_]*$`
		return inline(schema), nil

	case *fields.MultipleChoiceField:
		element := openapi3.NewStringSchema()
		for _, v := range field.Values() {
			element.Enum = append(element.Enum, v)
		}
		schema := openapi3.NewArraySchema()
		schema.Items = inline(element)
		schema.Nullable = true
		return inline(schema), nil

	case *fields.RefField:
		return refTo(field.Node()), nil

	case *fields.GroupField:
		return refTo(field.GroupName()), nil

	case *fields.ListField:
		schema := openapi3.NewArraySchema()
		items, err := listItemSchema(field.Elem())
		if err != nil {
			return nil, err
		}
		schema.Items = items
		return inline(schema), nil

	case *fields.MappingField:
		contentSchema, err := fieldSchema(field.Content())
		if err != nil {
			return nil, err
		}
		schema := openapi3.NewObjectSchema()
		schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: contentSchema}
		return inline(schema), nil

	case *fields.PrimitiveOrField:
		primitive, err := fieldSchema(field.Primitive())
		if err != nil {
			return nil, err
		}
		complexSchema, err := fieldSchema(field.Complex())
		if err != nil {
			return nil, err
		}
		schema := openapi3.NewSchema()
		schema.OneOf = openapi3.SchemaRefs{primitive, complexSchema}
		return inline(schema), nil

	case *fields.AnyField:
		schema := openapi3.NewSchema()
		schema.Nullable = true
		return inline(schema), nil

	default:
		return nil, grammar.NewInternal("no OpenAPI mapping exists for field kind %T", f)
	}
}

func listItemSchema(elem fields.Elem) (*openapi3.SchemaRef, error) {
	var variants openapi3.SchemaRefs
	if elem.Node != "" {
		variants = append(variants, refTo(elem.Node))
	}
	if elem.Group != "" {
		variants = append(variants, refTo(elem.Group))
	}
	if elem.Primitive != nil {
		primitive, err := fieldSchema(elem.Primitive)
		if err != nil {
			return nil, err
		}
		variants = append(variants, primitive)
	}
	if len(variants) == 1 {
		return variants[0], nil
	}
	schema := openapi3.NewSchema()
	schema.OneOf = variants
	return inline(schema), nil
}

func inline(schema *openapi3.Schema) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("", schema)
}

func refTo(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(schemaPrefix+name, nil)
}
