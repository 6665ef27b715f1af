package openapi_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	exportopenapi "github.com/goliatone/go-schematree/pkg/export/openapi"
	"github.com/goliatone/go-schematree/pkg/grammar"
	"github.com/goliatone/go-schematree/pkg/numeric"
)

func TestDocumentContainsEverySchema(t *testing.T) {
	reg, err := numeric.New()
	if err != nil {
		t.Fatalf("building the registry failed: %v", err)
	}
	doc, err := exportopenapi.Document(reg, "Numerical Nodes", "1.0.0")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if doc.OpenAPI != "3.0.3" {
		t.Fatalf("got OpenAPI version %q, want 3.0.3", doc.OpenAPI)
	}

	for _, name := range []string{"constant", "user_input", "sum", "constant_multiple", "numerical_node"} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("the document should contain a schema for %q", name)
		}
	}
	// The abstract parent never appears.
	if _, ok := doc.Components.Schemas["numerical_base"]; ok {
		t.Error("abstract node types must not be exported")
	}
}

func TestGroupSchemaDiscriminates(t *testing.T) {
	reg, err := numeric.New()
	if err != nil {
		t.Fatalf("building the registry failed: %v", err)
	}
	doc, err := exportopenapi.Document(reg, "Numerical Nodes", "1.0.0")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	group := doc.Components.Schemas["numerical_node"].Value
	if len(group.OneOf) != 4 {
		t.Fatalf("got %d oneOf variants, want 4", len(group.OneOf))
	}
	if group.Discriminator == nil || group.Discriminator.PropertyName != "type" {
		t.Fatalf("the group schema needs a discriminator over the type tag, got %+v", group.Discriminator)
	}
	want := map[string]string{
		"constant":          "#/components/schemas/constant",
		"user_input":        "#/components/schemas/user_input",
		"sum":               "#/components/schemas/sum",
		"constant_multiple": "#/components/schemas/constant_multiple",
	}
	if diff := cmp.Diff(want, group.Discriminator.Mapping); diff != "" {
		t.Fatalf("discriminator mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestConstantSchemaCarriesBoundsAndTag(t *testing.T) {
	reg, err := numeric.New()
	if err != nil {
		t.Fatalf("building the registry failed: %v", err)
	}
	doc, err := exportopenapi.Document(reg, "Numerical Nodes", "1.0.0")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	constant := doc.Components.Schemas["constant"].Value
	tag := constant.Properties["type"].Value
	if diff := cmp.Diff([]any{"constant"}, tag.Enum); diff != "" {
		t.Fatalf("tag enum mismatch (-want +got):\n%s", diff)
	}

	val := constant.Properties["val"].Value
	if val.Min == nil || *val.Min != -1000 || val.Max == nil || *val.Max != 1000 {
		t.Fatalf("the bounds of val should survive the export, got min=%v max=%v", val.Min, val.Max)
	}
	if diff := cmp.Diff([]string{"val"}, constant.Required); diff != "" {
		t.Fatalf("required list mismatch (-want +got):\n%s", diff)
	}
}

func TestSumSchemaReferencesTheGroup(t *testing.T) {
	reg, err := numeric.New()
	if err != nil {
		t.Fatalf("building the registry failed: %v", err)
	}
	doc, err := exportopenapi.Document(reg, "Numerical Nodes", "1.0.0")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	summands := doc.Components.Schemas["sum"].Value.Properties["summands"].Value
	if summands.Items == nil || summands.Items.Ref != "#/components/schemas/numerical_node" {
		t.Fatalf("the list items should reference the group schema, got %+v", summands.Items)
	}
}

func TestUserInputOnErrorIsAUnionWithDefault(t *testing.T) {
	reg, err := numeric.New()
	if err != nil {
		t.Fatalf("building the registry failed: %v", err)
	}
	doc, err := exportopenapi.Document(reg, "Numerical Nodes", "1.0.0")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	onError := doc.Components.Schemas["user_input"].Value.Properties["on_error"].Value
	if len(onError.OneOf) != 2 {
		t.Fatalf("got %d oneOf variants, want 2", len(onError.OneOf))
	}
	if onError.Default != int64(0) {
		t.Fatalf("got default %v (%T), want int64(0)", onError.Default, onError.Default)
	}
}

func TestDocumentRequiresSealedRegistry(t *testing.T) {
	reg := grammar.New()
	numeric.MustRegister(reg)
	if _, err := exportopenapi.Document(reg, "Numerical Nodes", "1.0.0"); err == nil || !grammar.IsInternal(err) {
		t.Fatalf("an unsealed registry should be an internal error, got %v", err)
	}
}
