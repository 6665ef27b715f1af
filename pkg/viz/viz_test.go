package viz_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schematree/pkg/docs"
	"github.com/goliatone/go-schematree/pkg/grammar"
	"github.com/goliatone/go-schematree/pkg/numeric"
	"github.com/goliatone/go-schematree/pkg/viz"
)

func renderer(t *testing.T) (*grammar.Registry, *viz.Renderer) {
	t.Helper()
	reg, err := numeric.New()
	if err != nil {
		t.Fatalf("building the registry failed: %v", err)
	}
	reg.SetPageURLFunc(func(page string) string { return "/docs/" + page })
	return reg, viz.NewRenderer(reg, docs.NewGenerator(reg))
}

func render(t *testing.T, raw any) *viz.Result {
	t.Helper()
	reg, r := renderer(t)
	validated, err := numeric.Validate(reg, raw, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	res, err := r.Render(numeric.Group, validated)
	if err != nil {
		t.Fatalf("rendering failed: %v", err)
	}
	return res
}

func TestTextRenditionIsValidJSON(t *testing.T) {
	res := render(t, map[string]any{
		"type":     "sum",
		"summands": []any{5.0},
	})

	var decoded any
	if err := json.Unmarshal([]byte(res.Text), &decoded); err != nil {
		t.Fatalf("the text rendition is not valid JSON: %v\n%s", err, res.Text)
	}
	want := map[string]any{
		"type": "sum",
		"summands": []any{
			map[string]any{"type": "constant", "val": 5.0},
		},
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("text rendition mismatch (-want +got):\n%s", diff)
	}
}

func TestHTMLRenditionCarriesAnnotations(t *testing.T) {
	res := render(t, map[string]any{
		"type":     "sum",
		"summands": []any{5.0},
	})

	for _, want := range []string{
		`<span class="syntax-trees-object-dict">`,
		`value="sum" choice="numerical_node"`,
		`value="constant" choice="numerical_node"`,
		`<a href="/docs/numerical_nodes#sum">Sum</a>`,
		`&#34;type&#34; : &#34;sum&#34;`,
	} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("the HTML rendition should contain %q", want)
		}
	}
}

func TestSkipDefaultsDropsDefaultValues(t *testing.T) {
	res := render(t, map[string]any{
		"type":    "user_input",
		"message": "Enter a number",
	})

	// on_error was filled with its default and is dropped from the skipping
	// rendition only.
	if !strings.Contains(res.Text, `"on_error"`) {
		t.Fatalf("the full rendition should include the default:\n%s", res.Text)
	}
	if strings.Contains(res.TextSkipDefaults, `"on_error"`) {
		t.Fatalf("the skipping rendition should drop the default:\n%s", res.TextSkipDefaults)
	}
	if !strings.Contains(res.HTML, `syntax-trees-object-field-value-is-default-value`) {
		t.Fatal("the full HTML rendition should highlight default values")
	}
}

func TestRenderRejectsUntaggedObject(t *testing.T) {
	_, r := renderer(t)
	_, err := r.Render(numeric.Group, map[string]any{"val": 1.0})
	if err == nil {
		t.Fatal("rendering should require the discriminator tag")
	}
}

func TestWidgetWrapsBothRenditions(t *testing.T) {
	res := render(t, map[string]any{"type": "constant", "val": 3.0})
	widget, err := viz.Widget(res)
	if err != nil {
		t.Fatalf("widget rendering failed: %v", err)
	}
	for _, want := range []string{
		"default-values-hidden",
		"default-values-shown",
		"clipboard-button",
		res.HTML,
	} {
		if !strings.Contains(widget, want) {
			t.Errorf("the widget should contain %q", want)
		}
	}
}
