package grammar_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schematree/pkg/fields"
	"github.com/goliatone/go-schematree/pkg/grammar"
)

// buildShapes declares a small grammar of two-dimensional shapes: a group
// with a circle and a rectangle, sharing an optional label through an
// abstract base.
func buildShapes(t *testing.T) *grammar.Registry {
	t.Helper()
	reg := grammar.New()
	reg.MustRegister(grammar.NodeType{
		Name:         "shape_base",
		Abstract:     true,
		RequiredArgs: []string{},
		Fields: []grammar.FieldDef{
			{Name: "label", Field: fields.String(
				grammar.Null(),
				grammar.OmitDefault(),
				grammar.Help("An optional label for the shape."),
			)},
		},
	})
	reg.MustBeginGroup("shape", "Shape", "A two-dimensional shape.")
	reg.MustRegister(grammar.NodeType{
		Name:           "circle",
		Extends:        "shape_base",
		Group:          "shape",
		Tag:            "circle",
		DocName:        "Circle",
		DocDescription: "A [[circle]] is described by its radius.",
		Fields: []grammar.FieldDef{
			{Name: "radius", Field: fields.Float(grammar.Help("The radius of the circle.")).Min(0)},
		},
	})
	reg.MustRegister(grammar.NodeType{
		Name:           "rect",
		Extends:        "shape_base",
		Group:          "shape",
		Tag:            "rect",
		DocName:        "Rectangle",
		DocDescription: "A [[rect]] is described by its width and height.",
		Fields: []grammar.FieldDef{
			{Name: "width", Field: fields.Float(grammar.Help("The width of the rectangle.")).Min(0)},
			{Name: "height", Field: fields.Float(grammar.Help("The height of the rectangle.")).Min(0)},
		},
	})
	reg.MustEndGroup("shape")
	reg.MustFinalize()
	return reg
}

func asJSON(t *testing.T, v any) string {
	t.Helper()
	encoded, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(encoded)
}

func TestValidateByTag(t *testing.T) {
	reg := buildShapes(t)
	got, err := reg.Validate("shape", map[string]any{"type": "circle", "radius": 2.5}, grammar.Args{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := `{"type":"circle","radius":2.5}`
	if diff := cmp.Diff(want, asJSON(t, got)); diff != "" {
		t.Fatalf("canonical object mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateStampsTagAfterBacktracking(t *testing.T) {
	reg := buildShapes(t)
	got, err := reg.Validate("shape", map[string]any{"width": 3.0, "height": 4.0}, grammar.Args{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := `{"type":"rect","width":3,"height":4}`
	if diff := cmp.Diff(want, asJSON(t, got)); diff != "" {
		t.Fatalf("canonical object mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	reg := buildShapes(t)
	once, err := reg.Validate("shape", map[string]any{"radius": 1.0}, grammar.Args{})
	if err != nil {
		t.Fatalf("first Validate failed: %v", err)
	}
	twice, err := reg.Validate("shape", once, grammar.Args{})
	if err != nil {
		t.Fatalf("second Validate failed: %v", err)
	}
	if diff := cmp.Diff(asJSON(t, once), asJSON(t, twice)); diff != "" {
		t.Fatalf("re-validation changed the object (-want +got):\n%s", diff)
	}
}

func TestValidateUnknownTag(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Validate("shape", map[string]any{"type": "hexagon"}, grammar.Args{})
	if err == nil {
		t.Fatal("expected an unknown tag to be rejected")
	}
	if !grammar.IsInvalidInput(err) {
		t.Fatalf("an unknown tag should blame the input, got %v", err)
	}
	for _, want := range []string{`the type "hexagon" is not valid`, "circle", "rect"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should contain %q", err, want)
		}
	}
}

func TestValidateEmptyObjectListsTypes(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Validate("shape", map[string]any{}, grammar.Args{})
	if err == nil {
		t.Fatal("expected an empty object to be rejected")
	}
	for _, want := range []string{"submitted an empty object", "circle", "rect"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should contain %q", err, want)
		}
	}
}

func TestValidateNoCandidateMatches(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Validate("shape", map[string]any{"bogus": 1.0}, grammar.Args{})
	if err == nil {
		t.Fatal("expected an unparseable object to be rejected")
	}
	if !strings.Contains(err.Error(), "no valid way to parse this value could be found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAmbiguousMatch(t *testing.T) {
	reg := grammar.New()
	reg.MustBeginGroup("thing", "Thing", "Things that look alike.")
	for _, name := range []string{"first", "second"} {
		reg.MustRegister(grammar.NodeType{
			Name:           name,
			Group:          "thing",
			Tag:            name,
			DocName:        name,
			DocDescription: "A thing.",
			RequiredArgs:   []string{},
			Fields: []grammar.FieldDef{
				{Name: "x", Field: fields.Float(grammar.Default(1.0), grammar.Help("A number."))},
			},
		})
	}
	reg.MustEndGroup("thing")
	reg.MustFinalize()

	_, err := reg.Validate("thing", map[string]any{"x": 2.0}, grammar.Args{})
	if err == nil {
		t.Fatal("expected an ambiguous object to be rejected")
	}
	for _, want := range []string{"ambiguous", `"first"`, `"second"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should contain %q", err, want)
		}
	}
}

func TestValidateMissingRequiredField(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Validate("shape", map[string]any{"type": "circle"}, grammar.Args{})
	if err == nil {
		t.Fatal("expected a missing required field to be rejected")
	}
	if !strings.Contains(err.Error(), `missing value for the required field "radius"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownFieldListsValidNames(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Validate("shape", map[string]any{"type": "circle", "radios": 1.0}, grammar.Args{})
	if err == nil {
		t.Fatal("expected an unknown field to be rejected")
	}
	for _, want := range []string{`"radios" is not a valid field name`, "radius", "label"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should contain %q", err, want)
		}
	}
}

func TestErrorCarriesTraceAndSnapshot(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Validate("shape", map[string]any{"type": "circle", "radius": "big"}, grammar.Args{})
	if err == nil {
		t.Fatal("expected a non-numeric radius to be rejected")
	}
	var invalid *grammar.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected an invalid input error, got %v", err)
	}
	if diff := cmp.Diff([]string{"radius"}, invalid.Trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(invalid.Snapshot, "big") {
		t.Fatalf("snapshot %q should show the offending value", invalid.Snapshot)
	}
	if invalid.Message != "the value must be an int or a float" {
		t.Fatalf("unexpected message: %q", invalid.Message)
	}
}

func TestValidateArgsMismatchIsInternal(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Validate("shape", map[string]any{"type": "circle", "radius": 1.0},
		grammar.Args{"unexpected": true})
	if err == nil {
		t.Fatal("expected mismatching arguments to be rejected")
	}
	if !grammar.IsInternal(err) {
		t.Fatalf("an argument mismatch is a programming error, got %v", err)
	}
}

func TestOperateWithoutTagIsInternal(t *testing.T) {
	reg := buildShapes(t)
	_, err := reg.Operate(grammar.OpEvaluate, grammar.Target{Group: "shape"},
		map[string]any{"radius": 1.0}, nil, grammar.Args{})
	if err == nil {
		t.Fatal("expected an unresolved evaluation to be rejected")
	}
	if !grammar.IsInternal(err) {
		t.Fatalf("evaluating without a tag is a programming error, got %v", err)
	}
}

func TestBacktrackingIsolatesSlotEffects(t *testing.T) {
	reg := grammar.New()
	reg.MustBeginGroup("probe", "Probe", "Nodes that record their validation.")
	reg.MustRegister(grammar.NodeType{
		Name:           "fail",
		Group:          "probe",
		Tag:            "fail",
		DocName:        "Fail",
		DocDescription: "Always rejects.",
		RequiredArgs:   []string{},
		Fields: []grammar.FieldDef{
			{Name: "v", Field: fields.Float(grammar.Help("A number."))},
		},
		PostValidate: func(reg *grammar.Registry, obj *grammar.Object, vctx *grammar.Context, args grammar.Args) (*grammar.Object, error) {
			if log, ok := vctx.Slot("log"); ok {
				log.(map[string]any)["fail"] = true
			}
			return nil, grammar.NewInvalidInput("never valid")
		},
	})
	reg.MustRegister(grammar.NodeType{
		Name:           "pass",
		Group:          "probe",
		Tag:            "pass",
		DocName:        "Pass",
		DocDescription: "Always accepts.",
		RequiredArgs:   []string{},
		Fields: []grammar.FieldDef{
			{Name: "v", Field: fields.Float(grammar.Help("A number."))},
		},
		PostValidate: func(reg *grammar.Registry, obj *grammar.Object, vctx *grammar.Context, args grammar.Args) (*grammar.Object, error) {
			if log, ok := vctx.Slot("log"); ok {
				log.(map[string]any)["pass"] = true
			}
			return obj, nil
		},
	})
	reg.MustEndGroup("probe")
	reg.MustFinalize()

	log := map[string]any{}
	vctx := grammar.NewContext(grammar.WithSlot("log", log))
	res, err := reg.Dispatch(grammar.OpValidate, grammar.Target{Group: "probe"},
		map[string]any{"v": 1.0}, vctx, grammar.Args{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := asJSON(t, res); got != `{"type":"pass","v":1}` {
		t.Fatalf("unexpected result: %s", got)
	}

	adopted, ok := vctx.Slot("log")
	if !ok {
		t.Fatal("the log slot disappeared")
	}
	want := map[string]any{"pass": true}
	if diff := cmp.Diff(want, adopted.(map[string]any)); diff != "" {
		t.Fatalf("only the winning branch's effects should survive (-want +got):\n%s", diff)
	}
}

func TestRegisterRejectsDuplicateFieldWithoutOverride(t *testing.T) {
	reg := grammar.New()
	reg.MustRegister(grammar.NodeType{
		Name:     "base",
		Abstract: true,
		Fields: []grammar.FieldDef{
			{Name: "v", Field: fields.Float(grammar.Help("A number."))},
		},
	})
	err := reg.Register(grammar.NodeType{
		Name:           "child",
		Extends:        "base",
		DocName:        "Child",
		DocDescription: "A child.",
		Fields: []grammar.FieldDef{
			{Name: "v", Field: fields.Integer(grammar.Help("A different number."))},
		},
	})
	if err == nil {
		t.Fatal("expected the silent redeclaration to be rejected")
	}
	if !strings.Contains(err.Error(), "Overrides") {
		t.Fatalf("the error should point at Overrides, got %v", err)
	}
}

func TestOverriddenFieldSortsByItsOwnCreationOrder(t *testing.T) {
	reg := grammar.New()
	reg.MustRegister(grammar.NodeType{
		Name:         "base",
		Abstract:     true,
		RequiredArgs: []string{},
		Fields: []grammar.FieldDef{
			{Name: "first", Field: fields.Float(grammar.Default(1.0), grammar.Help("The first field."))},
			{Name: "second", Field: fields.Float(grammar.Default(2.0), grammar.Help("The second field."))},
		},
	})
	reg.MustRegister(grammar.NodeType{
		Name:           "child",
		Extends:        "base",
		DocName:        "Child",
		DocDescription: "A child.",
		Overrides:      []string{"first"},
		Fields: []grammar.FieldDef{
			{Name: "first", Field: fields.Integer(grammar.Default(int64(7)), grammar.Help("The replacement."))},
		},
	})
	reg.MustFinalize()

	vctx := grammar.NewContext()
	got, err := reg.Dispatch(grammar.OpValidate, grammar.Target{Node: "child"}, map[string]any{}, vctx, grammar.Args{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	// The replacement is a younger field, so it sorts behind the ones the
	// base declared.
	want := `{"second":2,"first":7}`
	if diff := cmp.Diff(want, asJSON(t, got)); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalizeRejectsDanglingReference(t *testing.T) {
	reg := grammar.New()
	reg.MustRegister(grammar.NodeType{
		Name:           "orphan",
		DocName:        "Orphan",
		DocDescription: "References a node type that is never defined.",
		RequiredArgs:   []string{},
		Fields: []grammar.FieldDef{
			{Name: "child", Field: fields.Ref("missing", nil, grammar.Help("A dangling reference."))},
		},
	})
	err := reg.Finalize()
	if err == nil {
		t.Fatal("expected the dangling reference to fail sealing")
	}
	if !strings.Contains(err.Error(), `"missing"`) {
		t.Fatalf("the error should name the dangling target, got %v", err)
	}
}

func TestFinalizeRejectsOpenGroupBlock(t *testing.T) {
	reg := grammar.New()
	reg.MustBeginGroup("open", "Open", "A group that is never closed.")
	err := reg.Finalize()
	if err == nil {
		t.Fatal("expected an open group block to fail sealing")
	}
	if !strings.Contains(err.Error(), `"open"`) {
		t.Fatalf("the error should name the open group, got %v", err)
	}
}

func TestRegisterRejectsMembershipOutsideBlock(t *testing.T) {
	reg := grammar.New()
	reg.MustBeginGroup("closed", "Closed", "A closed group.")
	reg.MustRegister(grammar.NodeType{
		Name:           "member",
		Group:          "closed",
		Tag:            "member",
		DocName:        "Member",
		DocDescription: "A member.",
		RequiredArgs:   []string{},
	})
	reg.MustEndGroup("closed")

	err := reg.Register(grammar.NodeType{
		Name:           "late",
		Group:          "closed",
		Tag:            "late",
		DocName:        "Late",
		DocDescription: "Registered after the block closed.",
		RequiredArgs:   []string{},
	})
	if err == nil {
		t.Fatal("expected membership outside the open block to be rejected")
	}
}

func TestMergeArgs(t *testing.T) {
	caller := grammar.Args{
		"inherited": 42,
		"forced":    grammar.Force("overridden"),
	}
	field := grammar.Args{
		"inherited": grammar.PassAlong,
		"fixed":     true,
		"forced":    "field value",
	}
	got := grammar.MergeArgs(caller, field)
	want := grammar.Args{
		"inherited": 42,
		"fixed":     true,
		"forced":    "overridden",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged args mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotBounds(t *testing.T) {
	t.Run("long strings are truncated", func(t *testing.T) {
		got := grammar.Snapshot(strings.Repeat("x", 500))
		if len(got) > 120 {
			t.Fatalf("snapshot is %d characters, want at most 120", len(got))
		}
		if !strings.Contains(got, "...") {
			t.Fatalf("snapshot %q should mark the truncation", got)
		}
	})
	t.Run("wide objects collapse", func(t *testing.T) {
		wide := make(map[string]any)
		for _, k := range strings.Split("abcdefghijkl", "") {
			wide[k] = 1
		}
		got := grammar.Snapshot(wide)
		if !strings.Contains(got, "an object with 12 fields") {
			t.Fatalf("snapshot %q should collapse the wide object", got)
		}
	})
	t.Run("long lists are capped", func(t *testing.T) {
		got := grammar.Snapshot([]any{1, 2, 3, 4, 5, 6})
		if !strings.Contains(got, "[3 additional elements]") {
			t.Fatalf("snapshot %q should cap the list", got)
		}
	})
}
