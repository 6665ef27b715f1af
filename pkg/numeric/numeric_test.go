package numeric_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schematree/pkg/grammar"
	"github.com/goliatone/go-schematree/pkg/numeric"
)

func registry(t *testing.T) *grammar.Registry {
	t.Helper()
	reg, err := numeric.New()
	if err != nil {
		t.Fatalf("building the registry failed: %v", err)
	}
	return reg
}

func asJSON(t *testing.T, obj any) string {
	t.Helper()
	encoded, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(encoded)
}

func TestValidateExpandsShortform(t *testing.T) {
	reg := registry(t)
	got, err := numeric.Validate(reg, 5.0, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if diff := cmp.Diff(`{"type":"constant","val":5}`, asJSON(t, got)); diff != "" {
		t.Fatalf("canonical form mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateAndEvaluateSum(t *testing.T) {
	reg := registry(t)
	raw := map[string]any{
		"type":     "sum",
		"summands": []any{10.0, map[string]any{"type": "constant", "val": 20.0}},
	}
	validated, err := numeric.Validate(reg, raw, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	want := `{"type":"sum","summands":[{"type":"constant","val":10},{"type":"constant","val":20}]}`
	if diff := cmp.Diff(want, asJSON(t, validated)); diff != "" {
		t.Fatalf("canonical form mismatch (-want +got):\n%s", diff)
	}

	res, err := numeric.Evaluate(reg, validated, nil)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if res != 30.0 {
		t.Fatalf("got %v, want 30", res)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	reg := registry(t)
	raw := map[string]any{
		"type":     "sum",
		"summands": []any{1.0, 2.0, 3.0},
	}
	once, err := numeric.Validate(reg, raw, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	twice, err := numeric.Validate(reg, once, true)
	if err != nil {
		t.Fatalf("re-validation failed: %v", err)
	}
	if diff := cmp.Diff(asJSON(t, once), asJSON(t, twice)); diff != "" {
		t.Fatalf("re-validation changed the object (-want +got):\n%s", diff)
	}
}

func TestFieldOrderFollowsDeclarationNotInput(t *testing.T) {
	reg := registry(t)
	got, err := numeric.Validate(reg, map[string]any{
		"val":      5.0,
		"type":     "constant",
		"_comment": "inherited fields come first",
	}, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	want := `{"type":"constant","_comment":"inherited fields come first","val":5}`
	if diff := cmp.Diff(want, asJSON(t, got)); diff != "" {
		t.Fatalf("canonical form mismatch (-want +got):\n%s", diff)
	}
}

func TestConstantMultipleFoldsItsConstantPart(t *testing.T) {
	reg := registry(t)
	raw := map[string]any{
		"type": "constant_multiple",
		"constant": map[string]any{
			"type":     "sum",
			"summands": []any{6.0, 7.0},
		},
		"rest": 2.0,
	}
	validated, err := numeric.Validate(reg, raw, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	// The constant part is evaluated at validation time and replaced with the
	// resulting constant node.
	want := `{"type":"constant_multiple","constant":{"type":"constant","val":13},"rest":{"type":"constant","val":2}}`
	if diff := cmp.Diff(want, asJSON(t, validated)); diff != "" {
		t.Fatalf("canonical form mismatch (-want +got):\n%s", diff)
	}

	res, err := numeric.Evaluate(reg, validated, nil)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if res != 26.0 {
		t.Fatalf("got %v, want 26", res)
	}
}

func TestUserInputForbiddenAtTopLevel(t *testing.T) {
	reg := registry(t)
	raw := map[string]any{"type": "user_input", "message": "Enter a number"}
	_, err := numeric.Validate(reg, raw, false)
	if err == nil || !strings.Contains(err.Error(), "You can't ask for input in this branch!") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !grammar.IsInvalidInput(err) {
		t.Fatalf("a forbidden user_input should blame the input, got %v", err)
	}
}

func TestUserInputForbiddenInConstantPart(t *testing.T) {
	reg := registry(t)
	raw := map[string]any{
		"type":     "constant_multiple",
		"constant": map[string]any{"type": "user_input", "message": "Enter a number"},
		"rest":     1.0,
	}
	// User input is allowed at the top level, but the constant branch
	// overrides the argument to false on the way down.
	_, err := numeric.Validate(reg, raw, true)
	if err == nil || !strings.Contains(err.Error(), "You can't ask for input in this branch!") {
		t.Fatalf("unexpected error: %v", err)
	}

	var iie *grammar.InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected an invalid-input error, got %v", err)
	}
	if diff := cmp.Diff([]string{"constant"}, iie.Trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyObjectListsTheAlternatives(t *testing.T) {
	reg := registry(t)
	_, err := numeric.Validate(reg, map[string]any{}, true)
	if err == nil {
		t.Fatal("expected the empty object to be rejected")
	}
	if !strings.Contains(err.Error(), "Valid types are: constant, user_input, sum, constant_multiple") {
		t.Fatalf("the error should list the group members, got:\n%v", err)
	}
}

func TestUnknownFieldListsTheValidNames(t *testing.T) {
	reg := registry(t)
	_, err := numeric.Validate(reg, map[string]any{
		"type": "constant",
		"val":  1.0,
		"foo":  2.0,
	}, true)
	if err == nil || !strings.Contains(err.Error(), `"foo" is not a valid field name`) {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "val") {
		t.Fatalf("the error should list the valid names, got:\n%v", err)
	}
}

func TestConstantRejectsNaNAndInfinity(t *testing.T) {
	reg := registry(t)
	for _, tc := range []struct {
		name string
		val  float64
		want string
	}{
		{name: "NaN", val: math.NaN(), want: "must not be NaN"},
		{name: "infinity", val: math.Inf(1), want: "must not be infinite"},
		{name: "out of range", val: 1e6, want: "above the maximum of 1000"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := numeric.Validate(reg, map[string]any{"type": "constant", "val": tc.val}, true)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want an error containing %q", err, tc.want)
			}
			var iie *grammar.InvalidInputError
			if !errors.As(err, &iie) {
				t.Fatalf("expected an invalid-input error, got %v", err)
			}
			if diff := cmp.Diff([]string{"val"}, iie.Trace); diff != "" {
				t.Fatalf("trace mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateUserInputWithScriptedDriver(t *testing.T) {
	reg := registry(t)
	validated, err := numeric.Validate(reg, map[string]any{
		"type":    "user_input",
		"message": "Enter a number",
	}, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	res, err := numeric.Evaluate(reg, validated, &numeric.ScriptedDriver{Answers: []string{" 17 "}})
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if res != 17.0 {
		t.Fatalf("got %v, want 17", res)
	}
}

func TestEvaluateUserInputFallsBackToDefault(t *testing.T) {
	reg := registry(t)
	validated, err := numeric.Validate(reg, map[string]any{
		"type":    "user_input",
		"message": "Enter a number",
	}, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	// The default on_error value is 0.
	res, err := numeric.Evaluate(reg, validated, &numeric.ScriptedDriver{Answers: []string{"not a number"}})
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if res != 0.0 {
		t.Fatalf("got %v, want 0", res)
	}
}

func TestEvaluateUserInputRecursesIntoOnError(t *testing.T) {
	reg := registry(t)
	validated, err := numeric.Validate(reg, map[string]any{
		"type":    "user_input",
		"message": "Enter a number",
		"on_error": map[string]any{
			"type":    "user_input",
			"message": "Try again",
		},
	}, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	driver := &numeric.ScriptedDriver{Answers: []string{"nope", "42"}}
	res, err := numeric.Evaluate(reg, validated, driver)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if res != 42.0 {
		t.Fatalf("got %v, want 42", res)
	}
}

func TestEvaluateWithoutDriverFailsOnUserInput(t *testing.T) {
	reg := registry(t)
	validated, err := numeric.Validate(reg, map[string]any{
		"type":    "user_input",
		"message": "Enter a number",
	}, true)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	_, err = numeric.Evaluate(reg, validated, nil)
	if err == nil || !grammar.IsInternal(err) {
		t.Fatalf("evaluating user input without a driver should be an internal error, got %v", err)
	}
}

func TestRegisterLeavesTheRegistryOpen(t *testing.T) {
	reg := grammar.New()
	numeric.MustRegister(reg)

	// Callers may extend the grammar before sealing.
	reg.MustRegister(grammar.NodeType{
		Name:           "extra",
		DocName:        "Extra",
		DocDescription: "An unrelated extension node.",
		RequiredArgs:   []string{},
	})
	if err := reg.Finalize(); err != nil {
		t.Fatalf("sealing the extended registry failed: %v", err)
	}
}

func TestScriptedDriverRunsOutOfAnswers(t *testing.T) {
	driver := &numeric.ScriptedDriver{Answers: []string{"1"}}
	if _, err := driver.Ask("first"); err != nil {
		t.Fatalf("the first answer should be served: %v", err)
	}
	if _, err := driver.Ask("second"); err == nil {
		t.Fatal("an exhausted driver should fail")
	}
}
