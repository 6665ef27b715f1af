package numeric

import (
	"github.com/AlecAivazis/survey/v2"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

// promptSlot is the context slot the user_input evaluation reads its driver
// from. It is registered as shared so backtracking branches keep talking to
// the same driver.
const promptSlot = "prompt"

// PromptDriver obtains one line of user input for a message. Evaluation of a
// user_input node calls it once per attempt.
type PromptDriver interface {
	Ask(message string) (string, error)
}

// SurveyDriver prompts on the terminal.
type SurveyDriver struct{}

func (SurveyDriver) Ask(message string) (string, error) {
	var answer string
	if err := survey.AskOne(&survey.Input{Message: message}, &answer); err != nil {
		return "", grammar.NewInternal("numeric: the input prompt failed: %v", err)
	}
	return answer, nil
}

// ScriptedDriver replays a fixed list of answers. Used in tests and
// non-interactive runs.
type ScriptedDriver struct {
	Answers []string

	next int
}

func (d *ScriptedDriver) Ask(message string) (string, error) {
	if d.next >= len(d.Answers) {
		return "", grammar.NewInternal("numeric: the scripted input driver ran out of answers after %d", len(d.Answers))
	}
	answer := d.Answers[d.next]
	d.next++
	return answer, nil
}

func driverFromContext(vctx *grammar.Context) (PromptDriver, error) {
	raw, ok := vctx.Slot(promptSlot)
	if !ok {
		return nil, grammar.NewInternal("numeric: no prompt driver is attached to the context; evaluation of user_input needs one")
	}
	driver, ok := raw.(PromptDriver)
	if !ok {
		return nil, grammar.NewInternal("numeric: the %q context slot holds a %T, not a PromptDriver", promptSlot, raw)
	}
	return driver, nil
}
