package viz

import (
	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-schematree/pkg/grammar"
)

var widgetTemplate = pongo2.Must(pongo2.FromString(`<div class="syntax-trees-object">
<p>The below is the JSON description of this object.</p>
<p>It is annotated with links to the documentation of each component.</p>
<p>You can hide fields with default values to make things clearer, and copy it to a clipboard to make creating similar objects easier.</p>
<ul class="nav nav-tabs">
<li class="active"><a data-toggle="tab" href="#default-values-hidden">Hide default values</a></li>
<li><a data-toggle="tab" href="#default-values-shown">Show default values</a></li>
</ul>
<div class="tab-content">
<div id="default-values-hidden" class="tab-pane fade in active">
<button class="clipboard-button" data-clipboard-text="{{ text_skip }}">Copy to clipboard</button>
<div class="syntax-trees-object-visualization">{{ html_skip|safe }}</div>
</div>
<div id="default-values-shown" class="tab-pane fade">
<button class="clipboard-button" data-clipboard-text="{{ text_full }}">Copy to clipboard</button>
<div class="syntax-trees-object-visualization">{{ html_full|safe }}</div>
</div>
</div>
</div>
`))

// Widget wraps a Result in the tabbed container used on documentation pages:
// one tab hiding default values, one showing everything, each with a
// copy-to-clipboard button carrying the plain-text rendition.
func Widget(res *Result) (string, error) {
	out, err := widgetTemplate.Execute(pongo2.Context{
		"text_skip": res.TextSkipDefaults,
		"html_skip": res.HTMLSkipDefaults,
		"text_full": res.Text,
		"html_full": res.HTML,
	})
	if err != nil {
		return "", grammar.NewInternal("viz: render widget: %v", err)
	}
	return out, nil
}
