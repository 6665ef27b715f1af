package docs

import "github.com/flosch/pongo2/v6"

var (
	nodeTemplate = pongo2.Must(pongo2.FromString(`<div class="node">
<h3 class="node-name" level-of-hierarchy="{{ level }}" name-in-navbar="{{ navbar }}"><a id="{{ anchor }}" class="internal-link-anchor"></a>{{ header|safe }}</h3>
<div class="node-description">{{ description|safe }}</div>
<table class="fields">
<tr><th class="field-cell-name">Fields</th><th class="field-cell-null"></th><th class="field-cell-default"></th></tr>
{% for field in fields %}<tr class="field {{ field.classes }}"><td class="field-cell-name">{{ field.name }}</td><td class="field-cell-null">{{ field.null }}</td><td class="field-cell-default">{{ field.default }}</td></tr>
<tr class="field {{ field.classes }}"><td colspan="3" class="field-documentation-table-cell-main"><div class="field-documentation"><div class="field-documentation-purpose">{{ field.purpose|safe }}</div><div class="field-documentation-description">{{ field.description|safe }}</div></div></td></tr>
{% endfor %}</table>
</div>
`))

	groupTemplate = pongo2.Must(pongo2.FromString(`<div class="choice">
<h3 class="choice-name" level-of-hierarchy="{{ level }}" name-in-navbar="{{ navbar }}"><a id="{{ anchor }}" class="internal-link-anchor"></a>{{ header|safe }}</h3>
<div class="choice-description">{{ description|safe }}</div>
<table class="choice-options">
<tr><th class="choice-option-cell-type">type</th><th class="choice-option-cell-name">name</th><th class="choice-option-cell-description">description</th></tr>
{% for option in options %}<tr class="choice-option"><td>{{ option.type|safe }}</td><td>{{ option.name|safe }}</td><td>{{ option.description|safe }}</td></tr>
{% endfor %}</table>
</div>
`))

	pageTemplate = pongo2.Must(pongo2.FromString(`{% if style %}<style>{{ style|safe }}</style>
{% endif %}<div class="schema-documentation{% if themeclass %} {{ themeclass }}{% endif %}">
{{ content|safe }}</div>
`))
)
