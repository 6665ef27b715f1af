package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-schematree/pkg/docs"
	exportopenapi "github.com/goliatone/go-schematree/pkg/export/openapi"
	"github.com/goliatone/go-schematree/pkg/grammar"
	"github.com/goliatone/go-schematree/pkg/numeric"
	"github.com/goliatone/go-schematree/pkg/viz"
)

func main() {
	mode := flag.String("mode", "validate", "what to do: validate, evaluate, docs, viz or openapi")
	input := flag.String("input", "", "input file with the object to process (stdin if empty)")
	format := flag.String("format", "json", "input format: json or yaml")
	output := flag.String("output", "", "output file (stdout if empty)")
	allowUserInput := flag.Bool("allow-user-input", true, "whether user_input nodes are allowed in the tree")
	docsURL := flag.String("docs-url", "/docs/numerical_nodes", "URL the documentation links point at")
	flag.Parse()

	reg, err := numeric.New()
	if err != nil {
		log.Fatalf("Failed to build the registry: %v", err)
	}
	reg.SetPageURLFunc(func(page string) string { return *docsURL })

	var result string
	switch *mode {
	case "validate":
		result = runValidate(reg, readObject(*input, *format), *allowUserInput)
	case "evaluate":
		result = runEvaluate(reg, readObject(*input, *format), *allowUserInput)
	case "docs":
		result = runDocs(reg)
	case "viz":
		result = runViz(reg, readObject(*input, *format), *allowUserInput)
	case "openapi":
		result = runOpenAPI(reg)
	default:
		log.Fatalf("Unknown mode %q; valid modes are validate, evaluate, docs, viz and openapi", *mode)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(result), 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Output written to %s\n", *output)
	} else {
		fmt.Println(result)
	}
}

func runValidate(reg *grammar.Registry, obj any, allowUserInput bool) string {
	validated, err := numeric.Validate(reg, obj, allowUserInput)
	if err != nil {
		log.Fatalf("Validation failed:\n%v", err)
	}
	encoded, err := json.MarshalIndent(validated, "", "    ")
	if err != nil {
		log.Fatalf("Failed to encode the result: %v", err)
	}
	return string(encoded)
}

func runEvaluate(reg *grammar.Registry, obj any, allowUserInput bool) string {
	validated, err := numeric.Validate(reg, obj, allowUserInput)
	if err != nil {
		log.Fatalf("Validation failed:\n%v", err)
	}
	res, err := numeric.Evaluate(reg, validated, numeric.SurveyDriver{})
	if err != nil {
		log.Fatalf("Evaluation failed:\n%v", err)
	}
	return fmt.Sprintf("%v", res)
}

func runDocs(reg *grammar.Registry) string {
	gen := docs.NewGenerator(reg)
	page, err := gen.Page(numeric.Page)
	if err != nil {
		log.Fatalf("Failed to generate documentation: %v", err)
	}
	return page
}

func runViz(reg *grammar.Registry, obj any, allowUserInput bool) string {
	validated, err := numeric.Validate(reg, obj, allowUserInput)
	if err != nil {
		log.Fatalf("Validation failed:\n%v", err)
	}
	renderer := viz.NewRenderer(reg, docs.NewGenerator(reg))
	res, err := renderer.Render(numeric.Group, validated)
	if err != nil {
		log.Fatalf("Failed to render the object: %v", err)
	}
	widget, err := viz.Widget(res)
	if err != nil {
		log.Fatalf("Failed to render the widget: %v", err)
	}
	return widget
}

func runOpenAPI(reg *grammar.Registry) string {
	doc, err := exportopenapi.Document(reg, "Numerical Nodes", "1.0.0")
	if err != nil {
		log.Fatalf("Failed to export the schema: %v", err)
	}
	encoded, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		log.Fatalf("Failed to encode the document: %v", err)
	}
	return string(encoded)
}

// readObject loads the input object from a file or stdin, decoding JSON or
// YAML into the plain map/slice shapes validation expects.
func readObject(path, format string) any {
	var raw []byte
	var err error
	if path == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	var obj any
	switch strings.ToLower(format) {
	case "json":
		err = json.Unmarshal(raw, &obj)
	case "yaml", "yml":
		err = yaml.Unmarshal(raw, &obj)
	default:
		log.Fatalf("Unknown input format %q; valid formats are json and yaml", format)
	}
	if err != nil {
		log.Fatalf("Failed to decode input: %v", err)
	}
	return obj
}
