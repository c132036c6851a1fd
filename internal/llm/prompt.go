package llm

import (
	"encoding/json"
	"strings"
)

// BuildParsePrompt composes the user prompt for the field parse. The model
// is asked for one entry per column with a value, a confidence score, and
// the page indices the value was read from, flagged as a guess when it was
// inferred from context rather than matched explicitly.
func BuildParsePrompt(pages []string, columns []string) string {
	cols, _ := json.Marshal(columns)
	text, _ := json.Marshal(pages)

	parts := []string{
		"Extract key company information and hard numerical/financial figures from the following text.",
		"Try to get each of the listed fields along with a confidence score (%) and a source (array index within Text) for each.",
		"Return the result as a single fenced ```json code block containing one object: key = field, value = object with props value, confidence, source.",
		"If no value can be explicitly matched, use a best guess based on full context, reflect this in the confidence score and add a prop guess = true.",
		"If no guess can be made, use an empty string for value.",
		"For percentage fields, use only the number followed by % (assume or convert YoY).",
		"For monetary fields, use the currency followed by the figure followed by K/M/B if applicable.",
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n\nFields: ")
	b.Write(cols)
	b.WriteString("\n\nText: ")
	b.Write(text)
	b.WriteString("\n")
	return b.String()
}
