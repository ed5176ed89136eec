// Package prompts renders the prompt templates used for code generation and correction.
package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/temirov/llm-steps/internal/pipeline"
)

// Template variables understood by the built-in templates.
const (
	VarQuery       = "query"
	VarDataSources = "datasources"
	VarCode        = "code"
	VarError       = "error"
	VarDialect     = "dialect"
)

var placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

// Template holds a system and a user prompt with ${name} placeholders.
type Template struct {
	Name   string
	System string
	User   string
}

// Render substitutes vars into both prompts. A placeholder without a value is an error.
func (t Template) Render(vars map[string]string) (pipeline.Prompt, error) {
	system, systemErr := expand(t.System, vars)
	if systemErr != nil {
		return pipeline.Prompt{}, fmt.Errorf("render %s system prompt: %w", t.Name, systemErr)
	}
	user, userErr := expand(t.User, vars)
	if userErr != nil {
		return pipeline.Prompt{}, fmt.Errorf("render %s user prompt: %w", t.Name, userErr)
	}
	return pipeline.Prompt{System: strings.TrimSpace(system), User: strings.TrimSpace(user)}, nil
}

// Override returns t with the non-empty fields of other applied.
func (t Template) Override(system string, user string) Template {
	if strings.TrimSpace(system) != "" {
		t.System = system
	}
	if strings.TrimSpace(user) != "" {
		t.User = user
	}
	return t
}

func expand(text string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing variable: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// GenerateCode asks for fresh code answering a query.
var GenerateCode = Template{
	Name: "generate_code",
	System: `You write short, self-contained Python programs that answer questions about the data sources below.
Return exactly one fenced code block and nothing else.`,
	User: `Data sources:
${datasources}

Question:
${query}`,
}

// CorrectCode asks the model to fix code that raised an error.
var CorrectCode = Template{
	Name: "correct_code",
	System: `You fix Python programs that failed while answering questions about the data sources below.
Return exactly one fenced code block with the corrected program and nothing else.`,
	User: `Data sources:
${datasources}

Question:
${query}

The following code was generated for the question:
` + "```python" + `
${code}
` + "```" + `

It failed with this error:
${error}

Fix the code so it answers the question without the error.`,
}
