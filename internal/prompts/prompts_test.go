package prompts_test

import (
	"strings"
	"testing"

	"github.com/temirov/llm-steps/internal/prompts"
)

func TestCorrectCodeRendersAllInputs(t *testing.T) {
	prompt, err := prompts.CorrectCode.Render(map[string]string{
		prompts.VarQuery:       "total sales by month",
		prompts.VarDataSources: "- orders (sql)",
		prompts.VarCode:        "print(df.sum())",
		prompts.VarError:       "NameError: name 'df' is not defined",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, fragment := range []string{"total sales by month", "- orders (sql)", "print(df.sum())", "NameError"} {
		if !strings.Contains(prompt.User, fragment) {
			t.Fatalf("expected %q in user prompt:\n%s", fragment, prompt.User)
		}
	}
	if strings.Contains(prompt.User, "${") {
		t.Fatalf("unexpanded placeholder left in prompt:\n%s", prompt.User)
	}
	if prompt.System == "" {
		t.Fatalf("expected system prompt")
	}
}

func TestRenderReportsMissingVariables(t *testing.T) {
	_, err := prompts.CorrectCode.Render(map[string]string{prompts.VarQuery: "q", prompts.VarDataSources: ""})
	if err == nil {
		t.Fatalf("expected missing variable error")
	}
	if !strings.Contains(err.Error(), "code, error") {
		t.Fatalf("expected sorted missing names, got %v", err)
	}
}

func TestOverrideKeepsDefaultsForEmptyFields(t *testing.T) {
	custom := prompts.GenerateCode.Override("", "Q: ${query}")
	if custom.System != prompts.GenerateCode.System {
		t.Fatalf("expected default system prompt kept")
	}
	prompt, err := custom.Render(map[string]string{prompts.VarQuery: "why"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if prompt.User != "Q: why" {
		t.Fatalf("unexpected user prompt %q", prompt.User)
	}
}
