package units_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/temirov/llm-steps/internal/pipeline"
	"github.com/temirov/llm-steps/internal/units"
)

type scriptedLLM struct {
	response string
	err      error
	prompts  []pipeline.Prompt
}

func (s *scriptedLLM) Type() string { return "scripted" }

func (s *scriptedLLM) Call(ctx context.Context, prompt pipeline.Prompt) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func TestPromptGeneration(t *testing.T) {
	session := pipeline.NewSession(pipeline.SessionConfig{})
	unit := units.NewPromptGeneration("prompt", func(input any, session *pipeline.Session) (pipeline.Prompt, error) {
		query, ok := input.(string)
		if !ok {
			return pipeline.Prompt{}, errors.New("query must be text")
		}
		return pipeline.Prompt{User: "Q: " + query}, nil
	})

	output, err := unit.Execute(context.Background(), "count rows", session)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !output.Success || output.Value != (pipeline.Prompt{User: "Q: count rows"}) {
		t.Fatalf("unexpected output %+v", output)
	}
	if stashed, _ := session.Lookup(pipeline.ArtifactLastPrompt); stashed != output.Value {
		t.Fatalf("expected prompt stashed, got %v", stashed)
	}

	failed, err := unit.Execute(context.Background(), 7, session)
	if err != nil {
		t.Fatalf("builder errors must not be raised: %v", err)
	}
	if failed.Success || !strings.Contains(failed.Message, "query must be text") {
		t.Fatalf("expected soft failure with builder message, got %+v", failed)
	}
}

func TestLLMCall(t *testing.T) {
	transportErr := errors.New("connection reset")
	testCases := []struct {
		name        string
		llm         *scriptedLLM
		input       any
		wantSuccess bool
		wantErr     error
	}{
		{name: "response", llm: &scriptedLLM{response: "```python\nprint(1)\n```"}, input: pipeline.Prompt{User: "u"}, wantSuccess: true},
		{name: "empty response", llm: &scriptedLLM{response: "  "}, input: pipeline.Prompt{User: "u"}},
		{name: "wrong input", llm: &scriptedLLM{response: "x"}, input: "not a prompt"},
		{name: "transport error", llm: &scriptedLLM{err: transportErr}, input: pipeline.Prompt{User: "u"}, wantErr: transportErr},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			session := pipeline.NewSession(pipeline.SessionConfig{LLM: testCase.llm})
			output, err := units.LLMCall{}.Execute(context.Background(), testCase.input, session)
			if testCase.wantErr != nil {
				if !errors.Is(err, testCase.wantErr) {
					t.Fatalf("expected %v, got %v", testCase.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.Success != testCase.wantSuccess {
				t.Fatalf("expected success=%v, got %+v", testCase.wantSuccess, output)
			}
		})
	}
}

func TestLLMCallWithoutModelFailsSoftly(t *testing.T) {
	output, err := units.LLMCall{}.Execute(context.Background(), pipeline.Prompt{}, pipeline.NewSession(pipeline.SessionConfig{}))
	if err != nil || output.Success {
		t.Fatalf("expected soft failure, got %+v, %v", output, err)
	}
}

func TestExtractCode(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		want     string
	}{
		{name: "python fence", response: "Here you go:\n```python\nresult = 1\nprint(result)\n```\nDone.", want: "result = 1\nprint(result)"},
		{name: "bare fence", response: "```\nx = 2\n```", want: "x = 2"},
		{name: "first block wins", response: "```py\na = 1\n```\n```py\nb = 2\n```", want: "a = 1"},
		{name: "no fence", response: "  print('hi')  ", want: "print('hi')"},
		{name: "unterminated fence", response: "```python\nprint(3)", want: "print(3)"},
		{name: "empty", response: "   ", want: ""},
		{name: "single line fence with tag", response: "```python print(1)```", want: "print(1)"},
		{name: "single line fence", response: "```print(1)```", want: "print(1)"},
		{name: "single line sql fence in prose", response: "Run ```sql SELECT 1``` to check.", want: "SELECT 1"},
		{name: "unterminated single line fence", response: "```python print(3)", want: "print(3)"},
		{name: "stray closing fence", response: "print(4)```", want: "print(4)"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := units.ExtractCode(testCase.response); got != testCase.want {
				t.Fatalf("expected %q, got %q", testCase.want, got)
			}
		})
	}
}

func TestCodeGeneratorRejectsEmptyResponse(t *testing.T) {
	output, err := units.CodeGenerator{}.Execute(context.Background(), "```python\n```", pipeline.NewSession(pipeline.SessionConfig{}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if output.Success {
		t.Fatalf("expected failure for empty code block")
	}
}

func TestCodeCleaning(t *testing.T) {
	session := pipeline.NewSession(pipeline.SessionConfig{DisallowedCode: []string{"os.system", " "}})

	output, err := units.CodeCleaning{}.Execute(context.Background(), "\r\nx = 1   \r\n```\r\nprint(x)\t\r\n\r\n", session)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !output.Success || output.Value != "x = 1\nprint(x)" {
		t.Fatalf("unexpected cleaned output %+v", output)
	}
	if session.LookupString(pipeline.ArtifactLastCodeCleaned) != "x = 1\nprint(x)" {
		t.Fatalf("expected cleaned code stashed")
	}

	rejected, err := units.CodeCleaning{}.Execute(context.Background(), "import os\nos.system('rm -rf /')", session)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rejected.Success || !strings.Contains(rejected.Message, "os.system") {
		t.Fatalf("expected disallowed construct failure, got %+v", rejected)
	}
}

func TestCleanCodeStripsFences(t *testing.T) {
	testCases := []struct {
		name string
		code string
		want string
	}{
		{name: "fence lines", code: "```python\nprint(1)\n```", want: "print(1)"},
		{name: "single line fence with tag", code: "```python print(1)```", want: "print(1)"},
		{name: "single line fence", code: "```print(1)```", want: "print(1)"},
		{name: "trailing fence", code: "x = 1\nprint(x)```", want: "x = 1\nprint(x)"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := units.CleanCode(testCase.code); got != testCase.want {
				t.Fatalf("expected %q, got %q", testCase.want, got)
			}
		})
	}
}
