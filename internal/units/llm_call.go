package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/llm-steps/internal/pipeline"
)

const llmCallUnitName = "llm_call"

// LLMCall sends the prompt to the session's LLM. Transport errors abort the run.
type LLMCall struct{}

func (LLMCall) Name() string { return llmCallUnitName }

func (LLMCall) Execute(ctx context.Context, input any, session *pipeline.Session) (pipeline.Output, error) {
	prompt, ok := input.(pipeline.Prompt)
	if !ok {
		return pipeline.Fail(nil, fmt.Sprintf("llm call expects a prompt, got %T", input)), nil
	}
	model := session.LLM()
	if model == nil {
		return pipeline.Fail(nil, "no LLM configured for the session"), nil
	}
	response, callErr := model.Call(ctx, prompt)
	if callErr != nil {
		return pipeline.Output{}, fmt.Errorf("llm call: %w", callErr)
	}
	session.Stash(pipeline.ArtifactLastLLMResponse, response)
	if strings.TrimSpace(response) == "" {
		return pipeline.Fail(response, "LLM returned an empty response"), nil
	}
	return pipeline.Succeed(response, "LLM response received"), nil
}
