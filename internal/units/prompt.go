// Package units holds the transform units shared by the generation and correction pipelines.
package units

import (
	"context"
	"fmt"

	"github.com/temirov/llm-steps/internal/pipeline"
)

// PromptBuilder turns a unit input into a prompt.
type PromptBuilder func(input any, session *pipeline.Session) (pipeline.Prompt, error)

// PromptGeneration builds the prompt for the next LLM call.
type PromptGeneration struct {
	name  string
	build PromptBuilder
}

func NewPromptGeneration(name string, build PromptBuilder) PromptGeneration {
	return PromptGeneration{name: name, build: build}
}

func (u PromptGeneration) Name() string { return u.name }

// Execute reports builder errors as a soft failure.
func (u PromptGeneration) Execute(ctx context.Context, input any, session *pipeline.Session) (pipeline.Output, error) {
	prompt, buildErr := u.build(input, session)
	if buildErr != nil {
		return pipeline.Fail(nil, fmt.Sprintf("prompt generation failed: %v", buildErr)), nil
	}
	session.Stash(pipeline.ArtifactLastPrompt, prompt)
	return pipeline.Succeed(prompt, "Prompt generated"), nil
}
