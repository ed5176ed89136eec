// Package correction regenerates code that failed when it was executed.
package correction

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/temirov/llm-steps/internal/datasource"
	"github.com/temirov/llm-steps/internal/pipeline"
	"github.com/temirov/llm-steps/internal/prompts"
	"github.com/temirov/llm-steps/internal/units"
)

const (
	// PipelineName identifies the correction pipeline in logs, trackers and the registry.
	PipelineName         = "error_correction"
	promptUnitName       = "error_prompt_generation"
	unexpectedInputError = "error correction expects correction.Input, got %T"
)

var inputValidator = validator.New()

// Input is what the correction pipeline starts from.
type Input struct {
	Query string `validate:"required"`
	Code  string `validate:"required"`
	Error string `validate:"required"`
}

// Validate reports empty fields; a correction without them has nothing to work from.
func (i Input) Validate() error {
	if err := inputValidator.Struct(i); err != nil {
		return fmt.Errorf("invalid correction input: %w", err)
	}
	return nil
}

// Units are the four steps of the correction chain, in order.
type Units struct {
	Prompt   pipeline.Unit
	LLM      pipeline.Unit
	Generate pipeline.Unit
	Clean    pipeline.Unit
}

// Options configures a correction Pipeline.
type Options struct {
	Logger  *zap.Logger
	Tracker pipeline.Tracker
	// Template overrides prompts.CorrectCode.
	Template *prompts.Template
	// OnPromptGeneration fires with the prompt unit's output.
	OnPromptGeneration pipeline.Observer
	// OnCodeGeneration fires with the code generator's output.
	OnCodeGeneration pipeline.Observer
}

// Pipeline is a fixed prompt, LLM, generate, clean chain. It makes a single attempt;
// retries belong to the caller (see Retry).
type Pipeline struct {
	inner  *pipeline.Pipeline
	logger *zap.Logger
}

// DefaultUnits returns the production chain for template.
func DefaultUnits(template prompts.Template) Units {
	return Units{
		Prompt:   units.NewPromptGeneration(promptUnitName, promptBuilder(template)),
		LLM:      units.LLMCall{},
		Generate: units.CodeGenerator{},
		Clean:    units.CodeCleaning{},
	}
}

// New builds the correction pipeline over session with the default units.
func New(session *pipeline.Session, options Options) *Pipeline {
	template := prompts.CorrectCode
	if options.Template != nil {
		template = *options.Template
	}
	return NewWithUnits(session, DefaultUnits(template), options)
}

// NewWithUnits builds the correction pipeline from custom units.
func NewWithUnits(session *pipeline.Session, chain Units, options Options) *Pipeline {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pipelineOptions := []pipeline.Option{pipeline.WithLogger(logger)}
	if options.Tracker != nil {
		pipelineOptions = append(pipelineOptions, pipeline.WithTracker(options.Tracker))
	}
	inner := pipeline.New(PipelineName, session, []pipeline.Unit{
		pipeline.WithObserver(chain.Prompt, options.OnPromptGeneration),
		chain.LLM,
		pipeline.WithObserver(chain.Generate, options.OnCodeGeneration),
		chain.Clean,
	}, pipelineOptions...)
	return &Pipeline{inner: inner, logger: logger}
}

// Pipeline exposes the underlying chain, e.g. for listing its units.
func (p *Pipeline) Pipeline() *pipeline.Pipeline { return p.inner }

// Run returns the inner pipeline's result unchanged.
func (p *Pipeline) Run(ctx context.Context, input Input) (pipeline.Output, error) {
	p.logger.Info("executing correction pipeline", zap.String("pipeline", PipelineName))
	return p.inner.Run(ctx, input)
}

func promptBuilder(template prompts.Template) units.PromptBuilder {
	return func(input any, session *pipeline.Session) (pipeline.Prompt, error) {
		correctionInput, ok := input.(Input)
		if !ok {
			return pipeline.Prompt{}, fmt.Errorf(unexpectedInputError, input)
		}
		if err := correctionInput.Validate(); err != nil {
			return pipeline.Prompt{}, err
		}
		return template.Render(map[string]string{
			prompts.VarQuery:       correctionInput.Query,
			prompts.VarCode:        correctionInput.Code,
			prompts.VarError:       correctionInput.Error,
			prompts.VarDataSources: datasource.Describe(session.DataSources()),
		})
	}
}
