// Package agent answers queries by generating code, executing it, and correcting it on failure.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/llm-steps/internal/correction"
	"github.com/temirov/llm-steps/internal/datasource"
	"github.com/temirov/llm-steps/internal/pipeline"
	"github.com/temirov/llm-steps/internal/prompts"
	"github.com/temirov/llm-steps/internal/units"
	"github.com/temirov/llm-steps/internal/validation"
)

const (
	// GenerationPipelineName identifies the fresh generation pipeline.
	GenerationPipelineName = "generate_code"
	generationPromptUnit   = "prompt_generation"
	emptyQueryError        = "query is empty"
	unexpectedQueryError   = "generation expects a text query, got %T"
	answeredMessage        = "Query answered"
)

// Options configures an Agent. Zero values fall back to built-in templates and no corrections.
type Options struct {
	Name             string
	AllowedLLMTypes  []string
	SetupMessage     string
	GenerateTemplate *prompts.Template
	CorrectTemplate  *prompts.Template
	Policy           correction.Policy
	Logger           *zap.Logger
	Tracker          pipeline.Tracker
	// OnPromptGeneration and OnCodeGeneration observe both pipelines.
	OnPromptGeneration pipeline.Observer
	OnCodeGeneration   pipeline.Observer
}

// Result describes one answered (or abandoned) query.
type Result struct {
	Query       string
	Code        string
	Output      string
	Corrections int
	Success     bool
	Message     string
}

type Agent struct {
	session    *pipeline.Session
	generation *pipeline.Pipeline
	corrector  *correction.Pipeline
	executor   correction.Executor
	policy     correction.Policy
	logger     *zap.Logger
}

// New wires the generation and correction pipelines over session.
func New(session *pipeline.Session, executor correction.Executor, options Options) *Agent {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	options.Logger = logger
	return &Agent{
		session:    session,
		generation: NewGenerationPipeline(session, options),
		corrector:  NewCorrectionPipeline(session, options),
		executor:   executor,
		policy:     options.Policy,
		logger:     logger,
	}
}

// NewGenerationPipeline builds validate, prompt, LLM, generate, clean.
func NewGenerationPipeline(session *pipeline.Session, options Options) *pipeline.Pipeline {
	template := prompts.GenerateCode
	if options.GenerateTemplate != nil {
		template = *options.GenerateTemplate
	}
	chain := []pipeline.Unit{
		validation.InputValidator{
			AgentName:       options.Name,
			AllowedLLMTypes: options.AllowedLLMTypes,
			SetupMessage:    options.SetupMessage,
		},
		pipeline.WithObserver(units.NewPromptGeneration(generationPromptUnit, generationPromptBuilder(template)), options.OnPromptGeneration),
		units.LLMCall{},
		pipeline.WithObserver(units.CodeGenerator{}, options.OnCodeGeneration),
		units.CodeCleaning{},
	}
	return pipeline.New(GenerationPipelineName, session, chain, pipelineOptions(options)...)
}

// NewCorrectionPipeline builds the correction pipeline with the agent's observers.
func NewCorrectionPipeline(session *pipeline.Session, options Options) *correction.Pipeline {
	return correction.New(session, correction.Options{
		Logger:             options.Logger,
		Tracker:            options.Tracker,
		Template:           options.CorrectTemplate,
		OnPromptGeneration: options.OnPromptGeneration,
		OnCodeGeneration:   options.OnCodeGeneration,
	})
}

// Registry lists the agent's pipelines by name.
func Registry(options Options) *pipeline.Registry {
	registry := pipeline.NewRegistry()
	registry.Register(GenerationPipelineName, func(session *pipeline.Session) *pipeline.Pipeline {
		return NewGenerationPipeline(session, options)
	})
	registry.Register(correction.PipelineName, func(session *pipeline.Session) *pipeline.Pipeline {
		return NewCorrectionPipeline(session, options).Pipeline()
	})
	return registry
}

// Chat generates code for query, executes it and corrects it within the agent's policy.
// Configuration errors are returned; soft failures come back as an unsuccessful Result.
func (a *Agent) Chat(ctx context.Context, query string) (Result, error) {
	a.session.ResetArtifacts()
	result := Result{Query: query}

	generated, runErr := a.generation.Run(ctx, query)
	if runErr != nil {
		return result, runErr
	}
	if !generated.Success {
		result.Message = generated.Message
		return result, nil
	}
	code, ok := generated.Value.(string)
	if !ok {
		return result, fmt.Errorf("generation produced %T instead of code", generated.Value)
	}

	outcome, retryErr := correction.Retry(ctx, a.corrector, a.policy, query, code, a.executor)
	result.Code = outcome.Code
	result.Corrections = len(outcome.Attempts)
	if retryErr != nil {
		if errors.Is(retryErr, correction.ErrCorrectionExhausted) {
			a.logger.Warn("giving up on query", zap.Int("corrections", result.Corrections), zap.Error(retryErr))
			result.Message = retryErr.Error()
			return result, nil
		}
		return result, retryErr
	}
	result.Output = outcome.Result
	result.Success = true
	result.Message = answeredMessage
	return result, nil
}

func pipelineOptions(options Options) []pipeline.Option {
	out := []pipeline.Option{pipeline.WithLogger(options.Logger)}
	if options.Tracker != nil {
		out = append(out, pipeline.WithTracker(options.Tracker))
	}
	return out
}

func generationPromptBuilder(template prompts.Template) units.PromptBuilder {
	return func(input any, session *pipeline.Session) (pipeline.Prompt, error) {
		query, ok := input.(string)
		if !ok {
			return pipeline.Prompt{}, fmt.Errorf(unexpectedQueryError, input)
		}
		if strings.TrimSpace(query) == "" {
			return pipeline.Prompt{}, errors.New(emptyQueryError)
		}
		return template.Render(map[string]string{
			prompts.VarQuery:       query,
			prompts.VarDataSources: datasource.Describe(session.DataSources()),
		})
	}
}
