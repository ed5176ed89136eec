package llmsteps

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/llm-steps/internal/agent"
	"github.com/temirov/llm-steps/internal/config"
	"github.com/temirov/llm-steps/internal/correction"
	"github.com/temirov/llm-steps/internal/execution"
	"github.com/temirov/llm-steps/internal/fsops"
	"github.com/temirov/llm-steps/internal/llm"
	"github.com/temirov/llm-steps/internal/logging"
	"github.com/temirov/llm-steps/internal/pipeline"
	"github.com/temirov/llm-steps/internal/prompts"
	"github.com/temirov/llm-steps/internal/tracker"
	"github.com/temirov/llm-steps/internal/validation"
)

// dependencies are the process-level collaborators commands reach for; tests swap them.
type dependencies struct {
	getenv      func(string) string
	fileSystem  fsops.FS
	httpClient  *http.Client
	newExecutor func(settings config.Execution, timeout time.Duration) correction.Executor
}

func defaultDependencies() dependencies {
	return dependencies{
		getenv:     os.Getenv,
		fileSystem: fsops.NewOS(),
		httpClient: &http.Client{},
		newExecutor: func(settings config.Execution, timeout time.Duration) correction.Executor {
			return execution.NewCommandExecutor(settings.Interpreter, settings.WorkingDir, timeout)
		},
	}
}

type globalOptions struct {
	configPath string
}

// environment is everything a command needs once configuration has been resolved.
type environment struct {
	root     config.Root
	model    config.Model
	logger   *zap.Logger
	session  *pipeline.Session
	tracker  *tracker.Tracker
	options  agent.Options
	executor correction.Executor
}

func (global *globalOptions) prepare(command *cobra.Command, deps dependencies) (*environment, error) {
	rootConfiguration, loadErr := loadRootConfiguration(global.configPath, deps.fileSystem.ReadFile)
	if loadErr != nil {
		return nil, loadErr
	}
	resolved, overrideErr := resolveOverrides(command.Flags())
	if overrideErr != nil {
		return nil, overrideErr
	}
	resolved.apply(&rootConfiguration)

	logger, loggerErr := logging.New(rootConfiguration.Common.Logging.Level, rootConfiguration.Common.Logging.Format)
	if loggerErr != nil {
		return nil, loggerErr
	}
	modelConfiguration, modelErr := selectModel(rootConfiguration, resolved.Model)
	if modelErr != nil {
		return nil, modelErr
	}
	connectors, connectorErr := rootConfiguration.Connectors(deps.getenv)
	if connectorErr != nil {
		return nil, connectorErr
	}

	timeout := time.Duration(rootConfiguration.Common.Defaults.TimeoutSeconds) * time.Second
	apiKey := ""
	if keyEnv := strings.TrimSpace(rootConfiguration.Common.API.APIKeyEnv); keyEnv != "" {
		apiKey = deps.getenv(keyEnv)
		if apiKey == "" {
			logger.Warn("api key environment variable is empty", zap.String("variable", keyEnv))
		}
	}
	model := llm.Model{
		Client: llm.Client{
			HTTPBaseURL: rootConfiguration.Common.API.Endpoint,
			APIKey:      apiKey,
			HTTPClient:  deps.httpClient,
		},
		Provider:    modelConfiguration.Provider,
		ModelID:     modelConfiguration.ModelID,
		Temperature: modelConfiguration.Temperature,
		MaxTokens:   modelConfiguration.MaxCompletionTokens,
		Timeout:     timeout,
		Logger:      logger,
	}
	session := pipeline.NewSession(pipeline.SessionConfig{
		LLM:            model,
		DataSources:    connectors,
		DirectSQL:      rootConfiguration.Agent.DirectSQL,
		DisallowedCode: rootConfiguration.Agent.DisallowedCode,
	})

	stepTracker := tracker.New(func(record tracker.Record) error {
		logger.Debug("pipeline step",
			zap.String("run_id", record.RunID),
			zap.String("pipeline", record.Pipeline),
			zap.String("unit", record.Unit),
			zap.Bool("success", record.Success),
			zap.Duration("duration", record.Duration),
			zap.String("message", record.Message))
		return nil
	})

	generate := prompts.GenerateCode.Override(rootConfiguration.Agent.Prompts.Generate.System, rootConfiguration.Agent.Prompts.Generate.User)
	correct := prompts.CorrectCode.Override(rootConfiguration.Agent.Prompts.Correct.System, rootConfiguration.Agent.Prompts.Correct.User)
	options := agent.Options{
		Name:             rootConfiguration.Agent.Name,
		AllowedLLMTypes:  rootConfiguration.Agent.AllowedProviders,
		SetupMessage:     rootConfiguration.Agent.SetupMessage,
		GenerateTemplate: &generate,
		CorrectTemplate:  &correct,
		Policy:           correction.Policy{MaxAttempts: rootConfiguration.Common.Defaults.Attempts},
		Logger:           logger,
		Tracker:          stepTracker,
		OnPromptGeneration: func(output pipeline.Output) {
			logger.Debug("prompt generated", zap.Bool("success", output.Success), zap.String("message", output.Message))
		},
		OnCodeGeneration: func(output pipeline.Output) {
			logger.Debug("code generated", zap.Bool("success", output.Success), zap.String("message", output.Message))
		},
	}

	return &environment{
		root:     rootConfiguration,
		model:    modelConfiguration,
		logger:   logger,
		session:  session,
		tracker:  stepTracker,
		options:  options,
		executor: deps.newExecutor(rootConfiguration.Execution, timeout),
	}, nil
}

func (env *environment) inputValidator() validation.InputValidator {
	return validation.InputValidator{
		AgentName:       env.options.Name,
		AllowedLLMTypes: env.options.AllowedLLMTypes,
		SetupMessage:    env.options.SetupMessage,
	}
}

func (env *environment) close() {
	_ = env.logger.Sync()
}
