// Package validation provides the unit that gates a pipeline on configuration preconditions.
package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/llm-steps/internal/datasource"
	"github.com/temirov/llm-steps/internal/pipeline"
)

const (
	unitName                   = "validate_pipeline_input"
	validationSucceededMessage = "Input Validation Successful"
	missingLLMMessage          = "%s requires a configured LLM"
	unsupportedLLMMessageFmt   = "%s works only with %s LLMs (configured: %q); follow the setup instructions"
	directSQLMessage           = "direct SQL requires all data sources to be SQL connectors sharing the same credentials, or all to be managed connectors with direct SQL enabled"
	directSQLGuidance          = "Disable agent.direct_sql or make every entry of datasources[] use the same kind and credentials."
	defaultAgentName           = "Agent"

	// DefaultSetupMessage explains how to point the agent at a supported model.
	DefaultSetupMessage = `Add a supported model to models[] in config.yaml and mark it default, for example:

models:
  - name: bamboo
    provider: bamboo
    model_id: bamboo-llm
    default: true

then export the API key named by common.api.api_key_env.`
)

// InputValidator checks cross-cutting preconditions before any expensive unit runs.
// Violations are returned as *pipeline.ConfigError, never as a soft failure.
type InputValidator struct {
	AgentName       string
	AllowedLLMTypes []string
	SetupMessage    string
}

func (v InputValidator) Name() string { return unitName }

// Execute passes input through untouched when every check holds.
func (v InputValidator) Execute(ctx context.Context, input any, session *pipeline.Session) (pipeline.Output, error) {
	if err := v.validateLLM(session.LLM()); err != nil {
		return pipeline.Output{}, err
	}
	if err := ValidateDirectSQL(session.DirectSQL(), session.DataSources()); err != nil {
		return pipeline.Output{}, err
	}
	return pipeline.Succeed(input, validationSucceededMessage), nil
}

func (v InputValidator) validateLLM(model pipeline.LLM) error {
	agentName := v.AgentName
	if strings.TrimSpace(agentName) == "" {
		agentName = defaultAgentName
	}
	guidance := v.SetupMessage
	if strings.TrimSpace(guidance) == "" {
		guidance = DefaultSetupMessage
	}
	if model == nil {
		return pipeline.NewConfigError(fmt.Sprintf(missingLLMMessage, agentName), guidance)
	}
	if len(v.AllowedLLMTypes) == 0 {
		return nil
	}
	modelType := model.Type()
	for _, allowed := range v.AllowedLLMTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), modelType) {
			return nil
		}
	}
	return pipeline.NewConfigError(
		fmt.Sprintf(unsupportedLLMMessageFmt, agentName, strings.Join(v.AllowedLLMTypes, "/"), modelType),
		guidance)
}

// ValidateDirectSQL enforces source homogeneity when direct SQL is on. An empty source list
// passes.
func ValidateDirectSQL(directSQL bool, sources []datasource.Connector) error {
	if !directSQL {
		return nil
	}
	if allSQLWithSameCredentials(sources) || allManagedWithDirectSQL(sources) {
		return nil
	}
	return pipeline.NewConfigError(directSQLMessage, directSQLGuidance)
}

func allSQLWithSameCredentials(sources []datasource.Connector) bool {
	for _, source := range sources {
		if source.Kind() != datasource.KindSQL || !source.Equals(sources[0]) {
			return false
		}
	}
	return true
}

func allManagedWithDirectSQL(sources []datasource.Connector) bool {
	for _, source := range sources {
		if source.Kind() != datasource.KindManaged || !source.DirectSQLEnabled() {
			return false
		}
	}
	return true
}
