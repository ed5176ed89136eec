package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/temirov/llm-steps/internal/datasource"
)

const (
	emptyModelsErrorMessage                  = "config.models is empty"
	missingDefaultModelErrorMessage          = "no default model found (set models[].default: true)"
	rootConfigurationEmptyContentErrorFormat = "root configuration %s is empty"
	rootConfigurationUnmarshalErrorFormat    = "unmarshal root configuration %s: %w"
	rootConfigurationInvalidErrorFormat      = "invalid root configuration %s: %w"
	dataSourceBuildErrorFormat               = "datasource %s: %w"
)

var structValidator = validator.New()

type Root struct {
	Common      Common       `yaml:"common"`
	Models      []Model      `yaml:"models" validate:"dive"`
	Agent       Agent        `yaml:"agent"`
	DataSources []DataSource `yaml:"datasources" validate:"dive"`
	Execution   Execution    `yaml:"execution"`
}

type Common struct {
	API struct {
		Endpoint  string `yaml:"endpoint"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"api"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Defaults struct {
		Attempts       int `yaml:"attempts" validate:"gte=0"`
		TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0"`
	} `yaml:"defaults"`
}

type Model struct {
	Name                string  `yaml:"name" validate:"required"`
	Provider            string  `yaml:"provider" validate:"required"`
	ModelID             string  `yaml:"model_id" validate:"required"`
	Default             bool    `yaml:"default"`
	Temperature         float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxCompletionTokens int     `yaml:"max_completion_tokens" validate:"gte=0"`
}

// PromptOverride replaces parts of a built-in prompt template.
type PromptOverride struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type Agent struct {
	Name             string   `yaml:"name"`
	AllowedProviders []string `yaml:"allowed_providers"`
	DirectSQL        bool     `yaml:"direct_sql"`
	SetupMessage     string   `yaml:"setup_message"`
	DisallowedCode   []string `yaml:"disallowed_code"`
	Prompts          struct {
		Generate PromptOverride `yaml:"generate"`
		Correct  PromptOverride `yaml:"correct"`
	} `yaml:"prompts"`
}

type DataSource struct {
	Name             string   `yaml:"name" validate:"required"`
	Kind             string   `yaml:"kind" validate:"required,oneof=sql managed"`
	Table            string   `yaml:"table"`
	Dialect          string   `yaml:"dialect"`
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	Database         string   `yaml:"database"`
	Username         string   `yaml:"username"`
	PasswordEnv      string   `yaml:"password_env"`
	Columns          []string `yaml:"columns"`
	DirectSQLEnabled bool     `yaml:"direct_sql_enabled"`
}

type Execution struct {
	Interpreter []string `yaml:"interpreter"`
	WorkingDir  string   `yaml:"working_dir"`
}

// LoadRoot parses the provided configuration source and validates required fields.
func LoadRoot(source RootConfigurationSource) (Root, error) {
	if len(source.Content) == 0 {
		return Root{}, fmt.Errorf(rootConfigurationEmptyContentErrorFormat, source.Reference)
	}

	var rootConfiguration Root
	if err := yaml.Unmarshal(source.Content, &rootConfiguration); err != nil {
		return Root{}, fmt.Errorf(rootConfigurationUnmarshalErrorFormat, source.Reference, err)
	}

	if len(rootConfiguration.Models) == 0 {
		return Root{}, errors.New(emptyModelsErrorMessage)
	}
	if _, ok := rootConfiguration.DefaultModel(); !ok {
		return Root{}, errors.New(missingDefaultModelErrorMessage)
	}
	if err := structValidator.Struct(rootConfiguration); err != nil {
		return Root{}, fmt.Errorf(rootConfigurationInvalidErrorFormat, source.Reference, err)
	}
	return rootConfiguration, nil
}

func (root Root) DefaultModel() (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Default {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

func (root Root) FindModel(name string) (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Name == name {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

// Connectors builds the configured data sources. getenv resolves password_env.
func (root Root) Connectors(getenv func(string) string) ([]datasource.Connector, error) {
	connectors := make([]datasource.Connector, 0, len(root.DataSources))
	for _, source := range root.DataSources {
		switch datasource.Kind(source.Kind) {
		case datasource.KindSQL:
			password := ""
			if envName := strings.TrimSpace(source.PasswordEnv); envName != "" {
				password = getenv(envName)
			}
			connector, err := datasource.NewSQLConnector(source.Name, source.Table, datasource.Credentials{
				Dialect:  source.Dialect,
				Host:     source.Host,
				Port:     source.Port,
				Database: source.Database,
				Username: source.Username,
				Password: password,
			})
			if err != nil {
				return nil, fmt.Errorf(dataSourceBuildErrorFormat, source.Name, err)
			}
			connectors = append(connectors, connector)
		case datasource.KindManaged:
			connectors = append(connectors, datasource.NewManagedConnector(source.Name, source.Columns, source.DirectSQLEnabled))
		default:
			return nil, fmt.Errorf(dataSourceBuildErrorFormat, source.Name, fmt.Errorf("unknown kind %q", source.Kind))
		}
	}
	return connectors, nil
}
