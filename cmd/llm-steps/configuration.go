package llmsteps

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/temirov/llm-steps/internal/config"
)

// loadRootConfiguration resolves and parses the configuration, reading candidate files with readFile.
func loadRootConfiguration(configurationPath string, readFile func(string) ([]byte, error)) (config.Root, error) {
	configurationLoader, loaderErr := config.NewDefaultRootConfigurationLoader()
	if loaderErr != nil {
		return config.Root{}, fmt.Errorf(configurationLoaderInitErrorFormat, loaderErr)
	}
	configurationLoader = configurationLoader.WithFileReader(readFile)
	configurationSource, sourceErr := configurationLoader.Load(configurationPath)
	if sourceErr != nil {
		if configurationPath == "" || configurationPath == defaultConfigPath {
			configurationSource, sourceErr = configurationLoader.Load("")
		}
		if sourceErr != nil {
			return config.Root{}, fmt.Errorf(configurationSourceErrorFormat, sourceErr)
		}
	}
	rootConfiguration, loadErr := config.LoadRoot(configurationSource)
	if loadErr != nil {
		return config.Root{}, fmt.Errorf(rootConfigurationLoadErrorFormat, configurationSource.Reference, loadErr)
	}
	return rootConfiguration, nil
}

// overrides are settings taken from flags or LLM_STEPS_* variables; flags win.
type overrides struct {
	Model       string
	APIEndpoint string
	APIKeyEnv   string
	LogLevel    string
	DirectSQL   *bool
}

func resolveOverrides(flags *pflag.FlagSet) (overrides, error) {
	resolver := viper.New()
	resolver.SetEnvPrefix(environmentPrefix)
	resolver.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	resolver.AutomaticEnv()
	for _, name := range []string{modelFlagName, apiEndpointFlagName, apiKeyEnvFlagName, logLevelFlagName, directSQLFlagName} {
		if flag := flags.Lookup(name); flag != nil {
			if bindErr := resolver.BindPFlag(name, flag); bindErr != nil {
				return overrides{}, fmt.Errorf("bind --%s: %w", name, bindErr)
			}
		}
	}

	resolved := overrides{
		Model:       strings.TrimSpace(resolver.GetString(modelFlagName)),
		APIEndpoint: strings.TrimSpace(resolver.GetString(apiEndpointFlagName)),
		APIKeyEnv:   strings.TrimSpace(resolver.GetString(apiKeyEnvFlagName)),
		LogLevel:    strings.TrimSpace(resolver.GetString(logLevelFlagName)),
	}
	if resolver.IsSet(directSQLFlagName) {
		raw := resolver.GetString(directSQLFlagName)
		directSQL, ok := parseBoolChoice(raw)
		if !ok {
			return overrides{}, fmt.Errorf(directSQLValueErrorFormat, raw, directSQLFlagName)
		}
		resolved.DirectSQL = &directSQL
	}
	return resolved, nil
}

func (o overrides) apply(root *config.Root) {
	if o.APIEndpoint != "" {
		root.Common.API.Endpoint = o.APIEndpoint
	}
	if o.APIKeyEnv != "" {
		root.Common.API.APIKeyEnv = o.APIKeyEnv
	}
	if o.LogLevel != "" {
		root.Common.Logging.Level = o.LogLevel
	}
	if o.DirectSQL != nil {
		root.Agent.DirectSQL = *o.DirectSQL
	}
}

func selectModel(root config.Root, name string) (config.Model, error) {
	if name == "" {
		model, _ := root.DefaultModel()
		return model, nil
	}
	model, ok := root.FindModel(name)
	if !ok {
		return config.Model{}, fmt.Errorf(unknownModelErrorFormat, name)
	}
	return model, nil
}
