package llmsteps

const (
	rootCommandUse                     = "llm-steps"
	rootCommandShort                   = "Generate, execute and correct code for data questions with an LLM"
	defaultConfigPath                  = "./config.yaml"
	environmentPrefix                  = "LLM_STEPS"
	configFlagName                     = "config"
	configFlagUsage                    = "Path to config.yaml (falls back to $LLM_STEPS_CONFIG, ~/.llm-steps, embedded)"
	modelFlagName                      = "model"
	modelFlagUsage                     = "Model name from models[] to use instead of the default"
	apiEndpointFlagName                = "api-endpoint"
	apiEndpointFlagUsage               = "Chat completion endpoint (env LLM_STEPS_API_ENDPOINT)"
	apiKeyEnvFlagName                  = "api-key-env"
	apiKeyEnvFlagUsage                 = "Environment variable holding the API key (env LLM_STEPS_API_KEY_ENV)"
	directSQLFlagName                  = "direct-sql"
	directSQLFlagUsage                 = "Let generated code query data sources directly (env LLM_STEPS_DIRECT_SQL)"
	logLevelFlagName                   = "log-level"
	logLevelFlagUsage                  = "Log level: debug, info, warn, error (env LLM_STEPS_LOG_LEVEL)"
	attemptsFlagName                   = "attempts"
	attemptsFlagUsage                  = "Max correction attempts (0 disables correction; default from config)"
	runCommandUse                      = "run QUERY"
	runCommandShort                    = "Answer a query: generate code, execute it and correct failures"
	fixCommandUse                      = "fix"
	fixCommandShort                    = "Run the error correction pipeline once on failing code"
	queryFlagName                      = "query"
	queryFlagUsage                     = "The query the code was written for"
	codeFileFlagName                   = "code-file"
	codeFileFlagUsage                  = "File holding the failing code"
	errorFileFlagName                  = "error-file"
	errorFileFlagUsage                 = "File holding the error the code raised"
	outputFlagName                     = "output"
	outputFlagUsage                    = "Write corrected code here instead of stdout"
	validateCommandUse                 = "validate"
	validateCommandShort               = "Check the configured model and data sources"
	listCommandUse                     = "list"
	listCommandShort                   = "List registered pipelines and their units"
	unitSeparator                      = " -> "
	configurationLoaderInitErrorFormat = "initialize configuration loader: %w"
	configurationSourceErrorFormat     = "resolve configuration: %w"
	rootConfigurationLoadErrorFormat   = "load root configuration %s: %w"
	unknownModelErrorFormat            = "model %q not found in models[]"
	directSQLValueErrorFormat          = "invalid boolean value %q for --%s"
	answerFailedErrorFormat            = "query not answered: %s"
	correctionFailedErrorFormat        = "correction failed: %s"
)
