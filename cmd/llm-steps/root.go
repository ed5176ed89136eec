package llmsteps

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the llm-steps command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDependencies())
}

func newRootCommand(deps dependencies) *cobra.Command {
	global := &globalOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:           rootCommandUse,
		Short:         rootCommandShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := command.PersistentFlags()
	flags.StringVar(&global.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	flags.String(modelFlagName, "", modelFlagUsage)
	flags.String(apiEndpointFlagName, "", apiEndpointFlagUsage)
	flags.String(apiKeyEnvFlagName, "", apiKeyEnvFlagUsage)
	flags.String(logLevelFlagName, "", logLevelFlagUsage)
	flags.Var(&boolChoiceValue{}, directSQLFlagName, directSQLFlagUsage)
	if directSQLFlag := flags.Lookup(directSQLFlagName); directSQLFlag != nil {
		directSQLFlag.NoOptDefVal = "true"
	}

	command.AddCommand(
		newRunCommand(global, deps),
		newFixCommand(global, deps),
		newValidateCommand(global, deps),
		newListCommand(),
	)
	return command
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}
