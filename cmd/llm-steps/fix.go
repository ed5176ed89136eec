package llmsteps

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/llm-steps/internal/agent"
	"github.com/temirov/llm-steps/internal/correction"
	"github.com/temirov/llm-steps/internal/fsops"
	"github.com/temirov/llm-steps/internal/pipeline"
)

type fixCommandOptions struct {
	query      string
	codeFile   string
	errorFile  string
	outputPath string
}

func newFixCommand(global *globalOptions, deps dependencies) *cobra.Command {
	options := &fixCommandOptions{}

	command := &cobra.Command{
		Use:   fixCommandUse,
		Short: fixCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, prepareErr := global.prepare(cmd, deps)
			if prepareErr != nil {
				return prepareErr
			}
			defer env.close()
			return runFix(cmd, env, fsops.NewOps(deps.fileSystem), *options)
		},
	}

	command.Flags().StringVar(&options.query, queryFlagName, "", queryFlagUsage)
	command.Flags().StringVar(&options.codeFile, codeFileFlagName, "", codeFileFlagUsage)
	command.Flags().StringVar(&options.errorFile, errorFileFlagName, "", errorFileFlagUsage)
	command.Flags().StringVar(&options.outputPath, outputFlagName, "", outputFlagUsage)
	for _, required := range []string{queryFlagName, codeFileFlagName, errorFileFlagName} {
		_ = command.MarkFlagRequired(required)
	}
	return command
}

func runFix(command *cobra.Command, env *environment, files fsops.Ops, options fixCommandOptions) error {
	code, codeErr := files.ReadText(options.codeFile)
	if codeErr != nil {
		return codeErr
	}
	executionError, errorErr := files.ReadText(options.errorFile)
	if errorErr != nil {
		return errorErr
	}

	// The correction chain has no validation unit of its own, so the configuration is checked here.
	if _, validateErr := env.inputValidator().Execute(command.Context(), nil, env.session); validateErr != nil {
		return validateErr
	}

	corrector := agent.NewCorrectionPipeline(env.session, env.options)
	output, runErr := corrector.Run(command.Context(), correction.Input{Query: options.query, Code: code, Error: executionError})
	if runErr != nil {
		return runErr
	}
	if !output.Success {
		lastResponse := env.session.LookupString(pipeline.ArtifactLastLLMResponse)
		env.logger.Debug("correction rejected", zap.String("last_llm_response", lastResponse))
		return fmt.Errorf(correctionFailedErrorFormat, output.Message)
	}
	corrected, _ := output.Value.(string)

	if options.outputPath != "" {
		return files.WriteText(options.outputPath, corrected)
	}
	if _, writeErr := fmt.Fprintln(command.OutOrStdout(), corrected); writeErr != nil {
		return fmt.Errorf("write corrected code: %w", writeErr)
	}
	return nil
}
