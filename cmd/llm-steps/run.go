package llmsteps

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/llm-steps/internal/agent"
	"github.com/temirov/llm-steps/internal/config"
)

type runCommandOptions struct {
	attempts int
}

func newRunCommand(global *globalOptions, deps dependencies) *cobra.Command {
	options := &runCommandOptions{}

	command := &cobra.Command{
		Use:   runCommandUse,
		Short: runCommandShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, prepareErr := global.prepare(cmd, deps)
			if prepareErr != nil {
				return prepareErr
			}
			defer env.close()
			env.options.Policy.MaxAttempts = resolveEffectiveAttempts(cmd, *options, env.root)
			return runQuery(cmd, env, args[0])
		},
	}

	command.Flags().IntVar(&options.attempts, attemptsFlagName, 0, attemptsFlagUsage)
	return command
}

func runQuery(command *cobra.Command, env *environment, query string) error {
	result, chatErr := agent.New(env.session, env.executor, env.options).Chat(command.Context(), query)
	if chatErr != nil {
		return chatErr
	}
	env.logger.Info("query finished",
		zap.String("run_id", env.tracker.RunID()),
		zap.Int("steps", len(env.tracker.Records())),
		zap.Int("corrections", result.Corrections),
		zap.Bool("success", result.Success))
	env.logger.Debug("pipeline steps", zap.String("summary", env.tracker.Summary()))
	if !result.Success {
		return fmt.Errorf(answerFailedErrorFormat, result.Message)
	}

	if _, writeErr := fmt.Fprintf(command.OutOrStdout(), "```python\n%s\n```\n\n%s\n", result.Code, result.Output); writeErr != nil {
		return fmt.Errorf("write answer: %w", writeErr)
	}
	return nil
}

// resolveEffectiveAttempts prefers an explicit --attempts over the configured default.
func resolveEffectiveAttempts(command *cobra.Command, options runCommandOptions, root config.Root) int {
	effective := root.Common.Defaults.Attempts
	if attemptsFlag := command.Flags().Lookup(attemptsFlagName); attemptsFlag != nil && attemptsFlag.Changed {
		effective = options.attempts
	}
	if effective < 0 {
		return 0
	}
	return effective
}
