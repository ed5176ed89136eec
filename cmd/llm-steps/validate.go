package llmsteps

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/llm-steps/internal/datasource"
)

func newValidateCommand(global *globalOptions, deps dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   validateCommandUse,
		Short: validateCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, prepareErr := global.prepare(cmd, deps)
			if prepareErr != nil {
				return prepareErr
			}
			defer env.close()

			output, validateErr := env.inputValidator().Execute(cmd.Context(), nil, env.session)
			if validateErr != nil {
				return validateErr
			}
			out := cmd.OutOrStdout()
			if _, writeErr := fmt.Fprintf(out, "%s (model=%s, provider=%s, direct_sql=%t)\n",
				output.Message, env.model.Name, env.model.Provider, env.session.DirectSQL()); writeErr != nil {
				return fmt.Errorf("write validation result: %w", writeErr)
			}
			if sources := env.session.DataSources(); len(sources) > 0 {
				if _, writeErr := fmt.Fprintln(out, datasource.Describe(sources)); writeErr != nil {
					return fmt.Errorf("write validation result: %w", writeErr)
				}
			}
			return nil
		},
	}
}
