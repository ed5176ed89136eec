package llmsteps

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/llm-steps/internal/agent"
	"github.com/temirov/llm-steps/internal/pipeline"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   listCommandUse,
		Short: listCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := agent.Registry(agent.Options{})
			session := pipeline.NewSession(pipeline.SessionConfig{})
			for _, name := range registry.Names() {
				registered, _ := registry.Create(name, session)
				if _, writeErr := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, strings.Join(registered.UnitNames(), unitSeparator)); writeErr != nil {
					return fmt.Errorf("write pipeline listing: %w", writeErr)
				}
			}
			return nil
		},
	}
}
