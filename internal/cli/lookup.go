package cli

import (
	"encoding/json"
	"fmt"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/internal/config"
	"github.com/spf13/cobra"
)

// NewLookupCmd prints the stored responses for one email.
func NewLookupCmd(configPath *string) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Show stored quiz responses for an email",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.DriverMemory {
				return fmt.Errorf("lookup needs a persistent store.driver, got %q", cfg.Store.Driver)
			}

			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			records, err := b.recordStore()
			if err != nil {
				return err
			}

			gateway := app.NewResponseGateway(records, app.GatewayOptions{AllowedDomain: cfg.Quiz.AllowedDomain}, nil)
			responses, err := gateway.ResponsesByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(responses)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email to look up (exact, case-insensitive)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
