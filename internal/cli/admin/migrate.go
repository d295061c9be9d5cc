package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/votewise/votewise/internal/config"
	"github.com/votewise/votewise/internal/database"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return database.Migrate(cfg.DatabaseURL, source)
		},
	}

	cmd.Flags().StringVar(&source, "path", database.DefaultMigrationsURL, "Migration source URL")

	return cmd
}
