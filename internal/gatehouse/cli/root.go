// Package cli implements the gatehousectl command tree: offline database
// migrations, seeding and status inspection for a gatehouse deployment.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferryhill/gatehouse/internal/gatehouse/app"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store/drivers/sqlite"
)

var (
	databaseFile string

	rootCmd = &cobra.Command{
		Use:   "gatehousectl",
		Short: "Operate a gatehouse database",
		Long: `gatehousectl manages a gatehouse deployment from the command line:
apply or roll back schema migrations per context, seed initial clients
and scopes, and inspect migration state.

Defaults are read from the same GATEHOUSE_* environment variables the
server uses; flags override them.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseFile, "db", "",
		"path to the sqlite database (default $GATEHOUSE_DATABASE_FILE)")
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves configuration from the environment and applies flag
// overrides.
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}
	if databaseFile != "" {
		cfg.DatabaseFile = databaseFile
	}
	return cfg, nil
}

func openStore(cfg app.Config) (*sqlite.Store, error) {
	st, err := sqlite.NewStore(fmt.Sprintf("file:%s?_busy_timeout=5000", cfg.DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabaseFile, err)
	}
	return st, nil
}
