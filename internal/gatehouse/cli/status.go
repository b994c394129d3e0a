package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ferryhill/gatehouse/internal/gatehouse/store/drivers/sqlite"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise the database state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cmd.Printf("database: %s\n", cfg.DatabaseFile)
	for _, name := range sqlite.MigrationContextNames() {
		version, dirty, err := st.ContextVersion(name)
		if err != nil {
			return err
		}
		state := "clean"
		if dirty {
			state = "dirty"
		}
		cmd.Printf("  %-14s version %d (%s)\n", name, version, state)
	}

	ctx := context.Background()
	if version, _, err := st.ContextVersion("configuration"); err == nil && version > 0 {
		clients, err := st.Clients().List(ctx)
		if err != nil {
			return err
		}
		scopes, err := st.Scopes().List(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("  clients: %d, scopes: %d\n", len(clients), len(scopes))
	}
	return nil
}
