package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/pkg/cryptox"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Apply a seed file to an empty database",
	Long: `Seeds initial scopes and clients from a JSON file. Each section only
applies when its table is empty; a populated table is left untouched, so
re-running against a live database is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cryptox.SetPepperPath(cfg.PepperFile)

	data, err := service.LoadSeedFile(args[0])
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ApplyMigrations(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	seeder := &service.SeedService{Store: st, Logger: slog.Default()}
	report, err := seeder.Apply(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}

	cmd.Printf("seeded %d scopes, %d clients\n", report.ScopesSeeded, report.ClientsSeeded)
	return nil
}
