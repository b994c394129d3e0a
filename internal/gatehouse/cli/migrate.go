package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ferryhill/gatehouse/internal/gatehouse/store/drivers/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage schema migrations",
	Long: `Schema migrations are split into two contexts, each with its own
version table:

  configuration  clients and scopes
  operational    grants and signing keys

Contexts migrate independently; "up" with no context migrates both.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up [context]",
	Short: "Apply pending migrations",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <context> <version>",
	Short: "Roll a context back to a target version",
	Long: `Rolls the named context back to the target schema version. Version 0
removes every table the context owns, including its data.`,
	Args: cobra.ExactArgs(2),
	RunE: runMigrateDown,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current version of each context",
	Args:  cobra.NoArgs,
	RunE:  runMigrateVersion,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	contexts := sqlite.MigrationContextNames()
	if len(args) == 1 {
		contexts = []string{args[0]}
	}

	for _, name := range contexts {
		if err := st.MigrateContext(name, -1); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		version, _, err := st.ContextVersion(name)
		if err != nil {
			return err
		}
		cmd.Printf("%s: at version %d\n", name, version)
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	name := args[0]
	target, err := strconv.Atoi(args[1])
	if err != nil || target < 0 {
		return fmt.Errorf("invalid target version %q", args[1])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.MigrateContext(name, target); err != nil {
		return fmt.Errorf("migrate %s: %w", name, err)
	}
	cmd.Printf("%s: at version %d\n", name, target)
	return nil
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, name := range sqlite.MigrationContextNames() {
		version, dirty, err := st.ContextVersion(name)
		if err != nil {
			return err
		}
		state := ""
		if dirty {
			state = " (dirty)"
		}
		cmd.Printf("%s: %d%s\n", name, version, state)
	}
	return nil
}
