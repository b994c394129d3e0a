package cli

import (
	"github.com/spf13/cobra"

	"github.com/ferryhill/gatehouse/internal/gatehouse/app"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("gatehousectl version %s\n", app.BuildVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
