package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "remedy",
	Short: "remedy — automated CI repair loop",
	Long: `remedy runs your CI command and, when it fails, asks a patch service for a
fix, applies the suggested diff, and retries until the pipeline passes or an
attempt budget runs out. A coverage gate can extend the loop to push
per-module test coverage above a threshold.

Every attempt is archived under .remedy/runs/ for audit. Configuration is
read from remedy.yaml in the working directory.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
