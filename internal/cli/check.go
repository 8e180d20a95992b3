package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/remedyproject/remedy/internal/runner"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the CI command once and report the result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfigFromFlags(cmd)
		if err != nil {
			return err
		}
		workdir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		exec := &runner.ExecRunner{Timeout: cfg.Timeout()}
		res, err := exec.Run(context.Background(), workdir, cfg.Command)
		if err != nil {
			return fmt.Errorf("running CI command: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), runner.TailLines(res.Log, cfg.LogTailLines))
		if res.TimedOut {
			fmt.Fprintf(cmd.ErrOrStderr(), "check: timed out after %s\n", cfg.Timeout())
			os.Exit(1)
		}
		if !res.Ok() {
			fmt.Fprintf(cmd.ErrOrStderr(), "check: failed (exit %d, %s)\n", res.ExitCode, res.Duration().Round(timePrecision))
			os.Exit(1)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "check: passed (%s)\n", res.Duration().Round(timePrecision))
		return nil
	},
}

func init() {
	checkCmd.Flags().String("config", "", "path to config file (default: remedy.yaml)")
	checkCmd.Flags().String("command", "", "override the CI command")
}
