package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/remedyproject/remedy/internal/coverage"
	"github.com/remedyproject/remedy/internal/runner"
	"github.com/spf13/cobra"
)

const timePrecision = 100 * time.Millisecond

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Run the CI command once and show per-module coverage",
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
		if !res.Ok() {
			fmt.Fprintln(cmd.OutOrStdout(), runner.TailLines(res.Log, cfg.LogTailLines))
			return fmt.Errorf("CI failed (exit %d), no coverage to report", res.ExitCode)
		}

		table := coverage.Parse(res.Log)
		if table == nil {
			return fmt.Errorf("no coverage table found in CI output")
		}

		out := cmd.OutOrStdout()
		for _, m := range table.Modules {
			marker := " "
			if cfg.CoverageThreshold > 0 && m.Percent < cfg.CoverageThreshold {
				marker = "!"
			}
			fmt.Fprintf(out, "%s %6.1f%%  %s\n", marker, m.Percent, m.Path)
		}
		if cfg.CoverageThreshold > 0 {
			deficits := table.Deficits(cfg.CoverageThreshold)
			if len(deficits) > 0 {
				return fmt.Errorf("%d module(s) below %.1f%%", len(deficits), cfg.CoverageThreshold)
			}
			fmt.Fprintf(out, "all modules at or above %.1f%%\n", cfg.CoverageThreshold)
		}
		return nil
	},
}

func init() {
	coverageCmd.Flags().String("config", "", "path to config file (default: remedy.yaml)")
	coverageCmd.Flags().Float64("coverage-threshold", -1, "override coverage_threshold")
}
