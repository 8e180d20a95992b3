package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/remedyproject/remedy/internal/archive"
	"github.com/remedyproject/remedy/internal/commitmsg"
	"github.com/remedyproject/remedy/internal/config"
	"github.com/remedyproject/remedy/internal/events"
	"github.com/remedyproject/remedy/internal/gitio"
	"github.com/remedyproject/remedy/internal/loop"
	"github.com/remedyproject/remedy/internal/patch"
	"github.com/remedyproject/remedy/internal/patchsvc"
	"github.com/remedyproject/remedy/internal/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the CI repair loop until it passes or gives up",
	RunE:  runRepair,
}

func init() {
	runCmd.Flags().String("config", "", "path to config file (default: remedy.yaml)")
	runCmd.Flags().Bool("dry-run", false, "run the CI command once without requesting patches")
	runCmd.Flags().Bool("auto", false, "apply patches without asking for approval")
	runCmd.Flags().Int("max-attempts", 0, "override max_attempts")
	runCmd.Flags().String("command", "", "override the CI command")
	runCmd.Flags().String("model", "", "override the patch service model")
	runCmd.Flags().String("reasoning-effort", "", "override the model reasoning effort")
	runCmd.Flags().Float64("coverage-threshold", -1, "override coverage_threshold (0 disables)")
}

func runRepair(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	workdir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	exec := &runner.ExecRunner{Timeout: cfg.Timeout()}

	// An interrupt cancels the context so a running CI subprocess is
	// terminated instead of orphaned.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		fmt.Fprintln(cmd.OutOrStdout(), "dry run: executing the CI command once without requesting patches")
		res, err := exec.Run(ctx, workdir, cfg.Command)
		if err != nil {
			return fmt.Errorf("running CI command: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), runner.TailLines(res.Log, cfg.LogTailLines))
		if res.TimedOut {
			fmt.Fprintf(cmd.ErrOrStderr(), "dry run: timed out after %s\n", cfg.Timeout())
			os.Exit(1)
		}
		if !res.Ok() {
			os.Exit(res.ExitCode)
		}
		return nil
	}

	arc, err := archive.Open(filepath.Join(workdir, cfg.ArchiveDir), time.Now())
	if err != nil {
		return err
	}
	svc := patchsvc.NewCLIService(exec, workdir, cfg.Model, cfg.ReasoningEffort)

	eng := &loop.Engine{
		Config:  cfg,
		Runner:  exec,
		Service: svc,
		Applier: patch.NewApplier(exec, workdir),
		Archive: arc,
		Git:     gitio.New(exec, workdir),
		Workdir: workdir,
	}
	eng.SetProgress(cmd.OutOrStdout())

	if cfg.PatchApprovalMode == config.ApprovalPrompt {
		eng.Approve = stdinApprover(cmd)
	}
	if cfg.CommitMessage {
		eng.Commits = commitmsg.New(svc, workdir, "", cfg.MaxDiffChars)
	}

	var store *events.Store
	var rec *events.RunRecorder
	if cfg.DatabaseURL != "" {
		store, err = events.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: event store unavailable: %v\n", err)
		} else if err := store.Migrate(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: event store migration failed: %v\n", err)
			store.Close()
			store = nil
		} else {
			rec, err = store.StartRun(ctx, workdir, cfg.Command, cmd.ErrOrStderr())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not record run: %v\n", err)
			} else {
				eng.Recorder = rec
			}
		}
	}

	outcome, runErr := eng.Run(ctx)
	if rec != nil {
		rec.Finish(ctx, outcome.String())
	}
	if store != nil {
		store.Close()
	}
	if runErr != nil {
		return runErr
	}

	if code := outcome.ExitCode(); code != 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "remedy: %s (archive: %s)\n", outcome, arc.Dir())
		os.Exit(code)
	}
	return nil
}

// stdinApprover asks the operator about each patch: y applies, n asks the
// service for another fix, q stops the run.
func stdinApprover(cmd *cobra.Command) loop.Approver {
	reader := bufio.NewReader(cmd.InOrStdin())
	return func(d *patch.Diff) (loop.Decision, error) {
		fmt.Fprintf(cmd.OutOrStdout(), "\nproposed patch (%s):\n%s\n", strings.Join(d.Paths(), ", "), d.Text)
		for {
			fmt.Fprint(cmd.OutOrStdout(), "apply this patch? [y/n/q] ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return loop.DecisionQuit, fmt.Errorf("read approval: %w", err)
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				return loop.DecisionApprove, nil
			case "n", "no":
				return loop.DecisionReject, nil
			case "q", "quit":
				return loop.DecisionQuit, nil
			}
		}
	}
}

// loadConfigFromFlags loads the config file and layers flag overrides on top.
func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("command"); v != "" {
		cfg.Command = v
	}
	if v, _ := cmd.Flags().GetInt("max-attempts"); v > 0 {
		cfg.MaxAttempts = v
		if cfg.CoverageMaxAttempts == 0 {
			cfg.CoverageMaxAttempts = v
		}
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model = v
	}
	if v, _ := cmd.Flags().GetString("reasoning-effort"); v != "" {
		cfg.ReasoningEffort = v
	}
	if v, _ := cmd.Flags().GetFloat64("coverage-threshold"); v >= 0 {
		cfg.CoverageThreshold = v
	}
	if auto, _ := cmd.Flags().GetBool("auto"); auto {
		cfg.PatchApprovalMode = config.ApprovalAuto
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		var lines []string
		for _, e := range errs {
			lines = append(lines, "  "+e.Error())
		}
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(lines, "\n"))
	}
	return cfg, nil
}
