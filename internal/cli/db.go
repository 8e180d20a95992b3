package cli

import (
	"context"
	"fmt"

	"github.com/remedyproject/remedy/internal/events"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the run-history database",
}

func openStore(cmd *cobra.Command) (*events.Store, context.Context, error) {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	url := cfg.DatabaseURL
	if flagURL, _ := cmd.Flags().GetString("database-url"); flagURL != "" {
		url = flagURL
	}
	if url == "" {
		return nil, nil, fmt.Errorf("no database configured: set database_url in remedy.yaml or pass --database-url")
	}
	ctx := context.Background()
	store, err := events.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return store, ctx, nil
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, ctx, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the schema, losing all run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to drop run history without --yes")
		}
		store, ctx, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema reset")
		return nil
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, ctx, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		outcomes, err := store.OutcomeCounts(ctx)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			fmt.Fprintln(out, "no finished runs recorded")
			return nil
		}
		fmt.Fprintln(out, "outcomes:")
		for _, oc := range outcomes {
			fmt.Fprintf(out, "  %-30s %d\n", oc.Outcome, oc.Count)
		}

		avg, err := store.AverageAttempts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "average repair attempts per run: %.1f\n", avg)

		classes, err := store.ClassificationCounts(ctx)
		if err != nil {
			return err
		}
		if len(classes) > 0 {
			fmt.Fprintln(out, "response classifications:")
			for _, cc := range classes {
				fmt.Fprintf(out, "  %-30s %d\n", cc.Classification, cc.Count)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{dbMigrateCmd, dbResetCmd, dbStatsCmd} {
		c.Flags().String("config", "", "path to config file (default: remedy.yaml)")
		c.Flags().String("database-url", "", "Postgres connection URL")
	}
	dbResetCmd.Flags().Bool("yes", false, "confirm dropping all run history")
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbStatsCmd)
}
