package cli

import (
	"fmt"
	"os"

	"github.com/remedyproject/remedy/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after defaults and overrides",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfigFromFlags(cmd)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		cmd.OutOrStdout().Write(data)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a remedy.yaml with defaults into the current directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat("remedy.yaml"); err == nil {
			return fmt.Errorf("remedy.yaml already exists")
		}
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := os.WriteFile("remedy.yaml", data, 0o644); err != nil {
			return fmt.Errorf("write remedy.yaml: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote remedy.yaml")
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and report problems",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := loadConfigFromFlags(cmd); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
		return nil
	},
}

func init() {
	configShowCmd.Flags().String("config", "", "path to config file (default: remedy.yaml)")
	configValidateCmd.Flags().String("config", "", "path to config file (default: remedy.yaml)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}
