package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/entrhq/formreplay/pkg/config"
)

var (
	flagConfig  string
	flagEnvFile string
)

var rootCmd = &cobra.Command{
	Use:   "formreplay",
	Short: "formreplay - replay spreadsheet records into web forms",
	Long: `formreplay fills the reimbursement forms of the finance site from a workbook.

Every record of the input sheet is replayed column by column: cells become
fills, dropdown selections, button clicks, navigation-panel clicks or bank
card selections, depending on their value.

Quick start:
  formreplay check                       # Show what a run would do
  formreplay run                         # Replay every record
  formreplay inspect URL --out ids.xlsx  # Scaffold a title map from a page`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(flagEnvFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "formreplay.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Environment file loaded before running")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(inspectCmd)
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// loadConfig reads the --config file, or the defaults when the default file
// does not exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg = config.DefaultConfig()
		if verr := cfg.Validate(); verr != nil {
			return nil, fmt.Errorf("invalid configuration: %w", verr)
		}
		return cfg, nil
	}
	return nil, err
}
