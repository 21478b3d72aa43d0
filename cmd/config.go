package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/errors"
)

func newConfigCmd() *cobra.Command {
	format := newOutputFormat("yaml", "yaml", "json")

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, config file, .env files and
environment variables are merged. Keys and tokens are masked.

Examples:
  kasefra config
  kasefra config --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return errors.NewEnhancedError(
					"Failed to load configuration",
					err,
					errors.ConfigurationError(err.Error(), configPath()),
				)
			}
			return writeConfig(cmd.OutOrStdout(), cfg, format.String())
		},
	}

	addFormatFlag(cmd.Flags(), format)
	return cmd
}

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	redacted := cfg.Redacted()

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(redacted)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(redacted); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
