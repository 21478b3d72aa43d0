package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kasefra/landing/internal/version"
)

func newVersionCmd() *cobra.Command {
	format := newOutputFormat("text", "text", "json")
	var short, detailed bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the version, git commit, build time, Go version and platform.

Examples:
  kasefra version              # Version and short commit
  kasefra version --detailed   # All build information
  kasefra version --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeVersion(cmd.OutOrStdout(), format.String(), short, detailed)
		},
	}

	addFormatFlag(cmd.Flags(), format)
	cmd.Flags().BoolVar(&short, "short", false, "Show short version only")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show detailed version information")
	return cmd
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func writeVersion(w io.Writer, format string, short, detailed bool) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(version.GetBuildInfo())
	}

	switch {
	case short:
		fmt.Fprintln(w, version.GetVersion())
	case detailed:
		fmt.Fprintln(w, version.GetDetailedVersion())
	default:
		fmt.Fprintln(w, "kasefra "+version.GetShortVersion())
	}
	return nil
}
