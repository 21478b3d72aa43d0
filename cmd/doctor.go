package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/validation"
	"github.com/kasefra/landing/internal/version"
)

// Diagnostic statuses.
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
	statusInfo    = "info"
)

// knownSections are the top-level keys of .kasefra.yml.
var knownSections = map[string]bool{
	"server":  true,
	"email":   true,
	"site":    true,
	"logging": true,
}

// DiagnosticResult represents the result of a diagnostic check
type DiagnosticResult struct {
	Name       string `json:"name" yaml:"name"`
	Category   string `json:"category" yaml:"category"`
	Status     string `json:"status" yaml:"status"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// DoctorReport represents the complete diagnostic report
type DoctorReport struct {
	Timestamp   time.Time          `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string  `json:"environment" yaml:"environment"`
	Results     []DiagnosticResult `json:"results" yaml:"results"`
	Summary     ReportSummary      `json:"summary" yaml:"summary"`
}

// ReportSummary provides an overview of diagnostic results
type ReportSummary struct {
	Total    int `json:"total" yaml:"total"`
	OK       int `json:"ok" yaml:"ok"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
	Info     int `json:"info" yaml:"info"`
}

func newDoctorCmd() *cobra.Command {
	format := newOutputFormat("text", "text", "json")
	var skipPort bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and provider credentials",
		Long: `Check that the site can start and deliver leads:

- Config file syntax and unknown sections
- Configuration validity (port, endpoint, recipient)
- EmailJS credential presence
- Port availability

Examples:
  kasefra doctor
  kasefra doctor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := runDiagnostics(viper.ConfigFileUsed(), !skipPort)
			if err := writeReport(cmd.OutOrStdout(), report, format.String()); err != nil {
				return err
			}
			if report.Summary.Errors > 0 {
				return fmt.Errorf("doctor found %d error(s)", report.Summary.Errors)
			}
			return nil
		},
	}

	addFormatFlag(cmd.Flags(), format)
	cmd.Flags().BoolVar(&skipPort, "skip-port", false, "Do not check whether the port is free")
	return cmd
}

func init() {
	rootCmd.AddCommand(newDoctorCmd())
}

func runDiagnostics(configFile string, checkPort bool) DoctorReport {
	report := DoctorReport{
		Timestamp: time.Now(),
		Environment: map[string]string{
			"version":  version.GetShortVersion(),
			"go":       runtime.Version(),
			"platform": runtime.GOOS + "/" + runtime.GOARCH,
		},
	}

	report.Results = append(report.Results, checkConfigFile(configFile))

	cfg, err := config.Load()
	if err != nil {
		report.Results = append(report.Results, DiagnosticResult{
			Name:       "Configuration",
			Category:   "config",
			Status:     statusError,
			Message:    err.Error(),
			Suggestion: "Fix the value named above in " + configPath() + " or the environment",
		})
	} else {
		report.Results = append(report.Results,
			DiagnosticResult{Name: "Configuration", Category: "config", Status: statusOK, Message: "Configuration is valid"},
			checkCredentials(cfg.Email),
			checkOrigins(cfg),
		)
		if checkPort {
			report.Results = append(report.Results, checkPortAvailable(cfg.Address()))
		}
	}

	for _, r := range report.Results {
		report.Summary.Total++
		switch r.Status {
		case statusOK:
			report.Summary.OK++
		case statusWarning:
			report.Summary.Warnings++
		case statusError:
			report.Summary.Errors++
		case statusInfo:
			report.Summary.Info++
		}
	}

	return report
}

func checkConfigFile(path string) DiagnosticResult {
	result := DiagnosticResult{Name: "Config file", Category: "config"}

	if path == "" {
		result.Status = statusInfo
		result.Message = "No config file; using defaults and environment"
		return result
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot read %s: %v", path, err)
		return result
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Invalid YAML in %s: %v", path, err)
		result.Suggestion = "Check indentation and quoting"
		return result
	}

	var unknown []string
	for key := range doc {
		if !knownSections[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Unknown sections in %s: %s", path, strings.Join(unknown, ", "))
		result.Suggestion = "Valid sections are server, email, site and logging"
		return result
	}

	result.Status = statusOK
	result.Message = "Using " + path
	return result
}

func checkCredentials(email config.EmailConfig) DiagnosticResult {
	result := DiagnosticResult{Name: "EmailJS credentials", Category: "email"}

	missing := email.MissingCredentials()
	if len(missing) == 0 {
		result.Status = statusOK
		result.Message = "Service, template and public key are set"
		return result
	}

	envs := make([]string, len(missing))
	for i, m := range missing {
		envs[i] = "EMAILJS_" + strings.ToUpper(m)
	}
	result.Status = statusWarning
	result.Message = "Missing: " + strings.Join(missing, ", ") + "; submissions will fail"
	result.Suggestion = "Set " + strings.Join(envs, ", ") + " or the email section of " + configPath()
	return result
}

func checkOrigins(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{Name: "Allowed origins", Category: "server"}

	for _, o := range cfg.Server.AllowedOrigins {
		if err := validation.ValidateURL(o); err != nil {
			result.Status = statusWarning
			result.Message = fmt.Sprintf("%s: %v", o, err)
			result.Suggestion = "Origins are scheme://host[:port], e.g. https://kasefra.io"
			return result
		}
	}

	if cfg.IsProduction() && len(cfg.Server.AllowedOrigins) == 0 {
		result.Status = statusInfo
		result.Message = "Only same-host submissions are accepted"
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("%d configured", len(cfg.Server.AllowedOrigins))
	return result
}

func checkPortAvailable(addr string) DiagnosticResult {
	result := DiagnosticResult{Name: "Port", Category: "server"}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("%s is not available: %v", addr, err)
		result.Suggestion = "Stop the other process or use kasefra serve --port"
		return result
	}
	ln.Close()

	result.Status = statusOK
	result.Message = addr + " is available"
	return result
}

func writeReport(w io.Writer, report DoctorReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	icons := map[string]string{
		statusOK:      "✓",
		statusWarning: "!",
		statusError:   "✗",
		statusInfo:    "i",
	}
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s %-20s %s\n", icons[r.Status], r.Name, r.Message)
		if r.Suggestion != "" {
			fmt.Fprintf(w, "  → %s\n", r.Suggestion)
		}
	}
	fmt.Fprintf(w, "\n%d checks: %d ok, %d warnings, %d errors\n",
		report.Summary.Total, report.Summary.OK, report.Summary.Warnings, report.Summary.Errors)
	return nil
}
