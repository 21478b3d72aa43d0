// Package cmd provides the kasefra command-line interface.
//
// Configuration System:
//
//	Settings are resolved from several sources, highest priority first:
//	1. Command-line flags (--config, --port, etc.)
//	2. KASEFRA_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (KASEFRA_SERVER_PORT, EMAILJS_SERVICE_ID, etc.)
//	4. .env.local / .env files, loaded into the environment at startup
//	5. Configuration files (.kasefra.yml)
//
// Environment Variables:
//
//	KASEFRA_CONFIG_FILE: Path to custom configuration file
//	KASEFRA_SERVER_PORT: Override server port
//	KASEFRA_EMAIL_SERVICE_ID: EmailJS service id (also EMAILJS_SERVICE_ID)
//	KASEFRA_EMAIL_TEMPLATE_ID: EmailJS template id (also EMAILJS_TEMPLATE_ID)
//	KASEFRA_EMAIL_PUBLIC_KEY: EmailJS public key (also EMAILJS_PUBLIC_KEY)
//	And the rest of the KASEFRA_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/emailjs"
	"github.com/kasefra/landing/internal/logging"
)

// defaultConfigName is the config file searched for in the working directory.
const defaultConfigName = ".kasefra"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kasefra",
	Short: "Kasefra landing site and waitlist contact form",
	Long: `kasefra serves the Kasefra landing page: a hero section, a waitlist
contact form, and a footer. Submitted leads are delivered through EmailJS.

Quick Start:
  kasefra serve                   Start the site on localhost:8080
  kasefra send --name ... --email ...
                                  Send one lead through the configured provider
  kasefra config                  Show the effective configuration
  kasefra doctor                  Check configuration and credentials

EmailJS credentials are read from .kasefra.yml or the environment
(EMAILJS_SERVICE_ID, EMAILJS_TEMPLATE_ID, EMAILJS_PUBLIC_KEY).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .kasefra.yml, can also use KASEFRA_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig selects the config file and enables environment overrides.
//
// Config file lookup order:
//  1. --config flag
//  2. KASEFRA_CONFIG_FILE environment variable
//  3. .kasefra.yml in the current directory
//
// .env.local and .env are loaded first so their values can feed both the
// KASEFRA_ variables and the EMAILJS_ aliases.
func initConfig() {
	if envFile := config.LoadDotEnv(); envFile != "" {
		fmt.Fprintln(os.Stderr, "Loaded environment from", envFile)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("KASEFRA_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(defaultConfigName)
	}

	viper.SetEnvPrefix("KASEFRA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing file is fine; defaults and the environment still apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Warning: could not read config file:", err)
	}
}

// configPath names the config file in use, for messages.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigName + ".yml"
}

func newLogger(cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}

func newEmailClient(cfg *config.Config, logger logging.Logger) *emailjs.Client {
	return emailjs.New(emailjs.FromConfig(cfg.Email), emailjs.WithLogger(logger))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
