package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/logging"
	"github.com/kasefra/landing/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the landing page and contact form",
	Long: `Serve the landing page and its contact form.

The config file, when one is in use, is watched: edits to the EmailJS
credentials take effect for the next submission without a restart.

Examples:
  kasefra serve                         # Serve on localhost:8080
  kasefra serve --port 3000             # Serve on a different port
  kasefra serve --host 0.0.0.0 --env production`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("env", "development", "Environment (development, production, test)")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.environment", serveCmd.Flags().Lookup("env"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationError(err.Error(), configPath()),
		)
	}

	logger := newLogger(cfg)
	if missing := cfg.Email.MissingCredentials(); len(missing) > 0 {
		logger.Warn(context.Background(), nil, "EmailJS credentials incomplete; submissions will fail",
			"missing", missing)
	}

	srv := server.New(cfg, newEmailClient(cfg, logger), logger)
	watchConfig(srv, logger)

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return errors.NewEnhancedError(
			fmt.Sprintf("Failed to start server on port %d", cfg.Server.Port),
			err,
			errors.ServerStartError(err, cfg.Server.Port),
		)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(context.WithoutCancel(ctx), ln)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Kasefra landing site at http://%s\n", ln.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// watchConfig swaps the EmailJS client whenever the config file changes.
// Listener settings need a restart.
func watchConfig(srv *server.Server, logger logging.Logger) {
	watcher := config.NewWatcher(viper.GetViper())
	watcher.OnChange(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn(context.Background(), err, "Ignoring invalid configuration change")
			return
		}
		srv.SetSender(newEmailClient(next, logger), next.Email)
	})
	if watcher.Start() {
		logger.Info(context.Background(), "Watching configuration file", "path", viper.ConfigFileUsed())
	}
}
