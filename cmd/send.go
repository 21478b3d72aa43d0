package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/contact"
	"github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/site"
)

func newSendCmd() *cobra.Command {
	var fields *contactFlags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one lead through the configured email provider",
		Long: `Send one lead through the same contact form the site uses, with the
configured EmailJS credentials. Useful to verify a deployment's credentials
end to end.

Examples:
  kasefra send --name "Aisha" --email aisha@example.com
  kasefra send --name "Omar" --email omar@example.com --company Acme --message "Hello"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, fields)
		},
	}

	fields = addContactFlags(cmd.Flags())
	return cmd
}

func init() {
	rootCmd.AddCommand(newSendCmd())
}

func runSend(cmd *cobra.Command, fields *contactFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationError(err.Error(), configPath()),
		)
	}

	logger := newLogger(cfg)
	form := contact.NewContactForm(newEmailClient(cfg, logger), contact.Options{
		Recipient: cfg.Email.Recipient,
		Logger:    logger.WithComponent("contact"),
	})
	fields.Apply(form)

	err = form.Submit(commandContext(cmd))
	if errors.IsKind(err, errors.KindValidation) {
		missing := form.Snapshot().Form.MissingFields()
		return fmt.Errorf("missing required flags: --%s", strings.Join(missing, ", --"))
	}

	fmt.Fprintln(cmd.OutOrStdout(), site.StatusMessage(form.Phase(), cfg.Site.ContactEmail))
	return err
}
