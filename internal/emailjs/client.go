// Package emailjs is a client for the EmailJS REST API. It delivers contact
// form messages through a pre-configured EmailJS service and template.
//
// The server-side API must be enabled for the account ("Allow EmailJS API for
// non-browser applications"); when a private access token is configured it is
// sent alongside the public key.
package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/contact"
	apperrors "github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/logging"
	"github.com/kasefra/landing/internal/version"
)

// DefaultEndpoint is the public EmailJS API origin.
const DefaultEndpoint = "https://api.emailjs.com"

const sendPath = "/api/v1.0/email/send"

// maxErrorBody bounds how much of a rejection body is kept in the error.
const maxErrorBody = 1024

// RetryPolicy controls repeated attempts. The zero value and MaxAttempts of 1
// both mean a single attempt. Only transport failures, 429 and 5xx responses
// are retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Config holds the provider-issued identifiers and transport settings.
type Config struct {
	Endpoint    string
	ServiceID   string
	TemplateID  string
	PublicKey   string
	AccessToken string
	Timeout     time.Duration
	Retry       RetryPolicy
}

// FromConfig converts the application's email section.
func FromConfig(ec config.EmailConfig) Config {
	return Config{
		Endpoint:    ec.Endpoint,
		ServiceID:   ec.ServiceID,
		TemplateID:  ec.TemplateID,
		PublicKey:   ec.PublicKey,
		AccessToken: ec.AccessToken,
		Timeout:     ec.Timeout,
		Retry: RetryPolicy{
			MaxAttempts: ec.MaxAttempts,
			Backoff:     ec.RetryBackoff,
		},
	}
}

// TemplateParams are the variables referenced by the EmailJS template.
type TemplateParams struct {
	ToEmail   string `json:"to_email"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Message   string `json:"message"`
}

type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	AccessToken    string         `json:"accessToken,omitempty"`
	TemplateParams TemplateParams `json:"template_params"`
}

// Client sends messages to EmailJS. It implements contact.Sender.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent("emailjs") }
}

// New creates a client. Missing credentials are not an error here; Send
// reports them so that a misconfigured site still serves the page.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.Nop(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether all three identifiers are present.
func (c *Client) Configured() bool {
	return c.cfg.ServiceID != "" && c.cfg.TemplateID != "" && c.cfg.PublicKey != ""
}

// Send delivers msg once, or up to Retry.MaxAttempts times for retryable
// failures.
func (c *Client) Send(ctx context.Context, msg contact.Message) error {
	if err := c.checkCredentials(); err != nil {
		return err
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:   c.cfg.ServiceID,
		TemplateID:  c.cfg.TemplateID,
		UserID:      c.cfg.PublicKey,
		AccessToken: c.cfg.AccessToken,
		TemplateParams: TemplateParams{
			ToEmail:   msg.To,
			FromName:  msg.FromName,
			FromEmail: msg.FromEmail,
			Phone:     msg.Phone,
			Company:   msg.Company,
			Message:   msg.Message,
		},
	})
	if err != nil {
		return apperrors.NewInternalError(apperrors.ErrCodeInvalidPayload, "encoding request", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.cfg.Retry.Backoff*time.Duration(attempt-1)); err != nil {
				return apperrors.NewNetworkError(apperrors.ErrCodeTransport, "send cancelled", err).
					WithComponent("emailjs")
			}
		}

		lastErr = c.do(ctx, body)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt < c.cfg.Retry.MaxAttempts {
			c.logger.Warn(ctx, lastErr, "EmailJS send failed, retrying",
				"attempt", attempt,
				"max_attempts", c.cfg.Retry.MaxAttempts)
		}
	}
	return lastErr
}

func (c *Client) checkCredentials() error {
	var missing []string
	if c.cfg.ServiceID == "" {
		missing = append(missing, "service_id")
	}
	if c.cfg.TemplateID == "" {
		missing = append(missing, "template_id")
	}
	if c.cfg.PublicKey == "" {
		missing = append(missing, "public_key")
	}
	if len(missing) == 0 {
		return nil
	}
	return apperrors.NewConfigError(apperrors.ErrCodeMissingCredential,
		"missing EmailJS credentials: "+strings.Join(missing, ", ")).
		WithComponent("emailjs").
		WithContext("missing", missing)
}

func (c *Client) do(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+sendPath, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError(apperrors.ErrCodeInvalidPayload, "building request", err).
			WithComponent("emailjs")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNetworkError(apperrors.ErrCodeTransport, "request to EmailJS failed", err).
			WithComponent("emailjs")
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	return apperrors.NewProviderError(apperrors.ErrCodeProviderRejected,
		fmt.Sprintf("EmailJS rejected the request with status %d", resp.StatusCode)).
		WithComponent("emailjs").
		WithContext("status", resp.StatusCode).
		WithContext("body", strings.TrimSpace(string(text)))
}

func retryable(err error) bool {
	if apperrors.IsKind(err, apperrors.KindNetwork) {
		return true
	}
	var ae *apperrors.AppError
	if !errors.As(err, &ae) || ae.Kind != apperrors.KindProvider {
		return false
	}
	status, _ := ae.Context["status"].(int)
	return status == http.StatusTooManyRequests || status >= 500
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
