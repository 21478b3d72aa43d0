// Package internal contains the implementation packages of the kasefra
// landing site.
//
// # Package Organization
//
//   - config: Configuration loading (viper, .env files) and live reload
//   - contact: The contact form state machine and the Sender contract
//   - emailjs: EmailJS REST client implementing contact.Sender
//   - errors: Error kinds and codes, plus CLI suggestions
//   - logging: Structured logging on log/slog
//   - monitoring: Health checks and submission metrics
//   - server: HTTP routes, sessions, security headers, rate limiting and
//     the websocket phase stream
//   - site: templ components for the landing page and embedded static assets
//   - validation: Shared URL, address, host and origin checks
//   - version: Build metadata
//
// A request flows from server through the visitor's contact.ContactForm to
// emailjs; site renders whatever state the form is in.
package internal
