package errors

import (
	"fmt"
	"strings"
)

// Suggestion represents a suggestion for fixing an error
type Suggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// ServerStartError generates suggestions for server startup failures
func ServerStartError(err error, port int) []Suggestion {
	suggestions := []Suggestion{
		{
			Title:       "Try a different port",
			Description: "The port may already be in use by another process",
			Command:     fmt.Sprintf("kasefra serve --port %d", port+1),
		},
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "address already in use") {
		suggestions = append(suggestions, Suggestion{
			Title:       "Find the process using the port",
			Description: "Identify what is already listening on the port",
			Command:     fmt.Sprintf("lsof -i :%d", port),
		})
	}

	if strings.Contains(errStr, "permission denied") && port < 1024 {
		suggestions = append(suggestions, Suggestion{
			Title:       "Use unprivileged port",
			Description: "Ports below 1024 require root privileges",
			Command:     "kasefra serve --port 8080",
		})
	}

	return suggestions
}

// ConfigurationError generates suggestions for configuration issues
func ConfigurationError(configError string, configPath string) []Suggestion {
	suggestions := []Suggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify your configuration file exists and has valid syntax",
			Command:     "cat " + configPath,
		},
		{
			Title:       "Run the doctor",
			Description: "Check configuration and provider credentials",
			Command:     "kasefra doctor",
		},
	}

	lower := strings.ToLower(configError)

	if strings.Contains(lower, "yaml") || strings.Contains(lower, "unmarshal") {
		suggestions = append(suggestions, Suggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(lower, "email") {
		suggestions = append(suggestions, Suggestion{
			Title:       "Set EmailJS credentials",
			Description: "Service ID, template ID and public key are read from .env or KASEFRA_EMAIL_* variables",
			Example:     "EMAILJS_SERVICE_ID=service_x\nEMAILJS_TEMPLATE_ID=template_x\nEMAILJS_PUBLIC_KEY=pk_x",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []Suggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []Suggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []Suggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}
