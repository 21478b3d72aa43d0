// Package site renders the Kasefra landing page as templ components.
//
// The page is a hero with a single call to action and a contact section whose
// form mirrors one visitor's contact.ContactForm. Rendering is a pure function
// of PageData; the server decides which snapshot to show.
package site

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kasefra/landing/internal/contact"
)

// ContactAnchor is the fragment the call to action and the form redirect
// target.
const ContactAnchor = "contact"

// Form endpoints used by the rendered markup.
const (
	FormAction = "/contact"
	APIAction  = "/api/contact"
	StreamPath = "/ws"
)

// PageData is everything the page needs to render.
type PageData struct {
	Title        string
	Description  string
	ContactEmail string

	Form  contact.SubmissionForm
	Phase contact.Phase
	// Missing lists required fields a rejected submission left empty.
	Missing []contact.Field
	// Nonce is the CSP nonce for the page's script tag.
	Nonce string
	Year  int
}

// WithSnapshot returns a copy of d showing the form state in s.
func (d PageData) WithSnapshot(s contact.Snapshot) PageData {
	d.Form = s.Form
	d.Phase = s.Phase
	return d
}

// SuccessMessage is shown after a lead was delivered.
const SuccessMessage = "Thank you! Your message has been sent successfully. We'll get back to you soon."

// ErrorMessage is shown after a failed submission.
func ErrorMessage(contactEmail string) string {
	return "Sorry, there was an error sending your message. Please try again or email us directly at " + contactEmail
}

// StatusMessage returns the message for phase p, or "" when none is shown.
func StatusMessage(p contact.Phase, contactEmail string) string {
	switch p {
	case contact.PhaseSuccess:
		return SuccessMessage
	case contact.PhaseError:
		return ErrorMessage(contactEmail)
	default:
		return ""
	}
}

// ButtonText is the submit control's label in phase p.
func ButtonText(p contact.Phase) string {
	if p == contact.PhaseSubmitting {
		return "Sending..."
	}
	return "Send Message"
}

// requiredPattern makes the browser reject a blank or whitespace-only value,
// matching what the server accepts.
const requiredPattern = `.*\S.*`

const messagePlaceholder = "Tell us about your financial management needs or any questions you have..."

// titleCase capitalizes each word. A Caser holds state, so each call gets
// its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

var fieldLabels = map[contact.Field]string{
	contact.FieldName:    "full name",
	contact.FieldEmail:   "email address",
	contact.FieldPhone:   "phone number",
	contact.FieldCompany: "company (optional)",
	contact.FieldMessage: "message",
}

var fieldInputTypes = map[contact.Field]string{
	contact.FieldName:    "text",
	contact.FieldEmail:   "email",
	contact.FieldPhone:   "tel",
	contact.FieldCompany: "text",
}

// Label returns the visible label of f; required fields end in " *".
func Label(f contact.Field) string {
	label := titleCase(fieldLabels[f])
	if f.Required() {
		label += " *"
	}
	return label
}

func missingSet(fields []contact.Field) map[contact.Field]bool {
	set := make(map[contact.Field]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// MissingFromNames maps the names reported by SubmissionForm.MissingFields
// back to fields.
func MissingFromNames(names []string) []contact.Field {
	var out []contact.Field
	for _, n := range names {
		if f, err := contact.ParseField(strings.TrimSpace(n)); err == nil {
			out = append(out, f)
		}
	}
	return out
}
