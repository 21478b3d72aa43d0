package site

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/kasefra/landing/internal/contact"
)

// htmlWriter keeps the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) attr(name, value string) {
	hw.raw(" " + name + "=\"" + templ.EscapeString(value) + "\"")
}

func (hw *htmlWriter) render(ctx context.Context, c templ.Component) {
	if hw.err != nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

func component(fn func(ctx context.Context, hw *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		fn(ctx, hw)
		return hw.err
	})
}

// Page is the complete landing page.
func Page(data PageData) templ.Component {
	return Layout(data, component(func(ctx context.Context, hw *htmlWriter) {
		hw.render(ctx, Header())
		hw.raw("<main>")
		hw.render(ctx, Hero())
		hw.render(ctx, ContactSection(data))
		hw.raw("</main>")
		hw.render(ctx, Footer(data.ContactEmail, data.Year))
	}))
}

// Layout is the document shell: metadata, fonts, stylesheet and script.
func Layout(data PageData, body templ.Component) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw("<!DOCTYPE html><html lang=\"en\"><head>")
		hw.raw("<meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		hw.raw("<title>")
		hw.text(data.Title)
		hw.raw("</title><meta name=\"description\"")
		hw.attr("content", data.Description)
		hw.raw(">")
		hw.raw("<link rel=\"icon\" href=\"/static/kasefra_logo.svg\" type=\"image/svg+xml\">")
		hw.raw("<link rel=\"preconnect\" href=\"https://fonts.googleapis.com\">")
		hw.raw("<link rel=\"preconnect\" href=\"https://fonts.gstatic.com\" crossorigin>")
		hw.raw("<link rel=\"stylesheet\" href=\"https://fonts.googleapis.com/css2?family=Montserrat:wght@400;600;700;800&amp;family=Nunito:wght@400;600;700&amp;display=swap\">")
		hw.raw("<link rel=\"stylesheet\" href=\"/static/styles.css\">")
		hw.raw("</head><body>")
		hw.render(ctx, body)
		hw.raw("<script src=\"/static/form.js\" defer")
		if data.Nonce != "" {
			hw.attr("nonce", data.Nonce)
		}
		hw.raw("></script></body></html>")
	})
}

// Header shows the logo and the anchor to the contact section.
func Header() templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw("<header class=\"site-header\"><div class=\"container header-inner\">")
		hw.raw("<a href=\"/\" class=\"brand\"><img src=\"/static/kasefra_logo.svg\" alt=\"Kasefra\" width=\"40\" height=\"40\"><span>Kasefra</span></a>")
		hw.raw("<a href=\"#" + ContactAnchor + "\" class=\"btn btn-outline\">Contact Us</a>")
		hw.raw("</div></header>")
	})
}

// Hero is the headline block with the single call to action.
func Hero() templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw("<section class=\"hero\"><div class=\"container\">")
		hw.raw("<span class=\"badge\">")
		hw.text("🚀 Something Big is Coming Soon")
		hw.raw("</span>")
		hw.raw("<h1>")
		hw.text("UAE's Smart")
		hw.raw("<br><span class=\"accent\">Finance Revolution</span></h1>")
		hw.raw("<p class=\"subtitle\">")
		hw.text("Get ready for redefining asset management with the latest AI technology")
		hw.raw("</p>")
		hw.raw("<a href=\"#" + ContactAnchor + "\" class=\"btn btn-primary\">Join the Waitlist</a>")
		hw.raw("</div></section>")
	})
}

// ContactSection wraps the form with its heading and status message.
func ContactSection(data PageData) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw("<section id=\"" + ContactAnchor + "\" class=\"contact\"><div class=\"container narrow\">")
		hw.raw("<h2>Join the Revolution</h2>")
		hw.raw("<p class=\"lead\">")
		hw.text("Be among the first to experience the future of finance in the UAE. Get exclusive early access and help shape the product.")
		hw.raw("</p>")
		hw.render(ctx, Status(data.Phase, data.ContactEmail))
		hw.render(ctx, ContactForm(data))
		hw.raw("</div></section>")
	})
}

// Status renders the outcome message. It always emits the live region so
// scripts can fill it in without a reload.
func Status(phase contact.Phase, contactEmail string) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		msg := StatusMessage(phase, contactEmail)
		class := "status"
		switch phase {
		case contact.PhaseSuccess:
			class += " status-success"
		case contact.PhaseError:
			class += " status-error"
		}
		hw.raw("<div id=\"contact-status\" role=\"status\" aria-live=\"polite\"")
		hw.attr("class", class)
		hw.attr("data-phase", phase.String())
		if msg == "" {
			hw.raw(" hidden")
		}
		hw.raw(">")
		hw.text(msg)
		hw.raw("</div>")
	})
}

// ContactForm renders the five inputs with the visitor's current values.
// The submit control is disabled while a submission is in flight.
func ContactForm(data PageData) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		missing := missingSet(data.Missing)
		submitting := data.Phase == contact.PhaseSubmitting

		hw.raw("<form id=\"contact-form\" method=\"post\"")
		hw.attr("action", FormAction)
		hw.attr("data-api", APIAction)
		hw.attr("data-stream", StreamPath)
		hw.raw(">")

		for _, f := range contact.Fields {
			hw.render(ctx, formField(f, data.Form.Get(f), missing[f]))
		}

		hw.raw("<button type=\"submit\" class=\"btn btn-primary btn-block\"")
		if submitting {
			hw.raw(" disabled aria-busy=\"true\"")
		}
		hw.raw(">")
		hw.text(ButtonText(data.Phase))
		hw.raw("</button></form>")
	})
}

func formField(f contact.Field, value string, missing bool) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		id := "contact-" + f.String()
		class := "field"
		if missing {
			class += " field-missing"
		}

		hw.raw("<div")
		hw.attr("class", class)
		hw.raw("><label")
		hw.attr("for", id)
		hw.raw(">")
		hw.text(Label(f))
		hw.raw("</label>")

		if f == contact.FieldMessage {
			hw.raw("<textarea")
			hw.attr("id", id)
			hw.attr("name", f.String())
			hw.attr("rows", strconv.Itoa(4))
			hw.attr("placeholder", messagePlaceholder)
			hw.raw(">")
			hw.text(value)
			hw.raw("</textarea>")
		} else {
			hw.raw("<input")
			hw.attr("type", fieldInputTypes[f])
			hw.attr("id", id)
			hw.attr("name", f.String())
			hw.attr("value", value)
			if f == contact.FieldEmail {
				hw.attr("autocomplete", "email")
			}
			if f.Required() {
				hw.raw(" required")
				hw.attr("pattern", requiredPattern)
			}
			if missing {
				hw.raw(" aria-invalid=\"true\"")
			}
			hw.raw(">")
		}

		if missing {
			hw.raw("<p class=\"field-error\">")
			hw.text(fmt.Sprintf("%s is required.", titleCase(fieldLabels[f])))
			hw.raw("</p>")
		}
		hw.raw("</div>")
	})
}

// Footer carries the tagline, contact address and copyright.
func Footer(contactEmail string, year int) templ.Component {
	return component(func(ctx context.Context, hw *htmlWriter) {
		hw.raw("<footer class=\"site-footer\"><div class=\"container\">")
		hw.raw("<p class=\"tagline\">Wealth grows where wisdom reigns.</p>")
		hw.raw("<p class=\"copyright\">")
		hw.text(fmt.Sprintf("© %d Kasefra. All rights reserved. | Contact: ", year))
		hw.raw("<a")
		hw.attr("href", "mailto:"+contactEmail)
		hw.raw(">")
		hw.text(contactEmail)
		hw.raw("</a></p></div></footer>")
	})
}
