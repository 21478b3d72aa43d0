package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kasefra/landing/internal/contact"
)

// outputFormat is a pflag.Value restricted to a fixed set of formats.
type outputFormat struct {
	value   string
	allowed []string
}

func newOutputFormat(def string, allowed ...string) *outputFormat {
	return &outputFormat{value: def, allowed: allowed}
}

func (f *outputFormat) String() string { return f.value }

func (f *outputFormat) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range f.allowed {
		if s == a {
			f.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(f.allowed, ", "))
}

func (f *outputFormat) Type() string { return "format" }

var _ pflag.Value = (*outputFormat)(nil)

// addFormatFlag registers --format/-o on fs.
func addFormatFlag(fs *pflag.FlagSet, format *outputFormat) {
	fs.VarP(format, "format", "o", fmt.Sprintf("Output format (%s)", strings.Join(format.allowed, "|")))
}

// contactFlags binds one flag per form field.
type contactFlags struct {
	values map[contact.Field]*string
}

func addContactFlags(fs *pflag.FlagSet) *contactFlags {
	cf := &contactFlags{values: make(map[contact.Field]*string, len(contact.Fields))}
	for _, f := range contact.Fields {
		usage := "Lead " + f.String()
		if f.Required() {
			usage += " (required)"
		}
		cf.values[f] = fs.String(f.String(), "", usage)
	}
	return cf
}

// Apply copies the flag values into form.
func (cf *contactFlags) Apply(form *contact.ContactForm) {
	for _, f := range contact.Fields {
		form.UpdateField(f, *cf.values[f])
	}
}
