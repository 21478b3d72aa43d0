// Package contact implements the lead-capture form: the five user-entered
// fields, the submission phase state machine, and the single outbound call
// made through a Sender.
package contact

import (
	"fmt"
	"strings"

	apperrors "github.com/kasefra/landing/internal/errors"
)

// Field identifies one of the five form inputs.
type Field int

const (
	FieldName Field = iota
	FieldEmail
	FieldPhone
	FieldCompany
	FieldMessage
)

// Fields lists every field in form order.
var Fields = []Field{FieldName, FieldEmail, FieldPhone, FieldCompany, FieldMessage}

// String returns the wire name used by the HTML inputs and JSON payloads.
func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldEmail:
		return "email"
	case FieldPhone:
		return "phone"
	case FieldCompany:
		return "company"
	case FieldMessage:
		return "message"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Required reports whether the field must be non-empty before submitting.
func (f Field) Required() bool {
	return f == FieldName || f == FieldEmail
}

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "name":
		return FieldName, nil
	case "email":
		return FieldEmail, nil
	case "phone":
		return FieldPhone, nil
	case "company":
		return FieldCompany, nil
	case "message":
		return FieldMessage, nil
	default:
		return 0, apperrors.NewValidationError(apperrors.ErrCodeUnknownField,
			fmt.Sprintf("unknown field %q", name)).WithContext("field", name)
	}
}

// SubmissionForm is the in-memory record of one lead-capture attempt.
type SubmissionForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Message string `json:"message"`
}

// Get returns the value of f.
func (s SubmissionForm) Get(f Field) string {
	switch f {
	case FieldName:
		return s.Name
	case FieldEmail:
		return s.Email
	case FieldPhone:
		return s.Phone
	case FieldCompany:
		return s.Company
	case FieldMessage:
		return s.Message
	default:
		return ""
	}
}

// With returns a copy of s with f replaced by value.
func (s SubmissionForm) With(f Field, value string) SubmissionForm {
	switch f {
	case FieldName:
		s.Name = value
	case FieldEmail:
		s.Email = value
	case FieldPhone:
		s.Phone = value
	case FieldCompany:
		s.Company = value
	case FieldMessage:
		s.Message = value
	}
	return s
}

// IsEmpty reports whether all five fields are empty strings.
func (s SubmissionForm) IsEmpty() bool {
	return s == SubmissionForm{}
}

// Validate checks the required fields. Whitespace-only values count as empty.
func (s SubmissionForm) Validate() error {
	missing := s.MissingFields()
	if len(missing) == 0 {
		return nil
	}
	return apperrors.NewValidationError(apperrors.ErrCodeRequiredField,
		"required fields missing: "+strings.Join(missing, ", ")).
		WithContext("fields", missing)
}

// MissingFields returns the wire names of empty required fields.
func (s SubmissionForm) MissingFields() []string {
	var missing []string
	for _, f := range Fields {
		if f.Required() && strings.TrimSpace(s.Get(f)) == "" {
			missing = append(missing, f.String())
		}
	}
	return missing
}
