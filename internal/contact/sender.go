package contact

import "context"

// Message is the payload handed to the email-delivery provider for one
// submission. Optional fields are passed verbatim, empty or not.
type Message struct {
	To        string
	FromName  string
	FromEmail string
	Phone     string
	Company   string
	Message   string
}

// NewMessage builds the outbound payload for form addressed to recipient.
func NewMessage(form SubmissionForm, recipient string) Message {
	return Message{
		To:        recipient,
		FromName:  form.Name,
		FromEmail: form.Email,
		Phone:     form.Phone,
		Company:   form.Company,
		Message:   form.Message,
	}
}

// Sender delivers a Message. Any returned error is a failed submission.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
