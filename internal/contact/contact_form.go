package contact

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/logging"
)

// subscriberBuffer is the number of undelivered changes a subscriber may
// hold before it is dropped.
const subscriberBuffer = 16

// Recorder receives the outcome of every submission attempt that reached the
// provider.
type Recorder interface {
	RecordSubmission(outcome Phase, duration time.Duration)
}

// Options configures a ContactForm.
type Options struct {
	// Recipient is the fixed destination address of every lead.
	Recipient string
	Logger    logging.Logger
	Recorder  Recorder
	// Now is the clock used for PhaseChange timestamps.
	Now func() time.Time
}

// Snapshot is a consistent view of a form.
type Snapshot struct {
	Form  SubmissionForm `json:"form"`
	Phase Phase          `json:"phase"`
}

// ContactForm owns one visitor's SubmissionForm and its submission phase.
// It is safe for concurrent use; the outbound call runs without the lock.
type ContactForm struct {
	mu     sync.Mutex
	form   SubmissionForm
	phase  Phase
	sender Sender
	opts   Options

	subs   map[int]chan PhaseChange
	nextID int
}

// NewContactForm creates an empty form in PhaseIdle that submits via sender.
func NewContactForm(sender Sender, opts Options) *ContactForm {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ContactForm{
		sender: sender,
		opts:   opts,
		subs:   make(map[int]chan PhaseChange),
	}
}

// UpdateField replaces one field and leaves the others untouched.
func (c *ContactForm) UpdateField(f Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = c.form.With(f, value)
}

// Field returns the current value of f.
func (c *ContactForm) Field(f Field) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Get(f)
}

// Phase returns the current submission phase.
func (c *ContactForm) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// SubmitDisabled reports whether the submit control must be non-interactive.
func (c *ContactForm) SubmitDisabled() bool {
	return c.Phase() == PhaseSubmitting
}

// Snapshot returns the fields and phase read under one lock.
func (c *ContactForm) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Form: c.form, Phase: c.phase}
}

// Submit sends the current fields to the provider once.
//
// It returns a validation error, without any transition, when a required
// field is empty, and a conflict error when another submission from this
// form is still in flight. Otherwise the phase moves to submitting and then
// to success (fields cleared) or error (fields kept). Provider, transport
// and configuration failures all surface as a single submission error.
func (c *ContactForm) Submit(ctx context.Context) error {
	return c.submit(ctx, nil)
}

// SubmitForm replaces all five fields with form and submits them, as one
// step. A submission already in flight rejects it with a conflict error
// before any field is touched, so the values being sent are the ones kept
// if that send fails.
func (c *ContactForm) SubmitForm(ctx context.Context, form SubmissionForm) error {
	return c.submit(ctx, &form)
}

func (c *ContactForm) submit(ctx context.Context, replace *SubmissionForm) error {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return apperrors.NewConflictError(apperrors.ErrCodeSubmissionPending,
			"a submission is already in flight")
	}
	if replace != nil {
		c.form = *replace
	}
	if err := c.form.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	msg := NewMessage(c.form, c.opts.Recipient)
	c.transition(PhaseSubmitting)
	c.mu.Unlock()

	start := time.Now()
	sendErr := c.sender.Send(ctx, msg)
	elapsed := time.Since(start)

	c.mu.Lock()
	if sendErr != nil {
		c.transition(PhaseError)
	} else {
		c.form = SubmissionForm{}
		c.transition(PhaseSuccess)
	}
	c.mu.Unlock()

	if c.opts.Recorder != nil {
		if sendErr != nil {
			c.opts.Recorder.RecordSubmission(PhaseError, elapsed)
		} else {
			c.opts.Recorder.RecordSubmission(PhaseSuccess, elapsed)
		}
	}

	if sendErr != nil {
		c.opts.Logger.Error(ctx, nil, "Email sending failed",
			"error", logging.SanitizeForLog(sendErr.Error()),
			"kind", apperrors.KindOf(sendErr),
			"code", apperrors.CodeOf(sendErr),
			"from_email", logging.MaskEmail(msg.FromEmail),
			"duration_ms", elapsed.Milliseconds())
		return apperrors.NewSubmissionError(apperrors.ErrCodeSubmissionFailed,
			"submission failed", sendErr)
	}

	c.opts.Logger.Info(ctx, "Lead delivered",
		"from_email", logging.MaskEmail(msg.FromEmail),
		"duration_ms", elapsed.Milliseconds())
	return nil
}

// Subscribe returns a channel receiving every subsequent PhaseChange in
// order, and a function that unsubscribes and closes it. A subscriber that
// falls subscriberBuffer changes behind is dropped and its channel closed.
func (c *ContactForm) Subscribe() (<-chan PhaseChange, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan PhaseChange, subscriberBuffer)
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// transition must be called with c.mu held.
func (c *ContactForm) transition(next Phase) {
	if !c.phase.CanTransitionTo(next) {
		// Submit guards every path; reaching this is a programming error.
		panic("contact: invalid phase transition " + c.phase.String() + " -> " + next.String())
	}

	change := PhaseChange{From: c.phase, To: next, At: c.opts.Now()}
	c.phase = next

	for id, ch := range c.subs {
		select {
		case ch <- change:
		default:
			delete(c.subs, id)
			close(ch)
		}
	}
}
