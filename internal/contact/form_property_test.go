package contact

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type fieldOp struct {
	Field Field
	Value string
}

func genFieldOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, len(Fields)-1),
		gen.AnyString(),
	).Map(func(vals []interface{}) fieldOp {
		return fieldOp{Field: Fields[vals[0].(int)], Value: vals[1].(string)}
	})
}

// TestFieldUpdateProperties checks that updates are a plain per-field merge.
func TestFieldUpdateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("reading a field returns its last write", prop.ForAll(
		func(ops []fieldOp) bool {
			c := NewContactForm(&recordingSender{}, Options{})
			model := map[Field]string{}
			for _, op := range ops {
				c.UpdateField(op.Field, op.Value)
				model[op.Field] = op.Value
			}
			for _, f := range Fields {
				if c.Field(f) != model[f] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genFieldOp()),
	))

	properties.Property("an update leaves other fields unchanged", prop.ForAll(
		func(ops []fieldOp, last fieldOp) bool {
			c := NewContactForm(&recordingSender{}, Options{})
			for _, op := range ops {
				c.UpdateField(op.Field, op.Value)
			}
			before := c.Snapshot().Form
			c.UpdateField(last.Field, last.Value)
			after := c.Snapshot().Form

			for _, f := range Fields {
				if f == last.Field {
					if after.Get(f) != last.Value {
						return false
					}
					continue
				}
				if after.Get(f) != before.Get(f) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genFieldOp()),
		genFieldOp(),
	))

	properties.Property("updates to distinct fields commute", prop.ForAll(
		func(a, b fieldOp) bool {
			if a.Field == b.Field {
				return true
			}
			ab := SubmissionForm{}.With(a.Field, a.Value).With(b.Field, b.Value)
			ba := SubmissionForm{}.With(b.Field, b.Value).With(a.Field, a.Value)
			return ab == ba
		},
		genFieldOp(),
		genFieldOp(),
	))

	properties.Property("updates never change the phase", prop.ForAll(
		func(ops []fieldOp) bool {
			c := NewContactForm(&recordingSender{}, Options{})
			for _, op := range ops {
				c.UpdateField(op.Field, op.Value)
			}
			return c.Phase() == PhaseIdle
		},
		gen.SliceOf(genFieldOp()),
	))

	properties.TestingRun(t)
}

// TestSubmitProperties checks the phase machine over arbitrary outcome sequences.
func TestSubmitProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every submit passes through submitting", prop.ForAll(
		func(outcomes []bool) bool {
			var next bool
			sender := SenderFunc(func(ctx context.Context, msg Message) error {
				if next {
					return nil
				}
				return errors.New("rejected")
			})
			c := NewContactForm(sender, Options{Recipient: testRecipient})
			ch, cancel := c.Subscribe()
			defer cancel()

			for _, ok := range outcomes {
				fillAisha(c)
				next = ok
				err := c.Submit(context.Background())
				if (err == nil) != ok {
					return false
				}

				got := drain(ch)
				if len(got) != 2 {
					return false
				}
				if got[0].To != PhaseSubmitting || got[1].From != PhaseSubmitting {
					return false
				}
				want := PhaseError
				if ok {
					want = PhaseSuccess
				}
				if got[1].To != want || c.Phase() != want {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Bool()),
	))

	properties.Property("success clears and failure preserves", prop.ForAll(
		func(form SubmissionForm, ok bool) bool {
			form.Name = "Aisha " + form.Name
			form.Email = "aisha@example.com"

			var sendErr error
			if !ok {
				sendErr = errors.New("rejected")
			}
			c := NewContactForm(&recordingSender{err: sendErr}, Options{Recipient: testRecipient})
			for _, f := range Fields {
				c.UpdateField(f, form.Get(f))
			}

			_ = c.Submit(context.Background())
			if ok {
				return c.Snapshot().Form.IsEmpty()
			}
			return c.Snapshot().Form == form
		},
		gen.Struct(reflect.TypeOf(SubmissionForm{}), map[string]gopter.Gen{
			"Name":    gen.AlphaString(),
			"Phone":   gen.NumString(),
			"Company": gen.AlphaString(),
			"Message": gen.AnyString(),
		}),
		gen.Bool(),
	))

	properties.Property("transition table allows only the documented edges", prop.ForAll(
		func(from, to int) bool {
			p, n := Phase(from), Phase(to)
			want := (n == PhaseSubmitting && p != PhaseSubmitting) ||
				(p == PhaseSubmitting && n.Terminal())
			return p.CanTransitionTo(n) == want
		},
		gen.IntRange(0, 3),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
