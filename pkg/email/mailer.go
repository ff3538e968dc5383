package email

import (
	"context"
	"errors"

	"github.com/dmitrymomot/notifycore/pkg/validator"
)

// EmailSender delivers a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"` // Tag groups messages in provider analytics.
}

// Validate checks the recipient, subject and body.
func (p SendEmailParams) Validate() error {
	if err := validator.Apply(
		validator.Required("send_to", p.SendTo),
		validator.Email("send_to", p.SendTo),
		validator.Required("subject", p.Subject),
		validator.MaxLen("subject", p.Subject, 2000),
		validator.Required("body_html", p.BodyHTML),
		validator.MaxLen("tag", p.Tag, 1000),
	); err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	return nil
}
