package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/notifycore/pkg/validator"
)

// PostmarkAPI is the subset of *postmark.Client used for sending.
type PostmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type postmarkClient struct {
	client PostmarkAPI
	config Config
}

// PostmarkOption configures the Postmark sender.
type PostmarkOption func(*postmarkClient)

// WithPostmarkAPI replaces the Postmark HTTP client.
func WithPostmarkAPI(api PostmarkAPI) PostmarkOption {
	return func(c *postmarkClient) {
		c.client = api
	}
}

// NewPostmarkClient creates a Postmark backed sender.
func NewPostmarkClient(cfg Config, opts ...PostmarkOption) (EmailSender, error) {
	if err := validator.Apply(
		validator.Required("PostmarkServerToken", cfg.PostmarkServerToken),
		validator.Required("PostmarkAccountToken", cfg.PostmarkAccountToken),
		validator.Required("SenderEmail", cfg.SenderEmail),
		validator.Email("SenderEmail", cfg.SenderEmail),
		validator.Email("SupportEmail", cfg.SupportEmail),
	); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	c := &postmarkClient{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustNewPostmarkClient is like NewPostmarkClient but panics on invalid config.
func MustNewPostmarkClient(cfg Config, opts ...PostmarkOption) EmailSender {
	client, err := NewPostmarkClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// SendEmail sends through Postmark's transactional API with open and HTML
// link tracking. Replies go to SupportEmail when set.
func (c *postmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:       c.config.SenderEmail,
		ReplyTo:    c.config.SupportEmail,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
