package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifycore/pkg/email"
	"github.com/dmitrymomot/notifycore/pkg/validator"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "learner@example.com",
		Subject:  "New reply",
		BodyHTML: "<p>hello</p>",
		Tag:      "open-edx.lms.discussions.reply-to-thread",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*email.SendEmailParams)
		field  string
	}{
		{name: "valid", modify: func(*email.SendEmailParams) {}},
		{name: "missing recipient", modify: func(p *email.SendEmailParams) { p.SendTo = "" }, field: "send_to"},
		{name: "bad recipient", modify: func(p *email.SendEmailParams) { p.SendTo = "learner" }, field: "send_to"},
		{name: "missing subject", modify: func(p *email.SendEmailParams) { p.Subject = " " }, field: "subject"},
		{name: "missing body", modify: func(p *email.SendEmailParams) { p.BodyHTML = "" }, field: "body_html"},
		{name: "long tag", modify: func(p *email.SendEmailParams) { p.Tag = strings.Repeat("t", 1001) }, field: "tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, email.ErrInvalidParams)
			assert.True(t, validator.ExtractValidationErrors(err).Has(tt.field))
		})
	}
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "emails")
	sender := email.NewDevSender(dir)

	require.NoError(t, sender.SendEmail(context.Background(), validParams()))
	require.NoError(t, sender.SendEmail(context.Background(), validParams()))

	htmlFiles, err := filepath.Glob(filepath.Join(dir, "*.html"))
	require.NoError(t, err)
	require.Len(t, htmlFiles, 2)
	assert.Contains(t, htmlFiles[0], "open-edx.lms.discussions.reply-to-thread")

	body, err := os.ReadFile(htmlFiles[0])
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(body))

	raw, err := os.ReadFile(strings.TrimSuffix(htmlFiles[0], ".html") + ".json")
	require.NoError(t, err)
	var meta map[string]string
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "learner@example.com", meta["send_to"])
	assert.Equal(t, "New reply", meta["subject"])
}

func TestDevSender_InvalidParams(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := email.NewDevSender(dir).SendEmail(context.Background(), email.SendEmailParams{})
	assert.ErrorIs(t, err, email.ErrInvalidParams)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	sender, err := email.NewSender(email.Config{DevDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, sender)

	_, err = email.NewSender(email.Config{PostmarkServerToken: "server"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}
