package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"teams-service/internal/domain/models"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func invitation(registered bool) models.InvitationEmail {
	return models.InvitationEmail{
		To:           "bob@example.com",
		InviterName:  "Alice",
		TeamName:     "Smiths",
		Link:         "https://yumo.org/invite/abc",
		IsRegistered: registered,
	}
}

func TestRender(t *testing.T) {
	html, err := RenderHTML(invitation(true))
	require.NoError(t, err)
	assert.Contains(t, html, "Smiths")
	assert.Contains(t, html, "https://yumo.org/invite/abc")
	assert.Contains(t, html, "Open the Lumie app")

	text := RenderText(invitation(false))
	assert.Contains(t, text, "Create a free Lumie account")
	assert.Contains(t, text, "expires in 30 days")

	assert.Equal(t, "You've been invited to join Smiths on Lumie", Subject("Smiths"))
}

func TestRenderHTML_Escapes(t *testing.T) {
	msg := invitation(true)
	msg.TeamName = "<script>alert(1)</script>"

	html, err := RenderHTML(msg)
	require.NoError(t, err)
	assert.False(t, strings.Contains(html, "<script>"))
}

func TestSMTPNotifier(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{log: discardLogger(), dialer: fake, from: "no-reply@yumo.org"}

	require.NoError(t, n.SendInvitationEmail(context.Background(), invitation(true)))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, []string{"bob@example.com"}, fake.sent[0].GetHeader("To"))
	assert.Equal(t, []string{Subject("Smiths")}, fake.sent[0].GetHeader("Subject"))

	fake.err = errors.New("connection refused")
	assert.Error(t, n.SendInvitationEmail(context.Background(), invitation(true)))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(discardLogger()).SendInvitationEmail(context.Background(), invitation(false)))
}
