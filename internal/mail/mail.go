// Package mail delivers invitation emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"teams-service/internal/config"
	"teams-service/internal/domain/models"
	"teams-service/internal/lib/logger/sl"
)

const productName = "Lumie"

var htmlTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
	<h1 style="text-align: center; color: #4F46E5;">{{.Product}}</h1>
	<h2>You've been invited to join a team!</h2>
	<div style="background: #F9FAFB; border: 2px solid #E5E7EB; border-radius: 8px; padding: 16px; text-align: center;">
		<div style="font-size: 20px; font-weight: bold;">{{.TeamName}}</div>
		<div>Invited by {{.InviterName}}</div>
	</div>
	<p><strong>{{.InviterName}}</strong> has invited you to join their team <strong>"{{.TeamName}}"</strong> on {{.Product}}.</p>
	<p style="text-align: center;"><a href="{{.Link}}" style="display: inline-block; padding: 12px 24px; background: #4F46E5; color: #fff; text-decoration: none; border-radius: 6px;">Accept Invitation</a></p>
	<p>{{.ActionText}}</p>
	<p>Or copy this link:<br>{{.Link}}</p>
	<p>This invitation expires in 30 days.</p>
	<p style="color: #6B7280; font-size: 12px;">If you don't want to join this team, you can safely ignore this email.</p>
</body>
</html>
`))

type content struct {
	Product     string
	TeamName    string
	InviterName string
	Link        string
	ActionText  string
}

func newContent(msg models.InvitationEmail) content {
	action := fmt.Sprintf("Create a free %s account with this email address to join the team.", productName)
	if msg.IsRegistered {
		action = fmt.Sprintf("Open the %s app to accept your invitation.", productName)
	}

	return content{
		Product:     productName,
		TeamName:    msg.TeamName,
		InviterName: msg.InviterName,
		Link:        msg.Link,
		ActionText:  action,
	}
}

// Subject returns the subject line for an invitation to teamName.
func Subject(teamName string) string {
	return fmt.Sprintf("You've been invited to join %s on %s", teamName, productName)
}

// RenderHTML renders the HTML body of an invitation email.
func RenderHTML(msg models.InvitationEmail) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, newContent(msg)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderText renders the plain text alternative.
func RenderText(msg models.InvitationEmail) string {
	c := newContent(msg)

	var b strings.Builder
	fmt.Fprintf(&b, "%s has invited you to join their team \"%s\" on %s.\n\n", c.InviterName, c.TeamName, c.Product)
	fmt.Fprintf(&b, "Accept the invitation: %s\n\n", c.Link)
	fmt.Fprintf(&b, "%s\n\n", c.ActionText)
	b.WriteString("This invitation expires in 30 days.\n")
	b.WriteString("If you don't want to join this team, you can safely ignore this email.\n")

	return b.String()
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends invitations through an SMTP relay.
type SMTPNotifier struct {
	log    *slog.Logger
	dialer sender
	from   string
}

func NewSMTPNotifier(log *slog.Logger, cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		log:    log,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (n *SMTPNotifier) SendInvitationEmail(ctx context.Context, msg models.InvitationEmail) error {
	const op = "mail.smtp.SendInvitationEmail"

	log := n.log.With(
		slog.String("op", op),
		slog.String("to", msg.To),
	)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	body, err := RenderHTML(msg)
	if err != nil {
		log.Error("failed to render invitation", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", Subject(msg.TeamName))
	m.SetBody("text/plain", RenderText(msg))
	m.AddAlternative("text/html", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		log.Error("failed to send invitation", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("invitation email sent")

	return nil
}

// LogNotifier only logs invitations. It is used when no SMTP host is set.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendInvitationEmail(_ context.Context, msg models.InvitationEmail) error {
	n.log.Info("invitation email",
		slog.String("op", "mail.log.SendInvitationEmail"),
		slog.String("to", msg.To),
		slog.String("subject", Subject(msg.TeamName)),
		slog.String("link", msg.Link),
		slog.Bool("is_registered", msg.IsRegistered),
	)
	return nil
}
