package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// Dialer はgomail.Dialerのうち送信に使う部分です
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

// InvitationEmail はアンバサダー招待メールの内容です
type InvitationEmail struct {
	To             string
	Link           string
	RestaurantName string
}

// Mailer はSMTPでメールを送信します
type Mailer struct {
	dialer Dialer
	sender string
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		sender: cfg.Sender,
	}
}

// NewMailerWithDialer は任意のDialerでMailerを作成します
func NewMailerWithDialer(dialer Dialer, sender string) *Mailer {
	return &Mailer{dialer: dialer, sender: sender}
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
	<h1>Only one step left!</h1>
	<p><strong>{{.RestaurantName}}</strong> wants you to be their ambassador on ReferEat.</p>
	<p>Click the link below to accept the invitation and start earning credits:</p>
	<a href="{{.Link}}" style="display: inline-block; background-color: #ea580c; color: white; padding: 12px 24px; border-radius: 6px; text-decoration: none; font-weight: bold;">Accept Invitation</a>
	<p style="margin-top: 20px; font-size: 12px; color: #666;">If the button doesn't work, copy this link: {{.Link}}</p>
</div>`))

// SendInvitation は招待メールを送信します
func (m *Mailer) SendInvitation(ctx context.Context, email InvitationEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderInvitation(email)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", fmt.Sprintf("%s invited you to become an Ambassador!", email.RestaurantName))
	msg.SetBody("text/html", body)
	msg.AddAlternative("text/plain", fmt.Sprintf("%s wants you to be their ambassador on ReferEat. Accept the invitation: %s", email.RestaurantName, email.Link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send invitation email to %s: %w", email.To, err)
	}
	return nil
}

func renderInvitation(email InvitationEmail) (string, error) {
	var body bytes.Buffer
	if err := invitationTemplate.Execute(&body, email); err != nil {
		return "", fmt.Errorf("failed to render invitation email: %w", err)
	}
	return body.String(), nil
}
