package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/quickstay/pkg/config"
)

// Service sends the account emails. Every method reports delivery failure.
type Service interface {
	SendOTP(ctx context.Context, toEmail, code, displayName string) error
	SendWelcome(ctx context.Context, toEmail, displayName string) error
	SendResetConfirmation(ctx context.Context, toEmail, displayName string) error
}

// Transport delivers one rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer renders account emails and hands them to a Transport.
type Mailer struct {
	transport Transport
	otpTTL    time.Duration
	now       func() time.Time
}

func New(transport Transport, otpTTL time.Duration) *Mailer {
	return &Mailer{transport: transport, otpTTL: otpTTL, now: time.Now}
}

func (m *Mailer) SendOTP(ctx context.Context, toEmail, code, displayName string) error {
	return m.send(ctx, otpMessage(toEmail, code, displayName, m.otpTTL))
}

func (m *Mailer) SendWelcome(ctx context.Context, toEmail, displayName string) error {
	return m.send(ctx, welcomeMessage(toEmail, displayName))
}

func (m *Mailer) SendResetConfirmation(ctx context.Context, toEmail, displayName string) error {
	return m.send(ctx, resetConfirmationMessage(toEmail, displayName, m.now().UTC()))
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("empty recipient email")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.transport.Send(ctx, msg)
}

// NewFromConfig picks the transport: dev printing, MailerSend when an API key
// is present, SMTP otherwise.
func NewFromConfig(cfg config.EmailConfig, otpTTL time.Duration) *Mailer {
	switch {
	case cfg.DevMode:
		return New(NewDevTransport(), otpTTL)
	case cfg.MailerSendKey != "":
		return New(NewMailerSendTransport(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom), otpTTL)
	default:
		return New(NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS), otpTTL)
	}
}

var _ Service = (*Mailer)(nil)
