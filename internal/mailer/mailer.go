package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"resumeforge/internal/config"
)

// Mailer sends transactional mail. Only password reset delivery uses it.
type Mailer interface {
	SendPasswordReset(to, token string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a Mailer over plain SMTP.
func NewSMTPMailer(cfg config.SMTPConfig) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *smtpMailer) SendPasswordReset(to, token string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/plain", fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset token: %s\n\n"+
			"The token expires shortly. If you did not request this, ignore this mail.\n",
		token,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}
	return nil
}
