// Package mailer delivers generated documents over SMTP when the remote
// delivery endpoint is not configured.
package mailer

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/config"
)

// Sender is the dial-and-send surface of gomail, split out for tests.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends document notifications through a gomail dialer.
type SMTPMailer struct {
	sender Sender
	from   string
}

// New builds an SMTPMailer from config. Returns nil when no host is set so
// the pipeline can treat SMTP as absent.
func New(cfg config.SMTPConfig) *SMTPMailer {
	if cfg.Host == "" {
		return nil
	}
	return &SMTPMailer{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers a notification with a link to the generated document.
func (m *SMTPMailer) Send(to, subject, body, downloadURL string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)

	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<p>%s</p>
			<p><a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Descargar documento</a></p>
			<p>O copie este enlace:</p>
			<p>%s</p>
		</div>
	`, body, downloadURL, downloadURL)
	msg.SetBody("text/html", html)

	if err := m.sender.DialAndSend(msg); err != nil {
		return eris.Wrapf(err, "mailer: send to %s", to)
	}

	zap.L().Info("mailer: document notification sent", zap.String("to", to))
	return nil
}
