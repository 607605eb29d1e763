package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"picnichub/internal/notify"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send sendFunc
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Deliver renders the intent and hands it to the SMTP server. It matches
// notify.Handler so it can sit behind either transport.
func (m *Mailer) Deliver(_ context.Context, in notify.Intent) error {
	subject, body, err := Render(in)
	if err != nil {
		return err
	}

	msg := buildMessage(m.cfg.From, in.Recipient, subject, body)
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{in.Recipient}, msg); err != nil {
		m.log.Warn().
			Err(err).
			Str("recipient", in.Recipient).
			Str("kind", string(in.Kind)).
			Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().
		Str("recipient", in.Recipient).
		Str("kind", string(in.Kind)).
		Str("registration_id", in.RegistrationID).
		Msg("email sent")
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
