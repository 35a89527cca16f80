package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"terminator/internal/ports"
)

type MailConfig struct {
	Host     string
	Port     int
	Address  string
	Password string
}

// Mail sends plain text mail over implicit TLS with PLAIN auth.
type Mail struct {
	cfg MailConfig
}

// NewMail returns nil unless address and password are set; a nil *Mail
// reports ports.ErrNotConfigured.
func NewMail(cfg MailConfig) *Mail {
	if cfg.Address == "" || cfg.Password == "" {
		return nil
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	return &Mail{cfg: cfg}
}

func (m *Mail) Send(ctx context.Context, to, subject, body string) error {
	if m == nil {
		return ports.ErrNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Address); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := msg.To(Recipient(to)); err != nil {
		return fmt.Errorf("recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Address),
		mail.WithPassword(m.cfg.Password),
		mail.WithTimeout(30 * time.Second),
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Recipient turns a dictated address ("john dot doe at example dot com")
// into a written one.
func Recipient(spoken string) string {
	s := strings.ToLower(strings.TrimSpace(spoken))
	if strings.Contains(s, "@") {
		return strings.ReplaceAll(s, " ", "")
	}
	fields := strings.Fields(s)
	for i, f := range fields {
		switch f {
		case "at":
			fields[i] = "@"
		case "dot":
			fields[i] = "."
		case "underscore":
			fields[i] = "_"
		case "dash", "hyphen":
			fields[i] = "-"
		}
	}
	return strings.Join(fields, "")
}
