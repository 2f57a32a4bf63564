package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nft-voting-api/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer delivers one-time login codes.
type Mailer interface {
	SendCode(ctx context.Context, to, code string) error
}

type mailer struct {
	from string
	ttl  time.Duration
	send func(m *gomail.Message) error
}

// NewMailer returns an SMTP mailer built from the SMTP_* settings.
func NewMailer(cfg *config.Config) Mailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &mailer{
		from: cfg.SMTPFrom,
		ttl:  cfg.CodeTTL,
		send: func(m *gomail.Message) error { return d.DialAndSend(m) },
	}
}

func (m *mailer) SendCode(ctx context.Context, to, code string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your voting login code")
	msg.SetBody("text/plain", codeBody(code, m.ttl))

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	slog.Info("login code sent", "to", to)
	return nil
}

func codeBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your login code is %s.\nIt expires in %d minutes and can be used once.\n", code, int(ttl.Minutes()))
}

// logMailer writes codes to the process log instead of sending them. Used in
// development so the login flow works without an SMTP server.
type logMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) SendCode(_ context.Context, to, code string) error {
	m.logger.Info("login code issued", "to", to, "code", code)
	return nil
}
