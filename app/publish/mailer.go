package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/wneessen/go-mail"
)

type MailerConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DefaultTo   string
	SendTimeout time.Duration
}

func (c MailerConfig) configured() bool {
	return c.Host != "" && c.Port > 0 && c.User != "" && c.Password != ""
}

// Mailer delivers a finished artifact as an e-mail attachment.
type Mailer struct {
	config MailerConfig
}

func NewMailer(config MailerConfig) *Mailer {
	if config.SendTimeout == 0 {
		config.SendTimeout = time.Minute
	}
	return &Mailer{config: config}
}

// Send mails path to override, or to the default recipient when override is blank.
func (m *Mailer) Send(ctx context.Context, path string, override string) error {
	to := strings.TrimSpace(override)
	if to == "" {
		to = m.config.DefaultTo
	}

	if !m.config.configured() || to == "" {
		return digest.Errorf(digest.ErrConfig, "send artifact", "email configuration missing")
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("artifact %s not available: %w", path, err)
	}

	msg, err := m.message(path, to)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.config.Host,
		mail.WithPort(m.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.config.User),
		mail.WithPassword(m.config.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(m.config.SendTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Artifact sent", "file", filepath.Base(path), "to", to)
	return nil
}

func (m *Mailer) message(path string, to string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.config.User); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject("Convert")
	msg.SetBodyString(mail.TypeTextPlain, "Here is your daily news digest.")
	msg.AttachFile(path, mail.WithFileName(filepath.Base(path)))

	return msg, nil
}
