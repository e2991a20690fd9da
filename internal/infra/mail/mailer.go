package mail

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var ErrNoRecipient = errors.New("mail: no recipient")

type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if len(m.To) == 0 || strings.TrimSpace(m.To[0]) == "" {
		return ErrNoRecipient
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	ResendAPIKey string
	From         string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
}

// New picks the transactional API when a key is set, then SMTP, and falls
// back to logging the message (local development).
func New(cfg Config, log *zap.Logger) Mailer {
	switch {
	case cfg.ResendAPIKey != "":
		return NewResend(cfg.ResendAPIKey, cfg.From)
	case cfg.SMTPHost != "":
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From)
	default:
		return &LogMailer{log: log}
	}
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log *zap.Logger
}

func (l *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if l.log != nil {
		l.log.Info("mail not delivered (no transport configured)",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("body", msg.Text))
	}
	return nil
}
