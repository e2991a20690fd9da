package mail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resend/resend-go/v2"
)

// Resend delivers through the Resend API.
type Resend struct {
	From   string
	client *resend.Client
}

func NewResend(apiKey, from string) *Resend {
	hc := &http.Client{Timeout: 15 * time.Second}
	return &Resend{From: from, client: resend.NewCustomClient(hc, apiKey)}
}

func (r *Resend) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.From,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("send mail via resend: %w", err)
	}
	if sent == nil || sent.Id == "" {
		return fmt.Errorf("send mail via resend: no message id returned")
	}
	return nil
}
