package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resend/resend-go/v2"
)

// Email is one outbound message.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, e Email) (string, error)
}

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	apiKey string
	client *resend.Client
}

func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{
		apiKey: apiKey,
		client: resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey),
	}
}

func (m *ResendMailer) Send(ctx context.Context, e Email) (string, error) {
	if m.apiKey == "" {
		return "", fmt.Errorf("resend: api key not configured")
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.From,
		To:      e.To,
		Subject: e.Subject,
		Html:    e.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}
