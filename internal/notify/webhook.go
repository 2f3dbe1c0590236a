package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/sirupsen/logrus"
)

// WebhookSender POSTs notifications to each subscriber's webhook URL; the
// recipient of a webhook notification is the URL itself.
type WebhookSender struct {
	client *resty.Client
	limits BatchLimits
}

// Ensure WebhookSender implements Sender
var _ Sender = (*WebhookSender)(nil)

type webhookPayload struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	HTML     string `json:"html,omitempty"`
	ChangeID int64  `json:"change_id"`
}

// NewWebhookSender creates the webhook channel.
func NewWebhookSender(timeout time.Duration, limits BatchLimits) *WebhookSender {
	return &WebhookSender{
		client: resty.New().SetTimeout(timeout),
		limits: limits,
	}
}

func (s *WebhookSender) Name() string { return models.ChannelWebhook }

func (s *WebhookSender) Send(ctx context.Context, n models.Notification) models.SendResult {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookPayload{
			Subject:  n.Subject,
			Message:  n.Body,
			HTML:     n.HTML,
			ChangeID: n.ChangeID,
		}).
		Post(n.Recipient)

	if err != nil {
		logrus.Errorf("Failed to post webhook to %s: %v", n.Recipient, err)
		return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: false, Error: err.Error()}
	}

	if resp.StatusCode() >= 300 {
		err := fmt.Errorf("webhook returned status %d", resp.StatusCode())
		logrus.Errorf("Webhook %s rejected notification: %v", n.Recipient, err)
		return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: false, Error: err.Error()}
	}

	return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: true}
}

func (s *WebhookSender) SendBatch(ctx context.Context, batch []models.Notification) []models.SendResult {
	return sendBatch(ctx, s, batch, s.limits)
}
