package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/sirupsen/logrus"
)

// PushSender forwards notifications to a push gateway keyed by device token.
type PushSender struct {
	client     *resty.Client
	gatewayURL string
	apiKey     string
	limits     BatchLimits
}

// Ensure PushSender implements Sender
var _ Sender = (*PushSender)(nil)

type pushPayload struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NewPushSender creates the push channel.
func NewPushSender(gatewayURL, apiKey string, limits BatchLimits) *PushSender {
	return &PushSender{
		client:     resty.New().SetTimeout(30 * time.Second),
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		limits:     limits,
	}
}

func (s *PushSender) Name() string { return models.ChannelPush }

func (s *PushSender) Send(ctx context.Context, n models.Notification) models.SendResult {
	req := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(pushPayload{Token: n.Recipient, Title: n.Subject, Body: n.Body})
	if s.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := req.Post(s.gatewayURL)
	if err != nil {
		logrus.Errorf("Failed to send push notification to %s: %v", n.Recipient, err)
		return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: false, Error: err.Error()}
	}

	if resp.StatusCode() >= 300 {
		err := fmt.Errorf("push gateway returned status %d", resp.StatusCode())
		logrus.Errorf("Push notification to %s rejected: %v", n.Recipient, err)
		return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: false, Error: err.Error()}
	}

	return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: true}
}

func (s *PushSender) SendBatch(ctx context.Context, batch []models.Notification) []models.SendResult {
	return sendBatch(ctx, s, batch, s.limits)
}
