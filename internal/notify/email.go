package notify

import (
	"context"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// EmailSender delivers notifications over SMTP.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
	limits BatchLimits
}

// Ensure EmailSender implements Sender
var _ Sender = (*EmailSender)(nil)

// NewEmailSender creates an SMTP-backed email channel.
func NewEmailSender(host string, port int, username, password, from string, limits BatchLimits) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		limits: limits,
	}
}

func (s *EmailSender) Name() string { return models.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, n models.Notification) models.SendResult {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.Recipient)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Body)
	if n.HTML != "" {
		m.AddAlternative("text/html", n.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		logrus.Errorf("Failed to send email to %s: %v", n.Recipient, err)
		return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: false, Error: err.Error()}
	}

	logrus.Debugf("Email sent to %s: %s", n.Recipient, n.Subject)
	return models.SendResult{Channel: s.Name(), Recipient: n.Recipient, Success: true}
}

func (s *EmailSender) SendBatch(ctx context.Context, batch []models.Notification) []models.SendResult {
	return sendBatch(ctx, s, batch, s.limits)
}
