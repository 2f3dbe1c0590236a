package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures sends and can fail selected recipients.
type recordingSender struct {
	channel string
	fail    map[string]bool

	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Name() string { return r.channel }

func (r *recordingSender) Send(ctx context.Context, n models.Notification) models.SendResult {
	r.mu.Lock()
	r.sent = append(r.sent, n.Recipient)
	r.mu.Unlock()

	if r.fail[n.Recipient] {
		return models.SendResult{Channel: r.channel, Recipient: n.Recipient, Success: false, Error: "send failed"}
	}
	return models.SendResult{Channel: r.channel, Recipient: n.Recipient, Success: true}
}

func (r *recordingSender) SendBatch(ctx context.Context, batch []models.Notification) []models.SendResult {
	results := make([]models.SendResult, len(batch))
	for i, n := range batch {
		results[i] = r.Send(ctx, n)
	}
	return results
}

func TestDispatcher_GroupsByChannel(t *testing.T) {
	store := newFakeStore()
	email := &recordingSender{channel: models.ChannelEmail}
	push := &recordingSender{channel: models.ChannelPush}
	dispatcher := NewDispatcher(store, []Sender{email, push})

	changes := []models.StatusChange{{ID: 1}, {ID: 2}}
	notifications := []models.Notification{
		{Channel: models.ChannelEmail, Recipient: "a@example.com", ChangeID: 1},
		{Channel: models.ChannelPush, Recipient: "token-1", ChangeID: 1},
		{Channel: models.ChannelEmail, Recipient: "b@example.com", ChangeID: 2},
	}

	results, err := dispatcher.Dispatch(context.Background(), changes, notifications)
	require.NoError(t, err)

	assert.Len(t, results, 3)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, email.sent)
	assert.Equal(t, []string{"token-1"}, push.sent)
}

func TestDispatcher_FailureIsolation(t *testing.T) {
	store := newFakeStore()
	email := &recordingSender{
		channel: models.ChannelEmail,
		fail:    map[string]bool{"broken@example.com": true},
	}
	dispatcher := NewDispatcher(store, []Sender{email})

	changes := []models.StatusChange{{ID: 1}}
	notifications := []models.Notification{
		{Channel: models.ChannelEmail, Recipient: "broken@example.com", ChangeID: 1},
		{Channel: models.ChannelEmail, Recipient: "fine@example.com", ChangeID: 1},
	}

	results, err := dispatcher.Dispatch(context.Background(), changes, notifications)
	require.NoError(t, err)

	require.Len(t, results, 2)
	byRecipient := map[string]bool{}
	for _, r := range results {
		byRecipient[r.Recipient] = r.Success
	}
	assert.False(t, byRecipient["broken@example.com"])
	assert.True(t, byRecipient["fine@example.com"], "one failed recipient must not block the rest")

	// The cycle's changes are still marked delivered.
	assert.True(t, store.delivered[1])
}

func TestDispatcher_MissingSender(t *testing.T) {
	store := newFakeStore()
	dispatcher := NewDispatcher(store, nil)

	changes := []models.StatusChange{{ID: 1}}
	notifications := []models.Notification{
		{Channel: models.ChannelWebhook, Recipient: "https://example.com/hook", ChangeID: 1},
	}

	results, err := dispatcher.Dispatch(context.Background(), changes, notifications)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "no sender configured", results[0].Error)
}

func TestDispatcher_MarksDeliveredOnce(t *testing.T) {
	store := newFakeStore()
	email := &recordingSender{channel: models.ChannelEmail}
	dispatcher := NewDispatcher(store, []Sender{email})

	changes := []models.StatusChange{{ID: 1}, {ID: 2}}
	notifications := []models.Notification{
		{Channel: models.ChannelEmail, Recipient: "a@example.com", ChangeID: 1},
	}

	_, err := dispatcher.Dispatch(context.Background(), changes, notifications)
	require.NoError(t, err)

	// A second dispatch of the same changes flips no further rows.
	marked, err := store.MarkChangesDelivered(context.Background(), []int64{1, 2}, time.Now())
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.Len(t, store.markCalls, 2)
}

func TestDispatcher_NoNotifications(t *testing.T) {
	store := newFakeStore()
	dispatcher := NewDispatcher(store, nil)

	changes := []models.StatusChange{{ID: 1}}
	results, err := dispatcher.Dispatch(context.Background(), changes, nil)
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.True(t, store.delivered[1], "changes with no audience still count as processed")
}
