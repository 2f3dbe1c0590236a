package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/kmaassrock/nba-injury-alert/internal/storage"
	"github.com/sirupsen/logrus"
)

// Dispatcher groups payloads by channel, fans the batches out to the channel
// senders, and afterwards marks the cycle's changes as delivered exactly
// once. Delivery is best effort: individual send failures are collected, not
// retried, and do not keep the changes from being marked processed.
type Dispatcher struct {
	store   storage.Store
	senders map[string]Sender
	now     func() time.Time
}

// NewDispatcher creates a dispatcher over the given channel senders.
func NewDispatcher(store storage.Store, senders []Sender) *Dispatcher {
	byName := make(map[string]Sender, len(senders))
	for _, s := range senders {
		byName[s.Name()] = s
	}
	return &Dispatcher{store: store, senders: byName, now: time.Now}
}

// Dispatch sends the payloads and marks every change in the cycle delivered.
// The returned results carry one entry per attempted payload.
func (d *Dispatcher) Dispatch(ctx context.Context, changes []models.StatusChange, notifications []models.Notification) ([]models.SendResult, error) {
	results := d.sendAll(ctx, notifications)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		logrus.Warnf("Dispatch completed with %d/%d failed sends", failed, len(results))
	}

	ids := make([]int64, 0, len(changes))
	for _, ch := range changes {
		ids = append(ids, ch.ID)
	}

	marked, err := d.store.MarkChangesDelivered(ctx, ids, d.now())
	if err != nil {
		return results, fmt.Errorf("mark changes delivered: %w", err)
	}
	logrus.Infof("Marked %d of %d changes as delivered", marked, len(ids))

	return results, nil
}

// sendAll runs each channel's batch concurrently with the others; channels
// share no mutable state.
func (d *Dispatcher) sendAll(ctx context.Context, notifications []models.Notification) []models.SendResult {
	if len(notifications) == 0 {
		return nil
	}

	batches := make(map[string][]models.Notification)
	for _, n := range notifications {
		batches[n.Channel] = append(batches[n.Channel], n)
	}

	resultsChan := make(chan []models.SendResult, len(batches))
	var wg sync.WaitGroup

	for channel, batch := range batches {
		sender, ok := d.senders[channel]
		if !ok {
			logrus.Errorf("No sender configured for channel %q, dropping %d notifications", channel, len(batch))
			failed := make([]models.SendResult, len(batch))
			for i, n := range batch {
				failed[i] = models.SendResult{
					Channel:   channel,
					Recipient: n.Recipient,
					Success:   false,
					Error:     "no sender configured",
				}
			}
			resultsChan <- failed
			continue
		}

		wg.Add(1)
		go func(s Sender, batch []models.Notification) {
			defer wg.Done()
			logrus.Infof("Sending batch of %d notifications via %s", len(batch), s.Name())
			resultsChan <- s.SendBatch(ctx, batch)
		}(sender, batch)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var results []models.SendResult
	for batch := range resultsChan {
		results = append(results, batch...)
	}
	return results
}
