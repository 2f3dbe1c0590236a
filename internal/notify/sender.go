package notify

import (
	"context"
	"sync"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"golang.org/x/time/rate"
)

// Sender is the single capability every notification channel implements. The
// pipeline never branches on which concrete channel it is talking to.
type Sender interface {
	Name() string
	Send(ctx context.Context, n models.Notification) models.SendResult
	SendBatch(ctx context.Context, batch []models.Notification) []models.SendResult
}

// BatchLimits bounds the per-recipient fan within one channel batch.
type BatchLimits struct {
	Concurrency int
	RatePerSec  float64
}

func (l BatchLimits) limiter() *rate.Limiter {
	if l.RatePerSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(l.RatePerSec), 1)
}

// sendBatch runs Send for every notification in the batch. Tuples are
// attempted independently: a failed recipient never aborts its siblings.
// Concurrency is capped and sends pass through the channel's rate limiter.
func sendBatch(ctx context.Context, s Sender, batch []models.Notification, limits BatchLimits) []models.SendResult {
	if len(batch) == 0 {
		return nil
	}

	concurrency := limits.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	limiter := limits.limiter()

	results := make([]models.SendResult, len(batch))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, n := range batch {
		wg.Add(1)
		go func(i int, n models.Notification) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					results[i] = models.SendResult{
						Channel:   s.Name(),
						Recipient: n.Recipient,
						Success:   false,
						Error:     err.Error(),
					}
					return
				}
			}
			results[i] = s.Send(ctx, n)
		}(i, n)
	}

	wg.Wait()
	return results
}
