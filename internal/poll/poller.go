package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/fetch"
	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/kmaassrock/nba-injury-alert/internal/storage"
	"github.com/sirupsen/logrus"
)

// Fetcher produces snapshots from the source.
type Fetcher interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// Callback receives every snapshot that passed the dedup gate.
type Callback func(ctx context.Context, snap *models.Snapshot) error

// Poller drives the fetcher on a fixed interval and forwards only
// newly-fingerprinted snapshots to the callback.
type Poller struct {
	fetcher  Fetcher
	store    storage.Store
	interval time.Duration

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	lastSuccess time.Time
}

// New creates a poller.
func New(fetcher Fetcher, store storage.Store, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		store:    store,
		interval: interval,
	}
}

// PollOnce performs a single fetch and dedup check. isNew is false when the
// content fingerprint was already persisted.
func (p *Poller) PollOnce(ctx context.Context) (*models.Snapshot, bool, error) {
	snap, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	id, isNew, err := p.store.InsertSnapshotIfNew(ctx, snap)
	if err != nil {
		return nil, false, err
	}
	snap.ID = id

	if !isNew {
		logrus.Debugf("Snapshot %s already known, skipping", snap.Fingerprint)
	}
	return snap, isNew, nil
}

// Start runs the poll loop until Stop is called or the context is cancelled.
// Transient fetch errors are logged and the loop proceeds to the next
// interval; a rate-limit error replaces the interval sleep with the
// source-specified wait. The callback runs to completion before the loop
// checks for a stop, so a cycle is never cut off mid-delivery.
func (p *Poller) Start(ctx context.Context, onNew Callback) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("poller already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	logrus.Infof("Starting injury report polling every %s", p.interval)

	for {
		wait := p.interval

		snap, isNew, err := p.PollOnce(ctx)
		switch {
		case err == nil:
			if isNew {
				logrus.Infof("New injury report snapshot %s", snap.Fingerprint)
				if cbErr := onNew(ctx, snap); cbErr != nil {
					logrus.Errorf("Snapshot processing failed: %v", cbErr)
				}
			}
			p.mu.Lock()
			p.lastSuccess = time.Now()
			p.mu.Unlock()

		case isRateLimit(err):
			var rle *fetch.RateLimitError
			errors.As(err, &rle)
			logrus.Warnf("Rate limited, waiting %s before next poll", rle.RetryAfter)
			wait = rle.RetryAfter

		case ctx.Err() != nil:
			return ctx.Err()

		default:
			logrus.Errorf("Poll cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			logrus.Info("Polling stopped: context cancelled")
			return ctx.Err()
		case <-stopCh:
			logrus.Info("Polling stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// Stop requests a cooperative shutdown; the loop exits at the next iteration
// boundary, letting in-flight work finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running && p.stopCh != nil {
		select {
		case <-p.stopCh:
		default:
			close(p.stopCh)
		}
	}
}

// LastSuccess returns the time of the last successful fetch.
func (p *Poller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSuccess
}

// PollUntilNew waits until startAt (zero means immediately), then polls each
// interval until the first new snapshot appears, which it returns. Used for
// scheduled one-shot checks around the report's publication time.
func (p *Poller) PollUntilNew(ctx context.Context, startAt time.Time) (*models.Snapshot, error) {
	if wait := time.Until(startAt); wait > 0 {
		logrus.Infof("Waiting until %s to start polling", startAt.Format("15:04:05"))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	logrus.Info("Polling for a new injury report snapshot")
	for {
		wait := p.interval

		snap, isNew, err := p.PollOnce(ctx)
		switch {
		case err == nil && isNew:
			logrus.Infof("Found new injury report snapshot %s", snap.Fingerprint)
			return snap, nil
		case isRateLimit(err):
			var rle *fetch.RateLimitError
			errors.As(err, &rle)
			logrus.Warnf("Rate limited, waiting %s", rle.RetryAfter)
			wait = rle.RetryAfter
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Errorf("Poll attempt failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func isRateLimit(err error) bool {
	var rle *fetch.RateLimitError
	return errors.As(err, &rle)
}
