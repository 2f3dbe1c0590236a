package fetch

import (
	"fmt"
	"time"
)

// Error is returned when a fetch fails after exhausting its retries or hits a
// non-retryable condition. StatusCode is zero for pure transport failures.
type Error struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed after %d attempts: status %d", e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RateLimitError signals a 429 from the source. It is never retried inline;
// the poller owns the wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by source, retry after %s", e.RetryAfter)
}
