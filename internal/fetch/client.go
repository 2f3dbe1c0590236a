package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultRetryAfter = 60 * time.Second

// Client fetches injury report snapshots from the NBA stats endpoint.
type Client struct {
	sourceURL  string
	maxRetries int
	client     *resty.Client
}

// NewClient creates a new source client. maxRetries bounds the immediate
// retries for transient failures; rate-limit responses are never retried here.
func NewClient(sourceURL string, timeout time.Duration, maxRetries int) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36").
		SetHeader("Accept", "application/json").
		SetHeader("Referer", "https://www.nba.com/").
		SetHeader("Origin", "https://www.nba.com")

	return &Client{
		sourceURL:  sourceURL,
		maxRetries: maxRetries,
		client:     client,
	}
}

// Fetch performs one request for the current injury report and wraps the
// payload in a Snapshot. A 429 surfaces immediately as *RateLimitError.
// Other failures are retried with the same request up to maxRetries, then
// surface as *Error carrying the last observed status.
func (c *Client) Fetch(ctx context.Context) (*models.Snapshot, error) {
	var lastStatus int
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		resp, err := c.client.R().SetContext(ctx).Get(c.sourceURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Errorf("Fetch attempt %d failed: %v", attempt, err)
			lastErr = err
			lastStatus = 0
			continue
		}

		status := resp.StatusCode()

		if status == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header().Get("Retry-After"))
			logrus.Warnf("Source rate limited us, retry after %s", retryAfter)
			return nil, &RateLimitError{RetryAfter: retryAfter}
		}

		if status >= 400 {
			logrus.Errorf("Fetch attempt %d returned status %d", attempt, status)
			lastStatus = status
			lastErr = fmt.Errorf("unexpected status %d", status)
			continue
		}

		raw := resp.Body()
		fingerprint, err := Fingerprint(raw)
		if err != nil {
			return nil, fmt.Errorf("fingerprint snapshot: %w", err)
		}

		return &models.Snapshot{
			FetchedAt:   time.Now(),
			SourceURL:   c.sourceURL,
			Fingerprint: fingerprint,
			Raw:         raw,
		}, nil
	}

	return nil, &Error{StatusCode: lastStatus, Attempts: c.maxRetries + 1, Err: lastErr}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
