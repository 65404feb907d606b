package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/RyanBlaney/sonido-gusto/logging"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
)

// doRequestWithRetry retries GET requests on transport errors, 429 and
// 5xx. Retry-After wins over the exponential backoff when present.
func (c *ITunesClient) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	maxRetries := c.maxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	baseBackoff := c.baseBackoff
	if baseBackoff <= 0 {
		baseBackoff = defaultBackoff
	}

	ctx := req.Context()
	for attempt := range maxRetries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: request canceled: %w", ErrRequestFailed, err)
		}

		resp, err := c.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, err
		}

		fields := logging.Fields{
			"attempt":      attempt + 1,
			"max_attempts": maxRetries,
			"url":          req.URL.Path,
		}
		if err != nil {
			c.logger.Warn("Retrying after transport error", fields, logging.Fields{"error": err.Error()})
		} else {
			c.logger.Warn("Retrying after status", fields, logging.Fields{"status": resp.StatusCode})
			_ = resp.Body.Close()
		}

		if attempt == maxRetries-1 {
			if err != nil {
				return nil, fmt.Errorf("%w: failed after %d attempts: %w", ErrRequestFailed, maxRetries, err)
			}
			return nil, fmt.Errorf("%w: failed after %d attempts: status %d", ErrRequestFailed, maxRetries, resp.StatusCode)
		}

		backoff := baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}

		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: failed after %d attempts", ErrRequestFailed, maxRetries)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}

	return 0, false
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms
func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}

	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: request canceled: %w", ErrRequestFailed, ctx.Err())
	case <-timer.C:
		return nil
	}
}
