// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retry policy and rate limiting shared by the
// catalog clients and the download manager.
package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the base backoff for catalog API calls that hit HTTP 429
// or 5xx. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps how long a server-supplied Retry-After can stall a query.
const maxRetryAfter = 60 * time.Second

// BackoffFunc returns the wait before the given retry. attempt is the
// number of the attempt that just failed, starting at 1.
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff doubles base after every failed attempt, never
// exceeding limit. A zero limit means no cap.
func ExponentialBackoff(base, limit time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if limit > 0 && d >= limit {
				return limit
			}
		}
		if limit > 0 && d > limit {
			return limit
		}
		return d
	}
}

// Policy is a bounded retry policy: at most MaxAttempts calls, waiting
// Backoff(n) after the n-th failure.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// NewPolicy returns a Policy with exponential backoff from base, capped at 30s.
func NewPolicy(maxAttempts int, base time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     ExponentialBackoff(base, 30*time.Second),
	}
}

// APIPolicy is the policy applied to catalog API requests.
func APIPolicy() Policy {
	return NewPolicy(4, RetryBaseDelay)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Policy.Do stops on it and
// returns it unchanged for errors.Is and errors.As.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a Permanent error, or MaxAttempts
// calls have been made. It returns the number of calls and the last error.
// If ctx ends during a backoff wait, Do returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if IsPermanent(err) || attempt == maxAttempts {
			return attempt, err
		}
		if werr := p.wait(ctx, attempt); werr != nil {
			return attempt, werr
		}
	}
	return maxAttempts, err
}

func (p Policy) wait(ctx context.Context, attempt int) error {
	var d time.Duration
	if p.Backoff != nil {
		d = p.Backoff(attempt)
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryableStatus reports whether an API response status is worth retrying.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// DoWithRetry executes an HTTP request under policy, retrying on network
// errors, HTTP 429 and 5xx. A Retry-After header (seconds or HTTP date)
// replaces the policy delay when present, up to one minute.
//
// The body of each retried response is drained and closed. After the last
// attempt the final response is returned as-is so the caller can inspect
// its status.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Policy) (*http.Response, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil || attempt >= maxAttempts {
				return nil, err
			}
			if werr := policy.wait(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}

		if !RetryableStatus(resp.StatusCode) || attempt >= maxAttempts {
			return resp, nil
		}

		delay, ok := retryAfter(resp)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if ok {
			err = sleep(ctx, delay)
		} else {
			err = policy.wait(ctx, attempt)
		}
		if err != nil {
			return nil, err
		}
	}
}

// retryAfter parses the Retry-After header.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = time.Until(t)
	} else {
		return 0, false
	}
	if d < 0 {
		d = 0
	}
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d, true
}
