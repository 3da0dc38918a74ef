// Copyright Caddis Lab, 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across pipeline stages.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient failures (5xx responses and transport errors). Tests override
// this to avoid real sleeps.
var RetryBaseDelay = time.Second

// RateLimitDelay is the wait applied on HTTP 429 before retrying. Rate
// limiting is a distinct condition from generic transient failure and gets
// a longer, flat delay. Tests override this to avoid real sleeps.
var RateLimitDelay = 60 * time.Second

const defaultMaxRetries = 3

// DoWithRetry executes an HTTP request and retries on transient failures.
// Transport errors and 5xx responses back off exponentially from
// RetryBaseDelay (1 s, 2 s, 4 s, ...); HTTP 429 waits RateLimitDelay
// before each retry. Any other status is returned to the caller as-is,
// including 404 — classifying definitive absence is the caller's job.
//
// When maxRetries is 0 the default (3) is used. Retried response bodies
// are drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last response (or last transport error) is returned.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))

		var wait time.Duration
		switch {
		case err != nil:
			wait = backoff(attempt)
		case resp.StatusCode == http.StatusTooManyRequests:
			wait = RateLimitDelay
		case resp.StatusCode >= 500:
			wait = backoff(attempt)
		default:
			return resp, nil
		}

		// Exhausted retries — surface the last outcome as-is.
		if attempt >= maxRetries-1 {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
}
