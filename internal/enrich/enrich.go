// Copyright Caddis Lab, 2026. All rights reserved.

// Package enrich fills missing record fields (abstracts, full author lists)
// by querying an ordered cascade of external providers with retry, rate
// limiting, and resumable batch processing.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound signals definitive absence: the provider answered and does
// not have the requested field. It is never retried.
var ErrNotFound = errors.New("not found")

// ErrRateLimited signals an HTTP 429. It is transient but backs off for
// rateLimitDelay instead of the generic exponential schedule.
var ErrRateLimited = errors.New("rate limited")

// Backoff tuning. Package-level vars so tests avoid real sleeps.
var (
	backoffBase    = time.Second
	rateLimitDelay = 60 * time.Second
)

const (
	defaultMaxRetries      = 3
	defaultRequestInterval = 200 * time.Millisecond
)

// AbstractSource supplies abstracts by DOI. Implementations return
// ErrNotFound for confirmed absence (including malformed payloads),
// ErrRateLimited for HTTP 429, and any other error for transient trouble.
type AbstractSource interface {
	Name() string
	FetchAbstract(ctx context.Context, doi string) (string, error)
}

// AuthorData is the full author list recovered from a provider, with one
// affiliation entry per author (institutions joined with "; ").
type AuthorData struct {
	Authors      []string
	Affiliations []string
}

// AuthorSource supplies full author lists by DOI.
type AuthorSource interface {
	Name() string
	FetchAuthors(ctx context.Context, doi string) (AuthorData, error)
}

// Cache stores provider responses across runs. Both values and confirmed
// not-founds are cached so a rerun repeats no network work.
type Cache interface {
	Get(source, doi, field string) (value string, notFound bool, ok bool)
	Put(source, doi, field, value string, notFound bool) error
}

// AttemptStatus classifies the outcome of one source within a cascade.
type AttemptStatus string

const (
	AttemptFilled   AttemptStatus = "filled"
	AttemptNotFound AttemptStatus = "not_found"
	AttemptError    AttemptStatus = "error"
)

// Attempt records the outcome of one source for one record, so that
// "not found" and "error" stay distinguishable in statistics.
type Attempt struct {
	Source string
	Status AttemptStatus
}

// Cascade tries an ordered list of sources until one yields the field.
type Cascade struct {
	Abstracts []AbstractSource
	Authors   []AuthorSource

	// MaxRetries is the per-source attempt cap for transient errors
	// (default 3). ErrNotFound short-circuits a source without retry.
	MaxRetries int

	// RequestInterval is the minimum delay between two requests to the
	// same source, enforced across workers (default 200ms).
	RequestInterval time.Duration

	// Cache is optional; nil disables caching.
	Cache Cache

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// limiter returns the shared politeness limiter for a source, creating it
// on first use.
func (c *Cascade) limiter(source string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limiters == nil {
		c.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := c.limiters[source]
	if !ok {
		interval := c.RequestInterval
		if interval <= 0 {
			interval = defaultRequestInterval
		}
		l = rate.NewLimiter(rate.Every(interval), 1)
		c.limiters[source] = l
	}
	return l
}

func (c *Cascade) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return defaultMaxRetries
}

// FetchAbstract tries each abstract source in order and returns the first
// non-empty abstract along with the name of the source that supplied it.
// Exhausting every source returns an empty value and source "": an
// expected outcome to be counted, not an error. Attempts record the
// per-source outcomes for statistics.
func (c *Cascade) FetchAbstract(ctx context.Context, doi string) (value, source string, attempts []Attempt) {
	if doi == "" {
		return "", "", nil
	}
	for _, s := range c.Abstracts {
		if v, ok, hit := c.cacheGet(s.Name(), doi, "abstract"); hit {
			if ok {
				return v, s.Name(), append(attempts, Attempt{s.Name(), AttemptFilled})
			}
			attempts = append(attempts, Attempt{s.Name(), AttemptNotFound})
			continue
		}

		v, err := c.fetchOne(ctx, s.Name(), func(ctx context.Context) (string, error) {
			return s.FetchAbstract(ctx, doi)
		})
		switch {
		case err == nil && v != "":
			c.cachePut(s.Name(), doi, "abstract", v, false)
			return v, s.Name(), append(attempts, Attempt{s.Name(), AttemptFilled})
		case errors.Is(err, ErrNotFound) || (err == nil && v == ""):
			c.cachePut(s.Name(), doi, "abstract", "", true)
			attempts = append(attempts, Attempt{s.Name(), AttemptNotFound})
		default:
			attempts = append(attempts, Attempt{s.Name(), AttemptError})
		}
	}
	return "", "", attempts
}

// FetchAuthors tries each author source in order. Same contract as
// FetchAbstract. Author lists are not cached: the payload is structured
// and the single-source cascade makes reruns cheap already.
func (c *Cascade) FetchAuthors(ctx context.Context, doi string) (data AuthorData, source string, attempts []Attempt) {
	if doi == "" {
		return AuthorData{}, "", nil
	}
	for _, s := range c.Authors {
		d, err := c.fetchAuthorsOne(ctx, s, doi)
		switch {
		case err == nil && len(d.Authors) > 0:
			return d, s.Name(), append(attempts, Attempt{s.Name(), AttemptFilled})
		case errors.Is(err, ErrNotFound) || err == nil:
			attempts = append(attempts, Attempt{s.Name(), AttemptNotFound})
		default:
			attempts = append(attempts, Attempt{s.Name(), AttemptError})
		}
	}
	return AuthorData{}, "", attempts
}

// fetchOne performs one source's fetch with rate limiting and retry.
func (c *Cascade) fetchOne(ctx context.Context, source string, fetch func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries(); attempt++ {
		if err := c.wait(ctx, source, attempt, lastErr); err != nil {
			return "", err
		}
		v, err := fetch(ctx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("%s: after %d attempts: %w", source, c.maxRetries(), lastErr)
}

func (c *Cascade) fetchAuthorsOne(ctx context.Context, s AuthorSource, doi string) (AuthorData, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries(); attempt++ {
		if err := c.wait(ctx, s.Name(), attempt, lastErr); err != nil {
			return AuthorData{}, err
		}
		d, err := s.FetchAuthors(ctx, doi)
		if err == nil {
			return d, nil
		}
		if errors.Is(err, ErrNotFound) {
			return AuthorData{}, err
		}
		lastErr = err
	}
	return AuthorData{}, fmt.Errorf("%s: after %d attempts: %w", s.Name(), c.maxRetries(), lastErr)
}

// wait applies the politeness limiter and, for retries, the backoff delay
// implied by the previous attempt's error.
func (c *Cascade) wait(ctx context.Context, source string, attempt int, lastErr error) error {
	if attempt > 0 {
		delay := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
		if errors.Is(lastErr, ErrRateLimited) {
			delay = rateLimitDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return c.limiter(source).Wait(ctx)
}

func (c *Cascade) cacheGet(source, doi, field string) (value string, found, hit bool) {
	if c.Cache == nil {
		return "", false, false
	}
	v, notFound, ok := c.Cache.Get(source, doi, field)
	if !ok {
		return "", false, false
	}
	return v, !notFound, true
}

func (c *Cascade) cachePut(source, doi, field, value string, notFound bool) {
	if c.Cache == nil {
		return
	}
	// Cache failures are not worth failing an enrichment over.
	_ = c.Cache.Put(source, doi, field, value, notFound)
}
