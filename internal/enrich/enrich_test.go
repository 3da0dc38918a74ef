// Copyright Caddis Lab, 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	backoffBase = time.Millisecond
	rateLimitDelay = time.Millisecond
}

// fakeSource returns scripted results per call and counts invocations.
type fakeSource struct {
	name    string
	calls   atomic.Int64
	results []fakeResult
}

type fakeResult struct {
	value string
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchAbstract(ctx context.Context, doi string) (string, error) {
	n := int(f.calls.Add(1)) - 1
	if n >= len(f.results) {
		n = len(f.results) - 1
	}
	r := f.results[n]
	return r.value, r.err
}

func newCascade(sources ...AbstractSource) *Cascade {
	return &Cascade{Abstracts: sources, RequestInterval: time.Microsecond}
}

func TestFetchAbstractFirstSourceWins(t *testing.T) {
	first := &fakeSource{name: "first", results: []fakeResult{{value: "from first"}}}
	second := &fakeSource{name: "second", results: []fakeResult{{value: "from second"}}}
	c := newCascade(first, second)

	value, source, _ := c.FetchAbstract(context.Background(), "10.1/x")
	if value != "from first" || source != "first" {
		t.Errorf("got (%q, %q), want abstract from first source", value, source)
	}
	if second.calls.Load() != 0 {
		t.Errorf("second source called %d times, want 0", second.calls.Load())
	}
}

func TestFetchAbstractCascadesPastNotFound(t *testing.T) {
	first := &fakeSource{name: "first", results: []fakeResult{{err: ErrNotFound}}}
	second := &fakeSource{name: "second", results: []fakeResult{{value: "rescued"}}}
	c := newCascade(first, second)

	value, source, attempts := c.FetchAbstract(context.Background(), "10.1/x")
	if value != "rescued" || source != "second" {
		t.Fatalf("got (%q, %q), want rescue by second source", value, source)
	}
	// Not-found is definitive: no retries against the first source.
	if first.calls.Load() != 1 {
		t.Errorf("first source called %d times, want 1", first.calls.Load())
	}
	if len(attempts) != 2 || attempts[0].Status != AttemptNotFound || attempts[1].Status != AttemptFilled {
		t.Errorf("attempts = %v, want [not_found filled]", attempts)
	}
}

func TestFetchAbstractRetriesTransientErrors(t *testing.T) {
	flaky := &fakeSource{name: "flaky", results: []fakeResult{
		{err: errors.New("timeout")},
		{err: errors.New("timeout")},
		{value: "third time lucky"},
	}}
	c := newCascade(flaky)

	value, source, _ := c.FetchAbstract(context.Background(), "10.1/x")
	if value != "third time lucky" || source != "flaky" {
		t.Fatalf("got (%q, %q), want success on third attempt", value, source)
	}
	if flaky.calls.Load() != 3 {
		t.Errorf("source called %d times, want 3", flaky.calls.Load())
	}
}

// A source that keeps timing out is exhausted after three attempts, a 404
// source is dropped after one, and the cascade still succeeds on the next
// source in line.
func TestFetchAbstractFullCascade(t *testing.T) {
	down := &fakeSource{name: "down", results: []fakeResult{{err: errors.New("connection timed out")}}}
	missing := &fakeSource{name: "missing", results: []fakeResult{{err: ErrNotFound}}}
	working := &fakeSource{name: "working", results: []fakeResult{{value: "the abstract"}}}
	c := newCascade(down, missing, working)

	value, source, attempts := c.FetchAbstract(context.Background(), "10.1/x")
	if value != "the abstract" || source != "working" {
		t.Fatalf("got (%q, %q), want success attributed to third source", value, source)
	}
	if down.calls.Load() != 3 {
		t.Errorf("failing source called %d times, want 3 retries", down.calls.Load())
	}
	if missing.calls.Load() != 1 {
		t.Errorf("404 source called %d times, want 1", missing.calls.Load())
	}
	want := []AttemptStatus{AttemptError, AttemptNotFound, AttemptFilled}
	for i, a := range attempts {
		if a.Status != want[i] {
			t.Errorf("attempt %d status = %s, want %s", i, a.Status, want[i])
		}
	}
}

func TestFetchAbstractAllExhausted(t *testing.T) {
	a := &fakeSource{name: "a", results: []fakeResult{{err: ErrNotFound}}}
	b := &fakeSource{name: "b", results: []fakeResult{{err: errors.New("boom")}}}
	c := newCascade(a, b)

	value, source, _ := c.FetchAbstract(context.Background(), "10.1/x")
	if value != "" || source != "" {
		t.Errorf("got (%q, %q), want empty outcome", value, source)
	}
}

func TestFetchAbstractEmptyDOI(t *testing.T) {
	src := &fakeSource{name: "a", results: []fakeResult{{value: "never"}}}
	c := newCascade(src)

	value, source, attempts := c.FetchAbstract(context.Background(), "")
	if value != "" || source != "" || attempts != nil {
		t.Errorf("got (%q, %q, %v), want no lookup for empty DOI", value, source, attempts)
	}
	if src.calls.Load() != 0 {
		t.Errorf("source called %d times for empty DOI, want 0", src.calls.Load())
	}
}

func TestFetchAbstractRateLimitRetried(t *testing.T) {
	limited := &fakeSource{name: "limited", results: []fakeResult{
		{err: ErrRateLimited},
		{value: "after cooldown"},
	}}
	c := newCascade(limited)

	value, _, _ := c.FetchAbstract(context.Background(), "10.1/x")
	if value != "after cooldown" {
		t.Fatalf("got %q, want success after rate-limit retry", value)
	}
	if limited.calls.Load() != 2 {
		t.Errorf("source called %d times, want 2", limited.calls.Load())
	}
}

func TestFetchAbstractContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	down := &fakeSource{name: "down", results: []fakeResult{{err: errors.New("timeout")}}}
	c := newCascade(down)

	value, source, _ := c.FetchAbstract(ctx, "10.1/x")
	if value != "" || source != "" {
		t.Errorf("got (%q, %q), want empty outcome on cancelled context", value, source)
	}
}

// memCache is an in-memory Cache for cascade tests.
type memCache struct {
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    string
	notFound bool
}

func (m *memCache) key(source, doi, field string) string { return source + "|" + doi + "|" + field }

func (m *memCache) Get(source, doi, field string) (string, bool, bool) {
	e, ok := m.entries[m.key(source, doi, field)]
	return e.value, e.notFound, ok
}

func (m *memCache) Put(source, doi, field, value string, notFound bool) error {
	if m.entries == nil {
		m.entries = make(map[string]cacheEntry)
	}
	m.entries[m.key(source, doi, field)] = cacheEntry{value: value, notFound: notFound}
	return nil
}

func TestFetchAbstractUsesCache(t *testing.T) {
	src := &fakeSource{name: "src", results: []fakeResult{{value: "cached once"}}}
	c := newCascade(src)
	c.Cache = &memCache{}

	for i := 0; i < 3; i++ {
		value, source, _ := c.FetchAbstract(context.Background(), "10.1/x")
		if value != "cached once" || source != "src" {
			t.Fatalf("lookup %d: got (%q, %q)", i, value, source)
		}
	}
	if src.calls.Load() != 1 {
		t.Errorf("source called %d times, want 1 with warm cache", src.calls.Load())
	}
}

func TestFetchAbstractCachesNotFound(t *testing.T) {
	src := &fakeSource{name: "src", results: []fakeResult{{err: ErrNotFound}}}
	c := newCascade(src)
	c.Cache = &memCache{}

	for i := 0; i < 2; i++ {
		if value, _, _ := c.FetchAbstract(context.Background(), "10.1/x"); value != "" {
			t.Fatalf("lookup %d: got %q, want empty", i, value)
		}
	}
	if src.calls.Load() != 1 {
		t.Errorf("source called %d times, want 1 with cached not-found", src.calls.Load())
	}
}
