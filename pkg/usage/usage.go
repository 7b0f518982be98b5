// Package usage counts conversions per calendar day and remembers the
// preferred conversion type.
package usage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/store"
)

// StoreName is the store the counter shares with the screen machine.
const StoreName = "usage.json"

const (
	keyRequestCount = "request_count"
	keyConvertType  = "convert_type"
	dateLayout      = "2006-01-02"
)

// DateKey is the request_count key for t: its UTC calendar date.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Counter reads and writes usage.json. It keeps no state of its own.
type Counter struct {
	store store.Store
	now   func() time.Time

	// mu serializes read-modify-write cycles on request_count.
	mu sync.Mutex
}

// New returns a counter over st. A nil now uses time.Now.
func New(st store.Store, now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	return &Counter{store: st, now: now}
}

// Records returns every date's count.
func (c *Counter) Records(_ context.Context) (map[string]int, error) {
	counts := map[string]int{}
	if _, err := c.store.Get(keyRequestCount, &counts); err != nil {
		return map[string]int{}, fmt.Errorf("usage: read request counts: %w", err)
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return counts, nil
}

// TodayCount returns the number of requests made today, 0 when none.
func (c *Counter) TodayCount(ctx context.Context) (int, error) {
	counts, err := c.Records(ctx)
	if err != nil {
		return 0, err
	}
	return counts[DateKey(c.now())], nil
}

// Increment adds one request to today's count, saves, and returns the new
// count.
func (c *Counter) Increment(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts, err := c.Records(ctx)
	if err != nil {
		return 0, err
	}
	return c.bump(counts)
}

// IncrementIfBelow adds one request only while today's count is below limit.
// It returns today's count and whether the request was counted; the check
// and the write happen under one lock.
func (c *Counter) IncrementIfBelow(ctx context.Context, limit int) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts, err := c.Records(ctx)
	if err != nil {
		return 0, false, err
	}
	if n := counts[DateKey(c.now())]; n >= limit {
		return n, false, nil
	}
	n, err := c.bump(counts)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *Counter) bump(counts map[string]int) (int, error) {
	key := DateKey(c.now())
	counts[key]++
	if err := c.store.Set(keyRequestCount, counts); err != nil {
		return 0, fmt.Errorf("usage: set request counts: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return 0, fmt.Errorf("usage: save: %w", err)
	}
	return counts[key], nil
}

// Prune drops counts older than keep days and returns how many were removed.
func (c *Counter) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("usage: keep must be at least 1 day, got %d", keep)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	counts, err := c.Records(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := DateKey(c.now().AddDate(0, 0, -(keep - 1)))
	removed := 0
	for day := range counts {
		// Keys are ISO dates so lexical order is chronological.
		if day < cutoff {
			delete(counts, day)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := c.store.Set(keyRequestCount, counts); err != nil {
		return 0, fmt.Errorf("usage: set request counts: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return 0, fmt.Errorf("usage: save: %w", err)
	}
	return removed, nil
}

// Days returns the dates with a recorded count, oldest first.
func Days(counts map[string]int) []string {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// ConvertType returns the remembered conversion type. Missing or unknown
// values yield backend.DefaultConvertType; a read error is returned alongside
// the default.
func (c *Counter) ConvertType(_ context.Context) (backend.ConvertType, error) {
	var raw string
	found, err := c.store.Get(keyConvertType, &raw)
	if err != nil {
		return backend.DefaultConvertType, fmt.Errorf("usage: read convert type: %w", err)
	}
	if !found {
		return backend.DefaultConvertType, nil
	}
	ct, ok := backend.ParseConvertType(raw)
	if !ok {
		return backend.DefaultConvertType, nil
	}
	return ct, nil
}

// SetConvertType remembers ct.
func (c *Counter) SetConvertType(_ context.Context, ct backend.ConvertType) error {
	if _, ok := backend.ParseConvertType(string(ct)); !ok {
		return fmt.Errorf("usage: unknown convert type %q", ct)
	}
	if err := c.store.Set(keyConvertType, string(ct)); err != nil {
		return fmt.Errorf("usage: set convert type: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return fmt.Errorf("usage: save: %w", err)
	}
	return nil
}
