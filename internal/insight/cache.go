// Package insight caches the per-month blurb fetched from a remote
// generative provider.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	appLog "tetcal/internal/log"
	"tetcal/internal/model"
	"tetcal/internal/persist"
)

const DefaultKey = "calendar_insights_2026"

// Fallback is returned whenever the provider cannot produce an insight. It is
// never written to the cache.
var Fallback = model.MonthInsight{
	Vibe:       "Tích cực & Năng lượng",
	Suggestion: "Lên kế hoạch cho những mục tiêu mới.",
	Quote:      "Hành trình vạn dặm bắt đầu từ một bước chân nhỏ bé.",
}

// ErrIncomplete is returned by providers when a response lacks a field.
var ErrIncomplete = errors.New("insight: response missing required fields")

// Provider fetches a fresh insight for a month display name.
type Provider interface {
	FetchMonthInsight(ctx context.Context, monthName string) (model.MonthInsight, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, monthName string) (model.MonthInsight, error)

func (f ProviderFunc) FetchMonthInsight(ctx context.Context, monthName string) (model.MonthInsight, error) {
	return f(ctx, monthName)
}

// Cache memoises provider results per month name, persisted as one JSON
// object under a single key. Entries never expire.
type Cache struct {
	port     persist.Store
	provider Provider
	key      string
	fallback model.MonthInsight

	// mu serialises read-modify-write of the persisted mapping. It is never
	// held across a provider call.
	mu sync.Mutex
}

type CacheOption func(*Cache)

func WithCacheKey(key string) CacheOption {
	return func(c *Cache) { c.key = key }
}

func WithFallback(f model.MonthInsight) CacheOption {
	return func(c *Cache) { c.fallback = f }
}

func NewCache(port persist.Store, provider Provider, opts ...CacheOption) *Cache {
	c := &Cache{
		port:     port,
		provider: provider,
		key:      DefaultKey,
		fallback: Fallback,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached insight for monthName, fetching and storing it on a
// miss. Provider failures of any kind yield the fallback, which is not
// cached, so a later call retries the provider.
//
// Two concurrent misses for the same month may both reach the provider; the
// last one to finish wins the cache slot.
func (c *Cache) Get(ctx context.Context, monthName string) model.MonthInsight {
	if v, ok := c.Lookup(monthName); ok {
		return v
	}

	v, err := c.fetch(ctx, monthName)
	if err != nil {
		appLog.Error("month insight fetch failed; using fallback", err, "month", monthName)
		return c.fallback
	}

	c.store(monthName, v)
	return v
}

// Lookup returns the cached value without contacting the provider.
func (c *Cache) Lookup(monthName string) (model.MonthInsight, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.load()[monthName]
	return v, ok
}

// Prefetch warms the cache for each month name in turn, skipping months that
// are already cached. It returns how many were newly stored.
func (c *Cache) Prefetch(ctx context.Context, monthNames ...string) int {
	stored := 0
	for _, name := range monthNames {
		if ctx.Err() != nil {
			break
		}
		if _, ok := c.Lookup(name); ok {
			continue
		}
		v, err := c.fetch(ctx, name)
		if err != nil {
			appLog.Error("month insight prefetch failed", err, "month", name)
			continue
		}
		c.store(name, v)
		stored++
	}
	return stored
}

func (c *Cache) fetch(ctx context.Context, monthName string) (v model.MonthInsight, err error) {
	if c.provider == nil {
		return v, errors.New("insight: no provider configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("insight: provider panic: %v", r)
		}
	}()

	v, err = c.provider.FetchMonthInsight(ctx, monthName)
	if err != nil {
		return v, err
	}
	if !v.Complete() {
		return v, ErrIncomplete
	}
	return v, nil
}

// store inserts one entry and rewrites the whole mapping.
func (c *Cache) store(monthName string, v model.MonthInsight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.load()
	m[monthName] = v

	data, err := json.Marshal(m)
	if err != nil {
		appLog.Error("insight cache marshal failed", err, "key", c.key)
		return
	}
	if err := c.port.Save(c.key, data); err != nil {
		appLog.Error("insight cache save failed", err, "key", c.key, "month", monthName)
		return
	}
	appLog.Debug("insight cached", "month", monthName, "entries", len(m))
}

// load reads the persisted mapping; absent or corrupt data is an empty map.
// mu must be held.
func (c *Cache) load() map[string]model.MonthInsight {
	m := make(map[string]model.MonthInsight)

	data, err := c.port.Load(c.key)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			appLog.Error("insight cache load failed", err, "key", c.key)
		}
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		appLog.Error("insight cache corrupt; ignoring", err, "key", c.key)
		return make(map[string]model.MonthInsight)
	}
	if m == nil {
		m = make(map[string]model.MonthInsight)
	}
	return m
}
