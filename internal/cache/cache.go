// Package cache fetches upstream JSON documents and keeps one copy per key,
// refreshed at most once per clock hour.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"splatbot/internal/kvstore"
)

// Entry is what gets persisted under a cache key.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // epoch milliseconds
}

// Resource names an upstream document and the key it is cached under.
type Resource struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// UpstreamFetchError reports a transport failure or a non-2xx response while refreshing.
type UpstreamFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch data from %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch data from %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// Cache is a get-or-fetch store over a kvstore.Store.
//
// Freshness compares only the hour of day (0-23) of the cached timestamp and
// the current time in the cache's location. An entry from 10:59 is stale at
// 11:00, while an entry left untouched for exactly a day reads as fresh again.
// There is no locking: concurrent misses may each fetch and overwrite the key.
type Cache struct {
	store      kvstore.Store
	httpClient *http.Client
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Cache)

// WithHTTPClient sets the client used for upstream requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.httpClient = client }
}

// WithLocation sets the zone whose hour of day decides freshness.
func WithLocation(loc *time.Location) Option {
	return func(c *Cache) { c.location = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func New(store kvstore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		location:   time.Local,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func storeKey(key string) string {
	return "cache:" + key
}

// Get is GetOrFetch for a catalog resource.
func (c *Cache) Get(ctx context.Context, r Resource) (json.RawMessage, error) {
	return c.GetOrFetch(ctx, r.Key, r.URL)
}

// GetOrFetch returns the payload cached under key when it was fetched in the
// current hour of day, and otherwise fetches sourceURL and overwrites the entry.
// Fetch failures are not cached and leave any stale entry in place.
func (c *Cache) GetOrFetch(ctx context.Context, key, sourceURL string) (json.RawMessage, error) {
	now := c.now().In(c.location)

	entry, ok := c.load(ctx, key)
	if ok {
		cachedHour := time.UnixMilli(entry.Timestamp).In(c.location).Hour()
		if cachedHour == now.Hour() {
			c.logger.Debug("cache hit", "key", key)
			return entry.Data, nil
		}
		c.logger.Info("cache outdated", "key", key, "cached_hour", cachedHour, "current_hour", now.Hour())
	} else {
		c.logger.Info("no cache found", "key", key)
	}

	return c.fetch(ctx, key, sourceURL, now)
}

// Refresh fetches sourceURL unconditionally and overwrites the entry.
func (c *Cache) Refresh(ctx context.Context, key, sourceURL string) (json.RawMessage, error) {
	return c.fetch(ctx, key, sourceURL, c.now().In(c.location))
}

// Info describes the current state of one cache key.
type Info struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Cached    bool      `json:"cached"`
	Fresh     bool      `json:"fresh"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Size      string    `json:"size,omitempty"`
}

func (c *Cache) Info(ctx context.Context, r Resource) Info {
	info := Info{Key: r.Key, URL: r.URL}
	entry, ok := c.load(ctx, r.Key)
	if !ok {
		return info
	}

	fetchedAt := time.UnixMilli(entry.Timestamp).In(c.location)
	info.Cached = true
	info.FetchedAt = fetchedAt
	info.Fresh = fetchedAt.Hour() == c.now().In(c.location).Hour()
	info.Size = humanize.Bytes(uint64(len(entry.Data)))
	return info
}

// load treats unreadable or corrupt entries as misses.
func (c *Cache) load(ctx context.Context, key string) (*Entry, bool) {
	raw, ok, err := c.store.Get(ctx, storeKey(key))
	if err != nil {
		c.logger.Warn("failed to read cache entry", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("failed to decode cache entry", "key", key, "error", err)
		return nil, false
	}
	return &entry, true
}

func (c *Cache) fetch(ctx context.Context, key, sourceURL string, now time.Time) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, &UpstreamFetchError{URL: sourceURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamFetchError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamFetchError{URL: sourceURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamFetchError{URL: sourceURL, Err: errors.Wrap(err, "failed to read response body")}
	}

	// Compacted so a later hit returns exactly the bytes this miss returns.
	var payload bytes.Buffer
	if err := json.Compact(&payload, body); err != nil {
		return nil, &UpstreamFetchError{URL: sourceURL, Err: errors.Wrap(err, "response is not valid JSON")}
	}

	entry := Entry{Data: payload.Bytes(), Timestamp: now.UnixMilli()}
	if err := c.save(ctx, key, entry); err != nil {
		c.logger.Warn("failed to update cache", "key", key, "error", err)
	} else {
		c.logger.Info("cache updated", "key", key, "size", humanize.Bytes(uint64(payload.Len())))
	}
	return entry.Data, nil
}

func (c *Cache) save(ctx context.Context, key string, entry Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return errors.Wrap(err, "failed to encode cache entry")
	}
	return c.store.Set(ctx, storeKey(key), buf.Bytes())
}
