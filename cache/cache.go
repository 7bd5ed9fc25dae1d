package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/richinex/scribe/model"
	"github.com/richinex/scribe/storage"
)

// ResponseCache maps request fingerprints to previously computed responses.
// A failing store is never fatal: reads degrade to misses, writes to no-ops.
type ResponseCache struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates a response cache over the given store.
// A nil logger means slog.Default().
func New(store storage.Store, logger *slog.Logger) *ResponseCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{store: store, logger: logger}
}

// Get returns the cached response for key, if present.
func (c *ResponseCache) Get(ctx context.Context, key string) (*model.Response, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var resp model.Response
	if err := json.Unmarshal([]byte(value), &resp); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

// Set stores the response under key. Entries are replaced wholesale.
func (c *ResponseCache) Set(ctx context.Context, key string, resp *model.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("cache encode failed, skipping write", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, string(data)); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
