// Package rag implements the retrieval layer of the chat pipeline: an
// in-memory cache of the therapeutic knowledge corpus, similarity
// search over it, the fast off-topic classifier, and prompt composition.
package rag

import (
	"context"
	"sync"
	"time"

	"astra-backend/internal/models"
	"astra-backend/internal/store"

	"go.uber.org/zap"
)

// DocumentCache holds the knowledge corpus in memory and refreshes it
// from the backing store once the cached copy is older than the TTL.
// The corpus is small (tens of entries) and read by every request, so
// staleness bounded by the TTL is an accepted tradeoff.
type DocumentCache struct {
	store  store.Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	docs      []models.KnowledgeDocument
	fetchedAt time.Time
}

func NewDocumentCache(s store.Store, ttl time.Duration, logger *zap.Logger) *DocumentCache {
	return &DocumentCache{
		store:  s,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Documents returns the cached corpus, fetching from the store on the
// first call or after the TTL has elapsed. It never fails: on fetch
// errors the last good copy is returned if one exists, otherwise nil.
func (c *DocumentCache) Documents(ctx context.Context) []models.KnowledgeDocument {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docs != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.docs
	}

	docs, err := c.store.ListKnowledgeDocuments(ctx)
	if err != nil {
		c.logger.Warn("knowledge corpus refresh failed, serving stale copy",
			zap.Error(err),
			zap.Int("stale_count", len(c.docs)))
		return c.docs
	}

	c.docs = docs
	c.fetchedAt = c.now()
	return c.docs
}
