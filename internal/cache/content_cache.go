package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/filestore"
	"paperdex/internal/model"
	"paperdex/internal/repo"
)

// ContentCache persists analysis results keyed by the sha256 of the
// document's raw bytes. Two distinct files with identical bytes share
// one entry. The cache is an optimization, never a correctness
// requirement: every I/O failure is logged and swallowed.
type ContentCache struct {
	repo  *repo.AnalysisCacheRepo
	store filestore.Store
}

func New(cacheRepo *repo.AnalysisCacheRepo, store filestore.Store) *ContentCache {
	return &ContentCache{repo: cacheRepo, store: store}
}

// Load returns the cached entry for the content behind key, or nil on
// miss or any failure. Hashing reads the full content on the calling
// goroutine, never on the orchestrating one.
func (c *ContentCache) Load(ctx context.Context, key string) *model.CacheEntry {
	hash, err := c.contentHash(ctx, key)
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache hash failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	entry, ok, err := c.repo.Get(ctx, hash)
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache load failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return entry
}

// Save writes a fresh entry for the content behind key, best-effort.
func (c *ContentCache) Save(ctx context.Context, key, text string, analysis *model.Analysis) {
	hash, err := c.contentHash(ctx, key)
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache hash failed", zap.String("key", key), zap.Error(err))
		return
	}
	entry := &model.CacheEntry{
		ContentHash: hash,
		Text:        text,
		Analysis:    analysis,
		Ctime:       time.Now().Unix(),
	}
	if err := c.repo.Save(ctx, entry); err != nil {
		logutil.GetLogger(ctx).Warn("cache save failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes the entry for the content behind key, best-effort.
func (c *ContentCache) Invalidate(ctx context.Context, key string) {
	hash, err := c.contentHash(ctx, key)
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache hash failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.repo.Delete(ctx, hash); err != nil {
		logutil.GetLogger(ctx).Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

// ClearAll removes every persisted entry. In-memory records are the
// orchestrator's to mark; this only touches the store.
func (c *ContentCache) ClearAll(ctx context.Context) {
	if err := c.repo.DeleteAll(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("cache clear failed", zap.Error(err))
	}
}

// PruneOlderThan drops entries older than the retention window. Used by
// the maintenance job, which does want the error.
func (c *ContentCache) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	return c.repo.DeleteOlderThan(ctx, cutoff)
}

func (c *ContentCache) contentHash(ctx context.Context, key string) (string, error) {
	r, err := c.store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer r.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
