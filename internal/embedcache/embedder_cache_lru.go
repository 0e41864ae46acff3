package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/ai"
	"paperdex/internal/lang"
)

// WrapLRU memoizes embedding calls in an expirable LRU keyed by
// model, language and content hash. Ranking re-embeds the same document
// summaries on every query change; this keeps that cheap.
func WrapLRU(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, language lang.Language) ([]float32, error) {
	cacheKey := buildCacheKey(l.next.ModelName(), language, text)
	if cached, ok := l.cache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.String("language", string(language)))
		return cloneEmbedding(cached), nil
	}
	res, err := l.next.Embed(ctx, text, language)
	if err != nil {
		return nil, err
	}
	l.cache.Add(cacheKey, cloneEmbedding(res))
	return res, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func buildCacheKey(modelName string, language lang.Language, text string) string {
	hash := sha256.Sum256([]byte(text))
	return "embed:" + modelName + ":" + string(language) + ":" + hex.EncodeToString(hash[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
