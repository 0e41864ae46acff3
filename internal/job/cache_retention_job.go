package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/cache"
)

// CacheRetentionJob prunes analysis cache entries past the retention
// window. Entries for documents still around get rebuilt on the next
// cache miss.
type CacheRetentionJob struct {
	cache         *cache.ContentCache
	retentionDays int
}

func NewCacheRetentionJob(contentCache *cache.ContentCache, retentionDays int) *CacheRetentionJob {
	return &CacheRetentionJob{cache: contentCache, retentionDays: retentionDays}
}

func (j *CacheRetentionJob) Name() string {
	return "cache_retention"
}

func (j *CacheRetentionJob) Run(ctx context.Context) error {
	if j.cache == nil || j.retentionDays <= 0 {
		return nil
	}
	retention := time.Duration(j.retentionDays) * 24 * time.Hour
	pruned, err := j.cache.PruneOlderThan(ctx, retention)
	if err != nil {
		return err
	}
	if pruned > 0 {
		logutil.GetLogger(ctx).Info("pruned cache entries", zap.Int64("count", pruned))
	}
	return nil
}
