package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/formlab/builder-service/internal/cache"
	"github.com/formlab/builder-service/internal/models"
)

const draftCacheTTL = 10 * time.Minute

// CachedDraftRepository is a read-through cache over a DraftRepository.
// Cache failures degrade to the underlying store; they never fail a read or
// write on their own.
type CachedDraftRepository struct {
	inner  DraftRepository
	cache  cache.CacheService
	logger *slog.Logger
}

func NewCachedDraftRepository(inner DraftRepository, cacheService cache.CacheService, logger *slog.Logger) *CachedDraftRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedDraftRepository{inner: inner, cache: cacheService, logger: logger}
}

func draftCacheKey(projectID string, kind models.BuilderKind) string {
	return fmt.Sprintf("draft:%s:%s", projectID, kind)
}

func (r *CachedDraftRepository) Get(ctx context.Context, projectID string, kind models.BuilderKind) (*models.Draft, error) {
	key := draftCacheKey(projectID, kind)

	var cached models.Draft
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("draft cache read failed, falling through", "key", key, "error", err)
	}

	draft, err := r.inner.Get(ctx, projectID, kind)
	if err != nil || draft == nil {
		return draft, err
	}
	if err := r.cache.Set(ctx, key, draft, draftCacheTTL); err != nil {
		r.logger.Warn("draft cache fill failed", "key", key, "error", err)
	}
	return draft, nil
}

func (r *CachedDraftRepository) Save(ctx context.Context, projectID string, kind models.BuilderKind, questions []models.Question) error {
	if err := r.inner.Save(ctx, projectID, kind, questions); err != nil {
		return err
	}
	// Invalidate rather than rewrite; the next read refills.
	if err := r.cache.Delete(ctx, draftCacheKey(projectID, kind)); err != nil {
		r.logger.Warn("draft cache invalidation failed", "project_id", projectID, "error", err)
	}
	return nil
}

func (r *CachedDraftRepository) Delete(ctx context.Context, projectID string, kind models.BuilderKind) error {
	if err := r.inner.Delete(ctx, projectID, kind); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, draftCacheKey(projectID, kind)); err != nil {
		r.logger.Warn("draft cache invalidation failed", "project_id", projectID, "error", err)
	}
	return nil
}
