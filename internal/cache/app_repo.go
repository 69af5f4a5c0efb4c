package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/metrics"
	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// AppRepo decorates an AppRepository with read-through caching of GetByID.
// Redis failures degrade to the inner repository.
type AppRepo struct {
	inner repository.AppRepository
	cache *Cache
	ttl   time.Duration
	log   *zap.Logger
}

var _ repository.AppRepository = (*AppRepo)(nil)

// NewAppRepo constructs the caching decorator.
func NewAppRepo(inner repository.AppRepository, c *Cache, ttl time.Duration, log *zap.Logger) *AppRepo {
	return &AppRepo{inner: inner, cache: c, ttl: ttl, log: log}
}

// GetByID serves from cache, falling back to the inner repository on a miss.
func (r *AppRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.EchoApp, error) {
	app, err := r.cache.GetApp(ctx, id)
	switch {
	case err == nil && app == nil:
		metrics.IncCacheRequest("app", "negative_hit")
		return nil, errs.ErrNotFound
	case err == nil:
		metrics.IncCacheRequest("app", "hit")
		return app, nil
	case errors.Is(err, ErrCacheMiss):
		metrics.IncCacheRequest("app", "miss")
	default:
		metrics.IncCacheRequest("app", "error")
		r.log.Warn("app cache read failed", zap.String("app_id", id.String()), zap.Error(err))
	}

	app, err = r.inner.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		if cerr := r.cache.SetAppMissing(ctx, id); cerr != nil {
			r.log.Warn("app cache write failed", zap.String("app_id", id.String()), zap.Error(cerr))
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if cerr := r.cache.SetApp(ctx, app, r.ttl); cerr != nil {
		r.log.Warn("app cache write failed", zap.String("app_id", id.String()), zap.Error(cerr))
	}
	return app, nil
}

// Create inserts through and drops any negative entry.
func (r *AppRepo) Create(ctx context.Context, app *model.EchoApp) error {
	if err := r.inner.Create(ctx, app); err != nil {
		return err
	}
	if err := r.cache.DeleteApp(ctx, app.ID); err != nil {
		r.log.Warn("app cache delete failed", zap.String("app_id", app.ID.String()), zap.Error(err))
	}
	return nil
}

func (r *AppRepo) ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]model.EchoApp, error) {
	return r.inner.ListOwnedBy(ctx, userID)
}

func (r *AppRepo) AddMember(ctx context.Context, m model.AppMembership) error {
	return r.inner.AddMember(ctx, m)
}

func (r *AppRepo) MemberRole(ctx context.Context, appID, userID uuid.UUID) (string, error) {
	return r.inner.MemberRole(ctx, appID, userID)
}
