package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ArDnath/echo/internal/model"
)

const (
	appKeyPrefix = "echo:app:"

	// NegativeAppTTL bounds how long an unknown app id is remembered.
	NegativeAppTTL = 30 * time.Second
)

// cachedApp is the JSON form of an EchoApp. Missing marks a negative entry.
type cachedApp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	Missing     bool      `json:"missing,omitempty"`
}

func appKey(id uuid.UUID) string { return appKeyPrefix + id.String() }

// GetApp returns the cached app. A negative entry yields (nil, nil);
// an absent key yields ErrCacheMiss.
func (c *Cache) GetApp(ctx context.Context, id uuid.UUID) (*model.EchoApp, error) {
	data, err := c.client.Get(ctx, appKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var ca cachedApp
	if err := json.Unmarshal(data, &ca); err != nil {
		// Corrupted entry - treat as miss
		return nil, ErrCacheMiss
	}
	if ca.Missing {
		return nil, nil
	}
	appID, err := uuid.FromString(ca.ID)
	if err != nil {
		return nil, ErrCacheMiss
	}
	return &model.EchoApp{
		ID:          appID,
		Name:        ca.Name,
		Description: ca.Description,
		IsArchived:  ca.IsArchived,
		CreatedAt:   ca.CreatedAt,
	}, nil
}

// SetApp caches an app for ttl.
func (c *Cache) SetApp(ctx context.Context, app *model.EchoApp, ttl time.Duration) error {
	data, err := json.Marshal(cachedApp{
		ID:          app.ID.String(),
		Name:        app.Name,
		Description: app.Description,
		IsArchived:  app.IsArchived,
		CreatedAt:   app.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal app: %w", err)
	}
	return c.client.Set(ctx, appKey(app.ID), data, ttl).Err()
}

// SetAppMissing remembers that id does not exist.
func (c *Cache) SetAppMissing(ctx context.Context, id uuid.UUID) error {
	data, _ := json.Marshal(cachedApp{ID: id.String(), Missing: true})
	return c.client.Set(ctx, appKey(id), data, NegativeAppTTL).Err()
}

// DeleteApp drops any cached entry for id.
func (c *Cache) DeleteApp(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, appKey(id)).Err()
}
