package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

const (
	// authCachePrefix keys cached staff-key auth contexts.
	authCachePrefix = "auth:ctx:"
	// authCacheTTL bounds how long a revoked key keeps authenticating.
	authCacheTTL = 5 * time.Minute
)

// CachedAuthContext is the Redis representation of an auth context.
type CachedAuthContext struct {
	KeyID         string   `json:"key_id"`
	KeyPrefix     string   `json:"key_prefix"`
	UserID        string   `json:"user_id"`
	Scopes        []string `json:"scopes"`
	RateLimitTier string   `json:"rate_limit_tier"`
}

// GetAuthContext retrieves a cached auth context. A missing or
// corrupted entry returns nil, nil; the caller falls back to the
// database.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		KeyID:         cached.KeyID,
		KeyPrefix:     cached.KeyPrefix,
		UserID:        cached.UserID,
		Scopes:        cached.Scopes,
		RateLimitTier: cached.RateLimitTier,
	}, nil
}

// SetAuthContext caches a verified auth context.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	cached := CachedAuthContext{
		KeyID:         auth.KeyID,
		KeyPrefix:     auth.KeyPrefix,
		UserID:        auth.UserID,
		Scopes:        auth.Scopes,
		RateLimitTier: auth.RateLimitTier,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+cacheKey, data, authCacheTTL).Err()
}

// DeleteAuthContext drops a cached auth context on key revocation.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, authCachePrefix+cacheKey).Err()
}

// InvalidateUserAuthContexts would drop every cached context for a
// user. Not implemented: it needs a key scan, and revocation already
// goes through DeleteAuthContext per key; the TTL covers the rest.
func (c *Cache) InvalidateUserAuthContexts(ctx context.Context, userID string) error {
	return nil
}
