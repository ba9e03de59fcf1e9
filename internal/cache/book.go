package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

// Cache key prefixes and TTLs.
const (
	bookKeyPrefix     = "book:"
	negCacheKeySuffix = ":neg"

	// DefaultBookTTL is the TTL for cached book metadata.
	DefaultBookTTL = 24 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetBook retrieves book metadata from cache by book ID.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetBook(ctx context.Context, bookID string) (*model.CachedBook, error) {
	key := bookKeyPrefix + bookID

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedBook{
		ISBN:      result["isbn"],
		Title:     result["title"],
		Author:    result["author"],
		UpdatedAt: result["updated_at"],
	}

	return cached, nil
}

// SetBook stores book metadata in cache. Availability is never cached;
// it is projected from copy state on every read.
func (c *Cache) SetBook(ctx context.Context, book *model.Book) error {
	key := bookKeyPrefix + book.ID
	cached := book.ToCachedBook()

	fields := map[string]any{
		"isbn":       cached.ISBN,
		"title":      cached.Title,
		"author":     cached.Author,
		"updated_at": cached.UpdatedAt,
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultBookTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cache book: %w", err)
	}

	// Remove negative cache if exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteBook removes a book from cache.
func (c *Cache) DeleteBook(ctx context.Context, bookID string) error {
	key := bookKeyPrefix + bookID

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete book from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a book ID is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, bookID string) (bool, error) {
	key := bookKeyPrefix + bookID + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a book ID as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, bookID string) error {
	key := bookKeyPrefix + bookID + negCacheKeySuffix

	err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
