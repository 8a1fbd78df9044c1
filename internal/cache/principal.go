package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parley/parley/internal/model"
)

const (
	// principalCachePrefix is the Redis key prefix for verified principals.
	principalCachePrefix = "auth:principal:"
	// principalCacheTTL bounds how long a verified credential is trusted
	// without re-verification.
	principalCacheTTL = 5 * time.Minute
)

// cachedPrincipal is the stored form of a verified principal.
type cachedPrincipal struct {
	SubjectID   string `json:"sub"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	PhotoURL    string `json:"picture,omitempty"`
}

// GetPrincipal retrieves a cached principal by token digest.
// Returns nil on cache miss.
func (c *Cache) GetPrincipal(ctx context.Context, digest string) (*model.Principal, error) {
	key := principalCachePrefix + digest

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedPrincipal
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.Principal{
		SubjectID:   cached.SubjectID,
		Email:       cached.Email,
		DisplayName: cached.DisplayName,
		PhotoURL:    cached.PhotoURL,
	}, nil
}

// SetPrincipal caches a verified principal under its token digest.
func (c *Cache) SetPrincipal(ctx context.Context, digest string, p *model.Principal) error {
	key := principalCachePrefix + digest

	cached := cachedPrincipal{
		SubjectID:   p.SubjectID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}

	return c.client.Set(ctx, key, data, principalCacheTTL).Err()
}
