package cache

import (
	"strings"
	"time"

	"github.com/coocood/freecache"
)

const (
	defaultLocationCacheSize = 1 << 20
	defaultLocationTTL       = 10 * time.Minute
)

// LocationCache stores organization timezone names keyed by org id.
type LocationCache interface {
	Get(orgID string) (string, bool)
	Set(orgID, timezone string)
	Delete(orgID string)
}

type locationCache struct {
	cache *freecache.Cache
	ttl   time.Duration
}

// NewLocationCache returns an in-process cache for timezone lookups.
func NewLocationCache() LocationCache {
	return newLocationCache(defaultLocationCacheSize, defaultLocationTTL)
}

func newLocationCache(size int, ttl time.Duration) *locationCache {
	return &locationCache{
		cache: freecache.NewCache(size),
		ttl:   ttl,
	}
}

func (c *locationCache) Get(orgID string) (string, bool) {
	data, err := c.cache.Get(cacheKey(orgID))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *locationCache) Set(orgID, timezone string) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return
	}
	_ = c.cache.Set(cacheKey(orgID), []byte(timezone), int(c.ttl.Seconds()))
}

func (c *locationCache) Delete(orgID string) {
	c.cache.Del(cacheKey(orgID))
}

func cacheKey(orgID string) []byte {
	return []byte("org_tz:" + strings.TrimSpace(orgID))
}
