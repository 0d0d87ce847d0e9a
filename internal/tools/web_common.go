package tools

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/serialagent/gateway/internal/net/ssrf"
)

const (
	defaultCacheTTL        = 10 * time.Minute
	defaultCacheMaxEntries = 256
)

// checkSSRF rejects a URL whose host is a blocked name or resolves to a
// private/internal address, before web_fetch or a search provider dials it.
func checkSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname")
	}
	return ssrf.ValidateOutboundHost(host)
}

// wrapExternalContent brackets fetched/searched content with a boundary the
// agent's prompt can use to distinguish it from trusted instructions. When
// citeSource is true the wrapper calls out that the text came off the web.
func wrapExternalContent(content, label string, citeSource bool) string {
	if !citeSource {
		return content
	}
	return fmt.Sprintf("[%s result below, fetched from the public internet]\n%s", label, content)
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// webCache is a small TTL-bounded LRU shared by web_fetch and web_search so
// repeated lookups within a turn don't re-issue outbound requests.
type webCache struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
}

func newWebCache(maxEntries int, ttl time.Duration) *webCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c, _ := lru.New(maxEntries)
	return &webCache{cache: c, ttl: ttl}
}

func (c *webCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	entry := v.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return "", false
	}
	return entry.value, true
}

func (c *webCache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)})
}
