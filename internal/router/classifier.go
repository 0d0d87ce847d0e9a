package router

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/providers"
)

// Classifier embeds reference prompts into per-tier centroids once at
// startup, then scores incoming prompts against them by cosine similarity
// (spec §4.2 "Classifier"). It is safe for concurrent use.
type Classifier struct {
	embedder providers.Embedder
	cfg      config.RouterClassifierCfg

	mu        sync.RWMutex
	centroids map[string][]float32
	warm      bool

	cache   *lru.Cache
	limiter *rate.Limiter
}

type cacheEntry struct {
	tier      string
	score     float64
	expiresAt time.Time
}

// NewClassifier builds a classifier bound to a single embedding-capable
// provider. Call Warm before first use.
func NewClassifier(embedder providers.Embedder, cfg config.RouterClassifierCfg) *Classifier {
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	cache, _ := lru.New(size)

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Classifier{
		embedder: embedder,
		cfg:      cfg,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Warm embeds every reference prompt and averages each tier's vectors into
// a centroid. Safe to call once at startup; a second call recomputes.
func (c *Classifier) Warm(ctx context.Context) error {
	if c.embedder == nil {
		return nil
	}
	centroids := make(map[string][]float32, len(referencePrompts))
	for tier, prompts := range referencePrompts {
		var sum []float32
		var n int
		for _, p := range prompts {
			vec, err := c.embedder.Embed(ctx, p)
			if err != nil {
				continue
			}
			if sum == nil {
				sum = make([]float32, len(vec))
			}
			for i, v := range vec {
				if i < len(sum) {
					sum[i] += v
				}
			}
			n++
		}
		if n == 0 {
			continue
		}
		for i := range sum {
			sum[i] /= float32(n)
		}
		centroids[tier] = sum
	}

	c.mu.Lock()
	c.centroids = centroids
	c.warm = true
	c.mu.Unlock()
	return nil
}

// Classify returns the best-matching tier and its similarity score for a
// prompt, honoring a bounded timeout and an LRU result cache keyed by a
// hash of the prompt. An embedding failure, timeout, or an un-warmed
// classifier is reported as "no classification" via ok=false.
func (c *Classifier) Classify(ctx context.Context, prompt string) (tier string, score float64, ok bool) {
	c.mu.RLock()
	warm := c.warm
	centroids := c.centroids
	c.mu.RUnlock()
	if !warm || c.embedder == nil || len(centroids) == 0 {
		return "", 0, false
	}

	key := hashPrompt(prompt)
	if v, found := c.cache.Get(key); found {
		entry := v.(cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.tier, entry.score, true
		}
		c.cache.Remove(key)
	}

	if c.limiter != nil && !c.limiter.Allow() {
		return "", 0, false
	}

	timeout := time.Duration(c.cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := c.embedder.Embed(cctx, prompt)
	if err != nil {
		return "", 0, false
	}

	bestTier, bestScore := "", -2.0
	for t, centroid := range centroids {
		s := cosineSimilarity(vec, centroid)
		if s > bestScore {
			bestTier, bestScore = t, s
		}
	}
	if bestTier == "" {
		return "", 0, false
	}

	ttl := time.Duration(c.cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	c.cache.Add(key, cacheEntry{tier: bestTier, score: bestScore, expiresAt: time.Now().Add(ttl)})

	return bestTier, bestScore, true
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
