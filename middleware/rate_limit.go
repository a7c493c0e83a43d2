package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/princinho/tubebackend/dto"
)

type visitor struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	last    time.Time
}

const (
	defaultVisitorCacheSize = 10_000
	defaultVisitorTTL       = 10 * time.Minute
)

// RateLimitPerIP limits requests per client IP as resolved by gin, so the
// engine's trusted proxies decide whether forwarded headers count. Clients
// are kept in an LRU of cacheSize entries; idle entries are dropped every
// ttl until ctx ends.
func RateLimitPerIP(ctx context.Context, limit, burst, cacheSize int, ttl time.Duration) gin.HandlerFunc {
	if cacheSize <= 0 {
		cacheSize = defaultVisitorCacheSize
	}
	if ttl <= 0 {
		ttl = defaultVisitorTTL
	}
	// lru.New only fails for a non-positive size
	visitors, _ := lru.New[string, *visitor](cacheSize)

	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, key := range visitors.Keys() {
					if v, ok := visitors.Peek(key); ok && v.idleFor() > ttl {
						visitors.Remove(key)
					}
				}
			}
		}
	}()

	return func(c *gin.Context) {
		host := c.ClientIP()

		v, ok := visitors.Get(host)
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(limit), burst)}
			visitors.Add(host, v)
		}
		v.touch()

		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewApiError(http.StatusTooManyRequests, "Too many requests"))
			return
		}
		c.Next()
	}
}

func (v *visitor) touch() {
	v.mu.Lock()
	v.last = time.Now()
	v.mu.Unlock()
}

func (v *visitor) idleFor() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return time.Since(v.last)
}
