package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	RequestsPerSecond float64       // Sustained rate per key
	BurstSize         int           // Maximum burst per key
	CleanupInterval   time.Duration // How often idle keys are swept
	TTL               time.Duration // How long an idle key is kept
}

// keyFunc extracts the bucket key from a request. Requests without a key
// are not limited.
type keyFunc func(r *http.Request) (string, bool)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key: the client IP or the
// authenticated user.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	key     keyFunc

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter limits requests per client IP.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, func(r *http.Request) (string, bool) {
		return getClientIP(r), true
	})
}

// NewUserRateLimiter limits requests per authenticated user. It must run
// after JWTMiddleware; anonymous requests pass through.
func NewUserRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, func(r *http.Request) (string, bool) {
		claims, ok := GetClaims(r.Context())
		if !ok {
			return "", false
		}
		return "user:" + strconv.FormatInt(claims.UserID, 10), true
	})
}

func newRateLimiter(cfg RateLimiterConfig, key keyFunc) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}

	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.BurstSize,
		ttl:     cfg.TTL,
		key:     key,
		stop:    make(chan struct{}),
	}
	go rl.sweep(cfg.CleanupInterval)
	return rl
}

// reserve takes a token for key. When none is available it returns the
// wait until the next one.
func (rl *RateLimiter) reserve(key string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.lastSeen) > rl.ttl {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := rl.key(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if allowed, wait := rl.reserve(key); !allowed {
			seconds := int(math.Ceil(wait.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "RATE_LIMITED")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return stripPort(strings.TrimSpace(first))
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
