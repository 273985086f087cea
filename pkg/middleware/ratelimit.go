package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/audit"
	"github.com/platinummonkey/tartalacrm/pkg/httputil"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// LoginRateLimitConfig returns the limits applied to /get_token: perMinute
// attempts per client address, without burst.
func LoginRateLimitConfig(perMinute int) *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: perMinute,
		WindowDuration:    time.Minute,
	}
}

// Limiter decides whether the request identified by key may proceed. When it
// may not, retryAfter tells when to try again.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimiter implements rate limiting using token bucket algorithm
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
	now     func() time.Time
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new in-memory rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = LoginRateLimitConfig(10)
	}
	if config.RequestsPerWindow < 1 {
		config.RequestsPerWindow = 1
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (rl *RateLimiter) capacity() int {
	return rl.config.RequestsPerWindow + rl.config.BurstSize
}

// refillEvery is the time it takes to earn one token back.
func (rl *RateLimiter) refillEvery() time.Duration {
	return rl.config.WindowDuration / time.Duration(rl.config.RequestsPerWindow)
}

// Allow takes a token from the bucket of key
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.capacity(),
			lastUpdate: rl.now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(b.lastUpdate)

	tokensToAdd := int(elapsed / rl.refillEvery())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		if b.tokens > rl.capacity() {
			b.tokens = rl.capacity()
		}
		b.lastUpdate = b.lastUpdate.Add(time.Duration(tokensToAdd) * rl.refillEvery())
	}

	if b.tokens > 0 {
		b.tokens--
		return true, 0, nil
	}
	return false, rl.refillEvery() - now.Sub(b.lastUpdate), nil
}

// Remaining returns the number of remaining tokens for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		return rl.capacity()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tokens
}

// Cleanup removes buckets idle for more than two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// StartCleanup starts a background goroutine to cleanup old buckets
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer observability.RecoverPanic(observability.GetLogger(ctx), "rate limiter cleanup")
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// LoginRateLimit throttles login attempts per client address. Limiter
// failures let the request through.
type LoginRateLimit struct {
	limiter Limiter
	audit   audit.Logger
	metrics *observability.Metrics
}

// NewLoginRateLimit creates the middleware. auditLogger and metrics may be nil.
func NewLoginRateLimit(limiter Limiter, auditLogger audit.Logger, metrics *observability.Metrics) *LoginRateLimit {
	if auditLogger == nil {
		auditLogger = audit.NoOp()
	}
	return &LoginRateLimit{
		limiter: limiter,
		audit:   auditLogger,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with the login rate limit
func (m *LoginRateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := httputil.ClientIP(r)

		allowed, retryAfter, err := m.limiter.Allow(ctx, "login:"+ip)
		if err != nil {
			observability.FromContext(ctx).WithError(err).Warn("login rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		if m.metrics != nil {
			m.metrics.RateLimitedTotal.Inc()
		}
		event := audit.NewEvent(ctx, audit.EventTypeAuthLoginThrottled, audit.EventStatusDenied)
		event.IPAddress = ip
		event.Message = "too many login attempts"
		if err := m.audit.Log(ctx, event); err != nil {
			observability.FromContext(ctx).WithError(err).Warn("failed to record audit event")
		}

		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
		httputil.WriteTooManyRequests(w, "too many login attempts, retry later")
	})
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
