package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/constants"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"
	redisStorage "github.com/IgorGrieder/encurtador-live/internal/storage/redis"
	"github.com/IgorGrieder/encurtador-live/pkg/httputils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisFixedWindowLimiter enforces a simple counter per caller per fixed time window.
type RedisFixedWindowLimiter struct {
	store *redisStorage.FixedWindowLimiter
	limit int64
}

func NewRedisFixedWindowLimiter(store *redisStorage.FixedWindowLimiter, limitPerMinute int) *RedisFixedWindowLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	return &RedisFixedWindowLimiter{
		store: store,
		limit: int64(limitPerMinute),
	}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}

// KeyedRateLimiter keeps one token bucket per key in process memory.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
	maxKeys  int
}

func NewKeyedRateLimiter(limitPerMinute int) *KeyedRateLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Every(time.Minute / time.Duration(limitPerMinute)),
		b:        limitPerMinute,
		maxKeys:  10000,
	}
}

func (l *KeyedRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.limiter(key).Allow(), nil
}

func (l *KeyedRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[key] = limiter
	}
	return limiter
}

// StartCleanup drops all buckets whenever the map grows past its bound.
// It returns when ctx is done.
func (l *KeyedRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.mu.Lock()
				if len(l.limiters) > l.maxKeys {
					logger.Info("cleaning up rate limiter map", zap.Int("count", len(l.limiters)))
					l.limiters = make(map[string]*rate.Limiter)
				}
				l.mu.Unlock()
			}
		}
	}()
}

func RateLimitMiddleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			defer cancel()

			allowed, err := limiter.Allow(ctx, rateLimitKey(r))
			if err != nil {
				// Fail open: a limiter outage must not block link creation.
				logger.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				httputils.WriteText(w, r, http.StatusTooManyRequests, constants.MsgRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if identity, ok := auth.FromContext(r.Context()); ok {
		return "user:" + identity.Login
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:unknown"
}
