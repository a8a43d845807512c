package middleware

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IPRateLimiter is an in-process token bucket per client IP.
type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(perMinute, burst int, logger *zap.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
		log:   logger,
	}
}

// Run evicts idle visitors until ctx is done.
func (l *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(time.Now().Add(-5 * time.Minute))
		}
	}
}

func (l *IPRateLimiter) evict(cutoff time.Time) {
	l.visitors.Range(func(k, v any) bool {
		if v.(*visitor).lastSeen.Before(cutoff) {
			l.visitors.Delete(k)
		}
		return true
	})
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	v, loaded := l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now})
	vi := v.(*visitor)
	if loaded {
		vi.lastSeen = now
	}
	return vi.limiter
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := clientIP(c)
		if !l.getLimiter(ip).Allow() {
			l.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Path()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

// WindowLimiter is a fixed-window counter in Redis, shared by every instance.
type WindowLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
	Log    *zap.Logger
}

func NewWindowLimiter(r *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *WindowLimiter {
	return &WindowLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window, Log: log}
}

// MiddlewareByKey limits requests per keyFunc result. Redis errors let the request through.
func (r *WindowLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFunc(c)
		if key == "" {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		redisKey := fmt.Sprintf("%s:%s", r.Prefix, key)
		count, err := r.Redis.Incr(ctx, redisKey).Result()
		if err != nil {
			r.Log.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			r.Redis.Expire(ctx, redisKey, r.Window)
		}
		if count > int64(r.Limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
