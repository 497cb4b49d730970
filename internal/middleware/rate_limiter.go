package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"candycost/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// idleTTL is how long an IP may stay silent before its limiter is dropped.
const idleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands out one token bucket per client IP.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *ipLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// purge drops limiters idle for longer than idleTTL.
func (l *ipLimiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleTTL {
			delete(l.visitors, ip)
			purged++
		}
	}
	return purged
}

// janitor purges idle limiters every interval until ctx is done.
func (l *ipLimiter) janitor(ctx context.Context, name string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := l.purge(now); n > 0 {
				log.Debug().Str("limiter", name).Int("purged", n).Msg("rate limiter entries purged")
			}
		}
	}
}

func (l *ipLimiter) handler(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := l.get(c.ClientIP(), time.Now())
		if !lim.Allow() {
			r := lim.Reserve()
			delay := r.Delay()
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.KindRateLimited, msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts per IP. Its cleanup goroutine
// stops with ctx.
func LoginRateLimiter(ctx context.Context, perMinute int) gin.HandlerFunc {
	l := newIPLimiter(perMinute)
	go l.janitor(ctx, "login", idleTTL/2)
	return l.handler("Too many login attempts. Try again in a minute.")
}

// RateLimiter is the general API limiter, perMinute requests per IP.
func RateLimiter(ctx context.Context, perMinute int) gin.HandlerFunc {
	l := newIPLimiter(perMinute)
	go l.janitor(ctx, "api", idleTTL/2)
	return l.handler("Too many requests. Try again shortly.")
}
