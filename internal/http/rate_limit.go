package http

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rmi/internal/metrics"
)

const maxTrackedLimiters = 10000

// UserRateLimiter limita peticiones por usuario con un token bucket por clave.
type UserRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	max      int
}

// NewUserRateLimiter crea un limitador de perMinute peticiones por minuto. perMinute <= 0 lo desactiva.
func NewUserRateLimiter(perMinute, burst int) *UserRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		max:      maxTrackedLimiters,
	}
}

func (r *UserRateLimiter) Allow(userID string) bool {
	if r == nil {
		return true
	}
	return r.limiter(userID).Allow()
}

func (r *UserRateLimiter) limiter(userID string) *rate.Limiter {
	r.mu.RLock()
	l, ok := r.limiters[userID]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[userID]; ok {
		return l
	}
	if len(r.limiters) >= r.max {
		r.evictLocked()
	}
	l = rate.NewLimiter(r.limit, r.burst)
	r.limiters[userID] = l
	return l
}

// evictLocked libera espacio sin devolver cupo a quien lo agotó: primero quita los
// buckets llenos (equivalen a uno nuevo); si no hay, el que tenga más tokens.
func (r *UserRateLimiter) evictLocked() {
	var (
		victim string
		most   = -1.0
	)
	for id, l := range r.limiters {
		tokens := l.Tokens()
		if tokens >= float64(r.burst) {
			delete(r.limiters, id)
			continue
		}
		if tokens > most {
			victim, most = id, tokens
		}
	}
	if len(r.limiters) >= r.max {
		delete(r.limiters, victim)
	}
}

// RateLimitMiddleware responde 429 cuando el usuario autenticado excede su cupo.
func RateLimitMiddleware(logger *zap.Logger, limiter *UserRateLimiter, m *metrics.Metrics, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			c.Next()
			return
		}
		if !limiter.Allow(claims.UserID) {
			m.RecordRateLimited(name)
			logger.Warn("rate limit exceeded", zap.String("user_id", claims.UserID), zap.String("limiter", name))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
