package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/mediaforge/internal/api/response"
	"github.com/kiranshivaraju/mediaforge/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// Generation kinds counted by RateLimit.Generations.
const (
	KindVideo = "video"
	KindImage = "image"
	KindEdit  = "edit"
)

// Limits are per-minute budgets. GenerationsPerMinute of zero disables the
// per-tenant generation budget.
type Limits struct {
	RequestsPerMinute    int
	GenerationsPerMinute int
}

// RateLimit counts requests in fixed one-minute windows stored in Redis. It
// fails open when Redis is unavailable.
type RateLimit struct {
	cache  cache.Cache
	limits Limits
	now    func() time.Time
}

func NewRateLimit(c cache.Cache, limits Limits) *RateLimit {
	if limits.RequestsPerMinute <= 0 {
		limits.RequestsPerMinute = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, limits: limits, now: time.Now}
}

// Limit applies the per-key request budget. Requests without a Principal
// pass through.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok || p.KeyPrefix == "" {
			next.ServeHTTP(w, r)
			return
		}

		window, reset := rl.window()
		key := cache.RateLimitKey(p.KeyPrefix, window)
		if !rl.allow(w, r, key, rl.limits.RequestsPerMinute, reset, "RATE_LIMIT_EXCEEDED", "Too many requests", nil) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Generations applies the tenant's budget for one kind of generation, shared
// by all of the tenant's keys.
func (rl *RateLimit) Generations(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl.limits.GenerationsPerMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := GetTenantID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			window, reset := rl.window()
			key := cache.GenerationRateKey(tenantID, kind, window)
			details := map[string]any{"kind": kind, "limit_per_minute": rl.limits.GenerationsPerMinute}
			if !rl.allow(w, r, key, rl.limits.GenerationsPerMinute, reset,
				"GENERATION_RATE_LIMIT_EXCEEDED", "Too many "+kind+" generations", details) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// window returns the current window index and when it ends.
func (rl *RateLimit) window() (int64, time.Time) {
	now := rl.now()
	idx := now.Unix() / int64(rateWindow/time.Second)
	return idx, time.Unix((idx+1)*int64(rateWindow/time.Second), 0)
}

// allow counts the request against key and writes the rate headers. It
// writes a 429 and returns false once limit is exceeded.
func (rl *RateLimit) allow(w http.ResponseWriter, r *http.Request, key string, limit int, reset time.Time, code, message string, details any) bool {
	count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
	if err != nil {
		slog.Warn("rate limit check failed", "key", key, "error", err)
		return true
	}

	remaining := max(limit-int(count), 0)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

	if count > int64(limit) {
		response.TooManyRequests(w, reset.Sub(rl.now()), code, message, details)
		return false
	}
	return true
}
