package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"lilinku-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate limit tiers.
const (
	// checkout and admin actions
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// general browsing / lookups
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// provider webhooks: bursty retries from the providers themselves
	limitWebhook = rate.Limit(20)
	burstWebhook = 50
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

func init() {
	go cleanupVisitors()
}

func getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes stale entries to prevent the map growing forever.
func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for key, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, key)
			}
		}
		mu.Unlock()
	}
}

// RateLimitMiddleware applies the per-tier token bucket for the request.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		var identity string
		if email := utils.GetUserEmailFromContext(r.Context()); email != "" {
			identity = "user:" + email
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		// Same identity gets separate quotas per tier.
		key := fmt.Sprintf("%s:%s", identity, tier)

		limiter := getVisitor(key, limit, burst)
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/webhooks/"):
		return limitWebhook, burstWebhook, "webhook"
	case r.URL.Path == "/checkout" || strings.HasPrefix(r.URL.Path, "/admin/"):
		return limitStrict, burstStrict, "strict"
	default:
		return limitGeneral, burstGeneral, "general"
	}
}
