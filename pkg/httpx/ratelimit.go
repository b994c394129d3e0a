package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitProfile names a requests-per-second budget with burst headroom.
type RateLimitProfile struct {
	Name  string
	RPS   float64
	Burst int
}

// Built-in profiles, tuned per endpoint sensitivity. Each can be overridden
// with RATELIMIT_<NAME>_RPS and RATELIMIT_<NAME>_BURST environment
// variables, mostly so test environments can loosen them.
var (
	ProfileStrict   = loadProfile("STRICT", 1, 5)
	ProfileModerate = loadProfile("MODERATE", 5, 10)
	ProfileLenient  = loadProfile("LENIENT", 20, 40)
	ProfilePublic   = loadProfile("PUBLIC", 50, 100)
)

func loadProfile(name string, rps float64, burst int) RateLimitProfile {
	if v := os.Getenv("RATELIMIT_" + name + "_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rps = parsed
		}
	}
	if v := os.Getenv("RATELIMIT_" + name + "_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			burst = parsed
		}
	}
	return RateLimitProfile{Name: name, RPS: rps, Burst: burst}
}

// KeyExtractor derives the bucket key for a request.
type KeyExtractor func(r *http.Request) string

// KeyByClientIP buckets by remote address, honouring X-Forwarded-For from
// a fronting proxy.
func KeyByClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyBySubject buckets by authenticated subject, falling back to client IP
// for anonymous requests.
func KeyBySubject(r *http.Request) string {
	if id := SubjectID(r.Context()); id != "" {
		return id
	}
	return KeyByClientIP(r)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter maintains one token bucket per key, evicting idle buckets.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry

	profile RateLimitProfile
	keyFn   KeyExtractor
}

// NewRateLimiter builds a limiter over the given profile. A background
// sweep discards buckets idle for ten minutes.
func NewRateLimiter(profile RateLimitProfile, keyFn KeyExtractor) *RateLimiter {
	rl := &RateLimiter{
		entries: make(map[string]*limiterEntry),
		profile: profile,
		keyFn:   keyFn,
	}
	go rl.evictLoop()
	return rl
}

// Allow reports whether the request fits its bucket's budget.
func (rl *RateLimiter) Allow(r *http.Request) bool {
	key := rl.keyFn(r)

	rl.mu.Lock()
	entry, ok := rl.entries[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.profile.RPS), rl.profile.Burst),
		}
		rl.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// Middleware answers 429 with Retry-After when the bucket is exhausted.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(r) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP is shorthand for a fresh per-IP limiter middleware.
func RateLimitByIP(profile RateLimitProfile) Middleware {
	return NewRateLimiter(profile, KeyByClientIP).Middleware()
}

// RateLimitBySubject buckets authenticated traffic per subject. Place it
// after AuthnMiddleware in the chain.
func RateLimitBySubject(profile RateLimitProfile) Middleware {
	return NewRateLimiter(profile, KeyBySubject).Middleware()
}

func (rl *RateLimiter) evictLoop() {
	const idle = 10 * time.Minute

	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-idle)
		rl.mu.Lock()
		for key, entry := range rl.entries {
			if entry.lastSeen.Before(cutoff) {
				delete(rl.entries, key)
			}
		}
		rl.mu.Unlock()
	}
}
