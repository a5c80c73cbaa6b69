package sentimentoor

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Token is an app-only bearer token held in the client's rotation pool.
type Token struct {
	Name  string
	value string

	active       atomic.Bool
	reactivateAt time.Time

	mu       sync.Mutex
	limits   map[string]ratelimit.Config
	limiters map[string]*ratelimit.Limiter

	pool.HealthTracker
}

// newToken wraps a bearer token value for the pool. limits holds the local
// per-operation limits.
func newToken(name, value string, limits map[string]ratelimit.Config) *Token {
	t := &Token{
		Name:          name,
		value:         value,
		limits:        limits,
		limiters:      make(map[string]*ratelimit.Limiter),
		HealthTracker: pool.DefaultHealthTracker(),
	}
	t.active.Store(true)
	return t
}

// ID implements pool.Identity.
func (t *Token) ID() string { return t.Name }

// IsActive implements pool.Identity.
func (t *Token) IsActive() bool { return t.active.Load() }

// SetActive implements pool.Identity.
func (t *Token) SetActive(v bool) { t.active.Store(v) }

// ReactivateAt implements pool.Identity.
func (t *Token) ReactivateAt() time.Time { return t.reactivateAt }

// SetReactivateAt implements pool.Identity.
func (t *Token) SetReactivateAt(at time.Time) { t.reactivateAt = at }

// limiter returns the endpoint's limiter, creating it on first use. An
// endpoint without a positive limit gets an unbounded window so 429 blocks
// still apply.
func (t *Token) limiter(endpoint string) *ratelimit.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rl, ok := t.limiters[endpoint]; ok {
		return rl
	}
	cfg, ok := t.limits[endpoint]
	if !ok || cfg.RequestsPerWindow <= 0 {
		cfg = ratelimit.Config{RequestsPerWindow: math.MaxInt, WindowDuration: RateLimitWindow}
	}
	rl := ratelimit.NewLimiter(cfg)
	t.limiters[endpoint] = rl
	return rl
}

// AllowRequest checks if this token can make a request to the given endpoint.
// An allowed request counts against the window.
func (t *Token) AllowRequest(endpoint string) bool {
	return t.limiter(endpoint).Allow(endpoint)
}

// MarkEndpointRateLimited marks an endpoint as rate-limited for this token.
func (t *Token) MarkEndpointRateLimited(endpoint string, until time.Time) {
	t.limiter(endpoint).MarkRateLimited(endpoint, until)
}

// IsEndpointRateLimited returns true if the endpoint is currently blocked.
func (t *Token) IsEndpointRateLimited(endpoint string) bool {
	return t.limiter(endpoint).IsRateLimited(endpoint)
}

// EndpointAvailableAt returns when this token may call the endpoint again.
// The zero time means now.
func (t *Token) EndpointAvailableAt(endpoint string) time.Time {
	return t.limiter(endpoint).AvailableAt(endpoint)
}

// tokenName returns a log-safe label for the i-th token.
func tokenName(i int, value string) string {
	suffix := value
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "token" + strconv.Itoa(i) + "..." + suffix
}
