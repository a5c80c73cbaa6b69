package sentimentoor

import (
	"log/slog"
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// ClientConfig holds all configuration for the API client.
type ClientConfig struct {
	// BearerTokens are the app-only bearer tokens to rotate between.
	// At least one is required.
	BearerTokens []string

	// BaseURL is the API root. Default: https://api.twitter.com
	BaseURL string

	// Proxy is an optional proxy URL for all requests.
	Proxy string

	// RequestTimeout bounds a single HTTP round-trip.
	RequestTimeout time.Duration

	// MaxRetries is the number of attempts for transport failures and 429s.
	// Non-success statuses other than 429 are never retried. Default: 1, a
	// single attempt.
	MaxRetries int

	// RetryBackoffInitial is the first retry delay.
	RetryBackoffInitial time.Duration

	// RetryBackoffMax caps the retry delay.
	RetryBackoffMax time.Duration

	// RateLimitWait caps how long a request waits for a token to come out of
	// a rate-limit window. Longer waits fail the request.
	RateLimitWait time.Duration

	// RateLimits sets the local per-token limit of each operation. Missing
	// operations use DefaultRateLimits; RequestsPerWindow <= 0 disables the
	// local limit but still honors 429 blocks.
	RateLimits map[string]ratelimit.Config

	// MaxPages caps how many pages a single paginated fetch may request.
	// Default: DefaultMaxPages
	MaxPages int

	// MetricsHook is called on each API request for external metrics collection.
	// endpoint is the operation name, success and rateLimited indicate the outcome.
	MetricsHook func(endpoint string, success, rateLimited bool)

	// Transport overrides the HTTP round-trip. Default: a go-stealth client.
	Transport Transport

	// Logger receives client diagnostics. Default: slog.Default()
	Logger *slog.Logger
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *ClientConfig) defaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryBackoffInitial == 0 {
		cfg.RetryBackoffInitial = 1 * time.Second
	}
	if cfg.RetryBackoffMax == 0 {
		cfg.RetryBackoffMax = 30 * time.Second
	}
	if cfg.RateLimitWait == 0 {
		cfg.RateLimitWait = 15 * time.Minute
	}
	limits := make(map[string]ratelimit.Config, len(DefaultRateLimits))
	for op, rl := range DefaultRateLimits {
		limits[op] = rl
	}
	for op, rl := range cfg.RateLimits {
		if rl.WindowDuration <= 0 {
			rl.WindowDuration = RateLimitWindow
		}
		limits[op] = rl
	}
	cfg.RateLimits = limits
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}
