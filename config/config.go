// Package config loads sentimentoor settings from defaults, a JSON file and
// SENTIMENTOOR_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/anatolykoptev/go-stealth/ratelimit"

	sentimentoor "github.com/anatolykoptev/go-sentimentoor"
)

// DefaultPath is read when Load is called without a path.
const DefaultPath = "./sentimentoor.json"

// EnvPrefix marks environment variables that override file values.
const EnvPrefix = "SENTIMENTOOR_"

// Config represents the application configuration.
type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	BearerToken  string   `koanf:"twitter_bearer_token"`
	BearerTokens []string `koanf:"twitter_bearer_tokens"`
	ListID       string   `koanf:"twitter_list_id"`
	UserID       string   `koanf:"twitter_user_id"`

	// TargetDate is a YYYY-MM-DD UTC day. Empty means today.
	TargetDate string `koanf:"target_date"`

	APIBaseURL string `koanf:"api_base_url"`
	Proxy      string `koanf:"proxy"`
	// Durations accept Go duration strings ("30s") or plain numbers of
	// seconds. 0 means the client default.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	MaxPages       int           `koanf:"max_pages"`

	// RateLimits overrides the local per-token request budget of an operation
	// (ListMembers, UserTweets, Following) per 15-minute window. 0 turns the
	// local limit off.
	RateLimits    map[string]int `koanf:"rate_limits"`
	RateLimitWait time.Duration  `koanf:"rate_limit_wait"`

	Concurrency     int    `koanf:"concurrency"`
	ContinueOnError bool   `koanf:"continue_on_error"`
	OutputFormat    string `koanf:"output_format"`
}

// Error reports a configuration that could not be loaded or is invalid.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var defaults = map[string]any{
	"log_level":         "info",
	"log_format":        "text",
	"api_base_url":      "https://api.twitter.com",
	"request_timeout":   "30s",
	"rate_limit_wait":   "15m",
	"max_retries":       1,
	"max_pages":         sentimentoor.DefaultMaxPages,
	"concurrency":       1,
	"continue_on_error": false,
	"output_format":     "text",
}

// Load reads the configuration. An empty path reads DefaultPath when it
// exists; a non-empty path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, &Error{Err: err}
	}

	switch {
	case path != "":
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
	default:
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return nil, &Error{Path: path, Err: err}
			}
		}
	}

	// SENTIMENTOOR_TWITTER_LIST_ID -> twitter_list_id
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	var cfg Config
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				durationHook,
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("unmarshal: %w", err)}
	}
	return &cfg, nil
}

// durationHook decodes durations from Go duration strings or from numbers,
// which are read as seconds.
func durationHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(n * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q", v)
		}
		return d, nil
	}
	return data, nil
}

// Validate checks the fields a list run needs.
func (c *Config) Validate() error {
	if c.ListID == "" {
		return &Error{Err: errors.New("twitter_list_id is required")}
	}
	return c.validateCommon()
}

// ValidateFollowing checks the fields the following listing needs.
func (c *Config) ValidateFollowing() error {
	if c.UserID == "" {
		return &Error{Err: errors.New("twitter_user_id is required")}
	}
	return c.validateCommon()
}

func (c *Config) validateCommon() error {
	if len(c.Tokens()) == 0 {
		return &Error{Err: errors.New("twitter_bearer_token is required")}
	}
	if _, err := c.Day(); err != nil {
		return &Error{Err: fmt.Errorf("target_date: %w", err)}
	}
	if c.RequestTimeout != 0 && c.RequestTimeout < time.Second {
		return &Error{Err: fmt.Errorf("request_timeout must be at least 1s, got %s", c.RequestTimeout)}
	}
	if c.RateLimitWait < 0 {
		return &Error{Err: fmt.Errorf("rate_limit_wait must not be negative, got %s", c.RateLimitWait)}
	}
	if _, err := c.ClientRateLimits(); err != nil {
		return &Error{Err: err}
	}
	if c.Concurrency < 0 {
		return &Error{Err: fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)}
	}
	switch c.OutputFormat {
	case "", "text", "json":
	default:
		return &Error{Err: fmt.Errorf("output_format must be text or json, got %q", c.OutputFormat)}
	}
	return nil
}

// Tokens returns the primary bearer token followed by any extra ones,
// trimmed and without blanks or duplicates.
func (c *Config) Tokens() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range append([]string{c.BearerToken}, c.BearerTokens...) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ClientRateLimits converts RateLimits to the client's per-operation limits.
// Operation names match case-insensitively.
func (c *Config) ClientRateLimits() (map[string]ratelimit.Config, error) {
	if len(c.RateLimits) == 0 {
		return nil, nil
	}
	out := make(map[string]ratelimit.Config, len(c.RateLimits))
	for name, n := range c.RateLimits {
		op, ok := operationName(name)
		if !ok {
			return nil, fmt.Errorf("rate_limits: unknown operation %q", name)
		}
		if n < 0 {
			return nil, fmt.Errorf("rate_limits.%s must not be negative, got %d", name, n)
		}
		out[op] = ratelimit.Config{RequestsPerWindow: n, WindowDuration: sentimentoor.RateLimitWindow}
	}
	return out, nil
}

func operationName(name string) (string, bool) {
	for op := range sentimentoor.Endpoints {
		if strings.EqualFold(op, name) {
			return op, true
		}
	}
	return "", false
}

// Day parses TargetDate. The zero time means no date was configured.
func (c *Config) Day() (time.Time, error) {
	if c.TargetDate == "" {
		return time.Time{}, nil
	}
	return sentimentoor.ParseDay(c.TargetDate)
}

// Level maps log_level to a slog level. trace maps to debug and unknown
// values to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from log_level and log_format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
