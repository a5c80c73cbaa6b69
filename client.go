package sentimentoor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
)

// Transport performs a single HTTP round-trip. Response header keys are lower-case.
type Transport func(ctx context.Context, method, url string, headers map[string]string) (body []byte, respHeaders map[string]string, status int, err error)

// Client is the X API v2 client used to read lists, timelines and follows.
type Client struct {
	transport Transport
	pool      *pool.Pool[*Token]
	cfg       ClientConfig
	log       *slog.Logger
}

// NewClient creates a fully-wired client.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.defaults()

	var tokens []*Token
	for _, v := range cfg.BearerTokens {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		tokens = append(tokens, newToken(tokenName(len(tokens), v), v, cfg.RateLimits))
	}
	if len(tokens) == 0 {
		return nil, errors.New("at least one bearer token is required")
	}

	transport := cfg.Transport
	if transport == nil {
		opts := []stealth.ClientOption{
			stealth.WithHeaderOrder(apiHeaderOrder),
			stealth.WithTimeout(timeoutSeconds(cfg.RequestTimeout)),
		}
		if cfg.Proxy != "" {
			opts = append(opts, stealth.WithProxy(cfg.Proxy))
		}
		bc, err := stealth.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("stealth client: %w", err)
		}
		transport = StealthTransport(bc)
	}

	logger := cfg.Logger
	poolCfg := pool.Config{
		AlertHook: func(topic string, payload any) {
			logger.Warn("token pool alert", slog.String("topic", topic), slog.Any("payload", payload))
		},
	}

	return &Client{
		transport: transport,
		pool:      pool.New(tokens, poolCfg),
		cfg:       cfg,
		log:       logger,
	}, nil
}

// StealthTransport adapts a go-stealth browser client to a Transport. The
// stealth round-trip cannot be interrupted: on cancellation the caller returns
// at once while the request finishes in the background, bounded by the
// client's own timeout (RequestTimeout for clients built by NewClient).
func StealthTransport(bc *stealth.BrowserClient) Transport {
	return func(ctx context.Context, method, url string, headers map[string]string) ([]byte, map[string]string, int, error) {
		return bc.DoWithHeaderOrderCtx(ctx, method, url, headers, nil, apiHeaderOrder)
	}
}

// timeoutSeconds rounds d up to whole seconds, at least one.
func timeoutSeconds(d time.Duration) int {
	return max(1, int((d+time.Second-1)/time.Second))
}

// HTTPTransport adapts a standard library client to a Transport.
func HTTPTransport(hc *http.Client) Transport {
	if hc == nil {
		hc = http.DefaultClient
	}
	return func(ctx context.Context, method, url string, headers map[string]string) ([]byte, map[string]string, int, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, nil, 0, err
		}
		for k, v := range headers {
			if k == "accept-encoding" {
				continue
			}
			req.Header.Set(k, v)
		}
		resp, err := hc.Do(req)
		if err != nil {
			return nil, nil, 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, resp.StatusCode, err
		}
		hdrs := make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			hdrs[strings.ToLower(k)] = resp.Header.Get(k)
		}
		return body, hdrs, resp.StatusCode, nil
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Pool returns the underlying token pool.
func (c *Client) Pool() *pool.Pool[*Token] {
	return c.pool
}

// recordAPICall calls the metrics hook if configured.
func (c *Client) recordAPICall(endpoint string, success, rateLimited bool) {
	if c.cfg.MetricsHook != nil {
		c.cfg.MetricsHook(endpoint, success, rateLimited)
	}
}
