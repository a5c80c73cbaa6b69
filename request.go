package sentimentoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Get performs one authorized GET and returns the raw body. It implements Getter.
func (c *Client) Get(ctx context.Context, endpoint, url string) ([]byte, error) {
	body, _, err := c.doGET(ctx, endpoint, url)
	return body, err
}

// doGET executes a GET request with token rotation. Transport failures and
// 429 responses are retried up to MaxRetries attempts; any other non-success
// status fails immediately.
func (c *Client) doGET(ctx context.Context, endpoint, url string) ([]byte, map[string]string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: c.cfg.RetryBackoffInitial,
		MaxWait:     c.cfg.RetryBackoffMax,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}

	var lastErr error
	for attempt := range c.cfg.MaxRetries {
		if attempt > 0 {
			delay := backoff.Duration(attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, &FetchError{Endpoint: endpoint, URL: url, Err: ctx.Err()}
			}
		}

		tok, err := c.nextToken(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, &FetchError{Endpoint: endpoint, URL: url, Err: ctx.Err()}
			}
			lastErr = fmt.Errorf("no bearer token available: %w", err)
			break
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		body, respHdrs, status, err := c.transport(reqCtx, "GET", url, apiHeaders(tok.value))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, &FetchError{Endpoint: endpoint, URL: url, Err: ctx.Err()}
			}
			c.recordAPICall(endpoint, false, false)
			tok.RecordFailure()
			c.log.Warn("request failed, retrying",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
			lastErr = err
			continue
		}

		switch {
		case status == 429:
			c.recordAPICall(endpoint, false, true)
			reset := parseRateLimitReset(respHdrs["x-rate-limit-reset"])
			tok.MarkEndpointRateLimited(endpoint, reset)
			c.log.Warn("rate limited",
				slog.String("endpoint", endpoint),
				slog.String("token", tok.Name),
				slog.Time("reset", reset))
			lastErr = &FetchError{Endpoint: endpoint, URL: url, Status: status, Problem: errRateLimited.String(), Body: truncateBytes(body, 200)}
			continue

		case status < 200 || status > 299:
			c.recordAPICall(endpoint, false, false)
			class := classifyError(body)
			c.log.Warn("non-2xx response",
				slog.String("endpoint", endpoint),
				slog.Int("status", status),
				slog.String("body", truncateBytes(body, 500)))
			if class == errUnauthorized {
				c.log.Warn("bearer token rejected, deactivating", slog.String("token", tok.Name))
				c.pool.DeactivateItem(tok)
			} else if shouldDeactivate := tok.RecordFailure(); shouldDeactivate {
				total, failed, consec := tok.Stats()
				c.log.Warn("token unhealthy, deactivating",
					slog.String("token", tok.Name),
					slog.Int("total", total),
					slog.Int("failed", failed),
					slog.Int("consec", consec))
				c.pool.DeactivateItem(tok)
			}
			fe := &FetchError{Endpoint: endpoint, URL: url, Status: status, Body: truncateBytes(body, 200)}
			if class != errNone {
				fe.Problem = class.String()
			}
			return nil, nil, fe
		}

		// 2xx with a problem payload and nothing else, e.g. an unknown list id.
		if !hasResponsePayload(body) {
			if class := classifyError(body); class != errNone {
				c.recordAPICall(endpoint, false, false)
				return nil, nil, &FetchError{Endpoint: endpoint, URL: url, Status: status, Problem: class.String(), Body: truncateBytes(body, 200)}
			}
		}

		c.recordAPICall(endpoint, true, false)
		tok.RecordSuccess()
		return body, respHdrs, nil
	}

	var fe *FetchError
	if errors.As(lastErr, &fe) {
		return nil, nil, fe
	}
	return nil, nil, &FetchError{
		Endpoint: endpoint,
		URL:      url,
		Err:      fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxRetries, lastErr),
	}
}

// nextToken picks a token allowed to call endpoint. When every token is inside
// a rate-limit window it sleeps until the earliest window ends, provided that
// is within RateLimitWait of the first try.
func (c *Client) nextToken(ctx context.Context, endpoint string) (*Token, error) {
	filter := func(t *Token) bool {
		return t.AllowRequest(endpoint)
	}
	deadline := time.Now().Add(c.cfg.RateLimitWait)
	for {
		tok, err := c.pool.NextWithWait(ctx, filter, c.cfg.RateLimitWait)
		if err == nil {
			return tok, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		at := c.endpointAvailableAt(endpoint)
		if at.IsZero() || at.After(deadline) {
			return nil, err
		}
		wait := max(time.Until(at), minTokenWait)
		c.log.Info("rate limit window full, waiting",
			slog.String("endpoint", endpoint),
			slog.Duration("wait", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// minTokenWait keeps nextToken from spinning when a window is about to end.
const minTokenWait = 5 * time.Millisecond

// endpointAvailableAt is the earliest time an active token may call endpoint.
// The zero time means no active token will free up on its own.
func (c *Client) endpointAvailableAt(endpoint string) time.Time {
	var earliest time.Time
	for _, tok := range c.pool.Items() {
		if !tok.IsActive() {
			continue
		}
		at := tok.EndpointAvailableAt(endpoint)
		if at.IsZero() {
			at = time.Now()
		}
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}
	return earliest
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// hasResponsePayload returns true if the JSON body contains a non-null "data" or "meta" field.
func hasResponsePayload(body []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
		Meta json.RawMessage `json:"meta"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	present := func(m json.RawMessage) bool {
		return len(m) > 0 && string(m) != "null"
	}
	return present(probe.Data) || present(probe.Meta)
}
