// Package backend is the JSON client for the storefront's external API. Calls
// go through a circuit breaker so a failing backend is not hammered.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

var ErrUnavailable = errors.New("backend unavailable")

// StatusError reports a non-2xx answer. The body has already been decoded
// into the caller's output value when it was JSON.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

type response struct {
	code int
	body []byte
}

type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[response]
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for baseURL. timeout bounds each request; the breaker
// opens after five consecutive failures and probes again after 30s.
func New(name, baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Do sends in as JSON (when non-nil) to path and decodes the reply into out
// (when non-nil). Non-2xx replies return *StatusError after decoding.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	res, err := c.breaker.Execute(func() (response, error) {
		return c.send(ctx, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if res.code == 0 {
			return err
		}
	}

	if out != nil && len(res.body) > 0 {
		if derr := json.Unmarshal(res.body, out); derr != nil && res.code < 300 {
			return fmt.Errorf("decode response: %w", derr)
		}
	}
	if res.code >= 300 {
		return &StatusError{Code: res.code, Body: strings.TrimSpace(string(res.body))}
	}
	return nil
}

// send counts 5xx as breaker failures; 4xx replies are answers, not outages.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return response{}, err
	}
	res := response{code: resp.StatusCode, body: b}
	if resp.StatusCode >= 500 {
		return res, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return res, nil
}
