package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 1 << 20

// ObserveFunc lets the caller wrap every logical upstream call for metrics.
// A nil func is a no-op.
type ObserveFunc func(op string, fn func() error) error

// Client talks to the remote platform API (auth/profile/bounties). It is the
// only place that knows the wire contract; everything above it works with
// normalized domain types.
type Client struct {
	http         *http.Client
	authBase     string
	bountiesBase string
	observe      ObserveFunc
	log          *slog.Logger
}

func NewClient(authBase, bountiesBase string, observe ObserveFunc, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		authBase:     authBase,
		bountiesBase: bountiesBase,
		observe:      observe,
		log:          log,
	}
}

// WithHTTPClient swaps the underlying client; tests point it at httptest
// servers without losing the rest of the wiring.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) observed(op string, fn func() error) error {
	if c.observe != nil {
		return c.observe(op, fn)
	}

	return fn()
}

type okEnvelope struct {
	OK *bool `json:"ok"`
}

// doJSON performs one upstream round trip: marshal the body when present,
// execute with the request context, read a bounded response, and fold
// non-2xx statuses and {ok:false} bodies into an *APIError with the best
// user-facing message available.
func (c *Client) doJSON(ctx context.Context, method, url string, body any, fallbackMsg string) ([]byte, error) {
	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)

		if err != nil {
			return nil, err
		}

		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)

	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)

	if err != nil {
		return nil, err
	}

	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))

	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &APIError{
			Status:  res.StatusCode,
			Message: extractMessage(raw, fallbackMsg),
		}
	}

	var env okEnvelope

	// a non-JSON 2xx body is a contract violation worth an error
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	if env.OK != nil && !*env.OK {
		return nil, &APIError{
			Status:  res.StatusCode,
			Message: extractMessage(raw, fallbackMsg),
		}
	}

	return raw, nil
}
