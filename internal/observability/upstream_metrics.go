package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/buildhubhq/buildhub/internal/upstream"
)

// ObserveUpstream wraps one logical upstream call, matching the
// upstream.ObserveFunc signature.
func (p *Prom) ObserveUpstream(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		p.UpstreamErrors.WithLabelValues(op, classifyUpstreamErr(err)).Inc()
	}
	p.UpstreamDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func classifyUpstreamErr(err error) string {
	var apiErr *upstream.APIError

	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 429:
			return "rate_limited"
		case apiErr.Status >= 500:
			return "server_error"
		case apiErr.Status >= 400:
			return "client_error"
		default:
			return "business_error"
		}
	}

	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
