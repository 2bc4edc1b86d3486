// Package upstream holds the HTTP clients for the remote inventory/sales
// API. Both clients share the same instrumented, breaker-guarded transport.
package upstream

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type breakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

// NewTransport wraps base with otel instrumentation and a circuit breaker.
// Only transport-level failures trip the breaker; application failures in a
// decoded body are the caller's concern.
func NewTransport(name string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &breakerTransport{
		base: otelhttp.NewTransport(base),
		cb:   cb,
	}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.cb.Execute(func() (*http.Response, error) {
		return t.base.RoundTrip(req)
	})
}
