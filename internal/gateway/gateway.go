// Package gateway holds the HTTP adapters for the external payment
// processors. Both clients are constructed explicitly at startup and
// injected into the payment service; there is no lazily-built process-wide
// instance. Every outbound call runs with a bounded timeout, and any
// transport failure, timeout or unexpected response surfaces as
// ErrGateway so the boundary can answer 502 instead of hanging or leaking
// provider internals.
package gateway

import (
	"errors"
	"net/http"
	"time"
)

// ErrGateway wraps every failure talking to an external payment provider.
var ErrGateway = errors.New("payment gateway error")

const requestTimeout = 15 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}
