package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/core/telegram/netutil"
)

// Bot API transport limits. getUpdates holds the response for up to the
// long poll timeout, which BuildHTTPClient adds on top.
const (
	apiDialTimeout     = 5 * time.Second
	apiKeepAlive       = 30 * time.Second
	apiTLSHandshake    = 5 * time.Second
	apiIdleConn        = 30 * time.Second
	apiResponseHeaders = 10 * time.Second
	apiRequestTimeout  = 30 * time.Second

	apiRetries = 3
	apiBackoff = 2 * time.Second
)

// BuildHTTPClient returns the client telebot uses for Bot API calls.
// Connection-level failures are retried; API errors are left to the caller.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	longPoll = max(longPoll, 0)
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: apiDialTimeout, KeepAlive: apiKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       apiIdleConn,
		TLSHandshakeTimeout:   apiTLSHandshake,
		ResponseHeaderTimeout: apiResponseHeaders + longPoll,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   apiRequestTimeout + longPoll,
		Transport: &retryTransport{base: base, retries: apiRetries, backoff: apiBackoff},
	}
}

// retryTransport repeats a request whose body can be replayed when the
// failure looks transient (dial errors, timeouts).
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for n := 1; err != nil && n <= t.retries && netutil.ShouldRetry(err); n++ {
		if req.Body != nil && req.GetBody == nil {
			break
		}
		logger.Debug(req.Context(), "tg.http", "retry",
			slog.Int("attempts", n),
			slog.String("endpoint", endpointOf(req)),
			slog.String("err", err.Error()),
		)
		timer := time.NewTimer(t.backoff * time.Duration(n))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		again := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			again.Body = body
		}
		resp, err = t.base.RoundTrip(again)
	}
	return resp, err
}

// endpointOf returns the Bot API method, the last path segment. The token
// sits in an earlier segment and never reaches the log.
func endpointOf(req *http.Request) string {
	path := req.URL.Path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
