package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/p2pdesk/exbot/core/telegram/netutil"
)

// newAPIClient builds the HTTP client used for Bot API calls: a tuned
// transport wrapped with transparent retries of transient dial and timeout
// failures. Requests without a replayable body are never retried.
func newAPIClient() *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &retryingTransport{
			next: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       30 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: 5 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
			attempts: 4,
			backoff:  2 * time.Second,
		},
	}
}

type retryingTransport struct {
	next     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		r, err := t.prepare(req, attempt)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		resp, err := t.next.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt >= t.attempts || !netutil.ShouldRetry(err) {
			return nil, lastErr
		}

		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

// prepare returns the request for the given attempt. Retries need a fresh
// body; a consumed non-replayable body aborts the retry loop.
func (t *retryingTransport) prepare(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	if req.Body != nil && req.GetBody == nil {
		return nil, http.ErrBodyReadAfterClose
	}
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}
