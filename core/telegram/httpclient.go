package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/surveybot/core/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	tlsHandshake     = 5 * time.Second
	idleConnTimeout  = 90 * time.Second
	headerGrace      = 15 * time.Second
	sendRetries      = 2
	sendRetryBackoff = 500 * time.Millisecond
)

// buildHTTPClient returns the client shared by every Bot API call. The
// bot's traffic is one getUpdates request held open for pollWait plus
// short sendMessage calls, all against a single host, so the pool stays
// small and every timeout that races the long poll must outlast pollWait.
func buildHTTPClient(pollWait time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          8,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: pollWait + headerGrace,
	}

	return &http.Client{
		Timeout: pollWait + 2*headerGrace,
		Transport: &retryTransport{
			base:     transport,
			attempts: sendRetries + 1,
			backoff:  sendRetryBackoff,
		},
	}
}

// retryTransport re-sends requests that failed with a transient dial or
// timeout error. A lost answer prompt means a stalled survey, so a couple
// of quick retries beat surfacing the error to the user. Requests whose
// body cannot be replayed go through exactly once.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		return t.base.RoundTrip(req)
	}

	var lastErr error
	for attempt := 0; attempt < t.attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(t.backoff * time.Duration(attempt))
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
			req = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req.Body = body
			}
		}

		resp, err := t.base.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) {
			break
		}
	}
	return nil, lastErr
}
