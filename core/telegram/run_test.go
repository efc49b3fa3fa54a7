package telegram

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerDefaultsToLongPolling(t *testing.T) {
	p := buildPoller(Options{RunMode: RunModeLongpoll})
	lp, ok := p.(*tele.LongPoller)
	if !ok {
		t.Fatalf("poller = %T, want *tele.LongPoller", p)
	}
	if lp.Timeout != defaultPollTimeout {
		t.Fatalf("timeout = %v, want %v", lp.Timeout, defaultPollTimeout)
	}
	if len(lp.AllowedUpdates) != 2 {
		t.Fatalf("allowed updates = %v, want messages and callbacks only", lp.AllowedUpdates)
	}
}

func TestBuildPollerWebhook(t *testing.T) {
	p := buildPoller(Options{
		RunMode: "Webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example/hook"},
	})
	wh, ok := p.(*tele.Webhook)
	if !ok {
		t.Fatalf("poller = %T, want *tele.Webhook", p)
	}
	if wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("listen = %q, want 0.0.0.0:8443", wh.Listen)
	}
	if wh.Endpoint == nil || wh.Endpoint.PublicURL != "https://bot.example/hook" {
		t.Fatalf("unexpected endpoint: %+v", wh.Endpoint)
	}
}

func TestHTTPClientTimeoutsCoverLongPoll(t *testing.T) {
	pollWait := 60 * time.Second
	client := buildHTTPClient(pollWait)

	if client.Timeout <= pollWait {
		t.Fatalf("client timeout %v would cut the long poll short", client.Timeout)
	}
	retry, ok := client.Transport.(*retryTransport)
	if !ok {
		t.Fatalf("transport = %T, want *retryTransport", client.Transport)
	}
	base, ok := retry.base.(*http.Transport)
	if !ok {
		t.Fatalf("base transport = %T, want *http.Transport", retry.base)
	}
	if base.ResponseHeaderTimeout <= pollWait {
		t.Fatalf("header timeout %v would cut the long poll short", base.ResponseHeaderTimeout)
	}
}

type stubTripper struct {
	calls int
	errs  []error
}

func (s *stubTripper) RoundTrip(*http.Request) (*http.Response, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.errs) && s.errs[s.calls] != nil {
		return nil, s.errs[s.calls]
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func timeoutErr() error {
	return &net.DNSError{Err: "timed out", IsTimeout: true}
}

func postRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "https://api.invalid/botXXX/sendMessage", strings.NewReader("chat_id=1"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func TestRetryTransportRetriesTimeouts(t *testing.T) {
	stub := &stubTripper{errs: []error{timeoutErr()}}
	rt := &retryTransport{base: stub, attempts: 3, backoff: time.Millisecond}

	resp, err := rt.RoundTrip(postRequest(t))
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	resp.Body.Close()
	if stub.calls != 2 {
		t.Fatalf("calls = %d, want 2 (one failure, one retry)", stub.calls)
	}
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	stub := &stubTripper{errs: []error{errors.New("bad request")}}
	rt := &retryTransport{base: stub, attempts: 3, backoff: time.Millisecond}

	if _, err := rt.RoundTrip(postRequest(t)); err == nil {
		t.Fatal("expected the permanent error to surface")
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", stub.calls)
	}
}

func TestRetryTransportSkipsUnreplayableBodies(t *testing.T) {
	stub := &stubTripper{errs: []error{timeoutErr()}}
	rt := &retryTransport{base: stub, attempts: 3, backoff: time.Millisecond}

	req := postRequest(t)
	req.GetBody = nil
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected the timeout to surface without a retry")
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d, want 1 (body cannot be replayed)", stub.calls)
	}
}
