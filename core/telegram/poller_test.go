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

func TestBuildPoller(t *testing.T) {
	wh, ok := BuildPoller(PollerOptions{
		RunMode: "Webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://cup.example/hook", Secret: "s3"},
	}).(*tele.Webhook)
	if !ok {
		t.Fatal("expected webhook poller")
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://cup.example/hook" || wh.SecretToken != "s3" {
		t.Fatalf("webhook = %+v", wh)
	}

	cases := []struct {
		seconds int
		want    time.Duration
	}{
		{seconds: 0, want: defaultLongPollTimeout},
		{seconds: 25, want: 25 * time.Second},
	}
	for _, tc := range cases {
		lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll", LongPollTimeoutSeconds: tc.seconds}).(*tele.LongPoller)
		if !ok || lp.Timeout != tc.want || len(lp.AllowedUpdates) != 2 {
			t.Fatalf("long poller for %d = %+v", tc.seconds, lp)
		}
	}
}

func TestHTTPClientOutlastsLongPoll(t *testing.T) {
	client := BuildHTTPClient(30 * time.Second)
	rt, ok := client.Transport.(*retryTransport)
	if !ok {
		t.Fatalf("transport = %T", client.Transport)
	}
	base := rt.base.(*http.Transport)
	if base.ResponseHeaderTimeout <= 30*time.Second || client.Timeout <= 30*time.Second {
		t.Fatalf("timeouts too short: header=%s client=%s", base.ResponseHeaderTimeout, client.Timeout)
	}
}

type flakyTransport struct {
	fails int
	calls int
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestRetryTransport(t *testing.T) {
	cases := []struct {
		name      string
		fails     int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", fails: 0, wantCalls: 1},
		{name: "recovers", fails: 2, wantCalls: 3},
		{name: "gives up", fails: 5, wantCalls: 3, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := &flakyTransport{fails: tc.fails}
			rt := &retryTransport{base: base, retries: 2, backoff: time.Millisecond}
			req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/getMe", strings.NewReader("{}"))
			resp, err := rt.RoundTrip(req)
			if (err != nil) != tc.wantErr || base.calls != tc.wantCalls {
				t.Fatalf("err=%v calls=%d", err, base.calls)
			}
			if resp != nil {
				resp.Body.Close()
			}
		})
	}
}

func TestEndpointOf(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/bot1:secret/sendMessage", nil)
	if got := endpointOf(req); got != "sendMessage" {
		t.Fatalf("endpoint = %q", got)
	}
}
