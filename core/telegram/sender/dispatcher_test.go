package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcherKeepsChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 300})
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, chat := range []int64{1, 2, -100500} {
			chat, i := chat, i
			err := d.Enqueue(context.Background(), chat, "send.text", "sendMessage", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}
	}
	d.Close()

	for chat, seq := range got {
		if len(seq) != 50 {
			t.Fatalf("chat %d got %d jobs", chat, len(seq))
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("chat %d out of order: %v", chat, seq)
			}
		}
	}
}

func TestDispatcherRetries(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCalls int
		wantFails uint64
	}{
		{name: "transient then ok", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, wantCalls: 2},
		{name: "permanent", err: &tele.Error{Code: 400, Description: "Bad Request"}, wantCalls: 1, wantFails: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
			calls := 0
			err := d.Enqueue(context.Background(), 7, "send.text", "sendMessage", func() error {
				calls++
				if calls == 1 {
					return tc.err
				}
				return nil
			})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			d.Close()
			if calls != tc.wantCalls {
				t.Fatalf("calls = %d, want %d", calls, tc.wantCalls)
			}
			if d.ErrorCount() != tc.wantFails {
				t.Fatalf("failures = %d, want %d", d.ErrorCount(), tc.wantFails)
			}
		})
	}
}

func TestDispatcherClosed(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	if err := d.Enqueue(context.Background(), 1, "send.text", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v", err)
	}
}

func TestRedactToken(t *testing.T) {
	got := redactToken(`Post "https://api.telegram.org/bot123456:AAH-secret_token/sendMessage": timeout`)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("got %s", got)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{&net.DNSError{Err: "no such host"}, "dns"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{&tele.Error{Code: 502}, "http_5xx"},
		{&tele.Error{Code: 403}, "http_4xx"},
		{tele.FloodError{RetryAfter: 3}, "flood"},
		{errors.New("telegram: Bad Request: chat not found (400)"), "http_4xx"},
		{errors.New("weird"), "unknown"},
	}
	for _, tc := range cases {
		if got := classifyError(tc.err); got != tc.want {
			t.Fatalf("classifyError(%T) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
