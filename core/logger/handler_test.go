package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestHandler(buf io.Writer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, nil, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func closeWriter(t *testing.T, aw *asyncWriter) {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "flow.registration")
	LogEvent(ctx, log, slog.LevelInfo, "registration.completed",
		slog.String("status", "ok"),
		slog.Int64("team_id", 5),
	)
	closeWriter(t, aw)

	tokens := strings.Split(strings.TrimSpace(buf.String()), " ")
	expected := []string{"ts=", "level=INFO", "component=flow.registration", "event=registration.completed", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "team_id=5"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%v)", len(tokens), tokens)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	log := slog.New(handler).With("component", "store")
	LogEvent(ctx, log, slog.LevelError, "store.failed",
		slog.String("status", "error"),
		slog.String("err", "boom"),
		slog.String("err_code", "STORE_INSERT"),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"store"`, `"event":"store.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	cases := []struct {
		name   string
		format logFormat
		want   []string
		absent string
	}{
		{name: "kv", format: formatKV, want: []string{"rid=" + CompactRID("123:456:789")}, absent: "rid_full="},
		{name: "json", format: formatJSON, want: []string{`"rid":"` + CompactRID("123:456:789") + `"`, `"rid_full":"123:456:789"`, `"ts_unix_nano"`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			handler, aw := newTestHandler(buf, tc.format)
			ctx := WithRID(context.Background(), "123:456:789")
			LogEvent(ctx, slog.New(handler), slog.LevelInfo, "rid.test")
			closeWriter(t, aw)

			line := buf.String()
			for _, w := range tc.want {
				if !strings.Contains(line, w) {
					t.Fatalf("expected %s in %s", w, line)
				}
			}
			if tc.absent != "" && strings.Contains(line, tc.absent) {
				t.Fatalf("unexpected %s in %s", tc.absent, line)
			}
			if !strings.Contains(line, "component") || !strings.Contains(line, "app") {
				t.Fatalf("component must default to app: %s", line)
			}
		})
	}
}

func TestStructuredHandlerNormalizesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(context.Background(), slog.New(handler), slog.LevelInfo, "verify.roster",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("lookup", 2*time.Second),
		slog.String("outcome", "failed"),
		slog.String("cache", ""),
	)
	closeWriter(t, aw)

	line := buf.String()
	for _, want := range []string{"duration_ms=2", "lookup_ms=2000", "outcome=fail"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	if strings.Contains(line, "cache=") {
		t.Fatalf("empty fields must be pruned: %s", line)
	}
}

func TestStructuredHandlerRedactsSecrets(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	LogEvent(context.Background(), slog.New(handler), slog.LevelInfo, "config.loaded",
		slog.String("bot_token", "123:secret"),
		slog.Group("db", slog.String("password", "hunter2"), slog.String("host", "localhost")),
		slog.String("tokens", "3"),
	)
	closeWriter(t, aw)

	line := buf.String()
	if strings.Contains(line, "secret") || strings.Contains(line, "hunter2") {
		t.Fatalf("secret leaked: %s", line)
	}
	for _, want := range []string{`"bot_token":"[redacted]"`, `"db.host":"localhost"`, `"tokens":"3"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestStructuredHandlerErrorSink(t *testing.T) {
	main, errs := &bytes.Buffer{}, &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{main}, []io.Writer{errs}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: aw,
		format: formatKV,
	})
	log := slog.New(handler)
	LogEvent(context.Background(), log, slog.LevelInfo, "first")
	LogEvent(context.Background(), log, slog.LevelError, "second")
	LogEvent(context.Background(), log, slog.LevelDebug, "dropped")
	closeWriter(t, aw)

	if n := strings.Count(main.String(), "\n"); n != 2 {
		t.Fatalf("main sink lines = %d: %s", n, main.String())
	}
	if !strings.Contains(errs.String(), "event=second") || strings.Contains(errs.String(), "event=first") {
		t.Fatalf("error sink = %s", errs.String())
	}
}

func TestHelpersWithoutInit(t *testing.T) {
	// Nothing must panic before InitLogger.
	Info(context.Background(), "app", "noop")
	Error(context.TODO(), "store", "noop", slog.String("err", "x"))
	if Component("app") != nil {
		t.Fatal("component logger must be nil before init")
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:36:1":   "z.10.1",
		"1:-100:2":  "1.-2s.2",
		"not-a-rid": "not-a-rid",
		"1:x:2":     "1:x:2",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Errorf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}
