package callbacks

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		data, unique, payload string
	}{
		{"admin_panel", "", "admin_panel"},
		{"\fbtn|42", "btn", "42"},
		{"\fbtn", "btn", ""},
	}
	for _, tc := range cases {
		u, p := ParseCallbackData(&tele.Callback{Data: tc.data})
		if u != tc.unique || p != tc.payload {
			t.Errorf("ParseCallbackData(%q) = %q, %q", tc.data, u, p)
		}
	}
	if u, p := ParseCallbackData(nil); u != "" || p != "" {
		t.Fatal("nil callback")
	}
}

func TestTokens(t *testing.T) {
	toks, ok := Tokens("view_team_pending_12", "view_team")
	if !ok || len(toks) != 2 || toks[0] != "pending" || toks[1] != "12" {
		t.Fatalf("got %v %v", toks, ok)
	}
	if _, ok := Tokens("view_teamx_1", "view_team"); ok {
		t.Fatal("prefix must end at a token boundary")
	}
	if toks, ok := Tokens("admin_stats", "admin_stats"); !ok || toks != nil {
		t.Fatalf("exact match = %v %v", toks, ok)
	}
	if got := Join("approve", "team", "pending", "3"); got != "approve_team_pending_3" {
		t.Fatalf("join = %q", got)
	}
}

func TestParseID(t *testing.T) {
	for _, bad := range []string{"", "abc", "-1", "0", "1e3", " 1", "99999999999999999999"} {
		if _, err := ParseID(bad); err == nil {
			t.Errorf("ParseID(%q) accepted", bad)
		}
	}
	if id, err := ParseID("0042"); err != nil || id != 42 {
		t.Fatalf("ParseID = %d %v", id, err)
	}
}

func TestFits(t *testing.T) {
	cases := []struct {
		payload string
		want    bool
	}{
		{"", false},
		{"admin_panel", true},
		{strings.Repeat("x", MaxPayload), true},
		{strings.Repeat("x", MaxPayload+1), false},
	}
	for _, tc := range cases {
		if got := Fits(tc.payload); got != tc.want {
			t.Errorf("Fits(%d bytes) = %v", len(tc.payload), got)
		}
	}
}
