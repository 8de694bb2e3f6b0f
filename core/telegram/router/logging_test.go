package router

import (
	"errors"
	"fmt"
	"testing"
)

type codedError struct{}

func (codedError) Error() string { return "coded" }
func (codedError) Code() string  { return "store error" }

type plainError struct{}

func (*plainError) Error() string { return "plain" }

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{
		"/Start":         "start",
		"approve_team_*": "approve_team",
		"menu":           "menu",
		" ":              "unknown",
	}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Errorf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: codedError{}, want: "STORE_ERROR"},
		{err: fmt.Errorf("wrap: %w", codedError{}), want: "STORE_ERROR"},
		{err: &plainError{}, want: "PLAINERROR"},
		{err: errors.New("x"), want: "ERRORSTRING"},
	}
	for _, tc := range cases {
		if got := deriveErrorCode(tc.err); got != tc.want {
			t.Errorf("deriveErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
