package format

import (
	"html"
	"strings"
	"time"
)

// DateLayout is the date format shown to users.
const DateLayout = "02.01.2006 15:04"

// EscapeHTML escapes user text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b>.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}

// Code wraps escaped text in <code>.
func Code(text string) string {
	return "<code>" + EscapeHTML(text) + "</code>"
}

// Handle renders a username as @handle, or an empty string when unset.
func Handle(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "@")
	if h == "" {
		return ""
	}
	return "@" + EscapeHTML(h)
}

// Date formats t in loc, falling back to UTC.
func Date(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
