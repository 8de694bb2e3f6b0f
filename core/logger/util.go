package logger

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status maps an error to the status field value. Errors may pick their own
// status by implementing LogStatus() string; cancellations are logged as skip.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	var s interface{ LogStatus() string }
	if errors.As(err, &s) {
		if v := s.LogStatus(); v != "" {
			return v
		}
	}
	if errors.Is(err, context.Canceled) {
		return "skip"
	}
	return "fail"
}

// RoundMS rounds to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values with ", " and reports whether
// some were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
