package callbacks

import (
	"errors"
	"strconv"
	"strings"
)

// Sep joins payload tokens: "<action>_<qualifier...>_<id>".
const Sep = "_"

// MaxPayload is Telegram's callback_data limit in bytes.
const MaxPayload = 64

// ErrMalformed reports a payload that does not have the expected shape.
var ErrMalformed = errors.New("malformed callback payload")

// Fits reports whether payload is non-empty and within MaxPayload.
func Fits(payload string) bool {
	return payload != "" && len(payload) <= MaxPayload
}

// Join builds a payload from tokens.
func Join(tokens ...string) string {
	return strings.Join(tokens, Sep)
}

// Tokens strips prefix (which must end at a token boundary) and returns the
// remaining tokens. ok is false when the payload does not start with prefix.
func Tokens(payload, prefix string) ([]string, bool) {
	if payload == prefix {
		return nil, true
	}
	rest, ok := strings.CutPrefix(payload, prefix+Sep)
	if !ok {
		return nil, false
	}
	return strings.Split(rest, Sep), true
}

// ParseID parses a positive integer token.
func ParseID(token string) (int64, error) {
	if token == "" || strings.TrimLeft(token, "0123456789") != "" {
		return 0, ErrMalformed
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMalformed
	}
	return id, nil
}
