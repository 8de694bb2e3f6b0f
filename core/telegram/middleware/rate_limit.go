package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/cupbot/core/logger"
	tghelpers "github.com/m3rciful/cupbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds (see UpdateKind) that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// UpdateKind classifies an update as "callback", "message" or "other".
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}

// pruneEvery bounds how many users are tracked before stale entries are dropped.
const pruneEvery = 1024

// gapLimiter remembers when each user was last let through.
type gapLimiter struct {
	mu       sync.Mutex
	gap      time.Duration
	lastSeen map[int64]time.Time
}

func (l *gapLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastSeen[userID]; ok && now.Sub(last) < l.gap {
		return false
	}
	if len(l.lastSeen) >= pruneEvery {
		for id, last := range l.lastSeen {
			if now.Sub(last) >= l.gap {
				delete(l.lastSeen, id)
			}
		}
	}
	l.lastSeen[userID] = now
	return true
}

// RateLimitMiddleware drops updates that arrive sooner than Interval after
// the previous accepted update of the same user. OnLimited may notify the user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiter := &gapLimiter{gap: opts.Interval, lastSeen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}
			if limiter.allow(user.ID, time.Now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", UpdateKind(c.Update())),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
