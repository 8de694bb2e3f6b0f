package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/cupbot/core/logger"
	tghelpers "github.com/m3rciful/cupbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminChecker decides whether a user may run admin-only handlers.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminCheckerFunc adapts a plain function to AdminChecker.
type AdminCheckerFunc func(ctx context.Context, userID int64) (bool, error)

// IsAdmin implements AdminChecker.
func (f AdminCheckerFunc) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return f(ctx, userID)
}

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	Checker  AdminChecker
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only admins can invoke downstream handlers.
// A failed lookup is treated as a rejection.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.Checker == nil {
			return next
		}
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return nil
			}
			ctx := tghelpers.BuildContext(c)
			ok, err := opts.Checker.IsAdmin(ctx, user.ID)
			if err != nil {
				logger.Error(ctx, "tg", "access.check_failed", slog.String("err", err.Error()))
			}
			if ok {
				return next(c)
			}
			logger.Warn(ctx, "tg", "access.denied", slog.String("status", "denied"))
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
