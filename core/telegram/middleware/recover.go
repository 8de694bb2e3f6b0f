package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/cupbot/core/logger"
	tghelpers "github.com/m3rciful/cupbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			attrs := []slog.Attr{slog.String("err", fmt.Sprint(r))}
			if logger.StacksEnabled() {
				attrs = append(attrs, slog.String("stack", string(debug.Stack())))
			}
			logger.Error(tghelpers.BuildContext(c), "tg", "panic", attrs...)
			err = fmt.Errorf("handler panic: %v", r)
		}()
		return next(c)
	}
}
