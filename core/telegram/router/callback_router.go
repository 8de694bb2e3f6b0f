package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/cupbot/core/logger"
	tg "github.com/m3rciful/cupbot/core/telegram"
	"github.com/m3rciful/cupbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/cupbot/core/telegram/helpers"
	"github.com/m3rciful/cupbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Handlers answer the callback themselves; an unanswered one gets an empty
// answer so the client stops its spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		defer func() { _ = tghelpers.EnsureAnswered(c) }()

		_, payload := callbacks.ParseCallbackData(cb)
		extras := []slog.Attr{slog.String("payload", logger.SanitizeLimit(payload, 128))}

		pattern, cbHandler, ok := reg.MatchCallback(cb)
		if !ok {
			fallback := opts.NotFound
			if fallback == nil {
				fallback = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("cause", "not_found"))
			return handleWithSummary(c, "callback.unknown", start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		name := "callback." + normalizeHandlerName(pattern)
		extras = append(extras, slog.String("cb_key", pattern))
		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
