package helpers

import (
	"context"

	"github.com/m3rciful/cupbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	contextKey = "log_ctx"
	ridKey     = "rid"
)

// IDs are the identifiers every log line of an update carries.
type IDs struct {
	Update int
	Chat   int64
	User   int64
}

// UpdateIDs collects the update, chat and sender ids; missing ones are zero.
func UpdateIDs(c tele.Context) IDs {
	ids := IDs{Update: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		ids.Chat = chat.ID
	}
	if user := c.Sender(); user != nil {
		ids.User = user.ID
	}
	return ids
}

// NewContext builds the per-update context: request id, update metadata and
// the "tg" component logger. The rid is remembered on c for later calls.
func NewContext(c tele.Context) context.Context {
	ids := UpdateIDs(c)
	rid, _ := c.Get(ridKey).(string)
	if rid == "" {
		rid = logger.BuildRID(ids.Update, ids.Chat, ids.User)
		c.Set(ridKey, rid)
	}
	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, ids.Update, ids.User, ids.Chat)
	return logger.WithLogger(ctx, logger.Component("tg"))
}

// StoreContext attaches ctx to c for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the stored context, creating and storing one on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	ctx := NewContext(c)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
