package helpers

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const answeredKey = "cb_answered"

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	var chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, chatID, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func htmlOptions(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		ReplyMarkup:           markup,
		DisableWebPagePreview: true,
	}
}

// SendHTML sends an HTML message with optional reply markup.
func SendHTML(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := htmlOptions(markup)
	return sendAsync(c, "send.html", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditOrSendHTML edits the message carrying the pressed button, or sends a
// new one for plain messages and for messages that can no longer be edited.
func EditOrSendHTML(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := htmlOptions(markup)
	if c.Callback() == nil || c.Callback().Message == nil {
		return sendAsync(c, "send.html", "sendMessage", func() error {
			return c.Send(text, opts)
		})
	}
	return sendAsync(c, "edit.html", "editMessageText", func() error {
		err := c.Edit(text, opts)
		switch {
		case err == nil, isNotModified(err):
			return nil
		case isNotEditable(err):
			return c.Send(text, opts)
		}
		return err
	})
}

// Respond answers the pending callback query with an optional notice.
func Respond(c tele.Context, text string) error {
	if c.Callback() == nil {
		return nil
	}
	c.Set(answeredKey, true)
	resp := &tele.CallbackResponse{Text: text}
	return sendAsync(c, "callback.answer", "answerCallbackQuery", func() error {
		return c.Respond(resp)
	})
}

// EnsureAnswered answers the callback with an empty notice unless a handler already did.
func EnsureAnswered(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	if done, _ := c.Get(answeredKey).(bool); done {
		return nil
	}
	return Respond(c, "")
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

func isNotEditable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "message to edit not found") || strings.Contains(msg, "message can't be edited")
}
