package bot

import (
	"context"

	"github.com/m3rciful/cupbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/cupbot/core/telegram/helpers"
	"github.com/m3rciful/cupbot/core/telegram/keyboard"
	"github.com/m3rciful/cupbot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// responder delivers flow output through the dispatcher-backed helpers.
type responder struct {
	c tele.Context
}

var _ flow.Responder = responder{}

func (r responder) Send(_ context.Context, text string, kb *flow.Keyboard) error {
	return tghelpers.SendHTML(r.c, text, markup(kb))
}

func (r responder) Edit(_ context.Context, text string, kb *flow.Keyboard) error {
	return tghelpers.EditOrSendHTML(r.c, text, markup(kb))
}

func (r responder) Answer(_ context.Context, text string) error {
	return tghelpers.Respond(r.c, text)
}

// markup converts a flow keyboard; nil leaves the current keyboard in place.
func markup(kb *flow.Keyboard) *tele.ReplyMarkup {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return keyboard.RemoveKeyboard()
	case len(kb.Inline) > 0:
		rows := make([][]keyboard.InlineBtn, len(kb.Inline))
		for i, row := range kb.Inline {
			rows[i] = make([]keyboard.InlineBtn, len(row))
			for j, b := range row {
				rows[i][j] = keyboard.InlineBtn{Text: b.Text, Data: b.Data}
			}
		}
		return keyboard.InlineButtonsRows(rows...)
	case len(kb.Reply) > 0:
		return keyboard.ReplyButtons(kb.Reply...)
	}
	return nil
}

// input strips transport details from an update.
func input(c tele.Context) flow.Input {
	in := flow.Input{Text: c.Text()}
	if u := c.Sender(); u != nil {
		in.UserID = u.ID
		in.Username = u.Username
	}
	if chat := c.Chat(); chat != nil {
		in.ChatID = chat.ID
	}
	if c.Callback() != nil {
		in.Callback = true
		in.Text = callbacks.CallbackPayload(c)
	}
	return in
}
