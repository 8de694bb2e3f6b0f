package bot

import (
	"testing"

	"github.com/m3rciful/cupbot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

type callbackContext struct {
	tele.Context
	cb *tele.Callback
}

func (c callbackContext) Callback() *tele.Callback { return c.cb }
func (c callbackContext) Sender() *tele.User       { return c.cb.Sender }
func (c callbackContext) Chat() *tele.Chat         { return c.cb.Message.Chat }
func (c callbackContext) Text() string             { return c.cb.Message.Text }

func TestMarkup(t *testing.T) {
	if markup(nil) != nil {
		t.Fatal("nil keyboard must keep the current markup")
	}
	if m := markup(&flow.Keyboard{Remove: true}); m == nil || !m.RemoveKeyboard {
		t.Fatalf("remove = %+v", m)
	}
	reply := markup(flow.ReplyKeyboard("Регистрация", "FAQ"))
	if len(reply.ReplyKeyboard) != 2 || reply.ReplyKeyboard[1][0].Text != "FAQ" {
		t.Fatalf("reply = %+v", reply.ReplyKeyboard)
	}
	inline := markup(flow.InlineKeyboard(
		flow.Row(flow.Button{Text: "Одобрить", Data: "approve_team_pending_1"}),
	))
	btn := inline.InlineKeyboard[0][0]
	if btn.Text != "Одобрить" || btn.Data != "approve_team_pending_1" || btn.Unique != "" {
		t.Fatalf("inline = %+v", btn)
	}
}

func TestInputFromCallback(t *testing.T) {
	c := callbackContext{cb: &tele.Callback{
		Sender:  &tele.User{ID: 7, Username: "cap"},
		Message: &tele.Message{Chat: &tele.Chat{ID: 70}, Text: "panel"},
		Data:    "view_team_pending_4",
	}}
	in := input(c)
	want := flow.Input{UserID: 7, ChatID: 70, Username: "cap", Text: "view_team_pending_4", Callback: true}
	if in != want {
		t.Fatalf("input = %+v, want %+v", in, want)
	}
}
