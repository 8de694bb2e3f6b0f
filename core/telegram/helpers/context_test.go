package helpers

import (
	"testing"

	"github.com/m3rciful/cupbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
}

func newFake(updateID int, userID int64) *fakeContext {
	return &fakeContext{
		update: tele.Update{
			ID: updateID,
			Message: &tele.Message{
				Sender: &tele.User{ID: userID},
				Chat:   &tele.Chat{ID: userID * 10},
			},
		},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update     { return f.update }
func (f *fakeContext) Sender() *tele.User      { return f.update.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat        { return f.update.Message.Chat }
func (f *fakeContext) Get(key string) any      { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }

func TestUpdateIDs(t *testing.T) {
	ids := UpdateIDs(newFake(7, 3))
	if ids.Update != 7 || ids.User != 3 || ids.Chat != 30 {
		t.Fatalf("ids = %+v", ids)
	}
}

func TestBuildContextIsStable(t *testing.T) {
	c := newFake(11, 5)
	ctx := BuildContext(c)
	if logger.UserIDFrom(ctx) != 5 || logger.ChatIDFrom(ctx) != 50 || logger.UpdateIDFrom(ctx) != 11 {
		t.Fatalf("update meta missing from context")
	}
	rid := logger.RIDFrom(ctx)
	if rid == "" {
		t.Fatal("rid not set")
	}
	if again := BuildContext(c); logger.RIDFrom(again) != rid {
		t.Fatalf("rid changed: %q -> %q", rid, logger.RIDFrom(again))
	}
}

func TestWithHandlerStoresTag(t *testing.T) {
	c := newFake(1, 1)
	WithHandler(c, "start")
	ctx, ok := ContextFrom(c)
	if !ok || logger.HandlerFrom(ctx) != "start" {
		t.Fatalf("handler tag = %q", logger.HandlerFrom(ctx))
	}
	if _, ok := ContextFrom(nil); ok {
		t.Fatal("nil context must not report a stored value")
	}
}
