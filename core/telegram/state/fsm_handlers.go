package state

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/cupbot/core/logger"
	tghelpers "github.com/m3rciful/cupbot/core/telegram/helpers"
)

// Handler processes a text message of a user that is inside a conversation.
type Handler = tele.HandlerFunc

// Handle associates a state with its handler. A state ending in "*" matches
// every state sharing that prefix; exact registrations win.
func (m *Manager[T]) Handle(st State, h Handler) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

func (m *Manager[T]) handlerFor(st State) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.handlers[st]; ok {
		return h, true
	}
	for key, h := range m.handlers {
		if prefix, ok := strings.CutSuffix(string(key), "*"); ok && strings.HasPrefix(string(st), prefix) {
			return h, true
		}
	}
	return nil, false
}

// ManagerHandler executes the handler registered for the user's current state, if any.
func (m *Manager[T]) ManagerHandler(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	current := m.GetState(user.ID)
	ctx := tghelpers.BuildContext(c)
	h, ok := m.handlerFor(current)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", logger.Status(nil)),
		slog.String("state", string(current)),
		slog.Bool("handled", ok),
	)
	if !ok {
		return nil
	}
	return h(c)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager[T]) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, "tg", "fsm.sweep", slog.Int("expired", n))
			}
		}
	}
}
