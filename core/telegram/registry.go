package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/core/telegram/callbacks"
	"github.com/m3rciful/cupbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands and callback handlers.
//
// Callback patterns are either an exact telebot unique key, or a raw
// payload prefix ending in "*" (for example "approve_team_*").
type Registry struct {
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbacksMu      sync.RWMutex
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Действие больше недоступно"})
		},
	}
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.Warn(context.Background(), "tg.wire", event, attrs...)
}

// RegisterCommand adds a new command.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		wireWarn("register.command.skip", slog.String("cause", "invalid"), slog.String("handler", name))
		return
	}
	if name[0] != '/' {
		wireWarn("register.command.skip", slog.String("cause", "no_slash_prefix"), slog.String("handler", name))
		return
	}
	if _, exists := r.commands[name]; exists {
		wireWarn("register.command.duplicate", slog.String("handler", name))
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns a slice of tele.Command, optionally filtering out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && !meta.Public() {
			continue
		}
		list = append(list, tele.Command{Text: cmd, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand finds a command by name, by "/name", or by one of its
// aliases (reply keyboard labels). It returns the canonical key.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", commands.Command{}, false
	}
	name := text
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	// "/start@cupbot payload" addresses the same command.
	if head, _, _ := strings.Cut(name, " "); head != "" {
		name, _, _ = strings.Cut(head, "@")
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if strings.EqualFold(alias, text) {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback adds a callback handler for a unique key or payload prefix pattern.
func (r *Registry) RegisterCallback(pattern string, handler tele.HandlerFunc) error {
	if r == nil || pattern == "" || pattern == "*" || handler == nil {
		wireWarn("register.callback.skip", slog.String("cb_key", pattern), slog.Bool("handler_nil", handler == nil))
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[pattern]; exists {
		wireWarn("register.callback.duplicate", slog.String("cb_key", pattern))
		return fmt.Errorf("callback already registered: %s", pattern)
	}
	r.callbacks[pattern] = handler
	return nil
}

// MatchCallback resolves the handler for a pressed button. The exact unique
// key wins; otherwise the longest matching payload prefix is used.
func (r *Registry) MatchCallback(cb *tele.Callback) (string, tele.HandlerFunc, bool) {
	key, payload := callbacks.ParseCallbackData(cb)
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	if key != "" {
		if h, ok := r.callbacks[key]; ok {
			return key, h, true
		}
	}
	var (
		best    string
		handler tele.HandlerFunc
	)
	for pattern, h := range r.callbacks {
		prefix, ok := strings.CutSuffix(pattern, "*")
		if !ok || !strings.HasPrefix(payload, prefix) {
			continue
		}
		if len(prefix) > len(best) {
			best, handler = prefix, h
		}
	}
	if handler == nil {
		return key, nil, false
	}
	return best + "*", handler, true
}

// ListCallbacks returns sorted patterns (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets a global fallback handler for unknown text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// SetupCommands publishes the visible commands in the Telegram command menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(context.Background(), "tg.wire", "register.commands", slog.Int("count", len(list)))
}
