package bot

import (
	"context"

	tg "github.com/m3rciful/cupbot/core/telegram"
	"github.com/m3rciful/cupbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/cupbot/core/telegram/helpers"
	"github.com/m3rciful/cupbot/internal/admin"
	"github.com/m3rciful/cupbot/internal/flow"
	"github.com/m3rciful/cupbot/internal/registration"

	tele "gopkg.in/telebot.v4"
)

const textSlowDown = "Слишком много запросов, подождите немного"

// flowHandler is the signature shared by the machine entry points.
type flowHandler func(ctx context.Context, in flow.Input, r flow.Responder) error

// adapt turns a machine entry point into a telebot handler.
func adapt(h flowHandler) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h(tghelpers.BuildContext(c), input(c), responder{c: c})
	}
}

// adaptText adapts HandleText-style entry points that may decline the input.
func adaptText(h func(ctx context.Context, in flow.Input, r flow.Responder) (bool, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		_, err := h(tghelpers.BuildContext(c), input(c), responder{c: c})
		return err
	}
}

// registerCommands binds slash commands and their reply keyboard labels.
func (a *App) registerCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     adapt(a.registration.Start),
		Description: "Главное меню",
	})
	reg.RegisterCommand("/register", commands.Command{
		Handler:     adapt(a.registration.Begin),
		Description: "Зарегистрировать команду",
		Aliases:     []string{registration.LabelRegister},
	})
	reg.RegisterCommand("/info", commands.Command{
		Handler:     adapt(a.registration.Info),
		Description: "Информация о турнире",
		Aliases:     []string{registration.LabelInfo},
	})
	reg.RegisterCommand("/status", commands.Command{
		Handler:     adapt(a.registration.Status),
		Description: "Статус регистрации",
		Aliases:     []string{registration.LabelStatus},
	})
	reg.RegisterCommand("/faq", commands.Command{
		Handler:     adapt(a.registration.FAQ),
		Description: "Частые вопросы",
		Aliases:     []string{registration.LabelFAQ},
	})
	reg.RegisterCommand("/menu", commands.Command{
		Handler:     adapt(a.registration.Menu),
		Description: "Вернуться в меню",
		Hidden:      true,
		Aliases:     []string{registration.LabelBack},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     adapt(a.registration.Cancel),
		Description: "Отменить текущее действие",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:     adapt(a.admin.Open),
		Description: "Панель администратора",
		AdminOnly:   true,
	})
}

// registerCallbacks routes every panel button to the admin machine.
func (a *App) registerCallbacks(reg *tg.Registry) error {
	h := adapt(a.admin.HandleCallback)
	for _, p := range admin.CallbackPatterns() {
		if err := reg.RegisterCallback(p, h); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(a.UnknownCallback())
	return nil
}

// registerStates binds conversation states to the machine that owns them.
func (a *App) registerStates() {
	a.sessions.Handle(registration.StatePrefix+"*", adaptText(a.registration.HandleText))
	a.sessions.Handle(admin.StatePrefix+"*", adaptText(a.admin.HandleText))
}

// UnknownText answers free text outside any conversation with the main menu.
func (a *App) UnknownText() tele.HandlerFunc {
	return adapt(a.registration.Menu)
}

// UnknownDocument treats files like any other unexpected message.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return adapt(a.registration.Menu)
}

// UnknownCallback sends stale buttons through the admin machine, which
// redirects admins to the panel and denies everyone else.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return adapt(a.admin.HandleCallback)
}

func (a *App) onAdminReject(c tele.Context) error {
	return adapt(a.admin.Deny)(c)
}

func onLimited(c tele.Context) error {
	return tghelpers.Respond(c, textSlowDown)
}
