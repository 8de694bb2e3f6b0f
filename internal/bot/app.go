// Package bot assembles cupbot: it wires the store, the verifier and both
// conversation machines into the telebot runtime.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/m3rciful/cupbot/core/bootstrap"
	"github.com/m3rciful/cupbot/core/logger"
	tg "github.com/m3rciful/cupbot/core/telegram"
	"github.com/m3rciful/cupbot/core/telegram/middleware"
	"github.com/m3rciful/cupbot/core/telegram/router"
	"github.com/m3rciful/cupbot/core/telegram/state"
	"github.com/m3rciful/cupbot/core/telegram/ui"
	"github.com/m3rciful/cupbot/internal/admin"
	"github.com/m3rciful/cupbot/internal/config"
	"github.com/m3rciful/cupbot/internal/flow"
	"github.com/m3rciful/cupbot/internal/registration"
	"github.com/m3rciful/cupbot/internal/store"
	"github.com/m3rciful/cupbot/internal/verify"

	tele "gopkg.in/telebot.v4"
)

const sweepInterval = time.Minute

// Deps are the collaborators New does not build itself.
type Deps struct {
	Store store.Store
	// Bot defaults to one built from the config.
	Bot *tele.Bot
	// Verifier defaults to the Bot API backed implementation.
	Verifier verify.Verifier
	// Closer releases infrastructure such as the database pool.
	Closer io.Closer
}

// App is the assembled bot.
type App struct {
	cfg          *config.AppConfig
	bot          *tele.Bot
	store        store.Store
	sessions     *flow.Sessions
	directory    *verify.Directory
	registration *registration.Machine
	admin        *admin.Machine
	registry     *tg.Registry
	closer       io.Closer
}

var _ ui.FallbackProvider = (*App)(nil)

// New builds the application graph.
func New(cfg *config.AppConfig, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bot: nil config")
	}
	if deps.Store == nil {
		return nil, errors.New("bot: nil store")
	}

	bot := deps.Bot
	if bot == nil {
		var err error
		if bot, err = tg.NewBot(&cfg.Config, false); err != nil {
			return nil, err
		}
	}

	a := &App{
		cfg:       cfg,
		bot:       bot,
		store:     deps.Store,
		sessions:  flow.NewSessions(state.WithTTL(cfg.Session.IdleTTL())),
		directory: verify.NewDirectory(),
		registry:  tg.NewRegistry(),
		closer:    deps.Closer,
	}

	verifier := deps.Verifier
	if verifier == nil {
		verifier = verify.NewTelegram(bot, a.directory, cfg.Verification.Timeout())
	}

	a.registration = registration.New(a.store, verifier, a.sessions, registration.Options{
		Tournament: cfg.Tournament.Name,
		Channel:    cfg.Tournament.Channel,
		ChannelURL: cfg.Tournament.ChannelURL,
		Info:       cfg.Tournament.Info,
		FAQ:        cfg.Tournament.FAQ,
		Verify: verify.Options{
			Timeout:     cfg.Verification.Timeout(),
			Parallelism: cfg.Verification.Parallelism,
		},
	})
	a.admin = admin.New(a.store, verifier, a.sessions, admin.Options{
		Location: cfg.Tournament.Location(),
	})

	a.registerCommands(a.registry)
	if err := a.registerCallbacks(a.registry); err != nil {
		return nil, fmt.Errorf("bot: callbacks: %w", err)
	}
	a.registerStates()
	return a, nil
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// Sessions exposes the conversation store.
func (a *App) Sessions() *flow.Sessions { return a.sessions }

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		Admins:        middleware.AdminCheckerFunc(a.store.IsAdmin),
		OnAdminReject: a.onAdminReject,
	})
	textOpts, callbackOpts := router.FallbackOptions(a)
	routes = append(routes, router.TextRoutes(a.sessions, a.registry, textOpts)...)
	routes = append(routes, router.CallbackRoute(a.registry, callbackOpts))

	return tg.RunOptions{
		Config:            &a.cfg.Config,
		Registry:          a.registry,
		Bot:               a.bot,
		DispatcherOptions: tg.DispatcherOptions(a.cfg.Sender),
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, tg.MiddlewareOptions{
			OnLimited: onLimited,
			Seen:      a.directory.Remember,
			Serialize: a.sessions.Serialize,
		}),
		Routes: routes,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			go a.sessions.RunSweeper(ctx, sweepInterval)
			logger.Info(ctx, "app", "tournament",
				slog.String("name", a.cfg.Tournament.Name),
				slog.String("channel", a.cfg.Tournament.Channel),
				slog.String("driver", a.cfg.Database.Driver),
			)
			return nil
		},
	}, nil
}

// Close releases the infrastructure handed over in Deps.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// AdminSeeder makes the configured bootstrap admin an admin.
func AdminSeeder(identity int64) bootstrap.Seeder[store.Store] {
	return bootstrap.SeederFunc[store.Store](func(ctx context.Context, st store.Store) error {
		if identity <= 0 {
			return nil
		}
		added, err := st.AddAdmin(ctx, identity, "")
		if err != nil {
			return err
		}
		logger.Info(ctx, "db.seed", "admin", slog.Int64("identity", identity), slog.Bool("added", added))
		return nil
	})
}
