// Package registration drives the public side of the bot: the main menu and
// the step-by-step team registration dialogue.
package registration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/core/telegram/state"
	"github.com/m3rciful/cupbot/internal/flow"
	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/store"
	"github.com/m3rciful/cupbot/internal/verify"
)

const component = "flow.registration"

// Registration states, in dialogue order.
const (
	StateSubscription    state.State = "reg.awaiting_subscription"
	StateTeamName        state.State = "reg.awaiting_team_name"
	StateCaptainNickname state.State = "reg.awaiting_captain_nickname"
	StateRoster          state.State = "reg.awaiting_roster"
	StateAck             state.State = "reg.awaiting_subscription_ack"
	StateContact         state.State = "reg.awaiting_captain_contact"
)

// StatePrefix matches every registration state.
const StatePrefix = "reg."

// Options configure the dialogue.
type Options struct {
	Tournament string
	// Channel is the @username or numeric id every participant must follow.
	Channel    string
	ChannelURL string
	Info       string
	FAQ        string
	Verify     verify.Options
}

// Machine is the registration state machine.
type Machine struct {
	store    store.Store
	verifier verify.Verifier
	sessions *flow.Sessions
	opts     Options
	texts    texts
}

// New builds the machine around explicitly provided collaborators.
func New(st store.Store, v verify.Verifier, sessions *flow.Sessions, opts Options) *Machine {
	return &Machine{
		store:    st,
		verifier: v,
		sessions: sessions,
		opts:     opts,
		texts: texts{
			tournament: opts.Tournament,
			channel:    opts.Channel,
			channelURL: opts.ChannelURL,
			info:       opts.Info,
			faq:        opts.FAQ,
		},
	}
}

// Start greets the user and shows the main menu. Any dialogue in progress is dropped.
func (m *Machine) Start(ctx context.Context, in flow.Input, r flow.Responder) error {
	m.sessions.Clear(in.UserID)
	return r.Send(ctx, m.texts.welcome(), mainKeyboard())
}

// Menu returns to the main menu.
func (m *Machine) Menu(ctx context.Context, in flow.Input, r flow.Responder) error {
	m.sessions.Clear(in.UserID)
	return r.Send(ctx, m.texts.menu(), mainKeyboard())
}

// Cancel aborts whatever dialogue the user is in.
func (m *Machine) Cancel(ctx context.Context, in flow.Input, r flow.Responder) error {
	prev := m.sessions.GetState(in.UserID)
	m.sessions.Clear(in.UserID)
	logger.Info(ctx, component, "registration.cancel", slog.String("state", string(prev)))
	return r.Send(ctx, m.texts.cancelled(), mainKeyboard())
}

// Begin enters AwaitingSubscription with an empty draft.
func (m *Machine) Begin(ctx context.Context, in flow.Input, r flow.Responder) error {
	m.sessions.Set(in.UserID, StateSubscription, flow.Data{})
	logger.Info(ctx, component, "registration.begin")
	return r.Send(ctx, m.texts.subscriptionRequired(), subscriptionKeyboard())
}

// Info shows the tournament information.
func (m *Machine) Info(ctx context.Context, in flow.Input, r flow.Responder) error {
	m.sessions.Clear(in.UserID)
	return r.Send(ctx, m.texts.infoText(), backKeyboard())
}

// FAQ shows the frequently asked questions.
func (m *Machine) FAQ(ctx context.Context, in flow.Input, r flow.Responder) error {
	m.sessions.Clear(in.UserID)
	return r.Send(ctx, m.texts.faqText(), backKeyboard())
}

// Status shows the team the sender belongs to.
func (m *Machine) Status(ctx context.Context, in flow.Input, r flow.Responder) error {
	m.sessions.Clear(in.UserID)
	team, err := m.store.FindTeamByIdentity(ctx, in.UserID)
	if err != nil {
		m.logFailure(ctx, "registration.status", err)
		return r.Send(ctx, m.texts.tryAgain(), mainKeyboard())
	}
	if team == nil {
		return r.Send(ctx, m.texts.notRegistered(), mainKeyboard())
	}
	return r.Send(ctx, m.texts.status(team), mainKeyboard())
}

// HandleText advances the dialogue with a free-text message. It reports
// false when the user is not inside a registration.
func (m *Machine) HandleText(ctx context.Context, in flow.Input, r flow.Responder) (bool, error) {
	sess := m.sessions.Get(in.UserID)
	if !strings.HasPrefix(string(sess.State), StatePrefix) {
		return false, nil
	}
	text := strings.TrimSpace(in.Text)
	back := text == LabelBack

	var err error
	switch sess.State {
	case StateSubscription:
		err = m.onSubscription(ctx, in, r, text, back)
	case StateTeamName:
		err = m.onTeamName(ctx, in, r, sess.Data, text, back)
	case StateCaptainNickname:
		err = m.onCaptainNickname(ctx, in, r, sess.Data, text, back)
	case StateRoster:
		err = m.onRoster(ctx, in, r, sess.Data, back)
	case StateAck:
		err = m.onAck(ctx, in, r, sess.Data, text, back)
	case StateContact:
		err = m.onContact(ctx, in, r, sess.Data, text, back)
	default:
		m.sessions.Clear(in.UserID)
		err = r.Send(ctx, m.texts.menu(), mainKeyboard())
	}
	return true, err
}

func (m *Machine) onSubscription(ctx context.Context, in flow.Input, r flow.Responder, text string, back bool) error {
	if back {
		return m.Menu(ctx, in, r)
	}
	if text != LabelCheckSubscription {
		return r.Send(ctx, m.texts.subscriptionRequired(), subscriptionKeyboard())
	}
	status, err := m.verifier.CheckMembership(ctx, m.opts.Channel, in.UserID)
	if err != nil {
		m.logFailure(ctx, "registration.subscription", err)
		return r.Send(ctx, m.texts.subscriptionCheckFailed(), subscriptionKeyboard())
	}
	logger.Info(ctx, component, "registration.subscription", slog.String("membership", string(status)))
	if !status.Subscribed() {
		return r.Send(ctx, m.texts.notSubscribed(), subscriptionKeyboard())
	}
	m.sessions.SetState(in.UserID, StateTeamName)
	return r.Send(ctx, m.texts.askTeamName(), backKeyboard())
}

func (m *Machine) onTeamName(ctx context.Context, in flow.Input, r flow.Responder, data flow.Data, text string, back bool) error {
	if back {
		m.sessions.SetState(in.UserID, StateSubscription)
		return r.Send(ctx, m.texts.subscriptionRequired(), subscriptionKeyboard())
	}
	if text == "" {
		return r.Send(ctx, m.texts.askTeamName(), backKeyboard())
	}
	if utf8.RuneCountInString(text) > models.MaxNameLength {
		return r.Send(ctx, m.texts.nameTooLong(), backKeyboard())
	}
	exists, err := m.store.TeamExistsByName(ctx, text)
	if err != nil {
		m.logFailure(ctx, "registration.team_name", err)
		return r.Send(ctx, m.texts.tryAgain(), backKeyboard())
	}
	if exists {
		return r.Send(ctx, m.texts.teamNameTaken(), backKeyboard())
	}
	data.Draft.TeamName = text
	m.sessions.Set(in.UserID, StateCaptainNickname, data)
	return r.Send(ctx, m.texts.askCaptainNickname(), backKeyboard())
}

func (m *Machine) onCaptainNickname(ctx context.Context, in flow.Input, r flow.Responder, data flow.Data, text string, back bool) error {
	if back {
		m.sessions.SetState(in.UserID, StateTeamName)
		return r.Send(ctx, m.texts.askTeamName(), backKeyboard())
	}
	if text == "" {
		return r.Send(ctx, m.texts.askCaptainNickname(), backKeyboard())
	}
	if utf8.RuneCountInString(text) > models.MaxNameLength {
		return r.Send(ctx, m.texts.nameTooLong(), backKeyboard())
	}
	data.Draft.CaptainNickname = text
	m.sessions.Set(in.UserID, StateRoster, data)
	return r.Send(ctx, m.texts.askRoster(), backKeyboard())
}

func (m *Machine) onRoster(ctx context.Context, in flow.Input, r flow.Responder, data flow.Data, back bool) error {
	if back {
		m.sessions.SetState(in.UserID, StateCaptainNickname)
		return r.Send(ctx, m.texts.askCaptainNickname(), backKeyboard())
	}
	entries := ParseRoster(in.Text)
	if len(entries) < MinEntries {
		return r.Send(ctx, m.texts.rosterTooShort(len(entries)), backKeyboard())
	}
	if len(entries) > MaxEntries {
		return r.Send(ctx, m.texts.rosterTooLong(len(entries)), backKeyboard())
	}
	roster, err := BuildRoster(data.Draft.CaptainNickname, in.Username, in.UserID, entries)
	if err != nil {
		var rerr *models.RosterError
		if errors.As(err, &rerr) {
			switch {
			case rerr.TooFew:
				return r.Send(ctx, m.texts.rosterTooShort(len(entries)), backKeyboard())
			case rerr.TooMany:
				return r.Send(ctx, m.texts.rosterTooLong(len(entries)), backKeyboard())
			case len(rerr.LongNicknames) > 0:
				return r.Send(ctx, m.texts.rosterLongNicknames(rerr.LongNicknames), backKeyboard())
			}
			return r.Send(ctx, m.texts.rosterDuplicates(rerr), backKeyboard())
		}
		return err
	}

	if err := r.Send(ctx, m.texts.checking(), &flow.Keyboard{Remove: true}); err != nil {
		return err
	}
	results := verify.CheckRoster(ctx, m.verifier, m.opts.Channel, roster, m.opts.Verify)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	logger.Info(ctx, component, "registration.roster_checked",
		slog.Int("players", len(results)),
		slog.Int("lookup_failures", failed),
	)

	data.Draft.Players = verify.Players(results)
	data.Draft.Summary = m.texts.summary(results)
	m.sessions.Set(in.UserID, StateAck, data)
	return r.Send(ctx, data.Draft.Summary, ackKeyboard())
}

func (m *Machine) onAck(ctx context.Context, in flow.Input, r flow.Responder, data flow.Data, text string, back bool) error {
	switch {
	case back:
		data.Draft.Players = nil
		data.Draft.Summary = ""
		m.sessions.Set(in.UserID, StateRoster, data)
		return r.Send(ctx, m.texts.resendRoster(), backKeyboard())
	case text == LabelContinue:
		m.sessions.SetState(in.UserID, StateContact)
		return r.Send(ctx, m.texts.askContact(), backKeyboard())
	}
	return r.Send(ctx, m.texts.ackUseButtons(), ackKeyboard())
}

func (m *Machine) onContact(ctx context.Context, in flow.Input, r flow.Responder, data flow.Data, text string, back bool) error {
	if back {
		m.sessions.SetState(in.UserID, StateAck)
		return r.Send(ctx, data.Draft.Summary, ackKeyboard())
	}
	if text == "" {
		return r.Send(ctx, m.texts.askContact(), backKeyboard())
	}
	if utf8.RuneCountInString(text) > models.MaxContactLength {
		return r.Send(ctx, m.texts.contactTooLong(), backKeyboard())
	}

	// Registration ends here whatever the outcome.
	m.sessions.Clear(in.UserID)
	id, err := m.store.RegisterTeam(ctx, data.Draft.TeamName, data.Draft.Players, text)
	if err != nil {
		var dup *models.DuplicateNameError
		if errors.As(err, &dup) {
			logger.Warn(ctx, component, "registration.save",
				slog.String("err", err.Error()),
				slog.String("err_code", dup.Code()),
			)
			return r.Send(ctx, m.texts.nameTakenOnSave(), mainKeyboard())
		}
		m.logFailure(ctx, "registration.save", err)
		return r.Send(ctx, m.texts.saveFailed(), mainKeyboard())
	}
	logger.Info(ctx, component, "registration.completed",
		slog.Int64("team_id", id),
		slog.Int("players", len(data.Draft.Players)),
	)
	return r.Send(ctx, m.texts.confirmation(data.Draft, text), mainKeyboard())
}

func (m *Machine) logFailure(ctx context.Context, event string, err error) {
	attrs := []slog.Attr{slog.String("err", err.Error())}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		attrs = append(attrs, slog.String("err_code", coded.Code()))
	}
	logger.Error(ctx, component, event, attrs...)
}
