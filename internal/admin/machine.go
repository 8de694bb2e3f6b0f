// Package admin drives the admin panel: team review, comments, admin
// management and statistics. Every entry point checks IsAdmin first.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/core/telegram/state"
	"github.com/m3rciful/cupbot/internal/flow"
	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/store"
	"github.com/m3rciful/cupbot/internal/verify"
)

const component = "flow.admin"

// Admin prompt states.
const (
	StateAwaitingComment state.State = "admin.awaiting_comment"
	StateAwaitingAdminID state.State = "admin.awaiting_admin_id"
)

// StatePrefix matches every admin state.
const StatePrefix = "admin."

// Options configure the panel.
type Options struct {
	// Location is used to render dates; nil means UTC.
	Location *time.Location
}

// Machine is the admin state machine.
type Machine struct {
	store    store.Store
	verifier verify.Verifier
	sessions *flow.Sessions
	loc      *time.Location
}

// New builds the machine around explicitly provided collaborators.
func New(st store.Store, v verify.Verifier, sessions *flow.Sessions, opts Options) *Machine {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Machine{store: st, verifier: v, sessions: sessions, loc: loc}
}

// authorize reports whether the sender may use the panel. Denials are
// delivered here; the caller just stops.
func (m *Machine) authorize(ctx context.Context, in flow.Input, r flow.Responder) (bool, error) {
	ok, err := m.store.IsAdmin(ctx, in.UserID)
	if err != nil {
		m.logFailure(ctx, "admin.authorize", err)
		if in.Callback {
			return false, r.Answer(ctx, textTryAgain)
		}
		return false, r.Send(ctx, textTryAgain, nil)
	}
	if ok {
		return true, nil
	}
	return false, m.Deny(ctx, in, r)
}

// Deny answers a non-admin with the access-denied notice and drops any
// admin dialogue the user was left in.
func (m *Machine) Deny(ctx context.Context, in flow.Input, r flow.Responder) error {
	denied := &models.AuthorizationError{Identity: in.UserID}
	logger.Warn(ctx, component, "admin.denied",
		slog.Int64("identity", in.UserID),
		slog.String("err", denied.Error()),
		slog.String("err_code", denied.Code()),
	)
	if in.Callback {
		return r.Answer(ctx, textAccessDenied)
	}
	if strings.HasPrefix(string(m.sessions.GetState(in.UserID)), StatePrefix) {
		m.sessions.Clear(in.UserID)
	}
	return r.Send(ctx, textAccessDenied, nil)
}

// Open handles the /admin command.
func (m *Machine) Open(ctx context.Context, in flow.Input, r flow.Responder) error {
	ok, err := m.authorize(ctx, in, r)
	if !ok {
		return err
	}
	m.sessions.Clear(in.UserID)
	logger.Info(ctx, component, "admin.open")
	return r.Send(ctx, panelText(), panelKeyboard())
}

// HandleCallback dispatches an inline button press; in.Text carries the payload.
func (m *Machine) HandleCallback(ctx context.Context, in flow.Input, r flow.Responder) error {
	ok, err := m.authorize(ctx, in, r)
	if !ok {
		return err
	}
	act, err := ParseAction(in.Text)
	if err != nil {
		logger.Warn(ctx, component, "admin.stale_payload",
			slog.String("payload", in.Text),
			slog.String("err_code", "NOT_FOUND"),
		)
		if err := r.Answer(ctx, textStale); err != nil {
			return err
		}
		return m.showPanel(ctx, in, r)
	}

	switch act.Kind {
	case KindPanel:
		return m.showPanel(ctx, in, r)
	case KindTeamsMenu:
		return m.showTeamsMenu(ctx, r, "")
	case KindTeamList:
		return m.showTeamList(ctx, r, act.Status, false)
	case KindViewTeam:
		return m.showTeam(ctx, r, act.TeamID, act.Status)
	case KindApprove:
		return m.changeStatus(ctx, r, act, models.StatusApproved)
	case KindReject:
		return m.changeStatus(ctx, r, act, models.StatusRejected)
	case KindComment:
		return m.promptComment(ctx, in, r, act)
	case KindCancelComment:
		m.sessions.Clear(in.UserID)
		return m.showTeam(ctx, r, act.TeamID, act.Status)
	case KindAddAdmin:
		m.sessions.Set(in.UserID, StateAwaitingAdminID, flow.Data{})
		text, kb := addAdminPrompt()
		return r.Edit(ctx, text, kb)
	case KindAdmins:
		return m.showAdmins(ctx, in, r)
	case KindRemoveAdmin:
		return m.removeAdmin(ctx, in, r, act.Identity)
	case KindStats:
		return m.showStats(ctx, r)
	}
	return m.showPanel(ctx, in, r)
}

// HandleText consumes free text while an admin prompt is open. It reports
// false when the user is not inside an admin prompt.
func (m *Machine) HandleText(ctx context.Context, in flow.Input, r flow.Responder) (bool, error) {
	sess := m.sessions.Get(in.UserID)
	if !strings.HasPrefix(string(sess.State), StatePrefix) {
		return false, nil
	}
	ok, err := m.authorize(ctx, in, r)
	if !ok {
		return true, err
	}
	switch sess.State {
	case StateAwaitingComment:
		return true, m.saveComment(ctx, in, r, sess.Data)
	case StateAwaitingAdminID:
		return true, m.addAdmin(ctx, in, r)
	}
	m.sessions.Clear(in.UserID)
	return true, r.Send(ctx, panelText(), panelKeyboard())
}

func (m *Machine) showPanel(ctx context.Context, in flow.Input, r flow.Responder) error {
	if strings.HasPrefix(string(m.sessions.GetState(in.UserID)), StatePrefix) {
		m.sessions.Clear(in.UserID)
	}
	return r.Edit(ctx, panelText(), panelKeyboard())
}

// showTeamsMenu renders the category menu; a non-empty note is put above it.
func (m *Machine) showTeamsMenu(ctx context.Context, r flow.Responder, note string) error {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, st := range models.Statuses {
		n, err := m.store.CountByStatus(ctx, st)
		if err != nil {
			m.logFailure(ctx, "admin.teams_menu", err)
			return r.Edit(ctx, textTryAgain, backToPanelKeyboard())
		}
		counts[st] = n
	}
	text, kb := teamsMenu(counts)
	if note != "" {
		text = note + "\n\n" + text
	}
	return r.Edit(ctx, text, kb)
}

// showTeamList falls back to the category menu when the list is empty.
// A callback may be answered only once, so when answered is set the
// empty-list notice goes into the menu text instead.
func (m *Machine) showTeamList(ctx context.Context, r flow.Responder, st models.Status, answered bool) error {
	teams, err := m.store.ListTeams(ctx, &st)
	if err != nil {
		m.logFailure(ctx, "admin.team_list", err)
		return r.Edit(ctx, textTryAgain, backToPanelKeyboard())
	}
	if len(teams) == 0 {
		if answered {
			return m.showTeamsMenu(ctx, r, textEmptyList)
		}
		if err := r.Answer(ctx, textEmptyList); err != nil {
			return err
		}
		return m.showTeamsMenu(ctx, r, "")
	}
	text, kb := teamList(st, teams)
	return r.Edit(ctx, text, kb)
}

func (m *Machine) showTeam(ctx context.Context, r flow.Responder, id int64, origin models.Status) error {
	team, err := m.store.GetTeam(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if err := r.Answer(ctx, textTeamNotFound); err != nil {
				return err
			}
			return m.showTeamList(ctx, r, origin, true)
		}
		m.logFailure(ctx, "admin.view_team", err)
		return r.Edit(ctx, textTryAgain, backToPanelKeyboard())
	}
	text, kb := teamDetail(team, origin, m.loc)
	return r.Edit(ctx, text, kb)
}

func (m *Machine) changeStatus(ctx context.Context, r flow.Responder, act Action, to models.Status) error {
	ok, err := m.store.SetStatus(ctx, act.TeamID, to, nil)
	if err != nil {
		m.logFailure(ctx, "admin.set_status", err)
		return r.Answer(ctx, textTryAgain)
	}
	if !ok {
		if err := r.Answer(ctx, textTeamNotFound); err != nil {
			return err
		}
		return m.showTeamList(ctx, r, act.Status, true)
	}
	logger.Info(ctx, component, "admin.set_status",
		slog.Int64("team_id", act.TeamID),
		slog.String("status", string(to)),
	)
	ack := textApproved
	if to == models.StatusRejected {
		ack = textRejected
	}
	if err := r.Answer(ctx, ack); err != nil {
		return err
	}
	return m.showTeamList(ctx, r, act.Status, true)
}

func (m *Machine) promptComment(ctx context.Context, in flow.Input, r flow.Responder, act Action) error {
	team, err := m.store.GetTeam(ctx, act.TeamID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if err := r.Answer(ctx, textTeamNotFound); err != nil {
				return err
			}
			return m.showTeamList(ctx, r, act.Status, true)
		}
		m.logFailure(ctx, "admin.comment_prompt", err)
		return r.Answer(ctx, textTryAgain)
	}
	m.sessions.Set(in.UserID, StateAwaitingComment, flow.Data{CommentTeam: team.ID, Origin: act.Status})
	text, kb := commentPrompt(team, act.Status)
	return r.Edit(ctx, text, kb)
}

func (m *Machine) saveComment(ctx context.Context, in flow.Input, r flow.Responder, data flow.Data) error {
	comment := strings.TrimSpace(in.Text)
	if comment == "" {
		return r.Send(ctx, textEmptyComment, nil)
	}
	if utf8.RuneCountInString(comment) > models.MaxCommentLength {
		return r.Send(ctx, fmt.Sprintf(textLongComment, models.MaxCommentLength), nil)
	}
	m.sessions.Clear(in.UserID)
	ok, err := m.store.SetComment(ctx, data.CommentTeam, comment)
	if err != nil {
		m.logFailure(ctx, "admin.set_comment", err)
		return r.Send(ctx, textTryAgain, panelKeyboard())
	}
	if !ok {
		return r.Send(ctx, textTeamNotFound, panelKeyboard())
	}
	logger.Info(ctx, component, "admin.set_comment", slog.Int64("team_id", data.CommentTeam))

	team, err := m.store.GetTeam(ctx, data.CommentTeam)
	if err != nil {
		m.logFailure(ctx, "admin.view_team", err)
		return r.Send(ctx, textCommentSaved, panelKeyboard())
	}
	text, kb := teamDetail(team, data.Origin, m.loc)
	return r.Send(ctx, textCommentSaved+"\n\n"+text, kb)
}

func (m *Machine) addAdmin(ctx context.Context, in flow.Input, r flow.Responder) error {
	m.sessions.Clear(in.UserID)
	raw := strings.TrimSpace(in.Text)
	id, err := parseIdentity(raw)
	if err != nil {
		m.logRejected(ctx, err)
		return r.Send(ctx, textInvalidID, panelKeyboard())
	}

	exists, err := m.store.IsAdmin(ctx, id)
	if err != nil {
		m.logFailure(ctx, "admin.add_admin", err)
		return r.Send(ctx, textTryAgain, panelKeyboard())
	}
	if exists {
		return r.Send(ctx, fmt.Sprintf(textAlreadyAdmin, id), panelKeyboard())
	}

	handle, known, err := m.resolveUser(ctx, id)
	if err != nil {
		m.logFailure(ctx, "admin.add_admin", err)
		return r.Send(ctx, textTryAgain, panelKeyboard())
	}
	if !known {
		m.logRejected(ctx, &models.UnknownUserError{Identity: id})
		return r.Send(ctx, fmt.Sprintf(textUnknownUser, id), panelKeyboard())
	}

	added, err := m.store.AddAdmin(ctx, id, handle)
	if err != nil {
		m.logFailure(ctx, "admin.add_admin", err)
		return r.Send(ctx, textTryAgain, panelKeyboard())
	}
	if !added {
		return r.Send(ctx, fmt.Sprintf(textAlreadyAdmin, id), panelKeyboard())
	}
	logger.Info(ctx, component, "admin.add_admin", slog.Int64("identity", id))
	return r.Send(ctx, fmt.Sprintf(textAdminAdded, id), panelKeyboard())
}

// resolveUser treats an identity as known when it is stored anywhere or the
// messenger can reach it. The messenger handle is kept when available.
func (m *Machine) resolveUser(ctx context.Context, id int64) (string, bool, error) {
	handle, reachable, lookupErr := m.verifier.LookupUser(ctx, id)
	if reachable {
		return handle, true, nil
	}
	stored, err := m.store.IdentityKnown(ctx, id)
	if err != nil {
		return "", false, err
	}
	if stored {
		return "", true, nil
	}
	if lookupErr != nil {
		return "", false, lookupErr
	}
	return "", false, nil
}

func (m *Machine) showAdmins(ctx context.Context, in flow.Input, r flow.Responder) error {
	admins, err := m.store.ListAdmins(ctx)
	if err != nil {
		m.logFailure(ctx, "admin.list_admins", err)
		return r.Edit(ctx, textTryAgain, backToPanelKeyboard())
	}
	text, kb := adminList(admins, in.UserID, m.loc)
	return r.Edit(ctx, text, kb)
}

func (m *Machine) removeAdmin(ctx context.Context, in flow.Input, r flow.Responder, identity int64) error {
	admins, err := m.store.ListAdmins(ctx)
	if err != nil {
		m.logFailure(ctx, "admin.remove_admin", err)
		return r.Answer(ctx, textTryAgain)
	}
	if identity == in.UserID || len(admins) <= 1 {
		if err := r.Answer(ctx, textCannotRemove); err != nil {
			return err
		}
		return m.showAdmins(ctx, in, r)
	}
	ok, err := m.store.RemoveAdmin(ctx, identity)
	if err != nil {
		m.logFailure(ctx, "admin.remove_admin", err)
		return r.Answer(ctx, textTryAgain)
	}
	notice := textAdminRemoved
	if !ok {
		notice = textAdminNotFound
	} else {
		logger.Info(ctx, component, "admin.remove_admin", slog.Int64("identity", identity))
	}
	if err := r.Answer(ctx, notice); err != nil {
		return err
	}
	return m.showAdmins(ctx, in, r)
}

func (m *Machine) showStats(ctx context.Context, r flow.Responder) error {
	stats, err := m.store.ComputeStats(ctx)
	if err != nil {
		m.logFailure(ctx, "admin.stats", err)
		return r.Edit(ctx, textTryAgain, backToPanelKeyboard())
	}
	return r.Edit(ctx, statsText(stats, m.loc), backToPanelKeyboard())
}

func parseIdentity(raw string) (int64, error) {
	if raw == "" || strings.IndexFunc(raw, func(c rune) bool { return c < '0' || c > '9' }) >= 0 {
		return 0, &models.InvalidIdentityError{Input: raw}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.InvalidIdentityError{Input: raw}
	}
	return id, nil
}

func (m *Machine) logRejected(ctx context.Context, err error) {
	attrs := []slog.Attr{slog.String("err", err.Error())}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		attrs = append(attrs, slog.String("err_code", coded.Code()))
	}
	logger.Info(ctx, component, "admin.add_admin_rejected", attrs...)
}

func (m *Machine) logFailure(ctx context.Context, event string, err error) {
	attrs := []slog.Attr{slog.String("err", err.Error())}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		attrs = append(attrs, slog.String("err_code", coded.Code()))
	}
	logger.Error(ctx, component, event, attrs...)
}
