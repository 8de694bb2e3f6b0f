package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/cupbot/internal/flow"
	"github.com/m3rciful/cupbot/internal/flow/flowtest"
	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/store/memory"
	"github.com/m3rciful/cupbot/internal/verify"
)

const captainID = 111

type harness struct {
	t        *testing.T
	store    *memory.Store
	verifier *flowtest.Verifier
	sessions *flow.Sessions
	machine  *Machine
	rec      *flowtest.Recorder
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:     t,
		store: memory.New(),
		verifier: &flowtest.Verifier{
			Handles: map[string]int64{"alpha_h": 201, "beta_h": 202},
			Members: map[int64]models.Membership{
				captainID: models.MembershipMember,
				201:       models.MembershipAdministrator,
				202:       models.MembershipLeft,
			},
		},
		sessions: flow.NewSessions(),
		rec:      &flowtest.Recorder{},
	}
	h.machine = New(h.store, h.verifier, h.sessions, Options{
		Tournament: "M5 Domination Cup",
		Channel:    "@m5cup",
		ChannelURL: "https://t.me/m5cup",
		Verify:     verify.Options{Timeout: time.Second},
	})
	return h
}

func (h *harness) input(text string) flow.Input {
	return flow.Input{UserID: captainID, ChatID: captainID, Username: "cap", Text: text}
}

func (h *harness) say(text string) {
	h.t.Helper()
	handled, err := h.machine.HandleText(context.Background(), h.input(text), h.rec)
	if err != nil {
		h.t.Fatalf("handle %q: %v", text, err)
	}
	if !handled {
		h.t.Fatalf("text %q not handled", text)
	}
}

func (h *harness) expectState(want string) {
	h.t.Helper()
	if got := string(h.sessions.GetState(captainID)); got != want {
		h.t.Fatalf("state = %s, want %s", got, want)
	}
}

func (h *harness) begin() {
	h.t.Helper()
	if err := h.machine.Begin(context.Background(), h.input(LabelRegister), h.rec); err != nil {
		h.t.Fatalf("begin: %v", err)
	}
}

const scenarioRoster = "Alpha – @alpha_h\nBeta – @beta_h\nGamma – @gamma_h"

func (h *harness) walkToAck() {
	h.t.Helper()
	h.begin()
	h.say(LabelCheckSubscription)
	h.say("Dragons")
	h.say("Cap")
	h.say(scenarioRoster)
	h.expectState(string(StateAck))
}

func TestScenarioRegistersTeam(t *testing.T) {
	h := newHarness(t)
	h.walkToAck()

	summary := h.rec.Last()
	if !summary.HasButton(LabelContinue) || !summary.HasButton(LabelBack) {
		t.Fatalf("summary must offer continue/back: %+v", summary.Keyboard)
	}
	lines := strings.Split(summary.Text, "\n")
	order := []string{"Cap", "Alpha", "Beta", "Gamma"}
	idx := 0
	for _, l := range lines {
		if idx < len(order) && strings.Contains(l, order[idx]+" –") {
			idx++
		}
	}
	if idx != len(order) {
		t.Fatalf("summary does not list roster in input order:\n%s", summary.Text)
	}
	if !strings.Contains(summary.Text, "Gamma – @gamma_h (проверьте") {
		t.Fatalf("unresolved handle not reported:\n%s", summary.Text)
	}

	h.say(LabelContinue)
	h.expectState(string(StateContact))
	h.say("tg:@cap")
	h.expectState("idle")

	teams, err := h.store.ListTeams(context.Background(), nil)
	if err != nil || len(teams) != 1 {
		t.Fatalf("teams = %v, %v", teams, err)
	}
	team := teams[0]
	if team.Name != "Dragons" || team.Status != models.StatusPending || team.CaptainContact != "tg:@cap" {
		t.Fatalf("unexpected team %+v", team)
	}
	if len(team.Players) != 4 {
		t.Fatalf("players = %d, want 4", len(team.Players))
	}
	capt := team.Players[0]
	if !capt.IsCaptain || capt.Nickname != "Cap" || capt.Identity == nil || *capt.Identity != captainID {
		t.Fatalf("unexpected captain %+v", capt)
	}
	if team.Players[1].Identity == nil || *team.Players[1].Identity != 201 {
		t.Fatalf("alpha identity not resolved: %+v", team.Players[1])
	}
	if team.Players[3].Identity != nil {
		t.Fatalf("gamma must stay unresolved: %+v", team.Players[3])
	}
	if confirm := h.rec.Last().Text; !strings.Contains(confirm, "Cap – @cap (Капитан)") || !strings.Contains(confirm, "tg:@cap") {
		t.Fatalf("unexpected confirmation:\n%s", confirm)
	}
}

func TestSubscriptionGate(t *testing.T) {
	h := newHarness(t)
	h.verifier.Members[captainID] = models.MembershipLeft
	h.begin()
	h.say(LabelCheckSubscription)
	h.expectState(string(StateSubscription))

	h.verifier.Err = errors.New("timeout")
	h.say(LabelCheckSubscription)
	h.expectState(string(StateSubscription))
	if !h.rec.Last().HasButton(LabelCheckSubscription) {
		t.Fatal("adapter failure must re-offer the check")
	}

	h.verifier.Err = nil
	h.verifier.Members[captainID] = models.MembershipCreator
	h.say("something else")
	h.expectState(string(StateSubscription))
	h.say(LabelCheckSubscription)
	h.expectState(string(StateTeamName))
}

func TestBackNavigation(t *testing.T) {
	h := newHarness(t)
	h.begin()
	h.say(LabelBack)
	h.expectState("idle")

	h.begin()
	h.say(LabelCheckSubscription)
	h.say(LabelBack)
	h.expectState(string(StateSubscription))
	h.say(LabelCheckSubscription)
	h.say("Dragons")
	h.say(LabelBack)
	h.expectState(string(StateTeamName))
	h.say("Dragons")
	h.say("Cap")
	h.expectState(string(StateRoster))
	h.say(LabelBack)
	h.expectState(string(StateCaptainNickname))
	if got := h.sessions.Get(captainID).Data.Draft.TeamName; got != "Dragons" {
		t.Fatalf("back must keep entered fields, team name = %q", got)
	}
	h.say("Cap")
	h.say(scenarioRoster)
	h.expectState(string(StateAck))
	h.say(LabelContinue)
	h.say(LabelBack)
	h.expectState(string(StateAck))
	if !strings.Contains(h.rec.Last().Text, "Alpha") {
		t.Fatal("back from contact must show the stored summary")
	}
	h.say(LabelBack)
	h.expectState(string(StateRoster))
	if players := h.sessions.Get(captainID).Data.Draft.Players; players != nil {
		t.Fatalf("back from ack must clear the roster, got %d players", len(players))
	}
}

func TestAckRequiresButtons(t *testing.T) {
	h := newHarness(t)
	h.walkToAck()
	h.say("what now?")
	h.expectState(string(StateAck))
	if !h.rec.Last().HasButton(LabelContinue) {
		t.Fatal("expected the ack keyboard again")
	}
}

func TestTeamNameTaken(t *testing.T) {
	h := newHarness(t)
	roster, _ := BuildRoster("Other", "other", 999, ParseRoster("A – @a\nB – @b\nC – @c"))
	if _, err := h.store.RegisterTeam(context.Background(), "Dragons", roster, "c"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h.begin()
	h.say(LabelCheckSubscription)
	h.say("dRaGoNs")
	h.expectState(string(StateTeamName))
	if !strings.Contains(h.rec.Last().Text, "уже зарегистрирована") {
		t.Fatalf("unexpected reply %q", h.rec.Last().Text)
	}
}

func rosterText(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("Player%d – @player_%d", i, i)
	}
	return strings.Join(lines, "\n")
}

func TestLongNamesRejected(t *testing.T) {
	long := strings.Repeat("Д", models.MaxNameLength+1)
	h := newHarness(t)
	h.begin()
	h.say(LabelCheckSubscription)
	h.say(long)
	h.expectState(string(StateTeamName))
	if !strings.Contains(h.rec.Last().Text, "Слишком длинно") {
		t.Fatalf("team name reply %q", h.rec.Last().Text)
	}
	h.say("Dragons")
	h.say(long)
	h.expectState(string(StateCaptainNickname))
	if !strings.Contains(h.rec.Last().Text, "Слишком длинно") {
		t.Fatalf("nickname reply %q", h.rec.Last().Text)
	}
}

func TestLargestRosterFitsOneMessage(t *testing.T) {
	h := newHarness(t)
	h.begin()
	h.say(LabelCheckSubscription)
	h.say(strings.Repeat("&", models.MaxNameLength))
	h.say(strings.Repeat("<", models.MaxNameLength))
	h.say(rosterText(MaxEntries))
	h.expectState(string(StateAck))
	if n := utf8.RuneCountInString(h.rec.Last().Text); n > 4096 {
		t.Fatalf("summary is %d runes", n)
	}

	h.say(LabelContinue)
	h.say(strings.Repeat(">", models.MaxContactLength+1))
	h.expectState(string(StateContact))
	if !strings.Contains(h.rec.Last().Text, "не может быть длиннее") {
		t.Fatalf("contact reply %q", h.rec.Last().Text)
	}
	h.say(strings.Repeat(">", models.MaxContactLength))
	h.expectState("idle")
	confirm := h.rec.Last().Text
	if !strings.Contains(confirm, "Поздравляем") {
		t.Fatalf("not confirmed: %q", confirm)
	}
	if n := utf8.RuneCountInString(confirm); n > 4096 {
		t.Fatalf("confirmation is %d runes", n)
	}
}

func TestRosterRejections(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"too few", "Alpha – @alpha_h\nBeta – @beta_h\nnot a player", "минимум 3"},
		{"duplicate handle", "Alpha – @alpha_h\nBeta – @ALPHA_H\nGamma – @g", "Повторяющиеся юзернеймы"},
		{"duplicate nickname", "Alpha – @a1\nAlpha – @a2\nGamma – @g", "Повторяющиеся никнеймы: Alpha"},
		{"too many", rosterText(MaxEntries + 1), "не больше 11"},
		{"long nickname", "Alpha – @a1\n" + strings.Repeat("Б", models.MaxNameLength+1) + " – @b1\nGamma – @g", "не может быть длиннее"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.begin()
			h.say(LabelCheckSubscription)
			h.say("Dragons")
			h.say("Cap")
			calls := h.verifier.Calls
			h.say(tc.text)
			h.expectState(string(StateRoster))
			if !strings.Contains(h.rec.Last().Text, tc.want) {
				t.Fatalf("reply %q does not contain %q", h.rec.Last().Text, tc.want)
			}
			if h.verifier.Calls != calls {
				t.Fatal("rejected roster must not be verified")
			}
		})
	}
}

func TestVerificationFailureDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.begin()
	h.say(LabelCheckSubscription)
	h.say("Dragons")
	h.say("Cap")
	h.verifier.Err = errors.New("flood wait")
	h.say(scenarioRoster)
	h.expectState(string(StateAck))
	if !strings.Contains(h.rec.Last().Text, "не удалось проверить") {
		t.Fatalf("expected advisory note:\n%s", h.rec.Last().Text)
	}
}

func TestDuplicateOnSaveEndsFlow(t *testing.T) {
	h := newHarness(t)
	h.walkToAck()
	h.say(LabelContinue)

	roster, _ := BuildRoster("Other", "other", 999, ParseRoster("A – @a\nB – @b\nC – @c"))
	if _, err := h.store.RegisterTeam(context.Background(), "DRAGONS", roster, "c"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h.say("tg:@cap")
	h.expectState("idle")
	if n, _ := h.store.CountByStatus(context.Background(), models.StatusPending); n != 1 {
		t.Fatalf("pending teams = %d, want 1", n)
	}
	if !h.rec.Last().HasButton(LabelRegister) {
		t.Fatal("failure must return to the main menu")
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.machine.Status(ctx, h.input(LabelStatus), h.rec); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(h.rec.Last().Text, "ещё не зарегистрировали") {
		t.Fatalf("unexpected reply %q", h.rec.Last().Text)
	}

	h.walkToAck()
	h.say(LabelContinue)
	h.say("tg:@cap")
	teams, _ := h.store.ListTeams(ctx, nil)
	comment := "<ok>"
	h.store.SetStatus(ctx, teams[0].ID, models.StatusApproved, &comment)

	if err := h.machine.Status(ctx, h.input(LabelStatus), h.rec); err != nil {
		t.Fatalf("status: %v", err)
	}
	got := h.rec.Last().Text
	for _, want := range []string{"Dragons", "Одобрено", "&lt;ok&gt;", "Gamma – @gamma_h"} {
		if !strings.Contains(got, want) {
			t.Fatalf("status reply missing %q:\n%s", want, got)
		}
	}
}

func TestHandleTextIgnoresOtherFlows(t *testing.T) {
	h := newHarness(t)
	handled, err := h.machine.HandleText(context.Background(), h.input("hello"), h.rec)
	if err != nil || handled {
		t.Fatalf("idle text handled=%v err=%v", handled, err)
	}
	h.sessions.SetState(captainID, "admin.awaiting_comment")
	handled, _ = h.machine.HandleText(context.Background(), h.input("hello"), h.rec)
	if handled {
		t.Fatal("admin state must not be handled by registration")
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	h.walkToAck()
	if err := h.machine.Cancel(context.Background(), h.input("/cancel"), h.rec); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	h.expectState("idle")
	if h.sessions.Get(captainID).Data.Draft.TeamName != "" {
		t.Fatal("cancel must drop the draft")
	}
}
