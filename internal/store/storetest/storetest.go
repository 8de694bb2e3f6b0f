// Package storetest holds behaviour tests shared by every Store implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/store"
)

// Factory returns an empty store for one test.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against the factory.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"RegisterRoundTrip", testRegisterRoundTrip},
		{"DuplicateNameIgnoresCase", testDuplicateName},
		{"ConcurrentSameName", testConcurrentSameName},
		{"InvalidRosterRejected", testInvalidRoster},
		{"ListOrderAndFilter", testListOrderAndFilter},
		{"SetStatusKeepsComment", testSetStatusKeepsComment},
		{"ReapproveIsIdempotent", testReapprove},
		{"MissingTeam", testMissingTeam},
		{"FindTeamByIdentity", testFindTeamByIdentity},
		{"Admins", testAdmins},
		{"EmptyStats", testEmptyStats},
		{"Stats", testStats},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func ptr[T any](v T) *T { return &v }

// Roster builds the captain identified by captainID plus the given nickname/handle pairs.
func Roster(captain string, captainID int64, pairs ...string) []models.Player {
	players := []models.Player{{Nickname: captain, Handle: strings.ToLower(captain), Identity: ptr(captainID), IsCaptain: true}}
	for i := 0; i+1 < len(pairs); i += 2 {
		players = append(players, models.Player{Nickname: pairs[i], Handle: pairs[i+1]})
	}
	return players
}

func defaultRoster(captainID int64) []models.Player {
	return Roster("Cap", captainID, "Alpha", "alpha_h", "Beta", "beta_h", "Gamma", "gamma_h")
}

func mustRegister(t *testing.T, s store.Store, name string, players []models.Player) int64 {
	t.Helper()
	id, err := s.RegisterTeam(context.Background(), name, players, "tg:@cap")
	if err != nil {
		t.Fatalf("register %q: %v", name, err)
	}
	return id
}

func testRegisterRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	players := defaultRoster(111)
	players[2].Identity = ptr(int64(222))
	id := mustRegister(t, s, "Dragons", players)

	teams, err := s.ListTeams(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(teams) != 1 {
		t.Fatalf("expected 1 team, got %d", len(teams))
	}
	got := teams[0]
	if got.ID != id || got.Name != "Dragons" || got.CaptainContact != "tg:@cap" {
		t.Fatalf("unexpected team: %+v", got)
	}
	if got.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.AdminComment != nil {
		t.Fatalf("comment = %q, want nil", *got.AdminComment)
	}
	if got.RegisteredAt.IsZero() {
		t.Fatal("registration time not set")
	}
	if len(got.Players) != len(players) {
		t.Fatalf("players = %d, want %d", len(got.Players), len(players))
	}
	for i, p := range got.Players {
		want := players[i]
		if p.Nickname != want.Nickname || p.Handle != want.Handle || p.IsCaptain != want.IsCaptain {
			t.Fatalf("player %d = %+v, want %+v", i, p, want)
		}
		if (p.Identity == nil) != (want.Identity == nil) || (p.Identity != nil && *p.Identity != *want.Identity) {
			t.Fatalf("player %d identity mismatch", i)
		}
	}
	captain, ok := got.Captain()
	if !ok || captain.Nickname != "Cap" {
		t.Fatalf("captain = %+v", captain)
	}
}

func testDuplicateName(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustRegister(t, s, "Night Owls", defaultRoster(1))

	for _, name := range []string{"Night Owls", "night owls", "NIGHT OWLS", "nIgHt OwLs"} {
		exists, err := s.TeamExistsByName(ctx, name)
		if err != nil || !exists {
			t.Fatalf("exists(%q) = %v, %v", name, exists, err)
		}
		_, err = s.RegisterTeam(ctx, name, defaultRoster(2), "c")
		var dup *models.DuplicateNameError
		if !errors.As(err, &dup) {
			t.Fatalf("register(%q) err = %v, want DuplicateNameError", name, err)
		}
	}

	teams, err := s.ListTeams(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(teams) != 1 {
		t.Fatalf("duplicate registration left %d teams", len(teams))
	}
	stats, err := s.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPlayers != 4 {
		t.Fatalf("duplicate registration left %d players", stats.TotalPlayers)
	}
}

func testConcurrentSameName(t *testing.T, s store.Store) {
	ctx := context.Background()
	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Race"
			if i%2 == 1 {
				name = "RACE"
			}
			if _, err := s.RegisterTeam(ctx, name, defaultRoster(int64(100+i)), "c"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if success != 1 {
		t.Fatalf("%d concurrent registrations succeeded, want 1", success)
	}
}

func testInvalidRoster(t *testing.T, s store.Store) {
	ctx := context.Background()
	short := Roster("Cap", 1, "Alpha", "a", "Beta", "b")
	if _, err := s.RegisterTeam(ctx, "Short", short, "c"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("short roster err = %v", err)
	}
	dup := Roster("Cap", 1, "Alpha", "a", "Beta", "A", "Gamma", "g")
	if _, err := s.RegisterTeam(ctx, "Dup", dup, "c"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("duplicate handle err = %v", err)
	}
	if exists, _ := s.TeamExistsByName(ctx, "Short"); exists {
		t.Fatal("rejected roster must not create a team")
	}
}

func testListOrderAndFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := mustRegister(t, s, "First", defaultRoster(1))
	second := mustRegister(t, s, "Second", defaultRoster(2))
	third := mustRegister(t, s, "Third", defaultRoster(3))

	teams, err := s.ListTeams(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(teams) != 3 || teams[0].ID != third || teams[1].ID != second || teams[2].ID != first {
		t.Fatalf("unexpected order: %v", teamIDs(teams))
	}

	if ok, err := s.SetStatus(ctx, second, models.StatusApproved, nil); err != nil || !ok {
		t.Fatalf("set status: %v %v", ok, err)
	}
	approved := models.StatusApproved
	teams, err = s.ListTeams(ctx, &approved)
	if err != nil {
		t.Fatalf("list approved: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != second || len(teams[0].Players) != 4 {
		t.Fatalf("unexpected approved list: %v", teamIDs(teams))
	}
	pending, err := s.CountByStatus(ctx, models.StatusPending)
	if err != nil || pending != 2 {
		t.Fatalf("pending count = %d, %v", pending, err)
	}
	rejected, err := s.CountByStatus(ctx, models.StatusRejected)
	if err != nil || rejected != 0 {
		t.Fatalf("rejected count = %d, %v", rejected, err)
	}
}

func testSetStatusKeepsComment(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustRegister(t, s, "Commented", defaultRoster(1))

	if ok, err := s.SetComment(ctx, id, "check roster"); err != nil || !ok {
		t.Fatalf("set comment: %v %v", ok, err)
	}
	if ok, err := s.SetStatus(ctx, id, models.StatusRejected, nil); err != nil || !ok {
		t.Fatalf("set status: %v %v", ok, err)
	}
	team, err := s.GetTeam(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if team.AdminComment == nil || *team.AdminComment != "check roster" {
		t.Fatalf("comment lost after status change: %v", team.AdminComment)
	}

	if ok, err := s.SetStatus(ctx, id, models.StatusApproved, ptr("fixed")); err != nil || !ok {
		t.Fatalf("set status with comment: %v %v", ok, err)
	}
	team, err = s.GetTeam(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if team.Status != models.StatusApproved || team.AdminComment == nil || *team.AdminComment != "fixed" {
		t.Fatalf("unexpected team after update: %+v", team)
	}
}

func testReapprove(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := mustRegister(t, s, "Twice", defaultRoster(1))
	for i := 0; i < 2; i++ {
		ok, err := s.SetStatus(ctx, id, models.StatusApproved, nil)
		if err != nil || !ok {
			t.Fatalf("approve #%d: %v %v", i+1, ok, err)
		}
	}
	team, err := s.GetTeam(ctx, id)
	if err != nil || team.Status != models.StatusApproved {
		t.Fatalf("status after re-approve: %+v %v", team, err)
	}
}

func testMissingTeam(t *testing.T, s store.Store) {
	ctx := context.Background()
	if ok, err := s.SetStatus(ctx, 4242, models.StatusApproved, nil); err != nil || ok {
		t.Fatalf("set status on missing team: %v %v", ok, err)
	}
	if ok, err := s.SetComment(ctx, 4242, "x"); err != nil || ok {
		t.Fatalf("set comment on missing team: %v %v", ok, err)
	}
	if _, err := s.GetTeam(ctx, 4242); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("get missing team err = %v", err)
	}
}

func testFindTeamByIdentity(t *testing.T, s store.Store) {
	ctx := context.Background()
	players := defaultRoster(111)
	players[3].Identity = ptr(int64(333))
	id := mustRegister(t, s, "Findable", players)

	for _, identity := range []int64{111, 333} {
		team, err := s.FindTeamByIdentity(ctx, identity)
		if err != nil {
			t.Fatalf("find %d: %v", identity, err)
		}
		if team == nil || team.ID != id || len(team.Players) != 4 {
			t.Fatalf("find %d = %+v", identity, team)
		}
	}
	team, err := s.FindTeamByIdentity(ctx, 999)
	if err != nil || team != nil {
		t.Fatalf("find unknown = %+v, %v", team, err)
	}
	known, err := s.IdentityKnown(ctx, 333)
	if err != nil || !known {
		t.Fatalf("identity 333 known = %v, %v", known, err)
	}
}

func testAdmins(t *testing.T, s store.Store) {
	ctx := context.Background()
	if ok, err := s.IsAdmin(ctx, 7); err != nil || ok {
		t.Fatalf("is admin before add: %v %v", ok, err)
	}
	if known, err := s.IdentityKnown(ctx, 7); err != nil || known {
		t.Fatalf("identity known before add: %v %v", known, err)
	}
	if ok, err := s.AddAdmin(ctx, 7, "@root"); err != nil || !ok {
		t.Fatalf("add admin: %v %v", ok, err)
	}
	if ok, err := s.AddAdmin(ctx, 7, "other"); err != nil || ok {
		t.Fatalf("second add must report false without error: %v %v", ok, err)
	}
	if ok, err := s.AddAdmin(ctx, 8, ""); err != nil || !ok {
		t.Fatalf("add admin without handle: %v %v", ok, err)
	}
	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 2 || admins[0].Identity != 7 || admins[0].Handle == nil || *admins[0].Handle != "root" {
		t.Fatalf("unexpected admins: %+v", admins)
	}
	if admins[1].Handle != nil {
		t.Fatalf("empty handle must be stored as null, got %q", *admins[1].Handle)
	}
	if ok, err := s.IsAdmin(ctx, 7); err != nil || !ok {
		t.Fatalf("is admin: %v %v", ok, err)
	}
	if ok, err := s.RemoveAdmin(ctx, 7); err != nil || !ok {
		t.Fatalf("remove admin: %v %v", ok, err)
	}
	if ok, err := s.RemoveAdmin(ctx, 7); err != nil || ok {
		t.Fatalf("second remove: %v %v", ok, err)
	}
	if ok, _ := s.IsAdmin(ctx, 7); ok {
		t.Fatal("admin still present after removal")
	}
}

func testEmptyStats(t *testing.T, s store.Store) {
	stats, err := s.ComputeStats(context.Background())
	if err != nil {
		t.Fatalf("stats on empty store: %v", err)
	}
	if stats.TotalTeams != 0 || stats.TotalPlayers != 0 || stats.AdminCount != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AvgPlayersPerTeam != 0 {
		t.Fatalf("avg = %v, want 0", stats.AvgPlayersPerTeam)
	}
	for _, st := range models.Statuses {
		if stats.CountsByStatus[st] != 0 || stats.PlayersByStatus[st] != 0 {
			t.Fatalf("non-zero count for %s", st)
		}
	}
	if len(stats.LastRegistrations) != 0 {
		t.Fatalf("unexpected registrations: %v", stats.LastRegistrations)
	}
}

func testStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 6; i++ {
		players := defaultRoster(int64(i + 1))
		if i == 0 {
			players = append(players, models.Player{Nickname: "Delta", Handle: "delta_h"})
		}
		ids = append(ids, mustRegister(t, s, fmt.Sprintf("Team %d", i), players))
	}
	if _, err := s.SetStatus(ctx, ids[0], models.StatusApproved, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := s.SetStatus(ctx, ids[1], models.StatusRejected, nil); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := s.AddAdmin(ctx, 900, "boss"); err != nil {
		t.Fatalf("add admin: %v", err)
	}

	stats, err := s.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTeams != 6 || stats.TotalPlayers != 25 || stats.AdminCount != 1 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.CountsByStatus[models.StatusPending] != 4 ||
		stats.CountsByStatus[models.StatusApproved] != 1 ||
		stats.CountsByStatus[models.StatusRejected] != 1 {
		t.Fatalf("unexpected counts: %v", stats.CountsByStatus)
	}
	if stats.PlayersByStatus[models.StatusApproved] != 5 || stats.PlayersByStatus[models.StatusPending] != 16 {
		t.Fatalf("unexpected players by status: %v", stats.PlayersByStatus)
	}
	if want := 25.0 / 6.0; stats.AvgPlayersPerTeam < want-0.001 || stats.AvgPlayersPerTeam > want+0.001 {
		t.Fatalf("avg = %v, want %v", stats.AvgPlayersPerTeam, want)
	}
	if len(stats.LastRegistrations) != store.StatsLimit {
		t.Fatalf("last registrations = %d, want %d", len(stats.LastRegistrations), store.StatsLimit)
	}
	if stats.LastRegistrations[0].Name != "Team 5" || stats.LastRegistrations[4].Name != "Team 1" {
		t.Fatalf("unexpected last registrations: %v", stats.LastRegistrations)
	}
}

func teamIDs(teams []models.Team) []int64 {
	ids := make([]int64, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids
}
