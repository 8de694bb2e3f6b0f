// Package memory is an in-process Store used by tests and the memory driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/store"
)

// Store keeps all rows behind a single mutex so every call is atomic.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	teamSeq int64
	rowSeq  int64
	teams   map[int64]*models.Team
	names   map[string]int64
	admins  map[int64]models.Admin
	writes  int
}

var _ store.Store = (*Store)(nil)

// Option tweaks a memory store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for deterministic ordering in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		teams:  make(map[int64]*models.Team),
		names:  make(map[string]int64),
		admins: make(map[int64]models.Admin),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Writes returns the number of committed mutations.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) RegisterTeam(_ context.Context, name string, players []models.Player, captainContact string) (int64, error) {
	name = strings.TrimSpace(name)
	if err := models.ValidateRoster(players); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NameKey(name)
	if _, taken := s.names[key]; taken {
		return 0, &models.DuplicateNameError{Name: name}
	}

	s.teamSeq++
	team := &models.Team{
		ID:             s.teamSeq,
		Name:           name,
		CaptainContact: captainContact,
		RegisteredAt:   s.now().UTC(),
		Status:         models.StatusPending,
	}
	team.Players = make([]models.Player, len(players))
	for i, p := range players {
		s.rowSeq++
		p.ID = s.rowSeq
		p.TeamID = team.ID
		p.Position = i
		p.Handle = models.NormalizeHandle(p.Handle)
		p.Identity = copyInt64(p.Identity)
		team.Players[i] = p
	}
	s.teams[team.ID] = team
	s.names[key] = team.ID
	s.writes++
	return team.ID, nil
}

func (s *Store) TeamExistsByName(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[models.NameKey(name)]
	return ok, nil
}

func (s *Store) FindTeamByIdentity(_ context.Context, identity int64) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Lowest team id wins, matching the postgres query.
	var found *models.Team
	for _, t := range s.teams {
		for _, p := range t.Players {
			if p.Identity != nil && *p.Identity == identity {
				if found == nil || t.ID < found.ID {
					found = t
				}
				break
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	team := cloneTeam(found)
	return &team, nil
}

func (s *Store) GetTeam(_ context.Context, id int64) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, &models.NotFoundError{What: "team"}
	}
	team := cloneTeam(t)
	return &team, nil
}

func (s *Store) ListTeams(_ context.Context, status *models.Status) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, cloneTeam(t))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) CountByStatus(_ context.Context, status models.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.teams {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) SetStatus(_ context.Context, id int64, status models.Status, comment *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return false, nil
	}
	t.Status = status
	if comment != nil {
		c := *comment
		t.AdminComment = &c
	}
	s.writes++
	return true, nil
}

func (s *Store) SetComment(_ context.Context, id int64, comment string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return false, nil
	}
	t.AdminComment = &comment
	s.writes++
	return true, nil
}

func (s *Store) IsAdmin(_ context.Context, identity int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[identity]
	return ok, nil
}

func (s *Store) AddAdmin(_ context.Context, identity int64, handle string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.admins[identity]; exists {
		return false, nil
	}
	s.rowSeq++
	admin := models.Admin{ID: s.rowSeq, Identity: identity, AddedAt: s.now().UTC()}
	if h := models.NormalizeHandle(handle); h != "" {
		admin.Handle = &h
	}
	s.admins[identity] = admin
	s.writes++
	return true, nil
}

func (s *Store) ListAdmins(_ context.Context) ([]models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out, nil
}

func (s *Store) RemoveAdmin(_ context.Context, identity int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[identity]; !ok {
		return false, nil
	}
	delete(s.admins, identity)
	s.writes++
	return true, nil
}

func (s *Store) IdentityKnown(_ context.Context, identity int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.admins[identity]; ok {
		return true, nil
	}
	for _, t := range s.teams {
		for _, p := range t.Players {
			if p.Identity != nil && *p.Identity == identity {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) ComputeStats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.Stats{
		CountsByStatus:  make(map[models.Status]int, len(models.Statuses)),
		PlayersByStatus: make(map[models.Status]int, len(models.Statuses)),
		AdminCount:      len(s.admins),
	}
	teams := make([]models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		stats.TotalTeams++
		stats.CountsByStatus[t.Status]++
		stats.TotalPlayers += len(t.Players)
		stats.PlayersByStatus[t.Status] += len(t.Players)
		teams = append(teams, *t)
	}
	if stats.TotalTeams > 0 {
		stats.AvgPlayersPerTeam = float64(stats.TotalPlayers) / float64(stats.TotalTeams)
	}
	sortNewestFirst(teams)
	for i := 0; i < len(teams) && i < store.StatsLimit; i++ {
		stats.LastRegistrations = append(stats.LastRegistrations, models.Registration{
			Name:         teams[i].Name,
			RegisteredAt: teams[i].RegisteredAt,
		})
	}
	return stats, nil
}

func sortNewestFirst(teams []models.Team) {
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].RegisteredAt.Equal(teams[j].RegisteredAt) {
			return teams[i].ID > teams[j].ID
		}
		return teams[i].RegisteredAt.After(teams[j].RegisteredAt)
	})
}

func cloneTeam(t *models.Team) models.Team {
	out := *t
	if t.AdminComment != nil {
		c := *t.AdminComment
		out.AdminComment = &c
	}
	out.Players = make([]models.Player, len(t.Players))
	for i, p := range t.Players {
		p.Identity = copyInt64(p.Identity)
		out.Players[i] = p
	}
	return out
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
