// Package postgres implements store.Store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/store"
)

const (
	uniqueViolation  = "23505"
	teamNameIndex    = "teams_name_lower_key"
	teamColumns      = "id, name, captain_contact, registered_at, status, admin_comment"
	playerColumns    = "id, team_id, position, nickname, handle, identity, is_captain"
	insertPlayersSQL = `INSERT INTO players (team_id, position, nickname, handle, identity, is_captain)
VALUES (:team_id, :position, :nickname, :handle, :identity, :is_captain)`
)

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open connection pool. The schema must already be migrated.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// withTx runs fn inside a transaction and commits only when fn succeeds.
func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	logger.Error(ctx, "store", "store."+op, slog.String("err", err.Error()))
	return &models.StoreError{Op: op, Err: err}
}

func isNameConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation && pqErr.Constraint == teamNameIndex
}

func (s *Store) RegisterTeam(ctx context.Context, name string, players []models.Player, captainContact string) (int64, error) {
	name = strings.TrimSpace(name)
	if err := models.ValidateRoster(players); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx,
			`INSERT INTO teams (name, captain_contact) VALUES ($1, $2) RETURNING id`,
			name, captainContact,
		).Scan(&id)
		if err != nil {
			return err
		}
		rows := make([]models.Player, len(players))
		for i, p := range players {
			p.TeamID = id
			p.Position = i
			p.Handle = models.NormalizeHandle(p.Handle)
			rows[i] = p
		}
		_, err = tx.NamedExecContext(ctx, insertPlayersSQL, rows)
		return err
	})
	if isNameConflict(err) {
		return 0, &models.DuplicateNameError{Name: name}
	}
	if err != nil {
		return 0, wrap(ctx, "register_team", err)
	}
	logger.Debug(ctx, "store", "store.register_team",
		slog.Int64("team_id", id),
		slog.Int("players", len(players)),
	)
	return id, nil
}

func (s *Store) TeamExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE lower(name) = lower($1))`, strings.TrimSpace(name))
	return exists, wrap(ctx, "team_exists", err)
}

func (s *Store) FindTeamByIdentity(ctx context.Context, identity int64) (*models.Team, error) {
	var team models.Team
	err := s.db.GetContext(ctx, &team, `SELECT `+teamColumns+` FROM teams
WHERE id = (SELECT min(team_id) FROM players WHERE identity = $1)`, identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(ctx, "find_team", err)
	}
	if err := s.attachPlayers(ctx, s.db, []*models.Team{&team}); err != nil {
		return nil, wrap(ctx, "find_team", err)
	}
	return &team, nil
}

func (s *Store) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var team models.Team
	err := s.db.GetContext(ctx, &team, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{What: "team"}
	}
	if err != nil {
		return nil, wrap(ctx, "get_team", err)
	}
	if err := s.attachPlayers(ctx, s.db, []*models.Team{&team}); err != nil {
		return nil, wrap(ctx, "get_team", err)
	}
	return &team, nil
}

func (s *Store) ListTeams(ctx context.Context, status *models.Status) ([]models.Team, error) {
	var teams []models.Team
	err := s.withTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}, func(tx *sqlx.Tx) error {
		query := `SELECT ` + teamColumns + ` FROM teams`
		var args []any
		if status != nil {
			query += ` WHERE status = $1`
			args = append(args, string(*status))
		}
		query += ` ORDER BY registered_at DESC, id DESC`
		if err := tx.SelectContext(ctx, &teams, query, args...); err != nil {
			return err
		}
		refs := make([]*models.Team, len(teams))
		for i := range teams {
			refs[i] = &teams[i]
		}
		return s.attachPlayers(ctx, tx, refs)
	})
	if err != nil {
		return nil, wrap(ctx, "list_teams", err)
	}
	if teams == nil {
		teams = []models.Team{}
	}
	return teams, nil
}

// attachPlayers loads the rosters of all teams with a single ANY($1) query.
func (s *Store) attachPlayers(ctx context.Context, q sqlx.QueryerContext, teams []*models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]int64, len(teams))
	byID := make(map[int64]*models.Team, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
		byID[t.ID] = t
		t.Players = nil
	}
	var players []models.Player
	err := sqlx.SelectContext(ctx, q, &players, `SELECT `+playerColumns+` FROM players
WHERE team_id = ANY($1) ORDER BY team_id, position`, pq.Array(ids))
	if err != nil {
		return err
	}
	for _, p := range players {
		if t, ok := byID[p.TeamID]; ok {
			t.Players = append(t.Players, p)
		}
	}
	return nil
}

func (s *Store) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM teams WHERE status = $1`, string(status))
	return n, wrap(ctx, "count_by_status", err)
}

func (s *Store) SetStatus(ctx context.Context, id int64, status models.Status, comment *string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE teams SET status = $2, admin_comment = COALESCE($3, admin_comment) WHERE id = $1`,
		id, string(status), comment,
	)
	return affected(ctx, "set_status", res, err)
}

func (s *Store) SetComment(ctx context.Context, id int64, comment string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE teams SET admin_comment = $2 WHERE id = $1`, id, comment)
	return affected(ctx, "set_comment", res, err)
}

func (s *Store) IsAdmin(ctx context.Context, identity int64) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM admins WHERE identity = $1)`, identity)
	return ok, wrap(ctx, "is_admin", err)
}

func (s *Store) AddAdmin(ctx context.Context, identity int64, handle string) (bool, error) {
	var h *string
	if n := models.NormalizeHandle(handle); n != "" {
		h = &n
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (identity, handle) VALUES ($1, $2) ON CONFLICT (identity) DO NOTHING`,
		identity, h,
	)
	return affected(ctx, "add_admin", res, err)
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	admins := []models.Admin{}
	err := s.db.SelectContext(ctx, &admins,
		`SELECT id, identity, handle, added_at FROM admins ORDER BY added_at, id`)
	if err != nil {
		return nil, wrap(ctx, "list_admins", err)
	}
	return admins, nil
}

func (s *Store) RemoveAdmin(ctx context.Context, identity int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE identity = $1`, identity)
	return affected(ctx, "remove_admin", res, err)
}

func (s *Store) IdentityKnown(ctx context.Context, identity int64) (bool, error) {
	var known bool
	err := s.db.GetContext(ctx, &known, `SELECT
EXISTS (SELECT 1 FROM players WHERE identity = $1) OR
EXISTS (SELECT 1 FROM admins WHERE identity = $1)`, identity)
	return known, wrap(ctx, "identity_known", err)
}

func (s *Store) ComputeStats(ctx context.Context) (models.Stats, error) {
	stats := models.Stats{
		CountsByStatus:  make(map[models.Status]int, len(models.Statuses)),
		PlayersByStatus: make(map[models.Status]int, len(models.Statuses)),
	}
	err := s.withTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}, func(tx *sqlx.Tx) error {
		var rows []struct {
			Status  models.Status `db:"status"`
			Teams   int           `db:"teams"`
			Players int           `db:"players"`
		}
		err := tx.SelectContext(ctx, &rows, `SELECT t.status, count(DISTINCT t.id) AS teams, count(p.id) AS players
FROM teams t LEFT JOIN players p ON p.team_id = t.id
GROUP BY t.status`)
		if err != nil {
			return err
		}
		for _, r := range rows {
			stats.CountsByStatus[r.Status] = r.Teams
			stats.PlayersByStatus[r.Status] = r.Players
			stats.TotalTeams += r.Teams
			stats.TotalPlayers += r.Players
		}
		err = tx.SelectContext(ctx, &stats.LastRegistrations,
			`SELECT name, registered_at FROM teams ORDER BY registered_at DESC, id DESC LIMIT $1`, store.StatsLimit)
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &stats.AdminCount, `SELECT count(*) FROM admins`)
	})
	if err != nil {
		return models.Stats{}, wrap(ctx, "compute_stats", err)
	}
	if stats.TotalTeams > 0 {
		stats.AvgPlayersPerTeam = float64(stats.TotalPlayers) / float64(stats.TotalTeams)
	}
	return stats, nil
}

func affected(ctx context.Context, op string, res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, wrap(ctx, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap(ctx, op, err)
	}
	logger.Debug(ctx, "store", "store."+op, slog.Int64("rows", n))
	return n > 0, nil
}
