// Package store defines the durable storage of teams, players and admins.
//
// Every method is one unit of work: it either commits fully or leaves the
// storage untouched. Case-insensitive team name uniqueness is enforced by the
// storage itself; TeamExistsByName is only a fast path for the dialogue.
package store

import (
	"context"

	"github.com/m3rciful/cupbot/internal/models"
)

// Store is implemented by the postgres and memory packages.
type Store interface {
	// RegisterTeam inserts the team and its roster. It returns a
	// *models.DuplicateNameError when the name is taken ignoring case.
	RegisterTeam(ctx context.Context, name string, players []models.Player, captainContact string) (int64, error)
	TeamExistsByName(ctx context.Context, name string) (bool, error)
	// FindTeamByIdentity returns nil without error for unknown identities.
	FindTeamByIdentity(ctx context.Context, identity int64) (*models.Team, error)
	// GetTeam returns a *models.NotFoundError for unknown ids.
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	// ListTeams orders by registration time, newest first. A nil status lists all teams.
	ListTeams(ctx context.Context, status *models.Status) ([]models.Team, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
	// SetStatus touches admin_comment only when comment is non-nil.
	SetStatus(ctx context.Context, id int64, status models.Status, comment *string) (bool, error)
	SetComment(ctx context.Context, id int64, comment string) (bool, error)

	IsAdmin(ctx context.Context, identity int64) (bool, error)
	// AddAdmin returns false when the identity is already an admin.
	AddAdmin(ctx context.Context, identity int64, handle string) (bool, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	RemoveAdmin(ctx context.Context, identity int64) (bool, error)
	// IdentityKnown reports whether the identity appears in any player or admin record.
	IdentityKnown(ctx context.Context, identity int64) (bool, error)

	ComputeStats(ctx context.Context) (models.Stats, error)
}

// StatsLimit is the number of latest registrations included in stats.
const StatsLimit = 5
