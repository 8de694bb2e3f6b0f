package models

import (
	"strings"
	"time"
)

// Status is the review status of a registered team.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// ParseStatus validates a raw status token.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	}
	return "", false
}

// MinRosterSize is the captain plus three players.
const MinRosterSize = 4

// MaxRosterSize keeps a roster summary within one Telegram message.
const MaxRosterSize = 12

// MaxNameLength caps team names and nicknames, in runes.
const MaxNameLength = 32

// MaxContactLength caps the captain contact, in runes.
const MaxContactLength = 128

// MaxCommentLength caps an admin comment, in runes.
const MaxCommentLength = 1000

// Team is a registered team with its roster.
type Team struct {
	ID             int64     `db:"id"`
	Name           string    `db:"name"`
	CaptainContact string    `db:"captain_contact"`
	RegisteredAt   time.Time `db:"registered_at"`
	Status         Status    `db:"status"`
	AdminComment   *string   `db:"admin_comment"`
	Players        []Player  `db:"-"`
}

// Captain returns the captain of the roster, if any.
func (t Team) Captain() (Player, bool) {
	for _, p := range t.Players {
		if p.IsCaptain {
			return p, true
		}
	}
	return Player{}, false
}

// Player is one roster entry. Identity stays nil until it has been resolved.
type Player struct {
	ID        int64  `db:"id"`
	TeamID    int64  `db:"team_id"`
	Position  int    `db:"position"`
	Nickname  string `db:"nickname"`
	Handle    string `db:"handle"`
	Identity  *int64 `db:"identity"`
	IsCaptain bool   `db:"is_captain"`
}

// Admin is a user allowed to review teams.
type Admin struct {
	ID       int64     `db:"id"`
	Identity int64     `db:"identity"`
	Handle   *string   `db:"handle"`
	AddedAt  time.Time `db:"added_at"`
}

// Registration is a short entry of the latest registrations list.
type Registration struct {
	Name         string    `db:"name"`
	RegisteredAt time.Time `db:"registered_at"`
}

// Stats is the read-only aggregate shown in the admin statistics view.
type Stats struct {
	TotalTeams        int
	CountsByStatus    map[Status]int
	TotalPlayers      int
	AvgPlayersPerTeam float64
	PlayersByStatus   map[Status]int
	LastRegistrations []Registration
	AdminCount        int
}

// Membership is a channel membership status reported by the messaging platform.
type Membership string

const (
	MembershipMember        Membership = "member"
	MembershipAdministrator Membership = "administrator"
	MembershipCreator       Membership = "creator"
	MembershipRestricted    Membership = "restricted"
	MembershipLeft          Membership = "left"
	MembershipKicked        Membership = "kicked"
	MembershipUnknown       Membership = "unknown"
)

// Subscribed reports whether the status counts as following the channel.
func (m Membership) Subscribed() bool {
	switch m {
	case MembershipMember, MembershipAdministrator, MembershipCreator:
		return true
	}
	return false
}

// NormalizeHandle strips a leading @ and surrounding spaces.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// HandleKey is the case-insensitive comparison key of a handle.
func HandleKey(handle string) string {
	return strings.ToLower(NormalizeHandle(handle))
}

// NameKey is the case-insensitive comparison key of a team name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
