package admin

import (
	"sort"
	"strconv"

	"github.com/m3rciful/cupbot/core/telegram/callbacks"
	"github.com/m3rciful/cupbot/internal/models"
)

// Kind enumerates the admin panel buttons.
type Kind int

const (
	KindPanel Kind = iota + 1
	KindTeamsMenu
	KindTeamList
	KindViewTeam
	KindApprove
	KindReject
	KindComment
	KindCancelComment
	KindAddAdmin
	KindAdmins
	KindRemoveAdmin
	KindStats
)

// Action is a decoded button payload.
type Action struct {
	Kind Kind
	// Status is the list to show, or the list a team was opened from.
	Status   models.Status
	TeamID   int64
	Identity int64
}

var (
	fixedPayloads = map[string]Kind{
		"admin_panel":      KindPanel,
		"admin_teams_menu": KindTeamsMenu,
		"admin_add_admin":  KindAddAdmin,
		"admin_admins":     KindAdmins,
		"admin_stats":      KindStats,
	}
	teamPrefixes = map[string]Kind{
		"view_team":      KindViewTeam,
		"approve_team":   KindApprove,
		"reject_team":    KindReject,
		"comment_team":   KindComment,
		"cancel_comment": KindCancelComment,
	}
)

const (
	listPrefix   = "admin_teams_list"
	removePrefix = "remove_admin"
)

// ParseAction decodes a payload. Unknown actions and malformed tokens are
// reported as *models.NotFoundError.
func ParseAction(payload string) (Action, error) {
	if !callbacks.Fits(payload) {
		return Action{}, stale()
	}
	if k, ok := fixedPayloads[payload]; ok {
		return Action{Kind: k}, nil
	}
	if toks, ok := callbacks.Tokens(payload, listPrefix); ok {
		if len(toks) != 1 {
			return Action{}, stale()
		}
		st, ok := models.ParseStatus(toks[0])
		if !ok {
			return Action{}, stale()
		}
		return Action{Kind: KindTeamList, Status: st}, nil
	}
	if toks, ok := callbacks.Tokens(payload, removePrefix); ok {
		if len(toks) != 1 {
			return Action{}, stale()
		}
		id, err := callbacks.ParseID(toks[0])
		if err != nil {
			return Action{}, stale()
		}
		return Action{Kind: KindRemoveAdmin, Identity: id}, nil
	}
	for prefix, kind := range teamPrefixes {
		toks, ok := callbacks.Tokens(payload, prefix)
		if !ok {
			continue
		}
		if len(toks) != 2 {
			return Action{}, stale()
		}
		st, ok := models.ParseStatus(toks[0])
		if !ok {
			return Action{}, stale()
		}
		id, err := callbacks.ParseID(toks[1])
		if err != nil {
			return Action{}, stale()
		}
		return Action{Kind: kind, Status: st, TeamID: id}, nil
	}
	return Action{}, stale()
}

func stale() error {
	return &models.NotFoundError{What: "action"}
}

// Payload encodes the action back into button data. It is empty when the
// action has no payload or the encoding exceeds callbacks.MaxPayload.
func (a Action) Payload() string {
	p := a.encode()
	if !callbacks.Fits(p) {
		return ""
	}
	return p
}

func (a Action) encode() string {
	for p, k := range fixedPayloads {
		if k == a.Kind {
			return p
		}
	}
	switch a.Kind {
	case KindTeamList:
		return callbacks.Join(listPrefix, string(a.Status))
	case KindRemoveAdmin:
		return callbacks.Join(removePrefix, strconv.FormatInt(a.Identity, 10))
	}
	for p, k := range teamPrefixes {
		if k == a.Kind {
			return callbacks.Join(p, string(a.Status), strconv.FormatInt(a.TeamID, 10))
		}
	}
	return ""
}

// CallbackPatterns returns the payload prefixes of every panel button,
// in the form the callback registry matches.
func CallbackPatterns() []string {
	patterns := []string{"admin_*", removePrefix + "_*"}
	for p := range teamPrefixes {
		patterns = append(patterns, p+"_*")
	}
	sort.Strings(patterns)
	return patterns
}
