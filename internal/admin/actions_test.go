package admin

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/m3rciful/cupbot/core/telegram/callbacks"
	"github.com/m3rciful/cupbot/internal/models"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		payload string
		want    Action
	}{
		{"admin_panel", Action{Kind: KindPanel}},
		{"admin_teams_menu", Action{Kind: KindTeamsMenu}},
		{"admin_teams_list_rejected", Action{Kind: KindTeamList, Status: models.StatusRejected}},
		{"view_team_pending_7", Action{Kind: KindViewTeam, Status: models.StatusPending, TeamID: 7}},
		{"approve_team_pending_7", Action{Kind: KindApprove, Status: models.StatusPending, TeamID: 7}},
		{"reject_team_approved_12", Action{Kind: KindReject, Status: models.StatusApproved, TeamID: 12}},
		{"comment_team_rejected_3", Action{Kind: KindComment, Status: models.StatusRejected, TeamID: 3}},
		{"cancel_comment_pending_3", Action{Kind: KindCancelComment, Status: models.StatusPending, TeamID: 3}},
		{"admin_add_admin", Action{Kind: KindAddAdmin}},
		{"admin_admins", Action{Kind: KindAdmins}},
		{"remove_admin_555", Action{Kind: KindRemoveAdmin, Identity: 555}},
		{"admin_stats", Action{Kind: KindStats}},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.payload)
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", tc.payload, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAction(%q) = %+v, want %+v", tc.payload, got, tc.want)
		}
		if p := got.Payload(); p != tc.payload {
			t.Fatalf("Payload() = %q, want %q", p, tc.payload)
		}
	}
}

func TestParseActionRejectsMalformed(t *testing.T) {
	for _, payload := range []string{
		"",
		"admin",
		"admin_panelx",
		"admin_teams_list",
		"admin_teams_list_archived",
		"approve_team_7",
		"approve_team_pending_x",
		"approve_team_pending_-7",
		"approve_team_pending_7_8",
		"delete_team_pending_7",
		"view_team_pending_0",
		"remove_admin_me",
		"\fbtn|1",
		"view_team_pending_" + strings.Repeat("1", 60),
	} {
		_, err := ParseAction(payload)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("ParseAction(%q) err = %v, want not found", payload, err)
		}
	}
}

func TestCallbackPatternsCoverPayloads(t *testing.T) {
	actions := []Action{
		{Kind: KindPanel},
		{Kind: KindTeamsMenu},
		{Kind: KindTeamList, Status: models.StatusPending},
		{Kind: KindViewTeam, Status: models.StatusPending, TeamID: 1},
		{Kind: KindApprove, Status: models.StatusPending, TeamID: 1},
		{Kind: KindReject, Status: models.StatusPending, TeamID: 1},
		{Kind: KindComment, Status: models.StatusPending, TeamID: 1},
		{Kind: KindCancelComment, Status: models.StatusPending, TeamID: 1},
		{Kind: KindAddAdmin},
		{Kind: KindAdmins},
		{Kind: KindRemoveAdmin, Identity: 9},
		{Kind: KindStats},
	}
	patterns := CallbackPatterns()
	for _, a := range actions {
		payload := a.Payload()
		matched := false
		for _, p := range patterns {
			if strings.HasPrefix(payload, strings.TrimSuffix(p, "*")) {
				matched = true
				break
			}
		}
		if !matched {
			t.Errorf("payload %q not covered by %v", payload, patterns)
		}
	}
}

func TestPayloadWithinLimit(t *testing.T) {
	for _, kind := range []Kind{KindViewTeam, KindApprove, KindReject, KindComment, KindCancelComment} {
		for _, st := range models.Statuses {
			a := Action{Kind: kind, Status: st, TeamID: math.MaxInt64}
			p := a.Payload()
			if p == "" || len(p) > callbacks.MaxPayload {
				t.Fatalf("%+v payload = %q (%d bytes)", a, p, len(p))
			}
			if got, err := ParseAction(p); err != nil || got != a {
				t.Fatalf("ParseAction(%q) = %+v, %v", p, got, err)
			}
		}
	}
	rm := Action{Kind: KindRemoveAdmin, Identity: math.MaxInt64}
	if p := rm.Payload(); p == "" || len(p) > callbacks.MaxPayload {
		t.Fatalf("remove payload = %q", p)
	}
	if p := (Action{}).Payload(); p != "" {
		t.Fatalf("zero action payload = %q", p)
	}
}
