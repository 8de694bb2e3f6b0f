package registration

import (
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/cupbot/internal/models"
)

func TestParseRoster(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		nicks []string
	}{
		{
			name:  "en dash",
			text:  "Alpha – @alpha_h\nBeta – @beta_h\nGamma – @gamma_h",
			nicks: []string{"Alpha", "Beta", "Gamma"},
		},
		{
			name:  "mixed dashes and spacing",
			text:  "  Alpha-@alpha_h\r\nBeta —  @beta_h\nDark Knight - @knight",
			nicks: []string{"Alpha", "Beta", "Dark Knight"},
		},
		{
			name:  "noise dropped",
			text:  "Our team:\nAlpha – @alpha_h\n\nno handle here\nBeta – beta_h\nGamma – @gamma_h\n(4. Reserve – @reserve)",
			nicks: []string{"Alpha", "Gamma", "(4. Reserve"},
		},
		{
			name: "nothing matches",
			text: "hello\nworld",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseRoster(tc.text)
			if len(got) != len(tc.nicks) {
				t.Fatalf("parsed %d entries, want %d: %+v", len(got), len(tc.nicks), got)
			}
			for i, want := range tc.nicks {
				if got[i].Nickname != want {
					t.Fatalf("entry %d = %q, want %q", i, got[i].Nickname, want)
				}
				if got[i].IsCaptain || got[i].Identity != nil {
					t.Fatalf("parsed entry must not be a resolved captain: %+v", got[i])
				}
			}
		})
	}
}

func TestBuildRosterScenario(t *testing.T) {
	entries := ParseRoster("Alpha – @alpha_h\nBeta – @beta_h\nGamma – @gamma_h")
	roster, err := BuildRoster("Cap", "cap", 111, entries)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []struct {
		nick, handle string
		captain      bool
	}{
		{"Cap", "cap", true},
		{"Alpha", "alpha_h", false},
		{"Beta", "beta_h", false},
		{"Gamma", "gamma_h", false},
	}
	if len(roster) != len(want) {
		t.Fatalf("roster size = %d", len(roster))
	}
	for i, w := range want {
		p := roster[i]
		if p.Nickname != w.nick || p.Handle != w.handle || p.IsCaptain != w.captain {
			t.Fatalf("player %d = %+v", i, p)
		}
	}
	if roster[0].Identity == nil || *roster[0].Identity != 111 {
		t.Fatal("captain identity must come from the sender")
	}
}

func TestBuildRosterRejects(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		captain string
		check   func(*models.RosterError) bool
	}{
		{
			name:    "two entries",
			text:    "Alpha – @a\nBeta – @b",
			captain: "cap",
			check:   func(e *models.RosterError) bool { return e.TooFew },
		},
		{
			name:    "three lines but noise",
			text:    "Alpha – @a\nBeta – b\nGamma – @c\n\n",
			captain: "cap",
			check:   func(e *models.RosterError) bool { return e.TooFew },
		},
		{
			name:    "handle repeats captain ignoring case",
			text:    "Alpha – @CAP\nBeta – @b\nGamma – @c",
			captain: "Cap",
			check:   func(e *models.RosterError) bool { return len(e.DuplicateHandles) == 1 },
		},
		{
			name:    "nickname repeats captain",
			text:    "Cap – @a\nBeta – @b\nGamma – @c",
			captain: "cap",
			check:   func(e *models.RosterError) bool { return len(e.DuplicateNicknames) == 1 },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildRoster("Cap", tc.captain, 1, ParseRoster(tc.text))
			var rerr *models.RosterError
			if !errors.As(err, &rerr) || !tc.check(rerr) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestParseRosterSkipsOverlongHandles(t *testing.T) {
	text := "Alpha – @" + strings.Repeat("a", 33) + "\nBeta – @" + strings.Repeat("b", 32)
	got := ParseRoster(text)
	if len(got) != 1 || got[0].Nickname != "Beta" {
		t.Fatalf("ParseRoster = %+v", got)
	}
}

func TestBuildRosterCaptainWithoutHandle(t *testing.T) {
	roster, err := BuildRoster("Cap", "", 1, ParseRoster("A – @a\nB – @b\nC – @c"))
	if err != nil {
		t.Fatalf("captain without username must be accepted: %v", err)
	}
	if roster[0].Handle != "" {
		t.Fatalf("captain handle = %q", roster[0].Handle)
	}
}
