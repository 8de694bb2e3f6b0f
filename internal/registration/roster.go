package registration

import (
	"regexp"
	"strings"

	"github.com/m3rciful/cupbot/internal/models"
)

// MinEntries is the number of players required besides the captain.
const MinEntries = models.MinRosterSize - 1

// MaxEntries is the most players accepted besides the captain.
const MaxEntries = models.MaxRosterSize - 1

// rosterLine matches "<nickname> <dash> @<handle>". Hyphen, en and em dashes
// are accepted; handles longer than Telegram allows do not match.
var rosterLine = regexp.MustCompile(`^\s*(.+?)\s*[-–—]\s*@([A-Za-z0-9_]{1,32})\b`)

// ParseRoster extracts one player per matching line. Lines that do not
// match are dropped.
func ParseRoster(text string) []models.Player {
	var players []models.Player
	for _, line := range strings.Split(text, "\n") {
		m := rosterLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		nick := strings.TrimSpace(m[1])
		if nick == "" {
			continue
		}
		players = append(players, models.Player{Nickname: nick, Handle: m[2]})
	}
	return players
}

// BuildRoster prepends the captain to the parsed entries and validates the
// result. The captain's identity comes from the sender, so it is never
// resolved again.
func BuildRoster(captainNickname, captainHandle string, captainID int64, entries []models.Player) ([]models.Player, error) {
	id := captainID
	roster := make([]models.Player, 0, len(entries)+1)
	roster = append(roster, models.Player{
		Nickname:  strings.TrimSpace(captainNickname),
		Handle:    models.NormalizeHandle(captainHandle),
		Identity:  &id,
		IsCaptain: true,
	})
	for _, e := range entries {
		e.IsCaptain = false
		e.Identity = nil
		roster = append(roster, e)
	}
	if err := models.ValidateRoster(roster); err != nil {
		return nil, err
	}
	return roster, nil
}
