// Package commands describes slash commands registered with the bot.
package commands

import tele "gopkg.in/telebot.v4"

// Command binds a slash command to its handler.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are gated by the admin checker and never listed publicly.
	AdminOnly bool
	Hidden    bool
	// Aliases are reply keyboard labels that trigger the command when sent
	// as plain text. Matching ignores case.
	Aliases []string
}

// Public reports whether the command belongs in the Telegram command menu.
func (c Command) Public() bool {
	return !c.Hidden && !c.AdminOnly
}
