// Package flow holds the types shared by the registration and admin
// conversations: inbound input, the outbound responder and session data.
package flow

import (
	"context"

	"github.com/m3rciful/cupbot/core/telegram/state"
	"github.com/m3rciful/cupbot/internal/models"
)

// Input is one inbound user event already stripped of transport details.
type Input struct {
	UserID   int64
	ChatID   int64
	Username string
	// Text is the message text, or the payload for a button press.
	Text string
	// Callback is true when the input came from an inline button.
	Callback bool
}

// Button is an inline keyboard button carrying an opaque payload.
type Button struct {
	Text string
	Data string
}

// Keyboard describes the markup attached to an outbound message.
// At most one of Reply, Inline and Remove is set.
type Keyboard struct {
	Reply  [][]string
	Inline [][]Button
	Remove bool
}

// ReplyKeyboard builds a reply keyboard with one button per row.
func ReplyKeyboard(labels ...string) *Keyboard {
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{l})
	}
	return &Keyboard{Reply: rows}
}

// InlineKeyboard builds an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Inline: rows}
}

// Row is a convenience constructor for one inline keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Responder delivers the outbound side of a transition. Texts are HTML.
type Responder interface {
	Send(ctx context.Context, text string, kb *Keyboard) error
	// Edit replaces the message that carried the pressed button and falls
	// back to sending a new one when there is nothing to edit.
	Edit(ctx context.Context, text string, kb *Keyboard) error
	// Answer acknowledges a button press with a transient notice.
	Answer(ctx context.Context, text string) error
}

// Draft is the in-progress registration.
type Draft struct {
	TeamName        string
	CaptainNickname string
	Players         []models.Player
	Summary         string
}

// Data is the typed session payload shared by both conversations.
type Data struct {
	Draft Draft
	// CommentTeam is the team an admin is commenting on.
	CommentTeam int64
	// Origin is the list the admin opened the team from.
	Origin models.Status
}

// Sessions is the session store both conversations share.
type Sessions = state.Manager[Data]

// NewSessions returns an in-memory session store.
func NewSessions(opts ...state.Option) *Sessions {
	return state.NewMemoryManager[Data](opts...)
}
