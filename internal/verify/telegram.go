package verify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/internal/models"
)

// DefaultTimeout bounds a single Bot API lookup.
const DefaultTimeout = 5 * time.Second

// API is the part of *tele.Bot used for lookups.
type API interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
	ChatByUsername(name string) (*tele.Chat, error)
	ChatByID(id int64) (*tele.Chat, error)
}

// chatRef addresses a chat by @username or numeric id.
type chatRef string

func (r chatRef) Recipient() string { return string(r) }

// Telegram is a Verifier backed by the Bot API and the sender directory.
type Telegram struct {
	api     API
	dir     *Directory
	timeout time.Duration
}

var _ Verifier = (*Telegram)(nil)

// NewTelegram builds the verifier. A nil directory disables the local cache.
func NewTelegram(api API, dir *Directory, timeout time.Duration) *Telegram {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if dir == nil {
		dir = NewDirectory()
	}
	return &Telegram{api: api, dir: dir, timeout: timeout}
}

func (t *Telegram) CheckMembership(ctx context.Context, channel string, identity int64) (models.Membership, error) {
	member, err := call(ctx, t.timeout, func() (*tele.ChatMember, error) {
		return t.api.ChatMemberOf(chatRef(channel), &tele.User{ID: identity})
	})
	if err != nil {
		if isNotFound(err) {
			return models.MembershipLeft, nil
		}
		return models.MembershipUnknown, t.fail(ctx, "membership", err, slog.Int64("identity", identity))
	}
	if member == nil {
		return models.MembershipUnknown, nil
	}
	switch m := models.Membership(member.Role); m {
	case models.MembershipMember, models.MembershipAdministrator, models.MembershipCreator,
		models.MembershipRestricted, models.MembershipLeft, models.MembershipKicked:
		return m, nil
	}
	return models.MembershipUnknown, nil
}

func (t *Telegram) ResolveIdentity(ctx context.Context, handle string) (int64, bool, error) {
	handle = models.NormalizeHandle(handle)
	if handle == "" {
		return 0, false, nil
	}
	if id, ok := t.dir.Identity(handle); ok {
		return id, true, nil
	}
	chat, err := call(ctx, t.timeout, func() (*tele.Chat, error) {
		return t.api.ChatByUsername("@" + handle)
	})
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, t.fail(ctx, "resolve", err, slog.String("handle", handle))
	}
	if chat == nil || chat.Type != tele.ChatPrivate {
		return 0, false, nil
	}
	t.dir.Remember(chat.ID, chat.Username)
	return chat.ID, true, nil
}

func (t *Telegram) LookupUser(ctx context.Context, identity int64) (string, bool, error) {
	if h, ok := t.dir.Handle(identity); ok {
		return h, true, nil
	}
	chat, err := call(ctx, t.timeout, func() (*tele.Chat, error) {
		return t.api.ChatByID(identity)
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, t.fail(ctx, "lookup", err, slog.Int64("identity", identity))
	}
	if chat == nil {
		return "", false, nil
	}
	return chat.Username, true, nil
}

func (t *Telegram) fail(ctx context.Context, op string, err error, attrs ...slog.Attr) error {
	aerr := &models.AdapterError{Op: op, Err: err}
	attrs = append(attrs,
		slog.String("err", err.Error()),
		slog.String("err_code", aerr.Code()),
	)
	logger.Warn(ctx, "verify", "verify."+op, attrs...)
	return aerr
}

// call runs a blocking Bot API request under its own deadline.
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func isNotFound(err error) bool {
	var terr *tele.Error
	if errors.As(err, &terr) && terr.Code == 400 {
		desc := strings.ToLower(terr.Description)
		return strings.Contains(desc, "not found") || strings.Contains(desc, "invalid user_id")
	}
	return false
}
