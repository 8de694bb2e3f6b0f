package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error kinds. Typed errors below report their kind through errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrAdapter      = errors.New("verification adapter failed")
	ErrStore        = errors.New("store failed")
	ErrUnauthorized = errors.New("access denied")
)

// DuplicateNameError reports a team name that is already taken, ignoring case.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("team name %q is already registered", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrValidation }

// Code is used for the err_code log field.
func (e *DuplicateNameError) Code() string { return "DUPLICATE_NAME" }

// InvalidIdentityError reports a non-numeric identity typed by an admin.
type InvalidIdentityError struct {
	Input string
}

func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("identity %q is not numeric", e.Input)
}

func (e *InvalidIdentityError) Is(target error) bool { return target == ErrValidation }

func (e *InvalidIdentityError) Code() string { return "INVALID_IDENTITY" }

// UnknownUserError reports an identity that never interacted with the bot.
type UnknownUserError struct {
	Identity int64
}

func (e *UnknownUserError) Error() string {
	return fmt.Sprintf("user %d is unknown to the bot", e.Identity)
}

func (e *UnknownUserError) Is(target error) bool { return target == ErrValidation }

func (e *UnknownUserError) Code() string { return "UNKNOWN_USER" }

// RosterError describes why a roster cannot be accepted.
type RosterError struct {
	TooFew             bool
	TooMany            bool
	Count              int
	LongNicknames      []string
	NoCaptain          bool
	ManyCaptains       bool
	DuplicateNicknames []string
	DuplicateHandles   []string
}

func (e *RosterError) Error() string {
	var parts []string
	if e.TooFew {
		parts = append(parts, fmt.Sprintf("roster has %d players, need at least %d", e.Count, MinRosterSize))
	}
	if e.TooMany {
		parts = append(parts, fmt.Sprintf("roster has %d players, at most %d allowed", e.Count, MaxRosterSize))
	}
	if len(e.LongNicknames) > 0 {
		parts = append(parts, "nicknames too long: "+strings.Join(e.LongNicknames, ", "))
	}
	if e.NoCaptain {
		parts = append(parts, "roster has no captain")
	}
	if e.ManyCaptains {
		parts = append(parts, "roster has more than one captain")
	}
	if len(e.DuplicateNicknames) > 0 {
		parts = append(parts, "duplicate nicknames: "+strings.Join(e.DuplicateNicknames, ", "))
	}
	if len(e.DuplicateHandles) > 0 {
		parts = append(parts, "duplicate handles: "+strings.Join(e.DuplicateHandles, ", "))
	}
	return "invalid roster: " + strings.Join(parts, "; ")
}

func (e *RosterError) Is(target error) bool { return target == ErrValidation }

func (e *RosterError) Code() string { return "INVALID_ROSTER" }

// NotFoundError reports a missing team or admin, or a stale button payload.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Code() string { return "NOT_FOUND" }

// StoreError wraps a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func (e *StoreError) Code() string { return "STORE_" + strings.ToUpper(e.Op) }

// AdapterError wraps a failed or timed out membership or identity lookup.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string { return fmt.Sprintf("verify %s: %v", e.Op, e.Err) }

func (e *AdapterError) Unwrap() error { return e.Err }

func (e *AdapterError) Is(target error) bool { return target == ErrAdapter }

func (e *AdapterError) Code() string { return "ADAPTER_" + strings.ToUpper(e.Op) }

// AuthorizationError reports a non-admin touching admin-only operations.
type AuthorizationError struct {
	Identity int64
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %d is not an admin", e.Identity)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

func (e *AuthorizationError) Code() string { return "ACCESS_DENIED" }

func (e *AuthorizationError) LogStatus() string { return "denied" }

// ValidateRoster checks the roster invariants: one captain, between
// MinRosterSize and MaxRosterSize players, nicknames of at most
// MaxNameLength runes that are unique, and case-insensitively unique
// handles. Empty handles are not compared.
func ValidateRoster(players []Player) error {
	rerr := &RosterError{Count: len(players)}
	rerr.TooFew = len(players) < MinRosterSize
	rerr.TooMany = len(players) > MaxRosterSize
	captains := 0
	nicknames := make(map[string]struct{}, len(players))
	handles := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p.IsCaptain {
			captains++
		}
		if utf8.RuneCountInString(p.Nickname) > MaxNameLength {
			rerr.LongNicknames = append(rerr.LongNicknames, p.Nickname)
		}
		if _, seen := nicknames[p.Nickname]; seen {
			rerr.DuplicateNicknames = append(rerr.DuplicateNicknames, p.Nickname)
		} else {
			nicknames[p.Nickname] = struct{}{}
		}
		key := HandleKey(p.Handle)
		if key == "" {
			continue
		}
		if _, seen := handles[key]; seen {
			rerr.DuplicateHandles = append(rerr.DuplicateHandles, NormalizeHandle(p.Handle))
		} else {
			handles[key] = struct{}{}
		}
	}
	rerr.NoCaptain = captains == 0
	rerr.ManyCaptains = captains > 1
	if rerr.TooFew || rerr.TooMany || rerr.NoCaptain || rerr.ManyCaptains || len(rerr.LongNicknames) > 0 ||
		len(rerr.DuplicateNicknames) > 0 || len(rerr.DuplicateHandles) > 0 {
		return rerr
	}
	return nil
}
