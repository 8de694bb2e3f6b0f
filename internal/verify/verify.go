// Package verify resolves handles to identities and checks channel membership.
package verify

import (
	"context"

	"github.com/m3rciful/cupbot/internal/models"
)

// Verifier is the external lookup used by both conversation flows.
// Every method may be slow; callers bound it with a context deadline.
type Verifier interface {
	// CheckMembership reports the identity's status in the channel
	// (@username or numeric id).
	CheckMembership(ctx context.Context, channel string, identity int64) (models.Membership, error)
	// ResolveIdentity maps a handle to a durable identity. ok is false when
	// the handle is unknown; err is reserved for failed lookups.
	ResolveIdentity(ctx context.Context, handle string) (identity int64, ok bool, err error)
	// LookupUser reports whether the identity is reachable and its handle.
	LookupUser(ctx context.Context, identity int64) (handle string, ok bool, err error)
}
