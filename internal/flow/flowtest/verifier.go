package flowtest

import (
	"context"
	"sync"

	"github.com/m3rciful/cupbot/internal/models"
	"github.com/m3rciful/cupbot/internal/verify"
)

// Verifier is an in-memory verify.Verifier.
type Verifier struct {
	mu sync.Mutex
	// Handles maps lower-case handles to identities.
	Handles map[string]int64
	// Members holds membership per identity; absent identities have left.
	Members map[int64]models.Membership
	// Users lists identities LookupUser knows about.
	Users map[int64]string
	// Err, when set, fails every call.
	Err   error
	Calls int
}

var _ verify.Verifier = (*Verifier)(nil)

func (v *Verifier) count() {
	v.mu.Lock()
	v.Calls++
	v.mu.Unlock()
}

func (v *Verifier) CheckMembership(_ context.Context, _ string, identity int64) (models.Membership, error) {
	v.count()
	if v.Err != nil {
		return models.MembershipUnknown, &models.AdapterError{Op: "membership", Err: v.Err}
	}
	if m, ok := v.Members[identity]; ok {
		return m, nil
	}
	return models.MembershipLeft, nil
}

func (v *Verifier) ResolveIdentity(_ context.Context, handle string) (int64, bool, error) {
	v.count()
	if v.Err != nil {
		return 0, false, &models.AdapterError{Op: "resolve", Err: v.Err}
	}
	id, ok := v.Handles[models.HandleKey(handle)]
	return id, ok, nil
}

func (v *Verifier) LookupUser(_ context.Context, identity int64) (string, bool, error) {
	v.count()
	if v.Err != nil {
		return "", false, &models.AdapterError{Op: "lookup", Err: v.Err}
	}
	h, ok := v.Users[identity]
	return h, ok, nil
}
