package verify

import (
	"sync"

	"github.com/m3rciful/cupbot/internal/models"
)

// Directory remembers every sender the bot has seen. The Bot API cannot
// resolve a private user's @handle, so this is the primary source for
// ResolveIdentity and for deciding whether an identity is known.
type Directory struct {
	mu         sync.RWMutex
	byHandle   map[string]int64
	byIdentity map[int64]string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byHandle:   make(map[string]int64),
		byIdentity: make(map[int64]string),
	}
}

// Remember records a sender. Handles are optional and may change over time.
func (d *Directory) Remember(identity int64, handle string) {
	if identity == 0 {
		return
	}
	handle = models.NormalizeHandle(handle)
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.byIdentity[identity]; ok && old != "" && models.HandleKey(old) != models.HandleKey(handle) {
		delete(d.byHandle, models.HandleKey(old))
	}
	d.byIdentity[identity] = handle
	if handle != "" {
		d.byHandle[models.HandleKey(handle)] = identity
	}
}

// Identity returns the identity last seen with the handle.
func (d *Directory) Identity(handle string) (int64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byHandle[models.HandleKey(handle)]
	return id, ok
}

// Handle returns the last handle seen for the identity.
func (d *Directory) Handle(identity int64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.byIdentity[identity]
	return h, ok
}

// Len returns the number of remembered identities.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byIdentity)
}
