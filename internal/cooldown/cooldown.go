// Package cooldown tracks per-subject suppression windows. Each
// feature of the bot (XP awards, thanks grants, reminders, mutes) owns
// one Registry; absence of an entry means "not on cooldown".
package cooldown

import (
	"sync"
	"time"

	"server-warden/internal/storagetypes"
)

type entry struct {
	expiresAt time.Time
	permanent bool
}

// Registry maps subject IDs to cooldown entries. All operations are
// total: asking about an unknown subject is not an error, and removing
// an absent entry is a no-op. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Has reports whether id is currently on cooldown. Expired timed
// entries count as absent and are dropped lazily.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	if e.permanent {
		return true
	}
	if !e.expiresAt.After(r.now()) {
		delete(r.entries, id)
		return false
	}
	return true
}

// Add puts id on cooldown for d, replacing any existing entry.
// Last write wins; durations do not stack.
func (r *Registry) Add(id string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{expiresAt: r.now().Add(d)}
}

// TryAcquire is the atomic check-then-set gate: if id is not on
// cooldown, a timed entry for d is inserted and true is returned. An
// active entry (timed or permanent) is left untouched and false is
// returned. Concurrent callers for the same id see exactly one true.
func (r *Registry) TryAcquire(id string, d time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if ok && (e.permanent || e.expiresAt.After(r.now())) {
		return false
	}
	r.entries[id] = entry{expiresAt: r.now().Add(d)}
	return true
}

// AddPermanent inserts an entry that never expires by time comparison.
// It stays until Remove is called.
func (r *Registry) AddPermanent(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{permanent: true}
}

// IsPermanent reports whether id holds a permanent entry.
func (r *Registry) IsPermanent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].permanent
}

// Remove deletes the entry for id, if any.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Remaining returns how long until the entry for id expires. Absent,
// expired and permanent entries all report zero.
func (r *Registry) Remaining(id string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.permanent {
		return 0
	}
	d := e.expiresAt.Sub(r.now())
	if d < 0 {
		return 0
	}
	return d
}

// RemoveAfter schedules deletion of the entry for id after delay,
// regardless of its expiry semantics. Used to bound time-boxed
// permission windows such as editable thanks messages. The removal is
// idempotent, so cancellation is not needed.
func (r *Registry) RemoveAfter(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		r.Remove(id)
	})
}

// Sweep deletes all expired timed entries and returns how many were
// removed. Permanent entries are never swept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.entries {
		if !e.permanent && !e.expiresAt.After(now) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Snapshot returns the live entries in their persisted form. Expired
// timed entries are excluded.
func (r *Registry) Snapshot() map[string]storagetypes.Cooldown {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make(map[string]storagetypes.Cooldown, len(r.entries))
	for id, e := range r.entries {
		if !e.permanent && !e.expiresAt.After(now) {
			continue
		}
		out[id] = storagetypes.Cooldown{ExpiresAt: e.expiresAt, Permanent: e.permanent}
	}
	return out
}

// Restore loads persisted entries, dropping any that expired while the
// process was down.
func (r *Registry) Restore(saved map[string]storagetypes.Cooldown) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, c := range saved {
		if !c.Permanent && !c.ExpiresAt.After(now) {
			continue
		}
		r.entries[id] = entry{expiresAt: c.ExpiresAt, permanent: c.Permanent}
	}
}
