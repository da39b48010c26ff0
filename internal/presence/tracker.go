package presence

import (
	"sort"
	"sync"
	"time"
)

// Tracker records which end users currently have a live chat session. It is
// derived state, rebuilt from live connections after a restart.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]time.Time // ownerID -> online since
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]time.Time)}
}

// MarkOnline records ownerID as online. It reports true only on the
// offline to online transition.
func (t *Tracker) MarkOnline(ownerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[ownerID]; ok {
		return false
	}
	t.entries[ownerID] = time.Now().UTC()
	return true
}

// Remove clears ownerID and reports whether an entry existed.
func (t *Tracker) Remove(ownerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[ownerID]; !ok {
		return false
	}
	delete(t.entries, ownerID)
	return true
}

func (t *Tracker) IsOnline(ownerID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[ownerID]
	return ok
}

// Entry is a snapshot of one online user.
type Entry struct {
	UserID      string    `json:"userId"`
	OnlineSince time.Time `json:"onlineSince"`
}

// List returns the online users sorted by id.
func (t *Tracker) List() []Entry {
	t.mu.RLock()
	out := make([]Entry, 0, len(t.entries))
	for id, since := range t.entries {
		out = append(out, Entry{UserID: id, OnlineSince: since})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
