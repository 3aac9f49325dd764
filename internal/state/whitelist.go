package state

import "sync"

// Whitelist is the set of user IDs the detectors never act on. Guild
// administrators are exempt implicitly; this covers trusted non-admins.
type Whitelist struct {
	mu    sync.RWMutex
	users map[uint64]struct{}
}

func NewWhitelist() *Whitelist {
	return &Whitelist{users: make(map[uint64]struct{})}
}

func (w *Whitelist) Add(userID uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.users[userID] = struct{}{}
}

// Remove reports whether the user was present.
func (w *Whitelist) Remove(userID uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.users[userID]; !ok {
		return false
	}
	delete(w.users, userID)
	return true
}

func (w *Whitelist) Contains(userID uint64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.users[userID]
	return ok
}
