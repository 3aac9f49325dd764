package state

import "sync"

// WarnLedger counts warns per (guild, user). Counts only ever grow; Clear is
// the single reduction path. Escalation decisions belong to the caller, the
// ledger is pure bookkeeping.
type WarnLedger struct {
	mu    sync.Mutex
	warns map[uint64]map[uint64]int
}

func NewWarnLedger() *WarnLedger {
	return &WarnLedger{
		warns: make(map[uint64]map[uint64]int),
	}
}

// Warn increments and returns the new count.
func (l *WarnLedger) Warn(guildID, userID uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	guild, ok := l.warns[guildID]
	if !ok {
		guild = make(map[uint64]int)
		l.warns[guildID] = guild
	}
	guild[userID]++
	return guild[userID]
}

// Count returns the current count, 0 if the user has never been warned.
func (l *WarnLedger) Count(guildID, userID uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warns[guildID][userID]
}

// Clear resets the user's count and returns the value that was cleared.
// Clearing a user with no warns returns 0 and changes nothing.
func (l *WarnLedger) Clear(guildID, userID uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	guild, ok := l.warns[guildID]
	if !ok {
		return 0
	}
	old := guild[userID]
	delete(guild, userID)
	return old
}
