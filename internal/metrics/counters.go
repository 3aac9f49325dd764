// Package metrics holds the cumulative protection counters and the recent
// traffic series surfaced on the dashboard.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter names. The dashboard serializes these keys verbatim.
const (
	CounterMessagesSeen        = "messages_seen"
	CounterSpamFlags           = "spam_flags"
	CounterTimeouts            = "timeouts"
	CounterJoinsSeen           = "joins_seen"
	CounterRaidsDetected       = "raids_detected"
	CounterRaidLocks           = "raid_locks"
	CounterBans                = "bans"
	CounterKicks               = "kicks"
	CounterMutes               = "mutes"
	CounterAutomodRulesCreated = "automod_rules_created"
	CounterInvitesBlocked      = "invites_blocked"
	CounterMentionsFlagged     = "mentions_flagged"
	CounterNukes               = "nukes"
)

var counterKeys = []string{
	CounterMessagesSeen,
	CounterSpamFlags,
	CounterTimeouts,
	CounterJoinsSeen,
	CounterRaidsDetected,
	CounterRaidLocks,
	CounterBans,
	CounterKicks,
	CounterMutes,
	CounterAutomodRulesCreated,
	CounterInvitesBlocked,
	CounterMentionsFlagged,
	CounterNukes,
}

// CounterSet is one scope's counters. The key set is fixed at construction,
// so concurrent Incr/Get only touch the atomic values, never the map.
type CounterSet struct {
	counters map[string]*uint64
}

func newCounterSet() *CounterSet {
	counters := make(map[string]*uint64, len(counterKeys))
	for _, key := range counterKeys {
		counters[key] = new(uint64)
	}
	return &CounterSet{counters: counters}
}

// Incr bumps a counter. Unknown names are ignored.
func (c *CounterSet) Incr(name string) {
	if v, ok := c.counters[name]; ok {
		atomic.AddUint64(v, 1)
	}
}

func (c *CounterSet) Get(name string) uint64 {
	if v, ok := c.counters[name]; ok {
		return atomic.LoadUint64(v)
	}
	return 0
}

// Snapshot returns a point-in-time copy of all counters.
func (c *CounterSet) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, len(c.counters))
	for key, v := range c.counters {
		out[key] = atomic.LoadUint64(v)
	}
	return out
}

// Store aggregates the global counter scope and one lazily created scope per
// guild. Several components increment it as a side effect of their own state
// transitions; reads come from the reporting surface.
type Store struct {
	start  time.Time
	global *CounterSet

	mu     sync.RWMutex
	guilds map[uint64]*CounterSet
}

func NewStore(start time.Time) *Store {
	return &Store{
		start:  start,
		global: newCounterSet(),
		guilds: make(map[uint64]*CounterSet),
	}
}

// Incr bumps both the global scope and the guild scope.
func (s *Store) Incr(name string, guildID uint64) {
	s.global.Incr(name)
	s.Guild(guildID).Incr(name)
}

func (s *Store) Global() *CounterSet {
	return s.global
}

// Guild returns the guild's counter set, creating it on first use.
func (s *Store) Guild(guildID uint64) *CounterSet {
	s.mu.RLock()
	set, ok := s.guilds[guildID]
	s.mu.RUnlock()
	if ok {
		return set
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok = s.guilds[guildID]; ok {
		return set
	}
	set = newCounterSet()
	s.guilds[guildID] = set
	return set
}

func (s *Store) StartTime() time.Time {
	return s.start
}

// Uptime returns the elapsed time since process start.
func (s *Store) Uptime(now time.Time) time.Duration {
	return now.Sub(s.start)
}
