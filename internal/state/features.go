package state

import (
	"errors"
	"sync"
)

// Feature flag names. Flags are process-wide, no per-guild override.
const (
	FlagAntiSpam     = "anti_spam"
	FlagAntiRaid     = "anti_raid"
	FlagAutomod      = "automod"
	FlagAntiInvites  = "anti_invites"
	FlagAntiMentions = "anti_mentions"
	FlagNuke         = "nuke"
)

// ErrUnknownFlag is returned by Set for a flag name that was not registered
// at construction.
var ErrUnknownFlag = errors.New("unknown feature flag")

// FlagStore holds the enable/disable switches the detectors consult before
// acting. Defaults are fixed at construction; values are mutable afterwards.
type FlagStore struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewFlagStore(defaults map[string]bool) *FlagStore {
	flags := make(map[string]bool, len(defaults))
	for name, value := range defaults {
		flags[name] = value
	}
	return &FlagStore{flags: flags}
}

// Get returns the flag value; unknown names read as false.
func (s *FlagStore) Get(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name]
}

// Set updates a known flag or fails with ErrUnknownFlag.
func (s *FlagStore) Set(name string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flags[name]; !ok {
		return ErrUnknownFlag
	}
	s.flags[name] = value
	return nil
}

// Snapshot returns a copy of all flags for reporting.
func (s *FlagStore) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.flags))
	for name, value := range s.flags {
		out[name] = value
	}
	return out
}
