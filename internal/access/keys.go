// Package access implements the credential pairs (code + PIN) that gate the
// web dashboard. This is a shared-secret lookup, not a session protocol:
// keys never expire, never rotate, and live only as long as the process.
package access

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ErrNotAuthorized is returned when admin key generation is attempted by
// anyone other than the configured owner, or when no owner is configured.
var ErrNotAuthorized = errors.New("not authorized to generate admin keys")

// suffixAlphabet excludes visually confusable characters (I, O, 0, 1).
const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	segmentMaxLen = 8
	suffixLen     = 4
)

// KeyRecord is one issued credential pair.
type KeyRecord struct {
	DisplayCode    string
	NormalizedCode string
	Role           Role
	GuildID        uint64 // set iff Role == RoleUser
	GuildName      string
	OwnerID        uint64
	OwnerTag       string
	PIN            string
	CreatedAt      time.Time
}

// Validation is the result shape for credential checks. Every failure mode
// (empty input, empty store, unknown code, wrong PIN) produces the identical
// zero-role result so callers cannot probe which part was wrong.
type Validation struct {
	Valid       bool
	Role        Role
	GuildID     uint64
	OwnerID     uint64
	DisplayCode string
}

// LicenseInfo is the dashboard's summary of issued keys.
type LicenseInfo struct {
	Type       string `json:"type"`
	CodeActive bool   `json:"code_active"`
	CodeMasked string `json:"code_masked"`
	CreatedAgo string `json:"created_ago"`
	CreatedAt  string `json:"created_at"`
	CreatedBy  string `json:"created_by"`
	GuildName  string `json:"guild_name"`
}

// Store owns all issued credential pairs, keyed by normalized code.
// Collisions on the random suffix are not deduplicated (last write wins);
// the suffix space makes that negligible.
type Store struct {
	mu      sync.Mutex
	ownerID uint64
	clk     clock.Clock
	keys    map[string]*KeyRecord
}

func NewStore(ownerID uint64, clk clock.Clock) *Store {
	return &Store{
		ownerID: ownerID,
		clk:     clk,
		keys:    make(map[string]*KeyRecord),
	}
}

// IssueUserKey generates a credential pair scoped to a single guild. The
// optional pattern ("SEG1,SEG2") overrides the default GLX/USER segments.
func (s *Store) IssueUserKey(guildID uint64, guildName string, ownerID uint64, ownerTag, pattern string) *KeyRecord {
	code := buildCode(pattern, "GLX", "USER")
	rec := &KeyRecord{
		DisplayCode:    code,
		NormalizedCode: NormalizeCode(code),
		Role:           RoleUser,
		GuildID:        guildID,
		GuildName:      guildName,
		OwnerID:        ownerID,
		OwnerTag:       ownerTag,
		PIN:            generatePIN(),
		CreatedAt:      s.clk.Now(),
	}

	s.mu.Lock()
	s.keys[rec.NormalizedCode] = rec
	s.mu.Unlock()

	logging.Info("Generated USER web key for %s in guild %s", ownerTag, guildName)
	return rec
}

// IssueAdminKey generates a global credential pair. Only the configured
// owner identity may call this; an unset owner also fails closed.
func (s *Store) IssueAdminKey(requesterID uint64, requesterTag, pattern string) (*KeyRecord, error) {
	if s.ownerID == 0 || requesterID != s.ownerID {
		return nil, ErrNotAuthorized
	}

	code := buildCode(pattern, "GLX", "ADMIN")
	rec := &KeyRecord{
		DisplayCode:    code,
		NormalizedCode: NormalizeCode(code),
		Role:           RoleAdmin,
		OwnerID:        requesterID,
		OwnerTag:       requesterTag,
		PIN:            generatePIN(),
		CreatedAt:      s.clk.Now(),
	}

	s.mu.Lock()
	s.keys[rec.NormalizedCode] = rec
	s.mu.Unlock()

	logging.Info("Generated ADMIN web key for %s", requesterTag)
	return rec, nil
}

// Validate checks a credential pair. It fails closed: display formatting of
// the code never matters (only the normalized form is compared) and every
// failure yields the identical locked result.
func (s *Store) Validate(code, pin string) Validation {
	if code == "" || pin == "" {
		return Validation{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) == 0 {
		return Validation{}
	}
	rec, ok := s.keys[NormalizeCode(code)]
	if !ok {
		return Validation{}
	}
	if strings.TrimSpace(pin) != rec.PIN {
		return Validation{}
	}

	return Validation{
		Valid:       true,
		Role:        rec.Role,
		GuildID:     rec.GuildID,
		OwnerID:     rec.OwnerID,
		DisplayCode: rec.DisplayCode,
	}
}

// Len reports the number of issued keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// License summarizes issued keys for the dashboard.
func (s *Store) License() LicenseInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) == 0 {
		return LicenseInfo{Type: "No web keys"}
	}

	adminCount, userCount := 0, 0
	var latest *KeyRecord
	for _, rec := range s.keys {
		switch rec.Role {
		case RoleAdmin:
			adminCount++
		case RoleUser:
			userCount++
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
		}
	}

	return LicenseInfo{
		Type:       "Lifetime Multi-Key",
		CodeActive: true,
		CodeMasked: fmt.Sprintf("%d keys (admin %d, user %d)", len(s.keys), adminCount, userCount),
		CreatedAgo: util.HumanDelta(s.clk.Now().Sub(latest.CreatedAt)),
		CreatedAt:  latest.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		CreatedBy:  latest.OwnerTag,
		GuildName:  latest.GuildName,
	}
}

// NormalizeCode strips every non-alphanumeric character and upper-cases the
// rest. This is the only form used for lookups.
func NormalizeCode(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z':
			b.WriteRune(ch - 'a' + 'A')
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// buildCode assembles "SEG1-SEG2-XXXX". A pattern of "a,b" overrides both
// segments; a single part overrides only the first. Segments are stripped to
// alphanumerics, upper-cased, and capped at eight characters.
func buildCode(pattern, def1, def2 string) string {
	seg1, seg2 := def1, def2
	if pattern != "" {
		var parts []string
		for _, p := range strings.Split(pattern, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		switch {
		case len(parts) >= 2:
			seg1, seg2 = cleanSegment(parts[0], def1), cleanSegment(parts[1], def2)
		case len(parts) == 1:
			seg1 = cleanSegment(parts[0], def1)
		}
	}
	return seg1 + "-" + seg2 + "-" + randomSuffix()
}

func cleanSegment(raw, fallback string) string {
	cleaned := NormalizeCode(raw)
	if cleaned == "" {
		cleaned = fallback
	}
	if len(cleaned) > segmentMaxLen {
		cleaned = cleaned[:segmentMaxLen]
	}
	return cleaned
}

// randomSuffix draws from crypto/rand; credentials must not be predictable.
func randomSuffix() string {
	max := big.NewInt(int64(len(suffixAlphabet)))
	b := make([]byte, suffixLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("access: crypto/rand unavailable: %v", err))
		}
		b[i] = suffixAlphabet[n.Int64()]
	}
	return string(b)
}

// generatePIN returns a uniformly random, zero-padded 6-digit string.
func generatePIN() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		panic(fmt.Sprintf("access: crypto/rand unavailable: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}
