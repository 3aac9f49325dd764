package automod

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
)

func TestSyncHonorsFeatureFlag(t *testing.T) {
	cfg := config.DefaultConfig()
	flags := state.NewFlagStore(map[string]bool{state.FlagAutomod: false})
	s := NewSyncer(nil, cfg.Automod, flags, metrics.NewStore(time.Now()))

	// disabled flag short-circuits before any platform call, so a nil
	// session is never touched
	n, err := s.Sync(42)
	require.NoError(t, err)
	assert.Zero(t, n)
}
