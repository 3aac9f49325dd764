package web

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/access"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/database"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/lockdown"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/report"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
)

const ownerID = uint64(42)

type fakeDirectory struct{}

func (fakeDirectory) Guilds() []report.GuildInfo {
	return []report.GuildInfo{
		{ID: "500", Name: "First", MemberCount: 25},
		{ID: "600", Name: "Second", MemberCount: 50},
	}
}

type fakeAdmin struct {
	left []uint64
	err  error
}

func (f *fakeAdmin) LeaveGuild(guildID uint64) error {
	if f.err != nil {
		return f.err
	}
	f.left = append(f.left, guildID)
	return nil
}

type fakeSyncer struct{}

func (fakeSyncer) Sync(uint64) (int, error) { return 0, nil }

type noopLocker struct{}

func (noopLocker) GuildTextChannels(uint64) ([]lockdown.ChannelState, error) { return nil, nil }
func (noopLocker) SetSendLock(uint64, uint64, bool, string) error            { return nil }

type webHarness struct {
	server *Server
	keys   *access.Store
	flags  *state.FlagStore
	admin  *fakeAdmin
}

func newWebHarness(t *testing.T, incidents IncidentStore) *webHarness {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.DefaultConfig()

	keys := access.NewStore(ownerID, clk)
	flags := state.NewFlagStore(cfg.FlagDefaults())
	stats := metrics.NewStore(clk.Now())
	traffic := metrics.NewTraffic(100)
	ld := lockdown.NewController(noopLocker{}, stats, clk, 10*time.Minute)
	agg := report.NewAggregator(stats, traffic, flags, keys, ld, fakeDirectory{}, nil, clk)
	admin := &fakeAdmin{}
	hub := NewHub(traffic, clk, time.Minute)

	srv := NewServer(cfg.Web, keys, flags, agg, fakeDirectory{}, admin, fakeSyncer{}, incidents, hub)
	return &webHarness{server: srv, keys: keys, flags: flags, admin: admin}
}

func credQuery(key *access.KeyRecord, pin string) string {
	if key == nil {
		return ""
	}
	return "?key=" + url.QueryEscape(key.DisplayCode) + "&pin=" + pin
}

func (h *webHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newWebHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestStats(t *testing.T) {
	t.Run("no credentials returns the locked aggregate payload", func(t *testing.T) {
		h := newWebHarness(t, nil)
		rec := h.do(t, http.MethodGet, "/api/stats", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, true, out["locked"])
		assert.Nil(t, out["role"])
		assert.Empty(t, out["guilds_detail"])
		assert.Equal(t, float64(2), out["guilds"])
		assert.Contains(t, out, "stats")
		assert.NotContains(t, out, "system")
	})

	t.Run("wrong pin degrades identically to no credentials", func(t *testing.T) {
		h := newWebHarness(t, nil)
		key := h.keys.IssueUserKey(500, "First", 7, "mod", "")

		rec1 := h.do(t, http.MethodGet, "/api/stats", nil)
		rec2 := h.do(t, http.MethodGet, "/api/stats"+credQuery(key, "999999"), nil)
		assert.JSONEq(t, rec1.Body.String(), rec2.Body.String())
	})

	t.Run("user key sees only its own guild", func(t *testing.T) {
		h := newWebHarness(t, nil)
		key := h.keys.IssueUserKey(500, "First", 7, "mod", "")
		rec := h.do(t, http.MethodGet, "/api/stats"+credQuery(key, key.PIN), nil)

		out := decode(t, rec)
		assert.Equal(t, false, out["locked"])
		assert.Equal(t, "user", out["role"])
		assert.Equal(t, float64(25), out["members"])
		detail := out["guilds_detail"].([]any)
		require.Len(t, detail, 1)
		assert.Equal(t, "500", detail[0].(map[string]any)["id"])
		assert.NotContains(t, out, "system")
	})

	t.Run("admin key sees all guilds and system stats", func(t *testing.T) {
		h := newWebHarness(t, nil)
		key, err := h.keys.IssueAdminKey(ownerID, "owner", "")
		require.NoError(t, err)
		rec := h.do(t, http.MethodGet, "/api/stats"+credQuery(key, key.PIN), nil)

		out := decode(t, rec)
		assert.Equal(t, "admin", out["role"])
		assert.Len(t, out["guilds_detail"].([]any), 2)
		assert.Contains(t, out, "system")
	})
}

func TestToggle(t *testing.T) {
	h := newWebHarness(t, nil)
	key, err := h.keys.IssueAdminKey(ownerID, "owner", "")
	require.NoError(t, err)
	creds := credQuery(key, key.PIN)

	t.Run("bad credentials", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/toggle?key=GLX-USER-ZZZZ&pin=000000",
			map[string]any{"key": state.FlagAntiSpam, "value": false})
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "access_denied", decode(t, rec)["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/toggle"+creds, bytes.NewReader([]byte("{nope")))
		rec := httptest.NewRecorder()
		h.server.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_payload", decode(t, rec)["error"])
	})

	t.Run("unknown feature", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/toggle"+creds,
			map[string]any{"key": "not_a_feature", "value": true})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "unknown_feature", decode(t, rec)["error"])
	})

	t.Run("disables a flag", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/toggle"+creds,
			map[string]any{"key": state.FlagAntiSpam, "value": false})
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, true, out["ok"])
		assert.Equal(t, state.FlagAntiSpam, out["feature"])
		assert.Equal(t, false, out["value"])
		assert.False(t, h.flags.Get(state.FlagAntiSpam))
	})

	t.Run("user keys may toggle", func(t *testing.T) {
		userKey := h.keys.IssueUserKey(500, "First", 7, "mod", "")
		rec := h.do(t, http.MethodPost, "/api/toggle"+credQuery(userKey, userKey.PIN),
			map[string]any{"key": state.FlagAntiSpam, "value": true})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, h.flags.Get(state.FlagAntiSpam))
	})
}

func TestSyncAutomod(t *testing.T) {
	h := newWebHarness(t, nil)

	t.Run("user keys are rejected", func(t *testing.T) {
		key := h.keys.IssueUserKey(500, "First", 7, "mod", "")
		rec := h.do(t, http.MethodPost, "/api/sync_automod"+credQuery(key, key.PIN), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "admin_only", decode(t, rec)["error"])
	})

	t.Run("admin keys are accepted", func(t *testing.T) {
		key, err := h.keys.IssueAdminKey(ownerID, "owner", "")
		require.NoError(t, err)
		rec := h.do(t, http.MethodPost, "/api/sync_automod"+credQuery(key, key.PIN), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["ok"])
	})
}

func TestLeaveGuild(t *testing.T) {
	h := newWebHarness(t, nil)
	key, err := h.keys.IssueAdminKey(ownerID, "owner", "")
	require.NoError(t, err)
	creds := credQuery(key, key.PIN)

	t.Run("unknown guild", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/admin/leave_guild"+creds,
			map[string]any{"guild_id": 123})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "unknown_guild", decode(t, rec)["error"])
	})

	t.Run("known guild", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/admin/leave_guild"+creds,
			map[string]any{"guild_id": 600})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []uint64{600}, h.admin.left)
	})

	t.Run("user keys are rejected", func(t *testing.T) {
		userKey := h.keys.IssueUserKey(500, "First", 7, "mod", "")
		rec := h.do(t, http.MethodPost, "/api/admin/leave_guild"+credQuery(userKey, userKey.PIN),
			map[string]any{"guild_id": 500})
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "admin_only", decode(t, rec)["error"])
	})

	t.Run("platform failure surfaces as 500", func(t *testing.T) {
		h.admin.err = fmt.Errorf("gateway down")
		defer func() { h.admin.err = nil }()
		rec := h.do(t, http.MethodPost, "/api/admin/leave_guild"+creds,
			map[string]any{"guild_id": 600})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "leave_failed", decode(t, rec)["error"])
	})
}

func TestIncidentsUnavailable(t *testing.T) {
	h := newWebHarness(t, nil)
	key, err := h.keys.IssueAdminKey(ownerID, "owner", "")
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/api/admin/incidents"+credQuery(key, key.PIN), nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "audit_log_disabled", decode(t, rec)["error"])
}

// keep the interface satisfied by the real store
var _ IncidentStore = (*database.Database)(nil)
