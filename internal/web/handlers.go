package web

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/access"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/util"
)

type toggleRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

type leaveRequest struct {
	GuildID uint64 `json:"guild_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": code})
}

// validate reads the credential pair from the query string. Dashboard
// clients send key and pin on every call rather than holding a session.
func (s *Server) validate(r *http.Request) access.Validation {
	q := r.URL.Query()
	return s.keys.Validate(q.Get("key"), q.Get("pin"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats always answers 200. Bad or missing credentials degrade the
// payload to aggregate totals instead of failing, so the public dashboard
// landing page works without a key.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	v := s.validate(r)
	writeJSON(w, http.StatusOK, s.aggregator.Collect(v.Role, v.GuildID))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	v := s.validate(r)
	if !v.Valid {
		writeError(w, http.StatusForbidden, "access_denied")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "bad_payload")
		return
	}

	if err := s.flags.Set(req.Key, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, "unknown_feature")
		return
	}

	logging.Info("Feature %s set to %v via web by %s", req.Key, req.Value, v.DisplayCode)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"feature": req.Key,
		"value":   req.Value,
	})
}

// handleSyncAutomod kicks off rule sync for every guild in the background
// and returns immediately; a full sync can take minutes of rate-limited
// API calls.
func (s *Server) handleSyncAutomod(w http.ResponseWriter, r *http.Request) {
	v := s.validate(r)
	if !v.Valid {
		writeError(w, http.StatusForbidden, "access_denied")
		return
	}
	if v.Role != access.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin_only")
		return
	}

	guilds := s.directory.Guilds()
	if len(guilds) == 0 {
		writeError(w, http.StatusBadRequest, "no_guilds")
		return
	}

	go func() {
		for _, g := range guilds {
			guildID := util.ParseSnowflake(g.ID)
			if guildID == 0 {
				continue
			}
			if _, err := s.syncer.Sync(guildID); err != nil {
				logging.Warn("Automod sync failed for guild %s: %v", g.ID, err)
			}
		}
	}()

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleLeaveGuild(w http.ResponseWriter, r *http.Request) {
	v := s.validate(r)
	if !v.Valid {
		writeError(w, http.StatusForbidden, "access_denied")
		return
	}
	if v.Role != access.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin_only")
		return
	}

	var req leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GuildID == 0 {
		writeError(w, http.StatusBadRequest, "bad_payload")
		return
	}

	if !s.knownGuild(req.GuildID) {
		writeError(w, http.StatusNotFound, "unknown_guild")
		return
	}

	if err := s.admin.LeaveGuild(req.GuildID); err != nil {
		logging.Error("Failed to leave guild %d: %v", req.GuildID, err)
		writeError(w, http.StatusInternalServerError, "leave_failed")
		return
	}
	logging.Info("Left guild %d via web by %s", req.GuildID, v.DisplayCode)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	v := s.validate(r)
	if !v.Valid {
		writeError(w, http.StatusForbidden, "access_denied")
		return
	}
	if v.Role != access.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin_only")
		return
	}
	if s.incidents == nil {
		writeError(w, http.StatusServiceUnavailable, "audit_log_disabled")
		return
	}

	q := r.URL.Query()
	guildID := util.ParseSnowflake(q.Get("guild_id"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	incidents, err := s.incidents.GetRecentIncidents(guildID, limit)
	if err != nil {
		logging.Error("Failed to read incidents: %v", err)
		writeError(w, http.StatusInternalServerError, "query_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "incidents": incidents})
}

// handleTrafficWS gates the live feed on the same credential pair.
func (s *Server) handleTrafficWS(w http.ResponseWriter, r *http.Request) {
	v := s.validate(r)
	if !v.Valid {
		writeError(w, http.StatusForbidden, "access_denied")
		return
	}
	s.hub.serve(w, r)
}

func (s *Server) knownGuild(id uint64) bool {
	for _, g := range s.directory.Guilds() {
		if util.ParseSnowflake(g.ID) == id {
			return true
		}
	}
	return false
}
