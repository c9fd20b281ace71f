package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/conneroisu/mdpreview/internal/metadata"
	"github.com/conneroisu/mdpreview/internal/settings"
	"github.com/conneroisu/mdpreview/internal/version"
	"github.com/conneroisu/mdpreview/internal/views"
	"github.com/go-chi/chi/v5"
)

// maxBodySize bounds request bodies accepted by the API.
const maxBodySize = 1 << 20

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	markup := s.engine.EnsureRendered(ctx)
	snap := s.engine.Settings()
	meta := s.engine.Metadata(ctx)

	page := views.Page(views.PageData{
		Title:     meta.String(metadata.FieldTitle),
		ThemeID:   snap.ThemeID,
		CSS:       s.engine.Stylesheet(),
		Markup:    markup,
		Container: s.opts.Container,
		Isolation: s.opts.Isolation,
		WSPath:    "/ws",
		Version:   version.GetShortVersion(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(ctx, w); err != nil {
		s.logger.Error(ctx, err, "Failed to render preview page")
	}
}

func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Validate origin before accepting connection
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	client, err := s.hub.serve(w, r)
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}

	s.attach()
	defer s.detach()
	client.readPump(r.Context())
}

// handleHealth returns the server health status for health checks
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	mounted := false
	if s.mounted != nil {
		_, mounted = s.mounted.Latest()
	}
	stats := s.engine.CacheStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"document":   s.config.Document,
		"checks": map[string]interface{}{
			"server":  map[string]interface{}{"status": "healthy", "message": "HTTP server operational"},
			"clients": map[string]interface{}{"status": "healthy", "connected": s.hub.Clients()},
			"preview": map[string]interface{}{"status": "healthy", "mounted": mounted},
			"cache":   map[string]interface{}{"status": "healthy", "entries": stats.Size, "capacity": stats.Capacity},
		},
	})
}

func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	markup := s.engine.EnsureRendered(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(markup))
}

func (s *PreviewServer) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(s.engine.Stylesheet()))
}

func (s *PreviewServer) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.CacheStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":   stats.Size,
		"capacity":  stats.Capacity,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"clears":    stats.Clears,
		"hit_rate":  stats.HitRate,
		"timestamp": time.Now().Unix(),
	})
}

func (s *PreviewServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearCache()
	s.logger.Info(r.Context(), "Render cache cleared over HTTP")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Cache cleared successfully",
		"timestamp": time.Now().Unix(),
	})
}

func (s *PreviewServer) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"override": s.engine.Override(),
		"resolved": s.engine.Metadata(r.Context()),
	})
}

func (s *PreviewServer) handlePutMetadata(w http.ResponseWriter, r *http.Request) {
	var override metadata.Override
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := decoder.Decode(&override); err != nil {
		http.Error(w, "Invalid metadata override: "+err.Error(), http.StatusBadRequest)
		return
	}
	if override == nil {
		override = metadata.Override{}
	}

	s.engine.SetOverride(r.Context(), override)
	s.handleGetMetadata(w, r)
}

func (s *PreviewServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Settings())
}

type stageInfo struct {
	ID         string                 `json:"id"`
	Enabled    bool                   `json:"enabled"`
	Registered bool                   `json:"registered"`
	Config     map[string]interface{} `json:"config,omitempty"`
}

func (s *PreviewServer) stageList(snap settings.Snapshot) []stageInfo {
	registered := map[string]bool{}
	if s.opts.Stages != nil {
		for _, id := range s.opts.Stages.IDs() {
			registered[id] = true
		}
	}

	list := make([]stageInfo, 0, len(snap.Stages)+len(registered))
	listed := make(map[string]bool, len(snap.Stages))
	for _, st := range snap.Stages {
		list = append(list, stageInfo{
			ID:         st.ID,
			Enabled:    st.Enabled,
			Registered: registered[st.ID],
			Config:     st.Config,
		})
		listed[st.ID] = true
	}

	// Registered stages missing from the settings are reported disabled.
	var extra []string
	for id := range registered {
		if !listed[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		list = append(list, stageInfo{ID: id, Registered: true})
	}
	return list
}

func (s *PreviewServer) handleStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stageList(s.engine.Settings()))
}

func (s *PreviewServer) handleToggleStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.engine.Settings().Stage(id); !ok {
		http.Error(w, "Unknown stage: "+id, http.StatusNotFound)
		return
	}

	snap := s.engine.UpdateSettings(r.Context(), func(current settings.Snapshot) settings.Snapshot {
		return current.ToggleStage(id)
	})
	st, _ := snap.Stage(id)
	s.logger.Info(r.Context(), "Stage toggled", "stage", id, "enabled", st.Enabled)

	writeJSON(w, http.StatusOK, s.stageList(snap))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
