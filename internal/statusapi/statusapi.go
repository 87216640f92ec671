// Package statusapi exposes the engine's status and health over HTTP
// (§7), grounded on the teacher's chi+cors router setup in
// cmd/server/main.go. Unlike the teacher's GraphQL API, this engine's
// only external HTTP surface is a small read-only status endpoint;
// the actual control plane is OSC (see internal/oscio, internal/control).
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/lacylights-led/ledengine/internal/control"
	"github.com/lacylights-led/ledengine/internal/dissolve"
	"github.com/lacylights-led/ledengine/internal/scenemanager"
	"github.com/lacylights-led/ledengine/internal/scheduler"
)

// Server is a small read-only HTTP status surface: engine health,
// aggregate scheduler/control counters, and dissolve-pattern
// introspection (§7).
type Server struct {
	version string

	scheduler *scheduler.Scheduler
	manager   *scenemanager.Manager
	surface   *control.Surface

	http *http.Server
}

// New builds a Server; call ListenAndServe to start it.
func New(addr, corsOrigin, version string, sched *scheduler.Scheduler, mgr *scenemanager.Manager, surface *control.Surface) *Server {
	s := &Server{version: version, scheduler: sched, manager: mgr, surface: surface}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(10 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{corsOrigin},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/health", s.handleHealth)
	router.Get("/status", s.handleStatus)
	router.Get("/dissolve/patterns", s.handleDissolvePatterns)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

type statusResponse struct {
	Version          string            `json:"version"`
	FramesRendered   uint64            `json:"frames_rendered"`
	ObservedFPS      float64           `json:"observed_fps"`
	LargeFrameEvents uint64            `json:"large_frame_events"`
	SinkErrors       uint64            `json:"sink_errors"`
	SceneID          int               `json:"scene_id"`
	EffectID         int               `json:"effect_id"`
	PaletteID        int               `json:"palette_id"`
	SpeedPercent     int               `json:"speed_percent"`
	MasterBrightness int               `json:"master_brightness"`
	HasActivated     bool              `json:"has_activated"`
	CommandCounts    map[string]uint64 `json:"command_counts"`
	ErrorCounts      map[string]uint64 `json:"error_counts"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.scheduler.Stats()
	sceneID, effectID, paletteID := s.manager.Selection()

	writeJSON(w, http.StatusOK, statusResponse{
		Version:          s.version,
		FramesRendered:   stats.FramesRendered,
		ObservedFPS:      stats.ObservedFPS,
		LargeFrameEvents: stats.LargeFrameEvents,
		SinkErrors:       stats.SinkErrors,
		SceneID:          sceneID,
		EffectID:         effectID,
		PaletteID:        paletteID,
		SpeedPercent:     s.manager.SpeedPercent(),
		MasterBrightness: int(s.manager.MasterBrightness()),
		HasActivated:     s.manager.HasActivated(),
		CommandCounts:    s.surface.CommandCounts(),
		ErrorCounts:      s.surface.ErrorCounts(),
	})
}

type dissolvePatternResponse struct {
	CurrentPatternID *int             `json:"current_pattern_id,omitempty"`
	Available        []int            `json:"available"`
	Patterns         []dissolve.Info  `json:"patterns"`
}

func (s *Server) handleDissolvePatterns(w http.ResponseWriter, r *http.Request) {
	registry := s.manager.Schedules()
	available := registry.Available()

	patterns := make([]dissolve.Info, 0, len(available))
	for _, id := range available {
		info, ok := registry.PatternInfo(id)
		if ok {
			patterns = append(patterns, info)
		}
	}

	resp := dissolvePatternResponse{Available: available, Patterns: patterns}
	if id, ok := registry.CurrentID(); ok {
		resp.CurrentPatternID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
