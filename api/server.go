package api

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
	"github.com/wricardo/gridpath/pathfinding/search"
	"github.com/wricardo/gridpath/pathfinding/service"
	"github.com/wricardo/gridpath/transport/websocket"
)

// DefaultAllowedOrigins is the CORS allow-list used when none is configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

// Maximum accepted request body.
const maxBodyBytes = 16 << 20

// Server represents the REST API server
type Server struct {
	service service.PathService
	hub     *websocket.Hub
	router  *mux.Router
	handler http.Handler

	metrics        http.Handler
	presets        PresetReloader
	allowedOrigins []string
}

// PresetReloader re-reads presets from disk.
type PresetReloader interface {
	ReloadPreset(name string) error
	RefreshCache() error
}

// Option configures a Server
type Option func(*Server)

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithPresetReloader enables the preset reload endpoints.
func WithPresetReloader(r PresetReloader) Option {
	return func(s *Server) { s.presets = r }
}

// WithAllowedOrigins sets the CORS allow-list; "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates a new API server
func NewServer(pathService service.PathService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service:        pathService,
		hub:            hub,
		router:         mux.NewRouter(),
		allowedOrigins: DefaultAllowedOrigins,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
		handlers.AllowCredentials(),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.StandardLogger()),
		handlers.PrintRecoveryStack(true),
	)
	s.handler = recovery(cors(s.router))
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Searches
	api.HandleFunc("/find-path", s.handleFindPath).Methods("POST")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	if s.presets != nil {
		api.HandleFunc("/presets/reload", s.handleRefreshPresets).Methods("POST")
		api.HandleFunc("/presets/{name}/reload", s.handleReloadPreset).Methods("POST")
	}
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")
	api.HandleFunc("/presets/{name}/find-path", s.handleSolvePreset).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// searchErrorResponse keeps the find-path envelope shape on failures
type searchErrorResponse struct {
	ShortestPath       []grid.CellView `json:"shortestPath"`
	VisualizationSteps []search.Step   `json:"visualizationSteps"`
	Message            string          `json:"message"`
	PathFound          bool            `json:"pathFound"`
	Error              string          `json:"error"`
}

func respondSearchError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := "Invalid request: " + err.Error()
	if status >= http.StatusInternalServerError {
		message = "An error occurred: " + err.Error()
	}
	respondJSON(w, status, searchErrorResponse{
		Message: message,
		Error:   err.Error(),
	})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, preset.ErrInvalidPreset),
		errors.Is(err, service.ErrGridTooLarge),
		errors.Is(err, grid.ErrMalformedGrid),
		errors.Is(err, grid.ErrOutOfBounds),
		errors.Is(err, search.ErrObstacleEndpoint):
		return http.StatusBadRequest
	case errors.Is(err, preset.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSearchTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Search Handlers

func (s *Server) handleFindPath(w http.ResponseWriter, r *http.Request) {
	var req service.FindPathRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondSearchError(w, fmt.Errorf("%w: invalid JSON body: %v", service.ErrInvalidRequest, err))
		return
	}

	began := time.Now()
	result, err := s.service.FindPath(r.Context(), &req)
	if err != nil {
		respondSearchError(w, err)
		return
	}

	s.broadcast(req.Channel, result)
	logSearch("FIND", result, time.Since(began))
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSolvePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	channel := r.URL.Query().Get("channel")

	began := time.Now()
	result, err := s.service.SolvePreset(r.Context(), name)
	if err != nil {
		respondSearchError(w, err)
		return
	}

	result.Channel = channel
	s.broadcast(channel, result)
	logSearch("PRESET "+name, result, time.Since(began))
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) broadcast(channel string, result *service.FindPathResult) {
	if channel == "" || s.hub == nil {
		return
	}
	go s.hub.BroadcastSearch(channel, result)
}

// logSearch prints one compact line per search
func logSearch(tag string, result *service.FindPathResult, elapsed time.Duration) {
	entry := log.WithFields(log.Fields{
		"rows":     result.Rows,
		"cols":     result.Cols,
		"found":    result.PathFound,
		"steps":    len(result.VisualizationSteps),
		"duration": elapsed.Round(time.Microsecond),
	})
	if result.Channel != "" {
		entry = entry.WithField("channel", result.Channel)
	}
	if result.PathFound {
		entry.Infof("[%s] (%d,%d)->(%d,%d) path_len=%d", tag,
			result.Start.Row, result.Start.Col, result.End.Row, result.End.Col, len(result.ShortestPath)-1)
		return
	}
	entry.Infof("[%s] (%d,%d)->(%d,%d) NO PATH", tag,
		result.Start.Row, result.Start.Col, result.End.Row, result.End.Col)
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slices.SortFunc(presets, func(a, b *preset.Info) int {
		return cmp.Compare(a.PresetID, b.PresetID)
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(presets),
		"presets": presets,
	})
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	detail, err := s.service.GetPreset(r.Context(), name)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRefreshPresets(w http.ResponseWriter, r *http.Request) {
	if err := s.presets.RefreshCache(); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	log.Info("Preset cache refreshed")
	respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) handleReloadPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.presets.ReloadPreset(name); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	log.WithField("preset", name).Info("Preset reloaded")
	respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded", "preset": name})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket streaming disabled", http.StatusServiceUnavailable)
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "channel parameter required", http.StatusBadRequest)
		return
	}

	s.hub.ServeWS(w, r, channel)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
