package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mondrian-blocks/game/catalog"
	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/service"
	"github.com/wricardo/mondrian-blocks/transport/apiclient"
	"github.com/wricardo/mondrian-blocks/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *slog.Logger
}

// NewServer creates a new API server. hub may be nil, in which case board
// updates are not pushed and /ws is not served.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Board operations
	api.HandleFunc("/sessions/{id}/board", s.handleGetBoard).Methods("GET")
	api.HandleFunc("/sessions/{id}/place", s.handlePlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/remove", s.handleRemove).Methods("POST")
	api.HandleFunc("/sessions/{id}/rotate", s.handleRotate).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Solver and replay
	api.HandleFunc("/sessions/{id}/solve", s.handleSolve).Methods("POST")
	api.HandleFunc("/sessions/{id}/replay", s.handleGetReplay).Methods("GET")
	api.HandleFunc("/sessions/{id}/replay", s.handleCancelReplay).Methods("DELETE")

	// Catalogs
	api.HandleFunc("/catalogs", s.handleListCatalogs).Methods("GET")
	api.HandleFunc("/catalogs", s.handleSaveCatalog).Methods("POST")
	api.HandleFunc("/catalogs/{name}", s.handleGetCatalog).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying mux router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Session Management Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CatalogID string `json:"catalog_id"`
	}

	// An empty body, sized or chunked, selects the default catalog
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, "Invalid request body")
		return
	}
	if req.CatalogID == "" {
		req.CatalogID = r.URL.Query().Get("catalog")
	}

	session, err := s.service.CreateSession(r.Context(), req.CatalogID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, apiclient.SessionList{
		Count:    len(sessions),
		Sessions: sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Board Handlers

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.GetBoard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

type blockRequest struct {
	BlockID *int `json:"block_id"`
	X       *int `json:"x"`
	Y       *int `json:"y"`
}

// decodeBlockRequest reads the body and checks that block_id is present,
// and x and y too when withCoords is set
func decodeBlockRequest(r *http.Request, withCoords bool) (blockRequest, error) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("Invalid request body")
	}
	if req.BlockID == nil {
		return req, errors.New("block_id is required")
	}
	if withCoords && (req.X == nil || req.Y == nil) {
		return req, errors.New("x and y are required")
	}
	return req, nil
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	req, err := decodeBlockRequest(r, true)
	if err != nil {
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, err.Error())
		return
	}

	result, err := s.service.Place(r.Context(), sessionID, *req.BlockID, *req.X, *req.Y)
	s.respondPlacement(w, sessionID, result, err)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	req, err := decodeBlockRequest(r, false)
	if err != nil {
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, err.Error())
		return
	}

	result, err := s.service.Remove(r.Context(), sessionID, *req.BlockID)
	s.respondPlacement(w, sessionID, result, err)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	req, err := decodeBlockRequest(r, false)
	if err != nil {
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, err.Error())
		return
	}

	result, err := s.service.Rotate(r.Context(), sessionID, *req.BlockID)
	s.respondPlacement(w, sessionID, result, err)
}

// respondPlacement writes the result of place/remove/rotate. Rejections are
// still 200; only applied operations are pushed to watchers.
func (s *Server) respondPlacement(w http.ResponseWriter, sessionID string, result *service.PlacementResult, err error) {
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if result.Applied && s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.Board)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	board, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, board)
	}
	respondJSON(w, http.StatusOK, board)
}

// Solver Handlers

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Solve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	// The replay runs on after the response; progress arrives over /ws
	respondJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.GetReplay(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

func (s *Server) handleCancelReplay(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.CancelReplay(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

// Catalog Handlers

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.service.ListCatalogs(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, catalogs)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".json"), ".hcl")

	c, err := s.service.LoadCatalog(r.Context(), name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleSaveCatalog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CatalogID string          `json:"catalog_id"`
		Catalog   *engine.Catalog `json:"catalog"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, "Invalid request body")
		return
	}
	if req.CatalogID == "" {
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, "catalog_id is required")
		return
	}
	if req.Catalog == nil {
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, "catalog is required")
		return
	}

	if err := s.service.SaveCatalog(r.Context(), req.CatalogID, req.Catalog); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Catalog saved successfully",
		"catalog_id": req.CatalogID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotFound, apiclient.CodeNotFound, "websocket updates are disabled")
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondServiceError maps service errors to status codes
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, catalog.ErrCatalogNotFound):
		respondError(w, http.StatusNotFound, apiclient.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrBusy):
		respondError(w, http.StatusConflict, apiclient.CodeBusy, err.Error())
	case errors.Is(err, service.ErrNoSolution):
		respondError(w, http.StatusUnprocessableEntity, apiclient.CodeNoSolution, err.Error())
	case errors.Is(err, service.ErrSolverUnavailable):
		respondError(w, http.StatusBadGateway, apiclient.CodeSolverUnavailable, err.Error())
	case errors.Is(err, catalog.ErrInvalidCatalog):
		respondError(w, http.StatusBadRequest, apiclient.CodeBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, apiclient.CodeInternal, err.Error())
	}
}

// statusWriter records the status code for the request log
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for /ws
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration", time.Since(start),
		)
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
