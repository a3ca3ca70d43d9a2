package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/internal/presentation/graph"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/persistence"
	"github.com/aretw0/reel/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the part of reel.Engine the HTTP adapter drives.
type Engine interface {
	Graph() *domain.Graph
	Reorder(ctx context.Context, ids []string) (reel.OrderResult, persistence.Report, error)
	SetConnections(ctx context.Context, slideID string, conns domain.Connections) (persistence.Report, error)
	Sessions() *session.Manager
}

// Server exposes a deck and its playback sessions over HTTP.
type Server struct {
	Engine  Engine
	Metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts a metrics handler on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	server := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	r.Route("/deck", func(r chi.Router) {
		r.Get("/", server.GetDeck)
		r.Get("/graph", server.GetGraph)
		r.Post("/reorder", server.Reorder)
	})
	r.Put("/slides/{id}/connections", server.PutConnections)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", server.ListSessions)
		r.Post("/", server.CreateSession)
		r.Get("/{id}", server.GetSession)
		r.Delete("/{id}", server.DeleteSession)
		r.Get("/{id}/events", server.SubscribeEvents)
		r.Post("/{id}/{cmd}", server.Dispatch)
	})

	if server.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.Metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":      "reel-http",
		"version":  strings.TrimSpace(reel.Version),
		"slides":   s.Engine.Graph().Len(),
		"sessions": len(s.Engine.Sessions().List()),
	})
}

// GetDeck handles GET /deck.
func (s *Server) GetDeck(w http.ResponseWriter, r *http.Request) {
	g := s.Engine.Graph()
	s.writeJSON(w, http.StatusOK, domain.Deck{Slides: g.Slides(), Folders: g.Folders()})
}

// GetGraph handles GET /deck/graph. ?session= overlays a session's position.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session"); id != "" {
		sess, err := s.Engine.Sessions().Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		st, err := sess.State(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		overlay = &graph.GraphOverlay{CurrentSlide: st.ActiveID}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(s.Engine.Graph(), overlay))
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type slideOrder struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type reorderResponse struct {
	Order []slideOrder `json:"order"`
	commitResponse
}

type resultJSON struct {
	SlideID  string         `json:"slide_id"`
	Outcome  domain.Outcome `json:"outcome"`
	Revision int64          `json:"revision"`
	Error    string         `json:"error,omitempty"`
}

type commitResponse struct {
	Outcome domain.Outcome `json:"outcome,omitempty"`
	Results []resultJSON   `json:"results"`
}

func newCommitResponse(report persistence.Report) commitResponse {
	resp := commitResponse{Results: make([]resultJSON, 0, len(report))}
	if len(report) > 0 {
		resp.Outcome = report.Outcome()
	}
	for _, res := range report {
		out := resultJSON{SlideID: res.SlideID, Outcome: res.Outcome, Revision: res.Revision}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, out)
	}
	return resp
}

// Reorder handles POST /deck/reorder.
func (s *Server) Reorder(w http.ResponseWriter, r *http.Request) {
	var body reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}

	result, report, err := s.Engine.Reorder(r.Context(), body.IDs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := reorderResponse{commitResponse: newCommitResponse(report)}
	for _, sl := range result.Slides {
		resp.Order = append(resp.Order, slideOrder{ID: sl.ID, Order: sl.Order})
	}
	s.writeJSON(w, commitStatus(report), resp)
}

// PutConnections handles PUT /slides/{id}/connections.
func (s *Server) PutConnections(w http.ResponseWriter, r *http.Request) {
	var conns domain.Connections
	if err := json.NewDecoder(r.Body).Decode(&conns); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}
	report, err := s.Engine.SetConnections(r.Context(), chi.URLParam(r, "id"), conns)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, commitStatus(report), newCommitResponse(report))
}

func commitStatus(report persistence.Report) int {
	if len(report) == 0 {
		return http.StatusOK
	}
	switch report.Outcome() {
	case domain.OutcomeConflict:
		return http.StatusConflict
	case domain.OutcomeFailed:
		return http.StatusBadGateway
	}
	return http.StatusOK
}

type createSessionRequest struct {
	Start string `json:"start,omitempty"`
}

type sessionResponse struct {
	ID       string               `json:"id"`
	State    domain.PlaybackState `json:"state"`
	Accepted *bool                `json:"accepted,omitempty"`
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Engine.Sessions().List()})
}

// CreateSession handles POST /sessions. The body is optional.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "invalid request body", err)
		return
	}
	sess, err := s.Engine.Sessions().Create(r.Context(), body.Start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	st, err := sess.State(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, State: st})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.Engine.Sessions().Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	st, err := sess.State(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: st})
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Sessions().Close(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch handles POST /sessions/{id}/{cmd}. The body carries the command
// fields; the command type comes from the path.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	raw := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "invalid request body", err)
		return
	}
	raw["type"] = chi.URLParam(r, "cmd")

	cmd, err := session.DecodeCommand(raw)
	if err != nil {
		s.badRequest(w, "invalid command", err)
		return
	}
	if err := validateCommand(cmd); err != nil {
		s.badRequest(w, "invalid command", err)
		return
	}

	st, accepted, err := s.Engine.Sessions().Dispatch(r.Context(), id, cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: st, Accepted: &accepted})
}

// validateCommand catches payload errors before the command reaches the session.
func validateCommand(cmd session.Command) error {
	switch cmd.Type {
	case session.CommandElement:
		_, err := domain.DecodeElement(cmd.Element)
		return err
	case session.CommandRelease:
		if cmd.ElementID == "" {
			return fmt.Errorf("release needs an element_id")
		}
	}
	return nil
}

func (s *Server) badRequest(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn(msg, "error", err)
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusBadRequest)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, domain.ErrSlideNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrUnknownCommand):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	} else {
		s.logger.Debug("request rejected", "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
