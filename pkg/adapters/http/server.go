// Package http exposes engine sessions over a JSON API: one route per
// player event, a snapshot view per response, and an SSE stream for
// clients that want pushes instead of polling.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/dto"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
)

// Engine is the engine surface the server drives. *vine.Engine satisfies
// it.
type Engine interface {
	NewSession(ctx context.Context) (*vine.Session, error)
	LoadSession(ctx context.Context, slot int) (*vine.Session, error)
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Instrumentation counts session lifecycle events and serves the scrape
// endpoint. *metrics.Metrics satisfies it.
type Instrumentation interface {
	SessionOpened()
	SessionClosed()
	Handler() http.Handler
}

// Server holds the live sessions behind the JSON API. Sessions exist only
// in this process; a session id from another instance is a 404.
type Server struct {
	engine  Engine
	streams *StreamManager
	logger  *slog.Logger
	instr   Instrumentation

	mu       sync.RWMutex
	sessions map[string]*vine.Session
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInstrumentation wires the metrics registry: the active-session
// gauge and a GET /metrics scrape route.
func WithInstrumentation(in Instrumentation) Option {
	return func(s *Server) { s.instr = in }
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:   engine,
		logger:   logging.NewNop(),
		sessions: make(map[string]*vine.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	if s.instr != nil {
		r.Method(http.MethodGet, "/metrics", s.instr.Handler())
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Post("/step", s.Step)
			r.Post("/advance", s.Advance)
			r.Post("/choose", s.Choose)
			r.Post("/input", s.SubmitText)
			r.Post("/ui-action", s.UIAction)
			r.Post("/movie-finished", s.FinishMovie)
			r.Post("/save", s.Save)
			r.Post("/load", s.Load)
			r.Get("/slots", s.ListSlots)
			r.Delete("/slots/{slot}", s.DeleteSlot)
		})
	})

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

// CreateSession handles POST /sessions. Without a body (or with an empty
// one) it starts a fresh playthrough; {"slot": n} restores one from a
// save slot instead.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Slot *int `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("CreateSession: invalid request body", "error", err)
		return
	}

	var (
		sess *vine.Session
		err  error
	)
	if body.Slot != nil {
		sess, err = s.engine.LoadSession(r.Context(), *body.Slot)
	} else {
		sess, err = s.engine.NewSession(r.Context())
		if err == nil {
			if err = sess.Start(r.Context()); err != nil {
				sess.Close()
			}
		}
	}
	if err != nil {
		s.writeError(w, "CreateSession", err)
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	if s.instr != nil {
		s.instr.SessionOpened()
	}

	s.logger.Info("session created", "session_id", sess.ID(), "from_slot", body.Slot != nil)
	s.respond(w, http.StatusCreated, sess, false)
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, http.StatusOK, sess, false)
}

// CloseSession handles DELETE /sessions/{sessionID}. Timers stop, audio
// stops, and the id is forgotten.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	sess.Close()
	if s.instr != nil {
		s.instr.SessionClosed()
	}
	s.logger.Info("session closed", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Step handles POST /sessions/{sessionID}/step: exactly one interpreter
// step, a no-op while the session is suspended.
func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Step(r.Context()); err != nil {
		s.writeError(w, "Step", err)
		return
	}
	s.respond(w, http.StatusOK, sess, true)
}

// Advance handles POST /sessions/{sessionID}/advance: the player
// acknowledged the current dialogue (or skipped a wait).
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Advance(r.Context()); err != nil {
		s.writeError(w, "Advance", err)
		return
	}
	s.respond(w, http.StatusOK, sess, true)
}

// Choose handles POST /sessions/{sessionID}/choose.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		OptionID string `json:"optionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Choose: invalid request body", "error", err)
		return
	}
	if body.OptionID == "" {
		http.Error(w, "optionId is required", http.StatusBadRequest)
		return
	}
	if err := sess.Choose(r.Context(), body.OptionID); err != nil {
		s.writeError(w, "Choose", err)
		return
	}
	s.respond(w, http.StatusOK, sess, true)
}

// SubmitText handles POST /sessions/{sessionID}/input, answering a
// pending text prompt.
func (s *Server) SubmitText(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SubmitText: invalid request body", "error", err)
		return
	}
	if err := sess.SubmitText(r.Context(), body.Text); err != nil {
		s.writeError(w, "SubmitText", err)
		return
	}
	s.respond(w, http.StatusOK, sess, true)
}

// UIAction handles POST /sessions/{sessionID}/ui-action, a button press
// on an open screen or overlay.
func (s *Server) UIAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		ActionID string `json:"actionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("UIAction: invalid request body", "error", err)
		return
	}
	if body.ActionID == "" {
		http.Error(w, "actionId is required", http.StatusBadRequest)
		return
	}
	if err := sess.UIAction(r.Context(), body.ActionID); err != nil {
		s.writeError(w, "UIAction", err)
		return
	}
	s.respond(w, http.StatusOK, sess, true)
}

// FinishMovie handles POST /sessions/{sessionID}/movie-finished: the
// client's video player reached the end of the current movie.
func (s *Server) FinishMovie(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.FinishMovie(r.Context()); err != nil {
		s.writeError(w, "FinishMovie", err)
		return
	}
	s.respond(w, http.StatusOK, sess, true)
}

// Save handles POST /sessions/{sessionID}/save with {"slot": n}.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	slot, ok := s.slotBody(w, r, "Save")
	if !ok {
		return
	}
	if err := sess.Save(r.Context(), slot); err != nil {
		s.writeError(w, "Save", err)
		return
	}
	s.respond(w, http.StatusOK, sess, false)
}

// Load handles POST /sessions/{sessionID}/load with {"slot": n},
// restoring the running session in place.
func (s *Server) Load(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	slot, ok := s.slotBody(w, r, "Load")
	if !ok {
		return
	}
	if err := sess.Load(r.Context(), slot); err != nil {
		s.writeError(w, "Load", err)
		return
	}
	s.respond(w, http.StatusOK, sess, true)
}

// ListSlots handles GET /sessions/{sessionID}/slots.
func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	slots, err := sess.Slots(r.Context())
	if err != nil {
		s.writeError(w, "ListSlots", err)
		return
	}
	if slots == nil {
		slots = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"slots": slots}, s.logger)
}

// DeleteSlot handles DELETE /sessions/{sessionID}/slots/{slot}. Deleting
// an empty slot succeeds.
func (s *Server) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		http.Error(w, "Invalid slot number", http.StatusBadRequest)
		return
	}
	if err := sess.DeleteSlot(r.Context(), slot); err != nil {
		s.writeError(w, "DeleteSlot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"app":     "vine-http",
		"version": strings.TrimSpace(vine.Version),
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}

// session resolves the sessionID route parameter, writing the 404 itself
// so handlers can bail with a bare return.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*vine.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// slotBody decodes a {"slot": n} request body.
func (s *Server) slotBody(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	var body struct {
		Slot *int `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn(op+": invalid request body", "error", err)
		return 0, false
	}
	if body.Slot == nil {
		http.Error(w, "slot is required", http.StatusBadRequest)
		return 0, false
	}
	return *body.Slot, true
}

// respond writes the session view and, for state-changing calls, pushes
// the same view to SSE subscribers. The view is a full snapshot, not a
// diff; subscribers replace, never merge.
func (s *Server) respond(w http.ResponseWriter, status int, sess *vine.Session, broadcast bool) {
	view := dto.NewSessionView(sess.ID(), sess.State())
	if broadcast {
		if payload, err := json.Marshal(view); err == nil {
			s.streams.Broadcast(view.SessionID, string(payload))
		} else {
			s.logger.Error("view marshal failed", "error", err, "session_id", view.SessionID)
		}
	}
	writeJSON(w, status, view, s.logger)
}

// writeError maps engine sentinels to HTTP statuses. Anything unmapped is
// a 500.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionClosed):
		status = http.StatusGone
	case errors.Is(err, domain.ErrNoPendingInput):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnknownOption):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSlotEmpty),
		errors.Is(err, domain.ErrProjectNotFound):
		status = http.StatusNotFound
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Warn(op+" rejected", "error", err, "status", status)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
