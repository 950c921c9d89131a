// Package mcp exposes the engine as an MCP server, so editor agents and
// LLM tooling can playtest a story: start a session, read the suspended
// view, and deliver player events as tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/dto"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
)

// Engine is the engine surface the playtest server drives. *vine.Engine
// satisfies it.
type Engine interface {
	NewSession(ctx context.Context) (*vine.Session, error)
	LoadSession(ctx context.Context, slot int) (*vine.Session, error)
	LoadProject(ctx context.Context) (*domain.Project, error)
}

// Server wraps the vine engine and exposes it as an MCP server. Sessions
// live in this process and are addressed by the id returned from
// start_session.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer

	mu       sync.Mutex
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

// NewServer creates an MCP server over the engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		logger:   logging.NewNop(),
		sessions: make(map[string]*vine.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("vine-mcp", strings.TrimSpace(vine.Version))
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, shutting down
// gracefully when ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a new playthrough, or restore one from a save slot. Returns the session view; use its sessionId with the other tools."),
		mcp.WithNumber("slot", mcp.Description("Save slot to restore from (optional; omit for a fresh start)")),
		mcp.WithOutputSchema[dto.SessionView](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	viewTool := mcp.NewTool("view_session",
		mcp.WithDescription("Read the current view of a session without changing it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from start_session")),
		mcp.WithOutputSchema[dto.SessionView](),
	)
	s.mcpServer.AddTool(viewTool, mcp.NewStructuredToolHandler(s.handleView))

	advanceTool := mcp.NewTool("advance",
		mcp.WithDescription("Acknowledge the current dialogue (or skip a wait) and run until the next suspension."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[dto.SessionView](),
	)
	s.mcpServer.AddTool(advanceTool, mcp.NewStructuredToolHandler(s.handleAdvance))

	chooseTool := mcp.NewTool("choose",
		mcp.WithDescription("Pick one of the pending choice options by id."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("option_id", mcp.Required(), mcp.Description("Option id from the view's choices")),
		mcp.WithOutputSchema[dto.SessionView](),
	)
	s.mcpServer.AddTool(chooseTool, mcp.NewStructuredToolHandler(s.handleChoose))

	inputTool := mcp.NewTool("submit_text",
		mcp.WithDescription("Answer the pending text prompt."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The player's text")),
		mcp.WithOutputSchema[dto.SessionView](),
	)
	s.mcpServer.AddTool(inputTool, mcp.NewStructuredToolHandler(s.handleSubmitText))

	saveTool := mcp.NewTool("save_slot",
		mcp.WithDescription("Save the session to a numbered slot."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithNumber("slot", mcp.Required(), mcp.Description("Slot number, zero or positive")),
		mcp.WithOutputSchema[dto.SessionView](),
	)
	s.mcpServer.AddTool(saveTool, mcp.NewStructuredToolHandler(s.handleSave))

	loadTool := mcp.NewTool("load_slot",
		mcp.WithDescription("Restore the session from a numbered slot, in place."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithNumber("slot", mcp.Required(), mcp.Description("Slot number to load")),
		mcp.WithOutputSchema[dto.SessionView](),
	)
	s.mcpServer.AddTool(loadTool, mcp.NewStructuredToolHandler(s.handleLoad))

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Close a session: timers stop, audio stops, the id is forgotten."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleClose)
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (dto.SessionView, error) {
	var (
		sess *vine.Session
		err  error
	)
	if raw, ok := args["slot"]; ok && raw != nil {
		slot, ok := toInt(raw)
		if !ok {
			return dto.SessionView{}, fmt.Errorf("slot must be a number")
		}
		sess, err = s.engine.LoadSession(ctx, slot)
	} else {
		sess, err = s.engine.NewSession(ctx)
		if err == nil {
			if err = sess.Start(ctx); err != nil {
				sess.Close()
			}
		}
	}
	if err != nil {
		return dto.SessionView{}, fmt.Errorf("start session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	s.logger.Info("playtest session started", "session_id", sess.ID())
	return dto.NewSessionView(sess.ID(), sess.State()), nil
}

func (s *Server) handleView(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (dto.SessionView, error) {
	sess, err := s.session(args)
	if err != nil {
		return dto.SessionView{}, err
	}
	return dto.NewSessionView(sess.ID(), sess.State()), nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (dto.SessionView, error) {
	sess, err := s.session(args)
	if err != nil {
		return dto.SessionView{}, err
	}
	if err := sess.Advance(ctx); err != nil {
		return dto.SessionView{}, fmt.Errorf("advance: %w", err)
	}
	return dto.NewSessionView(sess.ID(), sess.State()), nil
}

func (s *Server) handleChoose(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (dto.SessionView, error) {
	sess, err := s.session(args)
	if err != nil {
		return dto.SessionView{}, err
	}
	optionID, _ := args["option_id"].(string)
	if optionID == "" {
		return dto.SessionView{}, fmt.Errorf("option_id is required")
	}
	if err := sess.Choose(ctx, optionID); err != nil {
		return dto.SessionView{}, fmt.Errorf("choose: %w", err)
	}
	return dto.NewSessionView(sess.ID(), sess.State()), nil
}

func (s *Server) handleSubmitText(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (dto.SessionView, error) {
	sess, err := s.session(args)
	if err != nil {
		return dto.SessionView{}, err
	}
	text, _ := args["text"].(string)
	if err := sess.SubmitText(ctx, text); err != nil {
		return dto.SessionView{}, fmt.Errorf("submit text: %w", err)
	}
	return dto.NewSessionView(sess.ID(), sess.State()), nil
}

func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (dto.SessionView, error) {
	sess, err := s.session(args)
	if err != nil {
		return dto.SessionView{}, err
	}
	slot, ok := toInt(args["slot"])
	if !ok {
		return dto.SessionView{}, fmt.Errorf("slot must be a number")
	}
	if err := sess.Save(ctx, slot); err != nil {
		return dto.SessionView{}, fmt.Errorf("save: %w", err)
	}
	return dto.NewSessionView(sess.ID(), sess.State()), nil
}

func (s *Server) handleLoad(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (dto.SessionView, error) {
	sess, err := s.session(args)
	if err != nil {
		return dto.SessionView{}, err
	}
	slot, ok := toInt(args["slot"])
	if !ok {
		return dto.SessionView{}, fmt.Errorf("slot must be a number")
	}
	if err := sess.Load(ctx, slot); err != nil {
		return dto.SessionView{}, fmt.Errorf("load: %w", err)
	}
	return dto.NewSessionView(sess.ID(), sess.State()), nil
}

func (s *Server) handleClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input struct {
		SessionID string `json:"session_id"`
	}
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	id := input.SessionID
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown session %q", id)), nil
	}

	sess.Close()
	s.logger.Info("playtest session closed", "session_id", id)
	return mcp.NewToolResultText(fmt.Sprintf("session %s closed", id)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: vine://story
	s.mcpServer.AddResource(mcp.NewResource("vine://story", "Current Story Document",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		project, err := s.engine.LoadProject(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load story: %w", err)
		}
		jsonBytes, err := json.Marshal(project)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "vine://story",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// session resolves the session_id argument against the registry.
func (s *Server) session(args map[string]any) (*vine.Session, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return sess, nil
}

// toInt accepts the numeric shapes JSON decoding produces for tool
// arguments.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
