// internal/server/server.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ctxengine "github.com/user/agentdeck/internal/context"
	"github.com/user/agentdeck/internal/gateway"
	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/internal/state"
	"github.com/user/agentdeck/internal/types"
	"github.com/user/agentdeck/pkg/llm"
)

// Server is the HTTP surface: agent CRUD plus the streaming debug endpoint.
type Server struct {
	agents *state.AgentStore
	queue  *gateway.Queue
	engine *ctxengine.Engine
	llm    llm.Config
	mux    *http.ServeMux
}

// New creates a Server. engine may be nil, in which case history is
// forwarded untrimmed.
func New(agents *state.AgentStore, queue *gateway.Queue, engine *ctxengine.Engine, llmConfig llm.Config) *Server {
	s := &Server{
		agents: agents,
		queue:  queue,
		engine: engine,
		llm:    llmConfig,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /agents", s.handleListAgents)
	s.mux.HandleFunc("POST /agents", s.handleCreateAgent)
	s.mux.HandleFunc("GET /agents/{id}", s.handleGetAgent)
	s.mux.HandleFunc("PUT /agents/{id}", s.handleUpdateAgent)
	s.mux.HandleFunc("DELETE /agents/{id}", s.handleDeleteAgent)
	s.mux.HandleFunc("POST /agents/{id}/debug", s.handleDebug)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type errorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: message, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agents.List()
	if err != nil {
		slog.Error("list agents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var payload types.AgentCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if payload.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "")
		return
	}
	agent, err := s.agents.Create(payload)
	if err != nil {
		slog.Error("create agent failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id := types.AgentID(r.PathValue("id"))
	agent, err := s.agents.Get(id)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found", "")
		return
	}
	if err != nil {
		slog.Error("get agent failed", "agent", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id := types.AgentID(r.PathValue("id"))
	var update types.AgentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	agent, err := s.agents.Update(id, update)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found", "")
		return
	}
	if err != nil {
		slog.Error("update agent failed", "agent", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := types.AgentID(r.PathValue("id"))
	err := s.agents.Delete(id)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found", "")
		return
	}
	if err != nil {
		slog.Error("delete agent failed", "agent", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// debugRequest is the JSON body for POST /agents/{id}/debug.
type debugRequest struct {
	Context  string        `json:"context,omitempty"`
	Messages []llm.Message `json:"messages"`
}

func validateMessages(messages []llm.Message) error {
	if len(messages) == 0 {
		return errors.New("messages must be a non-empty array")
	}
	for i, m := range messages {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("message %d: role must be user or assistant, got %q", i, m.Role)
		}
	}
	return nil
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(r.PathValue("id"))

	var req debugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeError(w, http.StatusBadRequest, "malformed messages", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to parse request body", err.Error())
		return
	}
	if err := validateMessages(req.Messages); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	// Resolve the upstream once, before committing to a stream response.
	if s.llm.BaseURL == "" || s.llm.APIKey == "" {
		slog.Error("debug request with incomplete model config", "agent", agentID)
		writeError(w, http.StatusInternalServerError, "model provider is not configured", "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	system := ctxengine.BuildSystemPrompt(agentID, req.Context)
	messages := req.Messages
	if s.engine != nil {
		messages = s.engine.TrimHistory(system, messages)
	}

	entry := gateway.NewEntry(r.Context(), agentID, system, messages, s.llm)
	if err := s.queue.Enqueue(entry); err != nil {
		slog.Error("enqueue failed", "agent", agentID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// From here on every failure is an in-band frame; the relay owns the
	// channel and closes it when the entry is finished.
	for frame := range entry.Frames() {
		if _, err := fmt.Fprint(w, sse.Encode(frame)); err != nil {
			slog.Debug("client write failed", "agent", agentID, "error", err)
			return
		}
		flusher.Flush()
	}
}
