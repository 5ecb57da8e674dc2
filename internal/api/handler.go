// Package api provides HTTP handlers for the audit bot API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nvolkov/auditbot/internal/store"
	"github.com/nvolkov/auditbot/internal/transcript"
)

// maxRequestBodySize caps inbound chat payloads (64KB).
const maxRequestBodySize = 64 << 10

// MessageRouter handles one message for a session key.
type MessageRouter interface {
	Route(ctx context.Context, sessionKey, message string) string
}

// Handler serves the chat, audits and health endpoints.
type Handler struct {
	router     MessageRouter
	repo       store.Repository
	transcript *transcript.Logger
}

// NewHandler creates a new Handler.
func NewHandler(router MessageRouter, repo store.Repository, transcriptLog *transcript.Logger) *Handler {
	return &Handler{router: router, repo: repo, transcript: transcriptLog}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Get("/audits", h.HandleListAudits)
		r.Get("/health", h.HandleHealth)
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// HandleChat handles POST /api/chat. A missing session_id starts a new
// session whose id is echoed back for the client to reuse.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	slog.Info("chat request", "session_id", req.SessionID, "message_length", len(req.Message))
	h.transcript.Log(transcript.Event{
		SessionKey: req.SessionID, Channel: "chat_http", Direction: "inbound", Content: req.Message,
	})

	response := h.router.Route(r.Context(), req.SessionID, req.Message)

	h.transcript.Log(transcript.Event{
		SessionKey: req.SessionID, Channel: "chat_http", Direction: "outbound", Content: response,
	})
	JSON(w, http.StatusOK, chatResponse{SessionID: req.SessionID, Response: response})
}

// HandleListAudits handles GET /api/audits?limit=N.
func (h *Handler) HandleListAudits(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.repo.ListAudits(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list audits", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list audits")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"audits": records})
}

// HandleHealth handles GET /api/health, including a database ping.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
