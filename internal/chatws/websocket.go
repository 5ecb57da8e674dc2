// Package chatws serves the chat widget over a WebSocket connection.
// Each connection gets its own session key, so a reconnect starts a fresh
// conversation.
package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/nvolkov/auditbot/internal/api"
	"github.com/nvolkov/auditbot/internal/transcript"
)

// Handler upgrades chat widget connections and relays messages to the
// dialog router.
type Handler struct {
	router     api.MessageRouter
	transcript *transcript.Logger
	origins    []string
	isDev      bool
}

// NewHandler creates a WebSocket chat handler.
func NewHandler(router api.MessageRouter, transcriptLog *transcript.Logger, origins []string, isDev bool) *Handler {
	return &Handler{router: router, transcript: transcriptLog, origins: origins, isDev: isDev}
}

// wsMessage is the frame format in both directions.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// OriginPatterns and InsecureSkipVerify are mutually exclusive in
	// coder/websocket; a wildcard configuration maps to the latter.
	opts := &websocket.AcceptOptions{}
	if h.isDev {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.origins
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err, "ip", r.RemoteAddr)
		return
	}

	sessionKey := "ws-" + uuid.NewString()
	slog.Info("chat websocket connected", "session_key", sessionKey, "ip", r.RemoteAddr)
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		slog.Info("chat websocket closed", "session_key", sessionKey)
	}()

	h.serve(r.Context(), conn, sessionKey)
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, sessionKey string) {
	// Greet the widget with its session key so the UI can display it.
	if err := writeJSON(ctx, conn, wsMessage{Type: "session", Content: sessionKey}); err != nil {
		return
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if !isExpectedClose(err) {
				slog.Debug("websocket read error", "session_key", sessionKey, "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "message" {
			if err := writeJSON(ctx, conn, wsMessage{Type: "error", Content: "expected {\"type\":\"message\",\"content\":...}"}); err != nil {
				return
			}
			continue
		}

		h.transcript.Log(transcript.Event{
			SessionKey: sessionKey, Channel: "chat_ws", Direction: "inbound", Content: msg.Content,
		})
		response := h.router.Route(ctx, sessionKey, msg.Content)
		h.transcript.Log(transcript.Event{
			SessionKey: sessionKey, Channel: "chat_ws", Direction: "outbound", Content: response,
		})

		if err := writeJSON(ctx, conn, wsMessage{Type: "response", Content: response}); err != nil {
			return
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func isExpectedClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return true
	}
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
