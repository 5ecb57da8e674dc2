// Package dialog routes inbound messages: continue a running questionnaire,
// start one, or fall through to the tool-augmented agent.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nvolkov/auditbot/internal/agent"
	"github.com/nvolkov/auditbot/internal/domain"
	"github.com/nvolkov/auditbot/internal/questionnaire"
	"github.com/nvolkov/auditbot/internal/session"
)

// Router is the per-session intent classifier. It owns the decision order:
// mid-questionnaire messages always go to the engine; otherwise a message
// with audit intent and no tool intent starts a questionnaire; everything
// else goes to the agent bridge.
type Router struct {
	sessions *session.Table
	engine   *questionnaire.Engine
	bridge   *agent.Bridge
}

// NewRouter creates a dialog router over the given session table.
func NewRouter(sessions *session.Table, engine *questionnaire.Engine, bridge *agent.Bridge) *Router {
	return &Router{sessions: sessions, engine: engine, bridge: bridge}
}

// Route handles one inbound message for a session key and returns the
// response text. No failure escapes: delegate errors and panics become a
// user-facing apology, and the session is restored to its pre-call state.
func (r *Router) Route(ctx context.Context, sessionKey, message string) string {
	return r.sessions.Do(sessionKey, func(s *domain.Session) (reply string, done bool) {
		snapshot := s.Clone()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("message handling panicked", "session_key", sessionKey, "panic", rec)
				s.Restore(snapshot)
				reply = apology(fmt.Errorf("%v", rec))
				done = false
			}
		}()
		return r.dispatch(ctx, s, message, snapshot)
	})
}

func (r *Router) dispatch(ctx context.Context, s *domain.Session, message string, snapshot *domain.Session) (string, bool) {
	if s.InQuestionnaire {
		return r.engine.Step(ctx, s, message)
	}

	// Tool intent wins over audit intent: "run the jenkins audit job" must
	// reach the agent, not start a questionnaire.
	if hasAuditIntent(message) && !hasToolIntent(message) {
		s.InQuestionnaire = true
		s.Answers = nil
		return questionnaire.StartPrompt, false
	}

	reply, err := r.bridge.Respond(ctx, s, message)
	if err != nil {
		slog.Error("agent respond failed", "session_key", s.Key, "error", err)
		s.Restore(snapshot)
		return apology(err), false
	}
	return reply, false
}

func hasAuditIntent(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "audit") || strings.Contains(lower, "questionnaire")
}

func hasToolIntent(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "jenkins") || strings.Contains(lower, "mobsf")
}

func apology(err error) string {
	return fmt.Sprintf("Sorry, something went wrong while handling your message: %v", err)
}
