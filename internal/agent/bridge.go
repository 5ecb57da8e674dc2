package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvolkov/auditbot/internal/domain"
)

// NotConfiguredMessage is returned when no language-model credential is set.
const NotConfiguredMessage = "The assistant is not configured. Set OPENAI_API_KEY to enable agent responses."

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// Bridge exposes the decider behind the same respond-to-message contract as
// the questionnaire path, maintaining the session's bounded agent history.
type Bridge struct {
	decider      Decider
	tools        []Tool
	historyLimit int
}

// NewBridge creates a bridge. decider may be nil, in which case every
// message gets the fixed not-configured reply.
func NewBridge(decider Decider, tools []Tool, historyLimit int) *Bridge {
	return &Bridge{decider: decider, tools: tools, historyLimit: historyLimit}
}

// Respond processes one message for the given session. The user message and
// the final reply are appended to the session history in both the direct and
// the tool-invocation path.
func (b *Bridge) Respond(ctx context.Context, s *domain.Session, message string) (string, error) {
	if b.decider == nil {
		return NotConfiguredMessage, nil
	}

	action, err := b.decider.Decide(ctx, s.AgentHistory, message, b.specs())
	if err != nil {
		return "", fmt.Errorf("agent decide: %w", err)
	}

	reply := action.Reply
	if action.Kind == ActionInvokeTool {
		reply = b.runTool(ctx, action.Tool, action.Arg)
	}

	s.AppendHistory(domain.ChatMessage{Role: roleUser, Content: message}, b.historyLimit)
	s.AppendHistory(domain.ChatMessage{Role: roleAssistant, Content: reply}, b.historyLimit)
	return reply, nil
}

func (b *Bridge) runTool(ctx context.Context, name, arg string) string {
	for _, tool := range b.tools {
		if tool.Spec.Name == name {
			slog.Info("agent tool invocation", "tool", name, "arg", arg)
			return tool.Run(ctx, arg)
		}
	}
	slog.Warn("agent requested unknown tool", "tool", name)
	return fmt.Sprintf("The assistant requested an unknown tool %q.", name)
}

func (b *Bridge) specs() []ToolSpec {
	specs := make([]ToolSpec, len(b.tools))
	for i, tool := range b.tools {
		specs[i] = tool.Spec
	}
	return specs
}
