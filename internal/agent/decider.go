// Package agent wraps the tool-selecting language-model agent behind a
// capability interface so the dialog layer can be tested with a fake.
package agent

import (
	"context"

	"github.com/nvolkov/auditbot/internal/domain"
)

// ActionKind tags the variant of an Action.
type ActionKind int

const (
	// ActionDirectReply answers the user with Action.Reply.
	ActionDirectReply ActionKind = iota
	// ActionInvokeTool runs the named tool with Action.Arg.
	ActionInvokeTool
)

// Action is the agent's decision for one message: either a direct textual
// reply or the invocation of a named tool with a single string argument.
type Action struct {
	Kind  ActionKind
	Reply string
	Tool  string
	Arg   string
}

// Decider chooses an Action given the conversation so far, the new message
// and the available toolset. Implementations are opaque to the caller.
type Decider interface {
	Decide(ctx context.Context, history []domain.ChatMessage, message string, tools []ToolSpec) (Action, error)
}

// ToolSpec describes one invocable capability to the decider.
type ToolSpec struct {
	Name        string
	Description string
	ArgName     string
	ArgHint     string
}

// Tool binds a ToolSpec to its executable implementation. Run returns a
// human-readable status string and never an error.
type Tool struct {
	Spec ToolSpec
	Run  func(ctx context.Context, arg string) string
}
