// Package domain contains core domain types for the audit bot.
package domain

// ProjectType identifies which questionnaire a session runs.
type ProjectType string

const (
	ProjectTypeMobile ProjectType = "mobile"
	ProjectTypeWeb    ProjectType = "web"
)

// ChatMessage is one entry in a session's agent conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QA pairs a question with its recorded answer. Answers are kept as an
// ordered slice rather than a map so the question order survives
// serialization.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Session holds per-conversation state, keyed by a transport-specific
// identifier (chat-widget session id or Slack thread timestamp).
//
// CurrentIndex counts answered questions, so the invariants
// 0 <= CurrentIndex <= len(Questions) and len(Answers) == CurrentIndex
// hold between any two steps while a questionnaire is active.
type Session struct {
	Key             string
	InQuestionnaire bool
	ProjectType     ProjectType
	Questions       []string
	CurrentIndex    int
	Answers         []QA
	AgentHistory    []ChatMessage
}

// AwaitingProjectType reports whether the session has started a
// questionnaire but not yet chosen a question set.
func (s *Session) AwaitingProjectType() bool {
	return s.InQuestionnaire && s.Questions == nil
}

// RecordAnswer stores the answer for the current question and advances.
func (s *Session) RecordAnswer(answer string) {
	s.Answers = append(s.Answers, QA{Question: s.Questions[s.CurrentIndex], Answer: answer})
	s.CurrentIndex++
}

// Completed reports whether every question has been answered.
func (s *Session) Completed() bool {
	return s.Questions != nil && s.CurrentIndex == len(s.Questions)
}

// AppendHistory adds a message to the agent history, dropping the oldest
// entries once max is exceeded. The history is never pruned below the most
// recent max messages.
func (s *Session) AppendHistory(msg ChatMessage, max int) {
	s.AgentHistory = append(s.AgentHistory, msg)
	if max > 0 && len(s.AgentHistory) > max {
		s.AgentHistory = s.AgentHistory[len(s.AgentHistory)-max:]
	}
}

// Clone returns a deep copy of the session. The dialog layer snapshots
// sessions before delegating so a failed step can restore pre-call state.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Questions = append([]string(nil), s.Questions...)
	cp.Answers = append([]QA(nil), s.Answers...)
	cp.AgentHistory = append([]ChatMessage(nil), s.AgentHistory...)
	return &cp
}

// Restore overwrites the session with a previously taken snapshot.
func (s *Session) Restore(snapshot *Session) {
	*s = *snapshot
}
