package questionnaire

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nvolkov/auditbot/internal/domain"
	"github.com/nvolkov/auditbot/internal/store"
)

// CITrigger starts the external CI scan job against an endpoint. The
// returned status text is relayed to the user verbatim.
type CITrigger interface {
	TriggerBuild(ctx context.Context, endpoint string) string
}

// MobileScanner submits a mobile application package for static analysis.
// The returned acknowledgement text is relayed to the user verbatim.
type MobileScanner interface {
	ScanMobileArtifact(ctx context.Context, url string) string
}

const (
	// StartPrompt is the fixed prompt sent when a questionnaire begins.
	StartPrompt = "Sure, let's begin a security audit. Is this for a \"mobile\" or a \"web\" application?"

	reprompt = "Please answer \"mobile\" or \"web\" so I can pick the right questionnaire."

	completionMessage = "Thank you! That was the last question. Your audit answers have been recorded."
)

// Engine steps a session through its questionnaire: given the session's
// current state and a new message it produces the next prompt, or finalizes
// and persists the completed answer set.
type Engine struct {
	repo    store.Repository
	ci      CITrigger
	scanner MobileScanner
	now     func() time.Time
}

// NewEngine creates a questionnaire engine.
func NewEngine(repo store.Repository, ci CITrigger, scanner MobileScanner) *Engine {
	return &Engine{repo: repo, ci: ci, scanner: scanner, now: time.Now}
}

// Step advances the session by one message. done reports that the
// questionnaire finished and the session should be discarded. Step never
// returns an error: persistence failures are folded into the reply per the
// best-effort completion policy.
func (e *Engine) Step(ctx context.Context, s *domain.Session, message string) (reply string, done bool) {
	if s.AwaitingProjectType() {
		return e.selectProjectType(s, message), false
	}
	return e.answer(ctx, s, message)
}

// selectProjectType accepts only the literal tokens "mobile" or "web",
// case-insensitively matched against the whole trimmed message. Exact
// matching is deliberate: substring matching misfires on answers like
// "web and mobile".
func (e *Engine) selectProjectType(s *domain.Session, message string) string {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "mobile":
		s.ProjectType = domain.ProjectTypeMobile
		s.Questions = MobileQuestions
	case "web":
		s.ProjectType = domain.ProjectTypeWeb
		s.Questions = WebQuestions
	default:
		return reprompt
	}
	s.CurrentIndex = 0
	s.Answers = nil
	return s.Questions[0]
}

func (e *Engine) answer(ctx context.Context, s *domain.Session, message string) (string, bool) {
	urlQuestion := e.isURLQuestion(s)
	artifactQuestion := e.isArtifactQuestion(s)
	s.RecordAnswer(message)

	// The URL-disclosure answer kicks off a CI scan against that endpoint,
	// and the artifact-URL answer queues a static analysis of the package;
	// either status line is prepended to whatever comes next.
	var prefix string
	if urlQuestion {
		prefix = e.ci.TriggerBuild(ctx, message) + "\n\n"
	}
	if artifactQuestion {
		prefix += e.scanner.ScanMobileArtifact(ctx, message) + "\n\n"
	}

	if !s.Completed() {
		return prefix + s.Questions[s.CurrentIndex], false
	}
	return prefix + e.finalize(ctx, s), true
}

// finalize persists the completed questionnaire. The user is thanked even
// when persistence fails: the answers were delivered either way, so the
// failure is surfaced as a caveat rather than an apology.
func (e *Engine) finalize(ctx context.Context, s *domain.Session) string {
	id, err := e.repo.AppendAudit(ctx, string(s.ProjectType), s.Answers, e.now())
	if err != nil {
		slog.Error("failed to persist completed audit",
			"session_key", s.Key, "project_type", s.ProjectType, "error", err)
		return fmt.Sprintf("%s However, storing them failed: %v", completionMessage, err)
	}
	slog.Info("audit completed",
		"session_key", s.Key, "project_type", s.ProjectType, "audit_id", id, "answers", len(s.Answers))
	return completionMessage
}

// isURLQuestion reports whether the question about to be answered is the
// active set's URL-disclosure question.
func (e *Engine) isURLQuestion(s *domain.Session) bool {
	switch s.ProjectType {
	case domain.ProjectTypeMobile:
		return s.CurrentIndex == mobileURLQuestionIndex
	case domain.ProjectTypeWeb:
		return s.CurrentIndex == webURLQuestionIndex
	default:
		return false
	}
}

// isArtifactQuestion reports whether the question about to be answered is
// the mobile set's package-download-URL question.
func (e *Engine) isArtifactQuestion(s *domain.Session) bool {
	return s.ProjectType == domain.ProjectTypeMobile && s.CurrentIndex == mobileArtifactQuestionIndex
}
