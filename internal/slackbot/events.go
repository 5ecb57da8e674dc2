// Package slackbot mounts the bot on the Slack Events API: mentions and
// direct messages are routed through the dialog layer and answered in the
// originating thread.
package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/nvolkov/auditbot/internal/api"
	"github.com/nvolkov/auditbot/internal/transcript"
)

const maxEventBodySize = 1 << 20

// MessagePoster is the slice of the Slack client the handler needs;
// *slack.Client satisfies it.
type MessagePoster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Handler serves POST /slack/events.
type Handler struct {
	router        api.MessageRouter
	poster        MessagePoster
	transcript    *transcript.Logger
	signingSecret string
}

// NewHandler creates a Slack events handler.
func NewHandler(router api.MessageRouter, poster MessagePoster, transcriptLog *transcript.Logger, signingSecret string) *Handler {
	return &Handler{router: router, poster: poster, transcript: transcriptLog, signingSecret: signingSecret}
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// ServeHTTP verifies the request signature, answers the URL-verification
// handshake, and acks callback events immediately; the actual message
// handling runs in its own goroutine so Slack's 3 second deadline is never
// at risk from a slow external call.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	sv, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		http.Error(w, "bad signature headers", http.StatusBadRequest)
		return
	}
	if _, err := sv.Write(body); err != nil {
		http.Error(w, "failed to verify signature", http.StatusInternalServerError)
		return
	}
	if err := sv.Ensure(); err != nil {
		slog.Warn("slack signature verification failed", "ip", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "failed to parse challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))

	case slackevents.CallbackEvent:
		go h.handleCallback(context.WithoutCancel(r.Context()), event.InnerEvent)
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) handleCallback(ctx context.Context, inner slackevents.EventsAPIInnerEvent) {
	switch ev := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		h.handleMessage(ctx, ev.Channel, ev.TimeStamp, ev.ThreadTimeStamp, ev.Text)
	case *slackevents.MessageEvent:
		// Only direct messages; mentions in channels arrive as AppMentionEvent.
		// Bot echoes and edits must not re-enter the dialog.
		if ev.ChannelType != "im" || ev.BotID != "" || ev.SubType != "" {
			return
		}
		h.handleMessage(ctx, ev.Channel, ev.TimeStamp, ev.ThreadTimeStamp, ev.Text)
	}
}

func (h *Handler) handleMessage(ctx context.Context, channel, ts, threadTS, text string) {
	if threadTS == "" {
		threadTS = ts
	}
	sessionKey := channel + ":" + threadTS
	message := strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
	if message == "" {
		return
	}

	h.transcript.Log(transcript.Event{
		SessionKey: sessionKey, Channel: "slack", Direction: "inbound", Content: message,
	})
	response := h.router.Route(ctx, sessionKey, message)
	h.transcript.Log(transcript.Event{
		SessionKey: sessionKey, Channel: "slack", Direction: "outbound", Content: response,
	})

	_, _, err := h.poster.PostMessage(channel,
		slack.MsgOptionText(response, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		slog.Error("failed to post slack reply", "channel", channel, "thread_ts", threadTS, "error", err)
	}
}
