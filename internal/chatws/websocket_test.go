package chatws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvolkov/auditbot/internal/transcript"
)

type echoRouter struct {
	mu     sync.Mutex
	gotKey string
}

func (e *echoRouter) Route(_ context.Context, sessionKey, message string) string {
	e.mu.Lock()
	e.gotKey = sessionKey
	e.mu.Unlock()
	return "echo: " + message
}

func (e *echoRouter) key() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gotKey
}

func TestChatRoundTrip(t *testing.T) {
	logger, err := transcript.New(transcript.Config{Enabled: false})
	require.NoError(t, err)

	router := &echoRouter{}
	h := NewHandler(router, logger, []string{"*"}, true)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame announces the session key.
	var greeting wsMessage
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &greeting))
	assert.Equal(t, "session", greeting.Type)
	assert.NotEmpty(t, greeting.Content)

	payload, err := json.Marshal(wsMessage{Type: "message", Content: "hello"})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	var reply wsMessage
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &reply))
	assert.Equal(t, "response", reply.Type)
	assert.Equal(t, "echo: hello", reply.Content)
	assert.Equal(t, greeting.Content, router.key())
}

func TestMalformedFrameGetsError(t *testing.T) {
	logger, err := transcript.New(transcript.Config{Enabled: false})
	require.NoError(t, err)

	h := NewHandler(&echoRouter{}, logger, []string{"*"}, true)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, _, err = conn.Read(ctx) // session greeting
	require.NoError(t, err)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))

	var reply wsMessage
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &reply))
	assert.Equal(t, "error", reply.Type)
}
