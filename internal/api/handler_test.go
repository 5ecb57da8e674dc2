//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvolkov/auditbot/internal/domain"
	"github.com/nvolkov/auditbot/internal/transcript"
)

type echoRouter struct {
	gotKey string
	gotMsg string
}

func (e *echoRouter) Route(_ context.Context, sessionKey, message string) string {
	e.gotKey = sessionKey
	e.gotMsg = message
	return "echo: " + message
}

type stubRepo struct {
	records []domain.AuditRecord
	listErr error
	pingErr error
}

func (s *stubRepo) AppendAudit(context.Context, string, []domain.QA, time.Time) (int64, error) {
	return 0, errors.New("not used")
}

func (s *stubRepo) ListAudits(context.Context, int) ([]domain.AuditRecord, error) {
	return s.records, s.listErr
}

func (s *stubRepo) Ping(context.Context) error { return s.pingErr }

func (s *stubRepo) Close() error { return nil }

func newTestHandler(t *testing.T, router MessageRouter, repo *stubRepo) http.Handler {
	t.Helper()
	logger, err := transcript.New(transcript.Config{Enabled: false})
	require.NoError(t, err)
	h := NewHandler(router, repo, logger)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleChatRoutesMessage(t *testing.T) {
	router := &echoRouter{}
	srv := newTestHandler(t, router, &stubRepo{})

	body := `{"session_id":"sess-1","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "sess-1", resp["session_id"])
	assert.Equal(t, "echo: hello", resp["response"])
	assert.Equal(t, "sess-1", router.gotKey)
}

func TestHandleChatGeneratesSessionID(t *testing.T) {
	router := &echoRouter{}
	srv := newTestHandler(t, router, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp["session_id"])
	assert.Equal(t, resp["session_id"], router.gotKey)
}

func TestHandleChatRejectsEmptyMessage(t *testing.T) {
	srv := newTestHandler(t, &echoRouter{}, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"session_id":"s"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListAudits(t *testing.T) {
	repo := &stubRepo{records: []domain.AuditRecord{
		{ID: 2, ProjectType: "web"},
		{ID: 1, ProjectType: "mobile"},
	}}
	srv := newTestHandler(t, &echoRouter{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/audits?limit=2", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Audits []domain.AuditRecord `json:"audits"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Audits, 2)
	assert.Equal(t, int64(2), resp.Audits[0].ID)
}

func TestHandleListAuditsBadLimit(t *testing.T) {
	srv := newTestHandler(t, &echoRouter{}, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/audits?limit=zero", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealthDegradedOnPingFailure(t *testing.T) {
	srv := newTestHandler(t, &echoRouter{}, &stubRepo{pingErr: errors.New("db gone")})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
