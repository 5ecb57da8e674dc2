package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvolkov/auditbot/internal/config"
)

func TestTriggerBuildMissingConfigMakesNoCall(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	// Token deliberately absent.
	j := NewJenkinsClient(config.JenkinsConfig{
		BaseURL: srv.URL,
		User:    "ci",
		JobName: "sec-scan",
	})

	got := j.TriggerBuild(context.Background(), "https://x.test/app")
	assert.Contains(t, got, "not configured")
	assert.Equal(t, int64(0), calls.Load())
}

func TestTriggerBuildSuccess(t *testing.T) {
	var gotEndpoint, gotScanType, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/job/sec-scan/buildWithParameters", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotEndpoint = r.PostFormValue("ENDPOINT")
		gotScanType = r.PostFormValue("SCNTYP")
		gotUser, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	j := NewJenkinsClient(config.JenkinsConfig{
		BaseURL:  srv.URL,
		User:     "ci",
		APIToken: "tok",
		JobName:  "sec-scan",
	})

	got := j.TriggerBuild(context.Background(), "https://x.test/app")
	assert.Contains(t, got, "triggered successfully")
	assert.Contains(t, got, "https://x.test/app")
	assert.Equal(t, "https://x.test/app", gotEndpoint)
	assert.Equal(t, "Port scan", gotScanType)
	assert.Equal(t, "ci", gotUser)
}

func TestTriggerBuildNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	j := NewJenkinsClient(config.JenkinsConfig{
		BaseURL:  srv.URL,
		User:     "ci",
		APIToken: "tok",
		JobName:  "sec-scan",
	})

	got := j.TriggerBuild(context.Background(), "https://x.test/app")
	assert.Contains(t, got, "Failed to trigger Jenkins job")
	assert.Contains(t, got, "403")
}

func TestTriggerBuildTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	j := NewJenkinsClient(config.JenkinsConfig{
		BaseURL:  srv.URL,
		User:     "ci",
		APIToken: "tok",
		JobName:  "sec-scan",
	})

	got := j.TriggerBuild(context.Background(), "https://x.test/app")
	assert.Contains(t, got, "Failed to trigger Jenkins job")
}
