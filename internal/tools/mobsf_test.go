package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvolkov/auditbot/internal/config"
)

func TestScanMobileArtifactAcknowledges(t *testing.T) {
	m := NewMobSFClient(config.MobSFConfig{})
	got := m.ScanMobileArtifact(context.Background(), "https://dl.test/app.apk")
	assert.Contains(t, got, "queued")
	assert.Contains(t, got, "https://dl.test/app.apk")
}

func TestUploadAndScanMissingConfig(t *testing.T) {
	m := NewMobSFClient(config.MobSFConfig{BaseURL: "http://mobsf.local"})
	got := m.UploadAndScan(context.Background(), "https://dl.test/app.apk")
	assert.Contains(t, got, "not configured")
}

func TestUploadAndScanProtocol(t *testing.T) {
	// Artifact host.
	artifact := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake-apk-bytes"))
	}))
	defer artifact.Close()

	var scannedHash string
	mobsf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			require.Equal(t, "app.apk", header.Filename)
			_ = json.NewEncoder(w).Encode(map[string]string{"hash": "abc123"})
		case "/api/v1/scan":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			scannedHash = body["hash"]
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer mobsf.Close()

	m := NewMobSFClient(config.MobSFConfig{BaseURL: mobsf.URL, APIKey: "test-key"})
	got := m.UploadAndScan(context.Background(), artifact.URL+"/app.apk")

	assert.Contains(t, got, "completed successfully")
	assert.Contains(t, got, "/scan/view/abc123")
	assert.Equal(t, "abc123", scannedHash)
}

func TestUploadAndScanUploadFailure(t *testing.T) {
	artifact := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake-apk-bytes"))
	}))
	defer artifact.Close()

	mobsf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer mobsf.Close()

	m := NewMobSFClient(config.MobSFConfig{BaseURL: mobsf.URL, APIKey: "bad-key"})
	got := m.UploadAndScan(context.Background(), artifact.URL+"/app.apk")
	assert.Contains(t, got, "Failed to upload file to MobSF")
	assert.Contains(t, got, "401")
}
