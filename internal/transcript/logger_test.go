package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir, QueueSize: 16})
	require.NoError(t, err)

	logger.Log(Event{
		SessionKey: "C123:1700000000.000100",
		Channel:    "slack",
		Direction:  "inbound",
		Content:    "I want an audit",
	})
	require.NoError(t, logger.Close())

	path := filepath.Join(dir, "C123_1700000000.000100.ndjson")
	line := waitForLogLine(t, path)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(line), &got))
	assert.Equal(t, "I want an audit", got.Content)
	assert.Equal(t, "slack", got.Channel)
	assert.NotEmpty(t, got.Timestamp)
}

func TestCleanForReadabilityStripsANSI(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31mopen\x1b[0m 443/tcp\r\n"
	clean := cleanForReadability(raw)
	assert.NotContains(t, clean, "\x1b[31m")
	assert.Contains(t, clean, "open 443/tcp")
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Enabled: false})
	require.NoError(t, err)
	logger.Log(Event{SessionKey: "k", Content: "dropped"})
	assert.NoError(t, logger.Close())
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
