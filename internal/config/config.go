// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	DBPath       string
	AllowOrigins []string

	// OpenAI credential for the tool-selecting agent. Optional: when empty
	// the agent path answers with a fixed "not configured" message.
	OpenAIAPIKey string
	OpenAIModel  string

	// Maximum retained agent history messages per session.
	HistoryLimit int

	Jenkins    JenkinsConfig
	MobSF      MobSFConfig
	Slack      SlackConfig
	NmapPath   string
	Transcript TranscriptConfig
}

// JenkinsConfig holds the CI trigger credentials. All four fields are
// required for a build to be triggered; absence of any one is reported to
// the user as text, not treated as a startup error.
type JenkinsConfig struct {
	BaseURL  string
	User     string
	APIToken string
	JobName  string
}

// MobSFConfig holds the mobile static-analysis service credentials.
type MobSFConfig struct {
	BaseURL string
	APIKey  string
}

// SlackConfig holds the Slack Events API credentials. Optional: the Slack
// transport is only mounted when both values are set.
type SlackConfig struct {
	BotToken      string
	SigningSecret string
}

// TranscriptConfig controls NDJSON conversation transcript logging.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	historyLimit := getEnvInt("AGENT_HISTORY_LIMIT", 40)
	if historyLimit <= 0 {
		historyLimit = 40
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "./data/audits.db"),
		AllowOrigins: splitOrigins(getEnv("ALLOW_ORIGINS", "*")),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		HistoryLimit: historyLimit,
		Jenkins: JenkinsConfig{
			BaseURL:  getEnv("JENKINS_URL", ""),
			User:     getEnv("JENKINS_USER", ""),
			APIToken: getEnv("JENKINS_API_TOKEN", ""),
			JobName:  getEnv("JENKINS_JOB_NAME", ""),
		},
		MobSF: MobSFConfig{
			BaseURL: getEnv("MOBSF_URL", ""),
			APIKey:  getEnv("MOBSF_API_KEY", ""),
		},
		Slack: SlackConfig{
			BotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		},
		NmapPath: getEnv("NMAP_PATH", "nmap"),
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_DIR", "./data/transcripts"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// Tool and agent credentials are deliberately not validated here: their
// absence degrades the corresponding feature to a textual error response.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.NmapPath == "" {
		return fmt.Errorf("NMAP_PATH cannot be empty")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_DIR cannot be empty when transcripts are enabled")
	}
	return nil
}

// SlackEnabled returns true if the Slack transport should be mounted.
func (c *Config) SlackEnabled() bool {
	return c.Slack.BotToken != "" && c.Slack.SigningSecret != ""
}

// JenkinsRequestTimeout bounds a single CI trigger request.
const JenkinsRequestTimeout = 30 * time.Second

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
