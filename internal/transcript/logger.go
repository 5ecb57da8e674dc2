// Package transcript writes NDJSON conversation transcripts, one file per
// session, for offline review of what the bot asked and answered.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Event is one transcript line.
type Event struct {
	Timestamp  string `json:"ts"`
	SessionKey string `json:"session_key"`
	Channel    string `json:"channel"`
	Direction  string `json:"direction"`
	Content    string `json:"content"`
}

// Logger appends events asynchronously so transcript I/O never blocks
// message handling. Events are dropped (with a warning) when the queue is
// full.
type Logger struct {
	dir     string
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	enabled bool
}

// Config controls transcript logging.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// New creates a transcript logger. A disabled config yields a logger whose
// Log is a no-op, so callers never need to nil-check.
func New(cfg Config) (*Logger, error) {
	if !cfg.Enabled {
		return &Logger{}, nil
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	l := &Logger{
		dir:     cfg.Dir,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
		enabled: true,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log enqueues an event. The timestamp is filled in when absent and the
// content is cleaned of terminal escape sequences for readability.
func (l *Logger) Log(ev Event) {
	if !l.enabled {
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	ev.Content = cleanForReadability(ev.Content)

	select {
	case l.queue <- ev:
	default:
		slog.Warn("transcript queue full, dropping event", "session_key", ev.SessionKey)
	}
}

// Close drains the queue and stops the writer goroutine.
func (l *Logger) Close() error {
	if !l.enabled {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return nil
}

func (l *Logger) run() {
	defer l.wg.Done()
	for {
		select {
		case ev := <-l.queue:
			l.write(ev)
		case <-l.done:
			for {
				select {
				case ev := <-l.queue:
					l.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(ev Event) {
	path := filepath.Join(l.dir, sanitizeKey(ev.SessionKey)+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Warn("failed to open transcript file", "path", path, "error", err)
		return
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("failed to marshal transcript event", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Warn("failed to write transcript event", "path", path, "error", err)
	}
}

var (
	ansiPattern    = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)
	unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// cleanForReadability strips ANSI escape sequences and normalizes carriage
// returns; tool output (nmap in particular) may carry both.
func cleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func sanitizeKey(key string) string {
	if key == "" {
		return "unknown"
	}
	return unsafeFilename.ReplaceAllString(key, "_")
}
