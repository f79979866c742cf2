package requestlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/reqtap/internal/observability"
)

// timestamp returns the current wall-clock time as RFC3339 UTC with
// millisecond precision, the format used in every record written here.
func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Logger resolves where one conversation's audit files live and bootstraps
// per-attempt logging. A nil *Logger is valid and means logging is disabled;
// all methods are nil-receiver safe so call sites need no enabled checks.
type Logger struct {
	conversationDir string
}

// New returns a Logger scoped to <baseDir>/<conversationID>, creating the
// directory if needed. It returns nil when baseDir is empty (logging
// disabled), when conversationID is not path-safe, or when the directory
// cannot be created. Failures are reported as warnings, never as errors:
// audit logging is best-effort and must not disturb the caller.
func New(baseDir, conversationID string) *Logger {
	if baseDir == "" {
		return nil
	}
	observability.EnsureRegistered()

	if err := validateConversationID(conversationID); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("request log disabled for conversation")
		return nil
	}

	conversationDir := filepath.Join(baseDir, conversationID)
	if err := os.MkdirAll(conversationDir, 0700); err != nil {
		log.Warn().Err(err).Str("dir", conversationDir).Msg("failed to create request log directory")
		return nil
	}

	return &Logger{conversationDir: conversationDir}
}

// validateConversationID rejects identifiers that could escape the base
// directory when joined into a path.
func validateConversationID(id string) error {
	if id == "" {
		return fmt.Errorf("conversation ID cannot be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("conversation ID cannot contain '..'")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("conversation ID cannot contain path separators")
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("conversation ID cannot contain null bytes")
	}
	return nil
}

// requestRecord is the one-shot document written per attempt, before any
// response event.
type requestRecord struct {
	Timestamp string `json:"timestamp"`
	Attempt   uint64 `json:"attempt"`
	URL       string `json:"url"`
	Payload   any    `json:"payload"`
}

// LogRequest writes the request record for one attempt and opens its
// response stream, returning an AttemptLogger that owns the stream file.
// Re-logging an attempt number truncates and replaces both files; logging
// the same attempt from two goroutines at once races on that truncation and
// is not supported. Any failure is logged as a warning and yields nil; a
// request file written before the response stream failed to open is left in
// place.
func (l *Logger) LogRequest(attempt uint64, url string, payload any) *AttemptLogger {
	if l == nil {
		return nil
	}

	attemptID := fmt.Sprintf("attempt-%03d", attempt)
	requestPath := filepath.Join(l.conversationDir, attemptID+"-request.json")
	responsePath := filepath.Join(l.conversationDir, attemptID+"-response.jsonl")

	if err := writeRequestFile(requestPath, attempt, url, payload); err != nil {
		log.Warn().Err(err).Str("path", requestPath).Msg("failed to write request log")
		return nil
	}

	file, err := os.OpenFile(responsePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		log.Warn().Err(err).Str("path", responsePath).Msg("failed to prepare response log")
		return nil
	}

	observability.RecordAttemptStarted()
	return &AttemptLogger{file: file}
}

func writeRequestFile(path string, attempt uint64, url string, payload any) error {
	data, err := json.MarshalIndent(requestRecord{
		Timestamp: timestamp(),
		Attempt:   attempt,
		URL:       url,
		Payload:   payload,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal request record: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write request record: %w", err)
	}
	return nil
}
