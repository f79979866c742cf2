package requestlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/reqtap/internal/observability"
)

func setupAttempt(t *testing.T) (*AttemptLogger, string) {
	t.Helper()
	base := t.TempDir()
	lg := New(base, "conv-1")
	require.NotNil(t, lg)
	attempt := lg.LogRequest(1, "https://api.example.com", nil)
	require.NotNil(t, attempt)
	return attempt, filepath.Join(base, "conv-1", "attempt-001-response.jsonl")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestAttemptLogger_RoundTrip(t *testing.T) {
	attempt, path := setupAttempt(t)

	header := http.Header{}
	header.Add("Content-Type", "text/event-stream")
	header.Add("X-Request-Id", "req-1")
	header.Add("X-Request-Id", "req-2")

	attempt.LogResponseStart(200, header)
	attempt.LogStreamEvent("message_delta", `{"delta":"hi"}`)
	attempt.LogStreamEvent("", "unnamed chunk")
	attempt.LogStreamClosed("eof")
	attempt.LogError("connection reset")
	attempt.LogErrorResponse(529, `{"error":"overloaded"}`)
	attempt.LogMessage("retrying with backoff")

	lines := readLines(t, path)
	require.Len(t, lines, 7)

	var started struct {
		Timestamp string              `json:"timestamp"`
		Type      string              `json:"type"`
		Status    int                 `json:"status"`
		Headers   map[string][]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &started))
	assert.Equal(t, "response_started", started.Type)
	assert.Equal(t, 200, started.Status)
	assert.Equal(t, []string{"text/event-stream"}, started.Headers["Content-Type"])
	assert.Equal(t, []string{"req-1", "req-2"}, started.Headers["X-Request-Id"])

	// Header names appear in sorted order in the serialized line
	assert.Less(t,
		strings.Index(lines[0], `"Content-Type"`),
		strings.Index(lines[0], `"X-Request-Id"`),
	)

	var sse struct {
		Type  string  `json:"type"`
		Event *string `json:"event"`
		Data  string  `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &sse))
	assert.Equal(t, "sse_event", sse.Type)
	require.NotNil(t, sse.Event)
	assert.Equal(t, "message_delta", *sse.Event)
	assert.Equal(t, `{"delta":"hi"}`, sse.Data)

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &sse))
	assert.Nil(t, sse.Event, "unnamed events serialize as null")
	assert.Contains(t, lines[2], `"event":null`)
	assert.Equal(t, "unnamed chunk", sse.Data)

	var closed struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &closed))
	assert.Equal(t, "sse_closed", closed.Type)
	assert.Equal(t, "eof", closed.Reason)

	var failure struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &failure))
	assert.Equal(t, "error", failure.Type)
	assert.Equal(t, "connection reset", failure.Message)

	var errResp struct {
		Type   string `json:"type"`
		Status int    `json:"status"`
		Body   string `json:"body"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[5]), &errResp))
	assert.Equal(t, "error_response", errResp.Type)
	assert.Equal(t, 529, errResp.Status)
	assert.Equal(t, `{"error":"overloaded"}`, errResp.Body)

	var info struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[6]), &info))
	assert.Equal(t, "info", info.Type)
	assert.Equal(t, "retrying with backoff", info.Message)

	// Every line is stamped with a parseable millisecond UTC timestamp
	for _, line := range lines {
		var stamped struct {
			Timestamp string `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &stamped))
		_, err := time.Parse("2006-01-02T15:04:05.000Z07:00", stamped.Timestamp)
		assert.NoError(t, err, line)
	}
}

func TestAttemptLogger_ConcurrentWriters(t *testing.T) {
	attempt, path := setupAttempt(t)

	const writers = 8
	const events = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := 0; k < events; k++ {
				attempt.LogStreamEvent("chunk", fmt.Sprintf("w%02d-%03d", w, k))
			}
		}(w)
	}
	wg.Wait()

	lines := readLines(t, path)
	require.Len(t, lines, writers*events)

	seen := make(map[string]bool)
	lastPerWriter := make(map[int]int)
	for _, line := range lines {
		var event struct {
			Type string `json:"type"`
			Data string `json:"data"`
		}
		// Each line must parse on its own: interleaved writes would break this
		require.NoError(t, json.Unmarshal([]byte(line), &event), line)
		assert.Equal(t, "sse_event", event.Type)

		var writer, seq int
		_, err := fmt.Sscanf(event.Data, "w%d-%d", &writer, &seq)
		require.NoError(t, err, event.Data)

		// Emission order within one writer is preserved
		if last, ok := lastPerWriter[writer]; ok {
			assert.Greater(t, seq, last, "writer %d out of order", writer)
		}
		lastPerWriter[writer] = seq
		seen[event.Data] = true
	}

	assert.Len(t, seen, writers*events, "every emitted message is present exactly once")
}

func TestAttemptLogger_WriteFailureDoesNotPoisonLaterEmits(t *testing.T) {
	attempt, path := setupAttempt(t)

	attempt.LogMessage("before the failure")

	// Swap in a read-only handle so the next write fails, then restore
	good := attempt.file
	bad, err := os.Open(filepath.Dir(path))
	require.NoError(t, err)
	attempt.file = bad

	assert.NotPanics(t, func() {
		attempt.LogMessage("lost to the failure")
	})

	attempt.file = good
	require.NoError(t, bad.Close())

	attempt.LogMessage("after the failure")

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "before the failure")
	assert.Contains(t, lines[1], "after the failure")
}

func TestAttemptLogger_SyncFailureCountsAsDropped(t *testing.T) {
	attempt, path := setupAttempt(t)

	attempt.LogMessage("durable")

	// A pipe accepts writes but refuses fsync, isolating the flush failure
	// from the write path
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	good := attempt.file
	attempt.file = w
	attempt.LogMessage("accepted but never flushed")
	attempt.file = good
	require.NoError(t, w.Close())

	attempt.LogMessage("still works afterwards")

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "durable")
	assert.Contains(t, lines[1], "still works afterwards")

	rec := httptest.NewRecorder()
	observability.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `requestlog_events_dropped_total{reason="sync"}`)
}

func TestAttemptLogger_NilReceiverIsSafe(t *testing.T) {
	var attempt *AttemptLogger

	assert.NotPanics(t, func() {
		attempt.LogResponseStart(200, nil)
		attempt.LogStreamEvent("e", "d")
		attempt.LogStreamClosed("eof")
		attempt.LogError("boom")
		attempt.LogErrorResponse(500, "body")
		attempt.LogMessage("note")
	})
}
