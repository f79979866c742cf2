package requestlog

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/harun/reqtap/internal/observability"
)

// Event type tags as they appear in the response stream.
const (
	EventResponseStarted = "response_started"
	EventStreamEvent     = "sse_event"
	EventStreamClosed    = "sse_closed"
	EventError           = "error"
	EventErrorResponse   = "error_response"
	EventInfo            = "info"
)

// AttemptLogger appends typed events to one attempt's response stream. It is
// shared by pointer across the goroutines observing a single exchange (stream
// reader, error paths); the mutex guarantees each event lands as one
// uninterleaved line. The lock is released via defer, so a panicking emitter
// never wedges later ones; at worst the file ends in a torn line.
//
// All emit methods are fire-and-forget: failures are logged as warnings,
// counted, and swallowed. A nil *AttemptLogger is valid and does nothing.
type AttemptLogger struct {
	mu   sync.Mutex
	file *os.File
}

type responseStartedEvent struct {
	Timestamp string              `json:"timestamp"`
	Type      string              `json:"type"`
	Status    int                 `json:"status"`
	Headers   map[string][]string `json:"headers"`
}

type streamEvent struct {
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"`
	Event     *string `json:"event"`
	Data      string  `json:"data"`
}

type streamClosedEvent struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
}

type messageEvent struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

type errorResponseEvent struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Body      string `json:"body"`
}

// LogResponseStart records the status code and headers of an inbound
// response. Header names serialize in sorted order, each mapped to its values
// in arrival order.
func (l *AttemptLogger) LogResponseStart(status int, header http.Header) {
	headers := make(map[string][]string, len(header))
	for name, values := range header {
		headers[name] = append([]string(nil), values...)
	}
	l.writeJSONLine(EventResponseStarted, responseStartedEvent{
		Timestamp: timestamp(),
		Type:      EventResponseStarted,
		Status:    status,
		Headers:   headers,
	})
}

// LogStreamEvent records one streamed chunk. An empty event name means the
// chunk carried no name and serializes as null.
func (l *AttemptLogger) LogStreamEvent(event, data string) {
	var name *string
	if event != "" {
		name = &event
	}
	l.writeJSONLine(EventStreamEvent, streamEvent{
		Timestamp: timestamp(),
		Type:      EventStreamEvent,
		Event:     name,
		Data:      data,
	})
}

// LogStreamClosed records the end of the response stream.
func (l *AttemptLogger) LogStreamClosed(reason string) {
	l.writeJSONLine(EventStreamClosed, streamClosedEvent{
		Timestamp: timestamp(),
		Type:      EventStreamClosed,
		Reason:    reason,
	})
}

// LogError records a transport or processing failure observed by the caller.
func (l *AttemptLogger) LogError(message string) {
	l.writeJSONLine(EventError, messageEvent{
		Timestamp: timestamp(),
		Type:      EventError,
		Message:   message,
	})
}

// LogErrorResponse records a non-success response with its raw body.
func (l *AttemptLogger) LogErrorResponse(status int, body string) {
	l.writeJSONLine(EventErrorResponse, errorResponseEvent{
		Timestamp: timestamp(),
		Type:      EventErrorResponse,
		Status:    status,
		Body:      body,
	})
}

// LogMessage records a free-form informational note.
func (l *AttemptLogger) LogMessage(message string) {
	l.writeJSONLine(EventInfo, messageEvent{
		Timestamp: timestamp(),
		Type:      EventInfo,
		Message:   message,
	})
}

// writeJSONLine serializes the event outside the lock, then writes line plus
// terminator as one contiguous write and flushes before unlocking.
func (l *AttemptLogger) writeJSONLine(eventType string, event any) {
	if l == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("request log serialization error")
		observability.RecordEventDropped("marshal")
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(data); err != nil {
		log.Warn().Err(err).Msg("request log write error")
		observability.RecordEventDropped("write")
		return
	}
	if err := l.file.Sync(); err != nil {
		log.Warn().Err(err).Msg("request log flush error")
		observability.RecordEventDropped("sync")
		return
	}
	observability.RecordEventWritten(eventType)
}
