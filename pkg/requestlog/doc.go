// Package requestlog persists per-attempt audit trails of outbound
// request/response exchanges as flat files.
//
// Invariants:
// - Conversation IDs are validated and path-safe.
// - Each response event is written as exactly one JSON line; concurrent
//   emitters never interleave bytes.
// - Logging failures are swallowed and never reach the request pipeline.
//
// Usage:
//
//	lg := requestlog.New(cfg.RequestLog.Dir, "conv-42")
//	attempt := lg.LogRequest(1, url, payload)
//	attempt.LogResponseStart(resp.StatusCode, resp.Header)
//	attempt.LogStreamEvent("message_delta", data)
//	attempt.LogStreamClosed("eof")
package requestlog
