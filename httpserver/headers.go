// File: httpserver/headers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The header dispatch table from spec §4.6: each recognized lowercased
// header name maps to a handler that decides how the value is attached to
// HeadersIn, or rejects the request outright.

package httpserver

import (
	"strings"

	"github.com/studease/chatease-ws/internal/container"
)

type headerHandler func(r *Request, h *HeaderEntry) Status

type headerDef struct {
	handler headerHandler
}

var headerTable *container.HeaderSet[headerDef]

func init() {
	names := []struct {
		name    string
		handler headerHandler
	}{
		{"host", handleUnique(
			func(r *Request) *HeaderEntry { return r.HeadersIn.Host },
			func(r *Request, h *HeaderEntry) { r.HeadersIn.Host = h })},
		{"user-agent", handleFirst(func(r *Request, h *HeaderEntry) { r.HeadersIn.UserAgent = h })},
		{"accept", handleFirst(func(r *Request, h *HeaderEntry) { r.HeadersIn.Accept = h })},
		{"accept-language", handleFirst(func(r *Request, h *HeaderEntry) { r.HeadersIn.AcceptLanguage = h })},
		{"accept-encoding", handleFirst(func(r *Request, h *HeaderEntry) { r.HeadersIn.AcceptEncoding = h })},
		{"content-type", handleFirst(func(r *Request, h *HeaderEntry) { r.HeadersIn.ContentType = h })},
		{"content-length", handleUnique(
			func(r *Request) *HeaderEntry { return r.HeadersIn.ContentLength },
			func(r *Request, h *HeaderEntry) { r.HeadersIn.ContentLength = h })},
		{"sec-websocket-version", handleUnique(
			func(r *Request) *HeaderEntry { return r.HeadersIn.SecWebSocketVersion },
			func(r *Request, h *HeaderEntry) { r.HeadersIn.SecWebSocketVersion = h })},
		{"sec-websocket-extensions", handleUnique(
			func(r *Request) *HeaderEntry { return r.HeadersIn.SecWebSocketExtensions },
			func(r *Request, h *HeaderEntry) { r.HeadersIn.SecWebSocketExtensions = h })},
		{"upgrade", handleUnique(
			func(r *Request) *HeaderEntry { return r.HeadersIn.Upgrade },
			func(r *Request, h *HeaderEntry) { r.HeadersIn.Upgrade = h })},
		{"connection", handleConnection},
		{"sec-websocket-key", handleSecWebSocketKey},
	}

	headerTable = container.NewHeaderSet[headerDef](len(names))
	for _, n := range names {
		headerTable.Insert(n.name, headerDef{handler: n.handler})
	}
}

// dispatchHeader runs the recognized-header handler for h, if any, and
// sets r.InvalidHeader when it signals rejection. Unknown headers remain
// in r.Headers only, per spec.
func dispatchHeader(r *Request, h *HeaderEntry) {
	def, ok := headerTable.Lookup(h.LowerKey)
	if !ok {
		return
	}
	if st := def.handler(r, h); st != StatusOK {
		r.InvalidHeader = true
	}
}

// handleFirst stores the first occurrence and ignores duplicates.
func handleFirst(set func(r *Request, h *HeaderEntry)) headerHandler {
	return func(r *Request, h *HeaderEntry) Status {
		seen := false
		r.Headers.Each(func(e *HeaderEntry) {
			if e != h && e.LowerKey == h.LowerKey {
				seen = true
			}
		})
		if !seen {
			set(r, h)
		}
		return StatusOK
	}
}

// handleUnique rejects the request with 400 on a second occurrence, per
// stu_http_process_unique_header_line. get reads back the slot so no
// per-request tracking state needs to live on the handler itself.
func handleUnique(get func(r *Request) *HeaderEntry, set func(r *Request, h *HeaderEntry)) headerHandler {
	return func(r *Request, h *HeaderEntry) Status {
		if get(r) != nil {
			return StatusError
		}
		set(r, h)
		return StatusOK
	}
}

func handleConnection(r *Request, h *HeaderEntry) Status {
	if r.HeadersIn.Connection != nil {
		return StatusError
	}
	r.HeadersIn.Connection = h
	if containsToken(h.Value, "Upgrade") {
		r.HeadersIn.ConnectionType = ConnectionUpgrade
		return StatusOK
	}
	// Connection present but lacks the Upgrade token: maps to 501 per
	// spec §4.6, signaled via Request.notImplemented (set directly so
	// Validate can read it without re-deriving).
	r.notImplemented = true
	return StatusError
}

func handleSecWebSocketKey(r *Request, h *HeaderEntry) Status {
	if r.HeadersIn.SecWebSocketKey != nil {
		return StatusError
	}
	r.HeadersIn.SecWebSocketKey = h
	return StatusOK
}

// containsToken reports whether value contains token as a comma-separated,
// case-sensitive-on-token-chars-but-trimmed element. spec §4.6 specifies a
// case-sensitive substring match for "Upgrade"; this also tolerates the
// token appearing among other comma-separated values (e.g.
// "keep-alive, Upgrade"), which real clients send.
func containsToken(value, token string) bool {
	if strings.Contains(value, token) {
		return true
	}
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == token {
			return true
		}
	}
	return false
}
