// File: httpserver/request.go
// Package httpserver implements the HTTP/1.1 request parser and the
// WebSocket upgrade handshake described in spec §4.6.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the original stu_http_request.c's Request lifecycle (created
// on first readable data, finalized by Finish, destroyed with the pool)
// and on protocol/handshake.go / protocol/native_handshake.go for the
// handshake response shape.

package httpserver

import (
	"github.com/studease/chatease-ws/internal/bufpool"
	"github.com/studease/chatease-ws/internal/container"
)

// Status is the tri-valued parser result plus Done, per spec §7.
type Status int

const (
	StatusAgain Status = iota
	StatusOK
	StatusDone
	StatusError
)

// HeaderEntry is one parsed header line: (hash, key, lowercased key,
// value). Unknown headers live only in the ordered list; recognized ones
// are additionally attached to HeadersIn below.
type HeaderEntry struct {
	Hash     uint64
	Key      string
	LowerKey string
	Value    string
}

// ConnectionType records the parsed value of the Connection header.
type ConnectionType int

const (
	ConnectionNone ConnectionType = iota
	ConnectionUpgrade
)

// HeadersIn holds pointers to the recognized inbound headers, filled in
// by the dispatch table as each header line is parsed.
type HeadersIn struct {
	Host                  *HeaderEntry
	UserAgent             *HeaderEntry
	Accept                *HeaderEntry
	AcceptLanguage        *HeaderEntry
	AcceptEncoding        *HeaderEntry
	ContentLength         *HeaderEntry
	ContentType           *HeaderEntry
	SecWebSocketKey       *HeaderEntry
	SecWebSocketVersion   *HeaderEntry
	SecWebSocketExtensions *HeaderEntry
	Upgrade               *HeaderEntry
	Connection            *HeaderEntry
	ConnectionType        ConnectionType
}

// HeadersOut holds the single recognized outbound header this server ever
// generates: the computed accept key.
type HeadersOut struct {
	SecWebSocketAccept string
	Status             int
}

// Request is the per-handshake object living in the connection's pool.
// It is created on first readable data and destroyed along with the
// connection's pool.
type Request struct {
	Method  string
	URI     string
	VerMaj  int
	VerMin  int

	HeadersIn  HeadersIn
	HeadersOut HeadersOut

	// Headers is the ordered list of every parsed header, recognized or
	// not, in arrival order (spec testable property 1).
	Headers *container.Queue[*HeaderEntry]

	InvalidHeader bool

	// notImplemented is set when Connection is present but carries no
	// Upgrade token; Validate maps this to a 501 response per spec §4.6.
	notImplemented bool

	// pos is the offset into the connection's read buffer already
	// consumed by the request-line and header-line parsers. It lets
	// ProcessBuffered resume correctly when a handshake spans more than
	// one read.
	pos int

	// pool backs the header Key/LowerKey/Value scratch strings built while
	// parsing, so that scratch lives in the connection's own arena instead
	// of the Go heap. nil for a Request built without a connection (e.g.
	// a test fixture), which falls back to plain string conversions.
	pool *bufpool.Pool

	parser requestParser
}

// NewRequest allocates a fresh Request ready to parse a new handshake,
// with no connection pool backing its header scratch strings.
func NewRequest() *Request {
	return &Request{Headers: container.NewQueue[*HeaderEntry]()}
}

// NewRequestWithPool is NewRequest for a Request that should allocate its
// header scratch strings from the given connection pool (spec §3,
// "Per-handshake object in the connection pool") rather than the Go heap.
func NewRequestWithPool(pool *bufpool.Pool) *Request {
	return &Request{Headers: container.NewQueue[*HeaderEntry](), pool: pool}
}

// allocString returns a string holding a copy of b, taken from r's
// connection pool when one is set, or the Go heap otherwise.
func (r *Request) allocString(b []byte) string {
	if r.pool == nil {
		return string(b)
	}
	return r.pool.AllocateString(b)
}

// ConsumedBytes returns how many bytes of the connection's read buffer
// the request-line and header parsers have consumed. Bytes beyond this
// offset, if any, belong to whatever protocol follows the handshake.
func (r *Request) ConsumedBytes() int { return r.pos }
