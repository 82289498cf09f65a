// File: httpserver/parser.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Request-line and header-line state machines. Each parse function
// consumes as much of the supplied buffer as it can and reports how far
// it got; callers loop on StatusAgain when more bytes are needed (spec
// §7's propagation policy). State that must survive across reads — the
// line phase, header name/value cursors, the rolling hash accumulator and
// the lowercase scratch buffer — lives on requestParser so a handshake
// that arrives in more than one TCP segment parses correctly.

package httpserver

import "github.com/studease/chatease-ws/internal/container"

type lineState int

const (
	stMethod lineState = iota
	stURI
	stVersionH
	stVersionSlash
	stVersionMajor
	stVersionDot
	stVersionMinor
	stLineCR
	stLineLF
	stLineDone
)

type headerState int

const (
	hdStart headerState = iota
	hdName
	hdColon
	hdSpace
	hdValue
	hdValueCR
	hdHeaderLF
	hdAlmostDone
	hdDone
)

// requestParser carries cursor state across partial reads.
type requestParser struct {
	// request-line state
	lineState lineState
	method    []byte
	uri       []byte
	verMajor  int
	verMinor  int
	lineDone  bool

	// header-line state
	headerState headerState
	nameStart   int
	nameEnd     int
	valueStart  int
	valueEnd    int
	name        []byte // original-case header name bytes
	lower       []byte // lowercased header name bytes, parallel to name
	hash        uint64
	headersDone bool
}

// ParseRequestLine scans data[pos:] for "METHOD SP URI SP HTTP/x.y CRLF".
// It returns the number of bytes consumed from pos and a Status: OK once
// the full line (through CRLF) is recognized, Again if more bytes are
// needed, Error on malformed syntax.
func (r *Request) ParseRequestLine(data []byte, pos int) (int, Status) {
	p := &r.parser
	i := pos

	for i < len(data) {
		c := data[i]
		switch p.lineState {
		case stMethod:
			switch c {
			case ' ':
				r.Method = string(p.method)
				p.lineState = stURI
			default:
				if !isTokenChar(c) {
					return i - pos, StatusError
				}
				p.method = append(p.method, c)
			}
		case stURI:
			switch c {
			case ' ':
				r.URI = string(p.uri)
				p.lineState = stVersionH
			case '\r', '\n':
				return i - pos, StatusError
			default:
				p.uri = append(p.uri, c)
			}
		case stVersionH:
			if c != 'H' {
				return i - pos, StatusError
			}
			p.lineState = stVersionSlash
		case stVersionSlash:
			// consume "TTP/" without individual states, using a small
			// literal match against the next three bytes plus '/'.
			if i+3 >= len(data) {
				return i - pos, StatusAgain
			}
			if data[i] != 'T' || data[i+1] != 'T' || data[i+2] != 'P' || data[i+3] != '/' {
				return i - pos, StatusError
			}
			i += 3
			p.lineState = stVersionMajor
		case stVersionMajor:
			if c >= '0' && c <= '9' {
				p.verMajor = p.verMajor*10 + int(c-'0')
			} else if c == '.' {
				p.lineState = stVersionMinor
			} else {
				return i - pos, StatusError
			}
		case stVersionMinor:
			if c >= '0' && c <= '9' {
				p.verMinor = p.verMinor*10 + int(c-'0')
			} else if c == '\r' {
				p.lineState = stLineLF
			} else if c == '\n' {
				p.lineState = stLineDone
			} else {
				return i - pos, StatusError
			}
		case stLineLF:
			if c != '\n' {
				return i - pos, StatusError
			}
			p.lineState = stLineDone
		case stLineDone:
			r.VerMaj = p.verMajor
			r.VerMin = p.verMinor
			p.lineDone = true
			return i - pos, StatusOK
		}
		i++
	}

	if p.lineState == stLineDone {
		r.VerMaj = p.verMajor
		r.VerMin = p.verMinor
		p.lineDone = true
		return i - pos, StatusOK
	}
	return i - pos, StatusAgain
}

func isTokenChar(c byte) bool {
	if c <= 0x20 || c == 0x7f {
		return false
	}
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
		return false
	}
	return true
}

// ParseHeaderLine scans "Name: value\r\n" lines from data[pos:] until it
// reaches the terminating blank line (StatusDone) or runs out of bytes
// (StatusAgain), dispatching each complete header as it goes. It
// canonicalizes each header name into a
// lowercase scratch buffer while accumulating the rolling hash defined in
// spec §4.2, matching testable property 2.
func (r *Request) ParseHeaderLine(data []byte, pos int) (int, Status) {
	p := &r.parser
	i := pos

	for i < len(data) {
		c := data[i]
		switch p.headerState {
		case hdStart:
			if c == '\r' {
				p.headerState = hdAlmostDone
				i++
				continue
			}
			if c == '\n' {
				p.headersDone = true
				return i + 1 - pos, StatusDone
			}
			p.nameStart = len(p.lower)
			p.hash = 0
			p.headerState = hdName
			continue // reprocess c in hdName

		case hdName:
			switch c {
			case ':':
				p.nameEnd = len(p.lower)
				p.headerState = hdColon
			case ' ', '\t':
				return i - pos, StatusError
			case '\r', '\n':
				return i - pos, StatusError
			default:
				lc := c
				if lc >= 'A' && lc <= 'Z' {
					lc += 'a' - 'A'
				}
				p.name = append(p.name, c)
				p.lower = append(p.lower, lc)
				p.hash = p.hash*31 + uint64(lc)
			}

		case hdColon:
			if c == ' ' || c == '\t' {
				p.headerState = hdSpace
			} else {
				p.valueStart = i
				p.headerState = hdValue
				continue
			}

		case hdSpace:
			if c == ' ' || c == '\t' {
				// keep skipping
			} else {
				p.valueStart = i
				p.headerState = hdValue
				continue
			}

		case hdValue:
			switch c {
			case '\r':
				p.valueEnd = i
				p.headerState = hdValueCR
			case '\n':
				p.valueEnd = i
				p.headerState = hdHeaderLF
				continue
			}

		case hdValueCR:
			if c != '\n' {
				return i - pos, StatusError
			}
			p.headerState = hdHeaderLF
			continue

		case hdHeaderLF:
			name := r.allocString(p.name[p.nameStart:p.nameEnd])
			lowerName := r.allocString(p.lower[p.nameStart:p.nameEnd])
			value := r.allocString(data[p.valueStart:p.valueEnd])
			entry := &HeaderEntry{
				Hash:     container.RollingHash([]byte(lowerName)),
				Key:      name,
				LowerKey: lowerName,
				Value:    value,
			}
			r.Headers.PushBack(entry)
			dispatchHeader(r, entry)

			p.headerState = hdStart
			i++
			continue

		case hdAlmostDone:
			if c != '\n' {
				return i - pos, StatusError
			}
			p.headersDone = true
			return i + 1 - pos, StatusDone
		}
		i++
	}

	return i - pos, StatusAgain
}

// ProcessBuffered drives the request-line and header-line parsers over
// everything currently readable in data, resuming from r's saved cursor.
// It returns StatusDone once the blank line terminating the headers is
// reached, StatusAgain when data is exhausted mid-request, or StatusError
// on malformed input (with r.HeadersOut.Status already set to 400).
func (r *Request) ProcessBuffered(data []byte) Status {
	if !r.parser.lineDone {
		n, st := r.ParseRequestLine(data, r.pos)
		r.pos += n
		switch st {
		case StatusAgain:
			return StatusAgain
		case StatusError:
			r.HeadersOut.Status = StatusBadRequest
			return StatusError
		}
	}

	for !r.parser.headersDone {
		n, st := r.ParseHeaderLine(data, r.pos)
		r.pos += n
		switch st {
		case StatusAgain:
			return StatusAgain
		case StatusError:
			r.HeadersOut.Status = StatusBadRequest
			return StatusError
		case StatusDone:
			return StatusDone
		}
	}
	return StatusDone
}
