// File: wsproto/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Binds a Decoder to a conn.Connection and drives the control-frame and
// close handshake, per spec §4.7. Grounded on protocol/connection.go's
// recv loop shape, adapted from its channel-based goroutine-per-connection
// model to the edge-triggered single-handler-per-readable-event model the
// rest of this server uses.

package wsproto

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/studease/chatease-ws/conn"
	"github.com/studease/chatease-ws/internal/strview"
)

// MessageHandler processes one complete text or binary message payload
// (text is expected to be JSON, per spec §4.3/§4.7). It normally runs on the reactor goroutine
// handling s's connection, but a worker configured with WorkerThreads > 0
// dispatches it from a thread-pool goroutine instead (spec §5); either
// way it must not block, and since Write is safe for concurrent use it
// may call s.Write on that goroutine.
type MessageHandler func(s *Session, payload []byte)

const sessionBufferSize = 8192

// Session is the per-connection WebSocket protocol state: the connection
// it rides on, the incremental frame decoder, and the callbacks the chat
// layer installed.
type Session struct {
	Conn *conn.Connection

	decoder Decoder

	onMessage MessageHandler
	onClose   func(c *conn.Connection)

	// writeMu serializes Write against the reactor goroutine's own writes
	// (pong replies, the close handshake): once a worker's thread pool is
	// offloading onMessage, a pool goroutine can call Write (via
	// chat.User.Send) at the same time the reactor goroutine is replying
	// to a ping, and unsynchronized concurrent unix.Write calls on the
	// same fd would interleave into a corrupt frame stream.
	writeMu sync.Mutex

	closing bool

	// fragOpcode and fragPayload accumulate a fragmented message across an
	// initial Text/Binary frame (Fin=false) and its following Continuation
	// frames, per RFC 6455 §5.4. fragOpcode is OpcodeContinuation (the
	// zero value, reused as a sentinel) when no fragmented message is in
	// progress.
	fragOpcode  byte
	fragPayload []byte

	// Data is available for the chat layer to stash its own per-session
	// state (e.g. *chat.User) without a second map lookup.
	Data any
}

// NewSession wraps c in a Session and installs it as c's active protocol
// handler. Bytes already left in c.Buffer after the handshake stay there
// and are decoded on the session's next readable event.
func NewSession(c *conn.Connection, onMessage MessageHandler, onClose func(c *conn.Connection)) *Session {
	s := &Session{Conn: c, onMessage: onMessage, onClose: onClose}
	c.Data = s
	c.OnRead = s.handleReadable
	return s
}

func (s *Session) handleReadable(c *conn.Connection) {
	c.Mu.Lock()
	fd := c.FD
	c.Mu.Unlock()
	if fd < 0 {
		return
	}

	if c.Buffer == nil {
		c.Buffer = strview.NewBuffer(sessionBufferSize)
	}
	buf := c.Buffer

	for {
		n, err := unix.Read(fd, buf.Writable())
		if n > 0 {
			buf.Advance(n)
		}
		if n == 0 {
			s.onClose(c)
			return
		}

		// Drain every frame the buffer already holds before checking for
		// more to read: a frame payload can span several read() calls
		// (MaxFramePayload is far larger than sessionBufferSize), and
		// decoding here frees the space DiscardFront reclaims instead of
		// letting the buffer fill up around one in-flight large frame.
		if !s.drainFrames(c, buf) {
			return
		}

		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			s.onClose(c)
			return
		}
		if buf.Full() {
			// Nothing decodable remains even after draining and a full
			// refill: whatever is buffered isn't a valid frame boundary.
			s.fail(c, 1009, "frame header too large")
			return
		}
	}
}

// drainFrames decodes and dispatches every complete frame currently
// buffered. It reports false if the session should stop reading, either
// because handleFrame closed it or because of a protocol error.
func (s *Session) drainFrames(c *conn.Connection, buf *strview.Buffer) bool {
	for {
		consumed, frame, status := s.decoder.Decode(buf.Readable(), 0)
		buf.DiscardFront(consumed)
		switch status {
		case StatusAgain:
			return true
		case StatusError:
			s.fail(c, 1002, "protocol error")
			return false
		}
		if !s.handleFrame(c, frame) {
			return false
		}
	}
}

// handleFrame dispatches one decoded frame and reports whether the
// session should keep reading. Text/Binary/Continuation frames are
// reassembled per RFC 6455 §5.4 before reaching onMessage: a frame with
// Fin=false starts (or continues) a fragmented message, and onMessage
// only sees the full payload once the closing Fin=true frame arrives.
// Control frames may be interleaved between fragments and are handled
// immediately, without disturbing the in-progress fragment buffer.
func (s *Session) handleFrame(c *conn.Connection, frame *Frame) bool {
	switch frame.Opcode {
	case OpcodeText, OpcodeBinary:
		if s.fragOpcode != OpcodeContinuation {
			s.fail(c, 1002, "new message while fragment in progress")
			return false
		}
		if frame.Fin {
			if s.onMessage != nil {
				s.onMessage(s, frame.Payload)
			}
			return true
		}
		s.fragOpcode = frame.Opcode
		s.fragPayload = append(s.fragPayload[:0], frame.Payload...)
		return true

	case OpcodeContinuation:
		if s.fragOpcode == OpcodeContinuation {
			s.fail(c, 1002, "continuation without a fragmented message")
			return false
		}
		if len(s.fragPayload)+len(frame.Payload) > MaxFramePayload {
			s.fail(c, 1009, "fragmented message too large")
			return false
		}
		s.fragPayload = append(s.fragPayload, frame.Payload...)
		if !frame.Fin {
			return true
		}
		payload := s.fragPayload
		s.fragOpcode = OpcodeContinuation
		s.fragPayload = nil
		if s.onMessage != nil {
			s.onMessage(s, payload)
		}
		return true

	case OpcodePing:
		s.Write(Encode(OpcodePong, frame.Payload))
		return true

	case OpcodePong:
		return true

	case OpcodeClose:
		if !s.closing {
			s.closing = true
			code, reason := parseCloseFrame(frame.Payload)
			s.Write(EncodeClose(code, reason))
		}
		s.onClose(c)
		return false

	default:
		s.fail(c, 1002, "unknown opcode")
		return false
	}
}

func (s *Session) fail(c *conn.Connection, code uint16, reason string) {
	s.Write(EncodeClose(code, reason))
	s.onClose(c)
}

// Write sends payload as-is; it is expected to already be a complete
// frame built by Encode/EncodeText/EncodeClose. Safe for concurrent use.
func (s *Session) Write(payload []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c := s.Conn
	c.Mu.Lock()
	fd := c.FD
	c.Mu.Unlock()
	if fd < 0 {
		return
	}
	for written := 0; written < len(payload); {
		n, err := unix.Write(fd, payload[written:])
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			return
		}
		written += n
	}
}

func parseCloseFrame(payload []byte) (uint16, string) {
	if len(payload) < 2 {
		return 1000, ""
	}
	code := uint16(payload[0])<<8 | uint16(payload[1])
	return code, string(payload[2:])
}
