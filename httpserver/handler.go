// File: httpserver/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wires the parser and handshake builder into a conn.ReadHandler, the
// edge-triggered "wait request" handler from spec §4.5/§4.6. Grounded on
// protocol/connection.go's read loop: drain the socket until EAGAIN,
// feeding whatever arrived to the protocol state machine in place.

package httpserver

import (
	"golang.org/x/sys/unix"

	"github.com/studease/chatease-ws/conn"
)

// UpgradeFunc hands a successfully upgraded connection off to the
// WebSocket layer. It is called with the connection's mutex unlocked and
// owns fd and c.Data from that point on.
type UpgradeFunc func(c *conn.Connection, r *Request)

// CloseFunc tears down a connection that the handshake is rejecting:
// removing it from the reactor, closing the fd, and releasing it back to
// its manager. httpserver has no reactor reference of its own, matching
// the "no hidden singletons" shape already used by conn.Connection.Close.
type CloseFunc func(c *conn.Connection)

const requestBufferSize = 4096

// NewConnectionHandler returns the read handler installed on every freshly
// accepted connection. It parses one HTTP upgrade request, writes the
// handshake response, and calls onUpgrade on success or onClose on
// rejection or malformed input.
func NewConnectionHandler(onUpgrade UpgradeFunc, onClose CloseFunc) conn.ReadHandler {
	return func(c *conn.Connection) {
		c.Mu.Lock()
		fd := c.FD
		c.Mu.Unlock()
		if fd < 0 {
			return
		}

		buf := c.EnsureBuffer(requestBufferSize)
		req, _ := c.Data.(*Request)
		if req == nil {
			req = NewRequestWithPool(c.Pool)
			c.Data = req
		}

		for {
			n, err := unix.Read(fd, buf.Writable())
			if n > 0 {
				buf.Advance(n)
			}
			if n == 0 {
				onClose(c)
				return
			}
			if err != nil {
				if err == unix.EAGAIN {
					break
				}
				onClose(c)
				return
			}
			if buf.Full() {
				req.HeadersOut.Status = StatusBadRequest
				writeResponse(fd, req)
				onClose(c)
				return
			}
		}

		switch req.ProcessBuffered(buf.Readable()) {
		case StatusAgain:
			return
		case StatusError:
			writeResponse(fd, req)
			onClose(c)
			return
		}

		ok := req.Validate()
		writeResponse(fd, req)
		if !ok {
			onClose(c)
			return
		}
		// Anything past the headers' terminating blank line already sits
		// in buf belongs to the WebSocket stream (a pipelining client can
		// send its first frame in the same segment as the handshake).
		buf.DiscardFront(req.ConsumedBytes())
		onUpgrade(c, req)
	}
}

func writeResponse(fd int, req *Request) {
	resp := BuildResponse(req)
	for written := 0; written < len(resp); {
		n, err := unix.Write(fd, resp[written:])
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			return
		}
		written += n
	}
}
