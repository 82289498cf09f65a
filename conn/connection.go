// File: conn/connection.go
// Package conn implements the connection manager: accept, per-connection
// state, pooling and the close path, per spec §4.5.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on protocol/connection.go's WSConnection field shape (transport,
// pool, handler, done/closed) and pool/objpool.go's SyncPool[T] for the
// connection freelist.

package conn

import (
	"sync"
	"sync/atomic"

	"github.com/studease/chatease-ws/internal/bufpool"
	"github.com/studease/chatease-ws/internal/strview"
)

// ReadHandler processes newly readable bytes on a connection. It is
// invoked without Mu held, from the worker's single reactor goroutine, so
// two read-handler calls for one connection never overlap; a handler takes
// Mu itself for the moments it reads FD. It must drain the socket until it
// would block, per the edge-triggered contract in spec §4.4.
type ReadHandler func(c *Connection)

// WriteHandler flushes any pending outbound bytes. No component of this
// server installs one: outbound bytes are written directly by the
// handshake handler and by wsproto.Session.Write.
type WriteHandler func(c *Connection)

// Connection owns one client socket for its entire lifetime: fd, pool,
// buffer, and the read/write handlers currently installed (HTTP during
// the handshake, WebSocket framing afterward). fd == -1 marks a closed
// connection; every handler must re-check that under Mu before touching
// socket state.
type Connection struct {
	Mu sync.Mutex

	FD int // -1 once closed

	Pool   *bufpool.Pool
	Buffer *strview.Buffer

	OnRead  ReadHandler
	OnWrite WriteHandler

	// Data holds the active per-handshake or per-session object: a
	// *httpserver.Request while upgrading, a *wsproto.Session afterward.
	Data any

	closed int32
}

// Manager owns the connection freelist and the accept path for one
// worker. One Manager exists per worker process (spec §5).
type Manager struct {
	freelist sync.Pool
}

// NewManager creates a connection manager whose freelist mints fresh
// Connection shells on demand.
func NewManager() *Manager {
	m := &Manager{}
	m.freelist.New = func() any { return &Connection{FD: -1} }
	return m
}

// Accept wraps a newly accepted file descriptor in a Connection, installs
// readHandler as its initial read handler (the HTTP wait-request handler
// in spec §4.5), and returns it ready for registration with the reactor.
func (m *Manager) Accept(fd int, readHandler ReadHandler) *Connection {
	c := m.freelist.Get().(*Connection)
	c.FD = fd
	c.Pool = bufpool.New()
	c.Buffer = nil
	c.OnRead = readHandler
	c.OnWrite = nil
	c.Data = nil
	atomic.StoreInt32(&c.closed, 0)
	return c
}

// Closed reports whether Close has already run for this connection.
func (c *Connection) Closed() bool {
	return atomic.LoadInt32(&c.closed) != 0
}

// Close tears a connection down: under Mu it marks fd == -1, detaches the
// buffer and handlers, then destroys the pool (freeing every pool-scoped
// object transitively). It does not return the shell to the freelist;
// Manager.Release does that. The caller is responsible for removing the
// fd from the reactor and
// calling the OS close() before or after this, since Connection itself
// has no reactor reference (kept as an explicit collaborator per spec §9's
// "avoid hidden singletons" note).
func (c *Connection) Close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}

	c.Mu.Lock()
	c.FD = -1
	c.OnRead = nil
	c.OnWrite = nil
	c.Data = nil
	pool := c.Pool
	c.Pool = nil
	c.Buffer = nil
	c.Mu.Unlock()

	if pool != nil {
		pool.Destroy()
	}
}

// Release returns a closed connection's shell to the freelist for reuse.
// Callers must call Close first.
func (m *Manager) Release(c *Connection) {
	m.freelist.Put(c)
}

// EnsureBuffer lazily allocates the read buffer on first use, matching
// stu_http_wait_request_handler's "buffer is lazily allocated on first
// read" invariant (spec §3). It never resets an existing buffer: a
// handshake that spans more than one read re-enters the read handler,
// and whatever bytes are already buffered but not yet consumed by the
// parser must survive that re-entry, exactly as wsproto.Session's own
// buffer does across the life of a connection.
func (c *Connection) EnsureBuffer(size int) *strview.Buffer {
	if c.Buffer == nil {
		c.Buffer = strview.NewBuffer(size)
	}
	return c.Buffer
}
