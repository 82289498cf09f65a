// File: supervisor/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker owns one reactor, one connection manager, and the shared user/
// channel tables for a single worker process, and wires the accept path
// through to the HTTP handshake and on to WebSocket framing exactly as
// spec §2's data-flow paragraph describes. Grounded on protocol/
// connection.go's construction idiom and facade/hioload.go's New/Close
// shape, narrowed to what spec §4.4/§4.5 actually need.

package supervisor

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/studease/chatease-ws/chat"
	"github.com/studease/chatease-ws/conn"
	"github.com/studease/chatease-ws/httpserver"
	"github.com/studease/chatease-ws/internal/logging"
	"github.com/studease/chatease-ws/reactor"
	"github.com/studease/chatease-ws/wsproto"
)

// Worker is one worker process's event loop: accept readiness on the
// shared listening socket, run the handshake, then run the WebSocket
// framing loop for every connection it owns.
type Worker struct {
	Config *Config
	Log    *logging.Logger

	reactor reactor.Reactor
	conns   *conn.Manager

	Users      *chat.UserTable
	Channels   *chat.ChannelTable
	Dispatcher *chat.Dispatcher

	pool *ThreadPool

	listenFD int
}

// NewWorker constructs a worker bound to an already-listening,
// non-blocking socket fd (the supervisor's shared-socket responsibility
// per spec §5(a) ends at handing workers this descriptor).
func NewWorker(cfg *Config, log *logging.Logger, listenFD int) (*Worker, error) {
	r, err := reactor.NewReactor()
	if err != nil {
		return nil, err
	}

	channels := chat.NewChannelTable()
	w := &Worker{
		Config:     cfg,
		Log:        log,
		reactor:    r,
		conns:      conn.NewManager(),
		Users:      chat.NewUserTable(),
		Channels:   channels,
		Dispatcher: chat.NewDispatcher(channels),
		listenFD:   listenFD,
	}
	if cfg.WorkerThreads > 0 {
		w.pool = NewThreadPool(cfg.WorkerThreads)
	}

	if err := r.Add(listenFD, reactor.Read, w.handleAcceptable); err != nil {
		r.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks, servicing readiness events until Close is called from
// another goroutine (e.g. on SIGTERM, an external collaborator's job).
// Each wait cycle also sweeps upgraded connections idle past
// Config.IdleTimeout (see sweepIdle for which connections that covers).
func (w *Worker) Run() error {
	for {
		if err := w.reactor.Wait(1000); err != nil {
			return err
		}
		w.sweepIdle()
	}
}

// sweepIdle closes every upgraded connection whose user has received no
// complete message for at least Config.IdleTimeout. Only delivered
// messages reset the timer; control frames such as ping do not.
// Connections still in the HTTP handshake have no user and are not swept.
// A zero IdleTimeout disables the sweep entirely.
func (w *Worker) sweepIdle() {
	if w.Config.IdleTimeout <= 0 {
		return
	}
	now := time.Now()
	w.Users.Range(func(u *chat.User) {
		if u.IdleFor(now) >= w.Config.IdleTimeout && u.Close != nil {
			w.Log.Infof("closing idle connection for user %q", u.ID)
			u.Close()
		}
	})
}

// Close tears the worker's reactor and thread pool down.
func (w *Worker) Close() error {
	if w.pool != nil {
		w.pool.Close()
	}
	return w.reactor.Close()
}

func (w *Worker) handleAcceptable(fd int, dir reactor.Direction, eof bool) {
	for {
		nfd, _, err := unix.Accept(fd)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			w.Log.Errorf("accept: %v", err)
			return
		}
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}
		w.acceptConnection(nfd)
	}
}

func (w *Worker) acceptConnection(fd int) {
	var c *conn.Connection
	c = w.conns.Accept(fd, nil)
	c.OnRead = httpserver.NewConnectionHandler(w.onUpgrade, func(cc *conn.Connection) {
		w.closeConnection(cc)
	})

	if err := w.reactor.Add(fd, reactor.Read, func(fd int, dir reactor.Direction, eof bool) {
		if eof {
			w.closeConnection(c)
			return
		}
		c.Mu.Lock()
		h := c.OnRead
		c.Mu.Unlock()
		if h != nil {
			h(c)
		}
	}); err != nil {
		w.closeConnection(c)
	}
}

func (w *Worker) onUpgrade(c *conn.Connection, req *httpserver.Request) {
	id := req.HeadersIn.SecWebSocketKey.Value
	if len(id) > chat.MaxIDLength {
		id = id[:chat.MaxIDLength]
	}
	user := chat.NewUser(id, id)

	session := wsproto.NewSession(c, func(s *wsproto.Session, payload []byte) {
		user.Touch(time.Now())

		// CPU work (JSON parse, routing) moves off the multiplexer thread
		// onto the worker's thread pool when one is configured, per spec
		// §5. A task handed to the pool gets its own copy of payload, so
		// it shares no memory with the session once this callback returns.
		if w.pool != nil {
			p := append([]byte(nil), payload...)
			if err := w.pool.Submit(func() {
				if err := w.Dispatcher.Handle(user, p); err != nil {
					w.Log.Debugf("dispatch: %v", err)
				}
			}); err != nil {
				w.Log.Debugf("submit: %v", err)
			}
			return
		}

		if err := w.Dispatcher.Handle(user, payload); err != nil {
			w.Log.Debugf("dispatch: %v", err)
		}
	}, func(cc *conn.Connection) {
		w.closeConnection(cc)
	})
	session.Data = user
	user.Send = session.Write
	user.Close = func() {
		w.closeConnection(c)
	}

	w.Users.Add(user)
}

func (w *Worker) closeConnection(c *conn.Connection) {
	if c.Closed() {
		return
	}

	c.Mu.Lock()
	fd := c.FD
	c.Mu.Unlock()

	if session, ok := c.Data.(*wsproto.Session); ok {
		if user, ok := session.Data.(*chat.User); ok {
			if user.Channel != nil {
				user.Channel.Leave(user)
			}
			w.Users.Remove(user.ID)
		}
	}

	w.reactor.Delete(fd)
	c.Close()
	unix.Close(fd)
	w.conns.Release(c)
}
