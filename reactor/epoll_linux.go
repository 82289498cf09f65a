//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7) backed Reactor. Grounded on reactor_linux.go's use of
// golang.org/x/sys/unix with EPOLLET (edge-triggered) and
// epoll_reactor.go's callback-map dispatch shape from the teacher repo.

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const maxEpollEvents = 256

type registration struct {
	dir     Direction
	handler Handler
}

// EpollReactor implements Reactor using Linux epoll in edge-triggered mode.
type EpollReactor struct {
	epfd int

	mu   sync.RWMutex
	regs map[int]*registration
}

// NewEpollReactor creates a new epoll-backed Reactor.
func NewEpollReactor() (*EpollReactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &EpollReactor{
		epfd: epfd,
		regs: make(map[int]*registration),
	}, nil
}

func toEpollEvents(dir Direction) uint32 {
	ev := uint32(unix.EPOLLET)
	if dir&Read != 0 {
		ev |= unix.EPOLLIN
	}
	if dir&Write != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Add registers fd for edge-triggered readiness on dir.
func (r *EpollReactor) Add(fd int, dir Direction, handler Handler) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(dir), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}

	r.mu.Lock()
	r.regs[fd] = &registration{dir: dir, handler: handler}
	r.mu.Unlock()
	return nil
}

// Modify re-arms fd for a new direction set.
func (r *EpollReactor) Modify(fd int, dir Direction) error {
	r.mu.Lock()
	reg, ok := r.regs[fd]
	if ok {
		reg.dir = dir
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("epoll modify: fd %d not registered", fd)
	}

	ev := &unix.EpollEvent{Events: toEpollEvents(dir), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Delete removes fd from the epoll instance.
func (r *EpollReactor) Delete(fd int) error {
	r.mu.Lock()
	delete(r.regs, fd)
	r.mu.Unlock()

	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait blocks for ready events and dispatches them to their handlers.
// Because registration is edge-triggered, each handler is responsible for
// draining its fd until EAGAIN before returning (spec §4.4, §5).
func (r *EpollReactor) Wait(timeoutMs int) error {
	var events [maxEpollEvents]unix.EpollEvent

	n, err := unix.EpollWait(r.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		eof := events[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0

		r.mu.RLock()
		reg, ok := r.regs[fd]
		r.mu.RUnlock()
		if !ok {
			continue
		}

		var dir Direction
		if events[i].Events&unix.EPOLLIN != 0 {
			dir |= Read
		}
		if events[i].Events&unix.EPOLLOUT != 0 {
			dir |= Write
		}
		if dir == 0 && eof {
			dir = reg.dir
		}

		reg.handler(fd, dir, eof)
	}
	return nil
}

// Close releases the epoll file descriptor.
func (r *EpollReactor) Close() error {
	return unix.Close(r.epfd)
}

var _ Reactor = (*EpollReactor)(nil)

// NewReactor is the platform-selected constructor used by the connection
// manager and supervisor.
func NewReactor() (Reactor, error) {
	return NewEpollReactor()
}
