// File: internal/bufpool/pool.go
// Package bufpool implements the per-connection scoped allocator.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool is a bump allocator bound to the lifetime of one connection: every
// allocation made from a Pool lives as long as the connection, and there is
// no per-object free, only Reset/Destroy of the whole arena. Go has no
// user-space spinlock in the standard library, so the pool's cursor is
// guarded by a sync.Mutex; under the pool's expected contention (one read
// handler and one write handler per connection) this serves the same
// purpose as the C spinlock described by the teacher's design.

package bufpool

import (
	"sync"
	"unsafe"

	"github.com/studease/chatease-ws/api"
)

const wordSize = 8

// chunkSize is the size of each arena slab requested from the runtime.
// Sized to comfortably hold one HTTP handshake's worth of scratch objects.
const chunkSize = 16 * 1024

// Pool is a bump allocator scoped to a single connection.
type Pool struct {
	mu      sync.Mutex
	chunks  [][]byte
	cur     []byte
	off     int
	destroy bool
}

// New creates an empty pool. The first chunk is allocated lazily on first
// use, matching the teacher's lazy-buffer-allocation idiom in
// protocol/connection.go.
func New() *Pool {
	return &Pool{}
}

// Allocate returns size bytes, word-aligned, or nil if the pool has been
// destroyed or size is not positive. Callers must treat a nil
// return as an internal-server-error condition and abort the request.
func (p *Pool) Allocate(size int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroy {
		return nil
	}
	if size <= 0 {
		return nil
	}

	aligned := (size + wordSize - 1) &^ (wordSize - 1)

	if p.cur == nil || p.off+aligned > len(p.cur) {
		csize := chunkSize
		if aligned > csize {
			csize = aligned
		}
		p.cur = make([]byte, csize)
		p.chunks = append(p.chunks, p.cur)
		p.off = 0
	}

	buf := p.cur[p.off : p.off+size : p.off+aligned]
	p.off += aligned
	return buf
}

// AllocateOrError is Allocate with the nil-sentinel failure turned into an
// explicit api.ErrResourceExhausted, for callers that want to propagate an
// error up through a normal Go error return rather than checking for nil.
func (p *Pool) AllocateOrError(size int) ([]byte, error) {
	buf := p.Allocate(size)
	if buf == nil {
		return nil, api.ErrResourceExhausted
	}
	return buf, nil
}

// ZeroAllocate allocates size bytes and zeroes them. Fresh slices from
// make() are already zeroed, so this only matters when a chunk is reused
// after Reset.
func (p *Pool) ZeroAllocate(size int) []byte {
	buf := p.Allocate(size)
	if buf == nil {
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// AllocateString copies src into pool memory and returns a string backed
// by that copy, for callers that would otherwise build a scratch string
// with a bare Go string conversion and bypass the connection's pool
// entirely — the HTTP header parser's per-header Key/LowerKey/Value
// strings (spec §3, "Per-handshake object in the connection pool") are
// the intended caller. A struct containing pointers (a *Request or
// *HeaderEntry itself) cannot be safely placed in this arena the same
// way: the Go garbage collector does not scan a []byte's backing array
// for pointers, so a pointer-bearing struct cast into one would risk the
// collector reclaiming whatever it points to out from under it. Raw byte
// and string content has no such hazard, which is why only that content
// is pool-backed.
func (p *Pool) AllocateString(src []byte) string {
	if len(src) == 0 {
		return ""
	}
	buf := p.Allocate(len(src))
	if buf == nil {
		return string(src)
	}
	copy(buf, src)
	return unsafe.String(&buf[0], len(buf))
}

// Reset rewinds the pool to empty without returning memory to the runtime,
// so a connection can be recycled through a freelist without reallocating
// its first chunk.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.chunks) > 0 {
		p.chunks = p.chunks[:1]
		p.cur = p.chunks[0]
	} else {
		p.cur = nil
	}
	p.off = 0
	p.destroy = false
}

// Destroy releases every chunk. Destroy must run exactly once, on the
// connection-close path, including error paths.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chunks = nil
	p.cur = nil
	p.off = 0
	p.destroy = true
}
