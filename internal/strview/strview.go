// File: internal/strview/strview.go
// Package strview provides byte-string views and the per-connection read
// buffer used by the HTTP parser and WebSocket framer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package strview

import "bytes"

// View is a (pointer, length) pair over a byte slice. It is not required to
// be NUL-terminated; producers that need a C-style terminator write a
// trailing zero into an owning buffer for convenience only.
type View struct {
	Data []byte
}

// NewView wraps b without copying.
func NewView(b []byte) View { return View{Data: b} }

// Len returns the number of bytes in the view.
func (v View) Len() int { return len(v.Data) }

// Equal compares length then bytes, matching the length-then-bytewise
// contract required by the header hash table.
func (v View) Equal(other View) bool {
	if len(v.Data) != len(other.Data) {
		return false
	}
	return bytes.Equal(v.Data, other.Data)
}

// String copies the view into a Go string.
func (v View) String() string { return string(v.Data) }

// Lower returns a new View holding a lowercased copy of v's bytes.
func (v View) Lower() View {
	out := make([]byte, len(v.Data))
	for i, b := range v.Data {
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out[i] = b
	}
	return View{Data: out}
}

// Buffer is a region with a write cursor, matching spec's
// start/last/end triple, with start fixed at offset 0 and end at
// len(Data). The readable range is Data[:Last]; writable capacity is
// len(Data) - Last. Buffers are never reallocated in place: a
// connection replaces Data wholesale under its own lock when it needs to
// grow.
type Buffer struct {
	Data []byte // backing storage, len(Data) == capacity (End - Start)
	Last int    // write cursor, offset into Data
}

// NewBuffer allocates a buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{Data: make([]byte, capacity)}
}

// Readable returns the [0, Last) slice of bytes written so far.
func (b *Buffer) Readable() []byte { return b.Data[:b.Last] }

// Writable returns the remaining capacity starting at Last.
func (b *Buffer) Writable() []byte { return b.Data[b.Last:] }

// Advance moves the write cursor forward by n bytes after a successful
// read into Writable().
func (b *Buffer) Advance(n int) { b.Last += n }

// Reset rewinds the write cursor to the start without reallocating.
func (b *Buffer) Reset() { b.Last = 0 }

// Full reports whether there is no remaining writable capacity.
func (b *Buffer) Full() bool { return b.Last >= len(b.Data) }

// DiscardFront removes the first n bytes of the readable region, shifting
// any remaining unconsumed bytes down to offset 0. Used by protocol
// layers that parse incrementally and must keep the buffer compact
// instead of growing it, e.g. wsproto's frame decoder running indefinitely
// on a long-lived connection.
func (b *Buffer) DiscardFront(n int) {
	if n <= 0 {
		return
	}
	if n >= b.Last {
		b.Last = 0
		return
	}
	copy(b.Data, b.Data[n:b.Last])
	b.Last -= n
}
