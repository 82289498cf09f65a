package conn_test

import (
	"testing"

	"github.com/studease/chatease-ws/conn"
)

func TestAcceptCloseRecycle(t *testing.T) {
	mgr := conn.NewManager()

	called := false
	c := mgr.Accept(42, func(c *conn.Connection) { called = true })
	if c.FD != 42 {
		t.Fatalf("FD = %d, want 42", c.FD)
	}
	if c.Pool == nil {
		t.Fatal("expected pool to be allocated on accept")
	}

	c.OnRead(c)
	if !called {
		t.Fatal("expected OnRead to fire")
	}

	c.Close()
	if c.FD != -1 {
		t.Fatalf("FD after close = %d, want -1", c.FD)
	}
	if !c.Closed() {
		t.Fatal("expected Closed() true after Close")
	}

	// Double close must be a no-op, not a panic.
	c.Close()

	mgr.Release(c)
	c2 := mgr.Accept(7, nil)
	if c2.FD != 7 {
		t.Fatalf("recycled connection FD = %d, want 7", c2.FD)
	}
}

func TestBufferLazyAllocationSurvivesReentry(t *testing.T) {
	mgr := conn.NewManager()
	c := mgr.Accept(1, nil)

	buf := c.EnsureBuffer(128)
	if len(buf.Data) != 128 {
		t.Fatalf("buffer capacity = %d, want 128", len(buf.Data))
	}
	buf.Advance(10)

	// A handshake spanning more than one read re-enters the read handler,
	// which calls EnsureBuffer again; the bytes already buffered must
	// survive that re-entry rather than being wiped by a reset.
	buf2 := c.EnsureBuffer(128)
	if buf2 != buf {
		t.Fatal("EnsureBuffer should not reallocate an existing buffer")
	}
	if buf2.Last != 10 {
		t.Fatalf("expected buffered bytes to survive re-entry, Last = %d, want 10", buf2.Last)
	}
}
