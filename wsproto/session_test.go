// File: wsproto/session_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wsproto

import (
	"testing"

	"github.com/studease/chatease-ws/conn"
)

func newTestSession() (*Session, *[][]byte) {
	mgr := conn.NewManager()
	c := mgr.Accept(-1, nil)

	var received [][]byte
	s := &Session{Conn: c, onClose: func(*conn.Connection) {}}
	s.onMessage = func(_ *Session, payload []byte) {
		cp := append([]byte(nil), payload...)
		received = append(received, cp)
	}
	return s, &received
}

func TestHandleFrameUnfragmentedDispatchesImmediately(t *testing.T) {
	s, received := newTestSession()

	ok := s.handleFrame(s.Conn, &Frame{Fin: true, Opcode: OpcodeText, Payload: []byte(`{"a":1}`)})
	if !ok {
		t.Fatal("handleFrame returned false for a well-formed text frame")
	}
	if len(*received) != 1 || string((*received)[0]) != `{"a":1}` {
		t.Fatalf("received = %v, want one frame with the text payload", *received)
	}
}

func TestHandleFrameReassemblesFragments(t *testing.T) {
	s, received := newTestSession()

	if !s.handleFrame(s.Conn, &Frame{Fin: false, Opcode: OpcodeText, Payload: []byte(`{"a"`)}) {
		t.Fatal("first fragment rejected")
	}
	if len(*received) != 0 {
		t.Fatal("onMessage fired before the fragmented message completed")
	}

	if !s.handleFrame(s.Conn, &Frame{Fin: false, Opcode: OpcodeContinuation, Payload: []byte(`:1`)}) {
		t.Fatal("middle continuation frame rejected")
	}
	if !s.handleFrame(s.Conn, &Frame{Fin: true, Opcode: OpcodeContinuation, Payload: []byte(`}`)}) {
		t.Fatal("final continuation frame rejected")
	}

	if len(*received) != 1 || string((*received)[0]) != `{"a":1}` {
		t.Fatalf("received = %v, want the reassembled payload", *received)
	}
}

func TestHandleFramePingInterleavesWithFragment(t *testing.T) {
	s, received := newTestSession()

	s.handleFrame(s.Conn, &Frame{Fin: false, Opcode: OpcodeText, Payload: []byte("ab")})
	if !s.handleFrame(s.Conn, &Frame{Fin: true, Opcode: OpcodePing, Payload: []byte("hi")}) {
		t.Fatal("ping frame in the middle of a fragmented message should not fail the session")
	}
	if !s.handleFrame(s.Conn, &Frame{Fin: true, Opcode: OpcodeContinuation, Payload: []byte("cd")}) {
		t.Fatal("continuation after an interleaved ping should still complete the message")
	}

	if len(*received) != 1 || string((*received)[0]) != "abcd" {
		t.Fatalf("received = %v, want one reassembled \"abcd\" message", *received)
	}
}

func TestHandleFrameRejectsStrayContinuation(t *testing.T) {
	s, _ := newTestSession()

	if s.handleFrame(s.Conn, &Frame{Fin: true, Opcode: OpcodeContinuation, Payload: nil}) {
		t.Fatal("a continuation frame with no fragmented message in progress must fail the session")
	}
}

func TestHandleFrameRejectsNewMessageMidFragment(t *testing.T) {
	s, _ := newTestSession()

	s.handleFrame(s.Conn, &Frame{Fin: false, Opcode: OpcodeText, Payload: []byte("x")})
	if s.handleFrame(s.Conn, &Frame{Fin: true, Opcode: OpcodeBinary, Payload: []byte("y")}) {
		t.Fatal("a new Text/Binary frame while a fragment is in progress must fail the session")
	}
}
