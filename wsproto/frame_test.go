package wsproto_test

import (
	"bytes"
	"testing"

	"github.com/studease/chatease-ws/wsproto"
)

func maskedFrame(opcode byte, fin bool, payload []byte, key [4]byte) []byte {
	b0 := opcode
	if fin {
		b0 |= 0x80
	}
	out := []byte{b0}
	switch {
	case len(payload) <= 125:
		out = append(out, 0x80|byte(len(payload)))
	case len(payload) <= 0xFFFF:
		out = append(out, 0x80|126, byte(len(payload)>>8), byte(len(payload)))
	}
	out = append(out, key[:]...)
	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ key[i%4]
	}
	return append(out, masked...)
}

func TestDecodeSingleTextFrame(t *testing.T) {
	payload := []byte(`{"type":"chat"}`)
	raw := maskedFrame(wsproto.OpcodeText, true, payload, [4]byte{1, 2, 3, 4})

	var d wsproto.Decoder
	n, frame, status := d.Decode(raw, 0)
	if status != wsproto.StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}
	if n != len(raw) {
		t.Fatalf("consumed = %d, want %d", n, len(raw))
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload = %q, want %q", frame.Payload, payload)
	}
	if frame.Opcode != wsproto.OpcodeText || !frame.Fin {
		t.Fatalf("opcode/fin = %d/%v", frame.Opcode, frame.Fin)
	}
}

func TestDecodeResumesAcrossShortReads(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 300) // forces the 16-bit extended length field
	raw := maskedFrame(wsproto.OpcodeBinary, true, payload, [4]byte{9, 8, 7, 6})

	var d wsproto.Decoder
	total := 0
	var frame *wsproto.Frame
	for chunkEnd := 1; chunkEnd <= len(raw) && frame == nil; chunkEnd++ {
		n, f, status := d.Decode(raw[total:chunkEnd], 0)
		if status == wsproto.StatusError {
			t.Fatalf("unexpected error at byte %d", chunkEnd)
		}
		total += n
		if status == wsproto.StatusOK {
			frame = f
		}
	}
	if frame == nil {
		t.Fatal("expected frame to complete by the end of input")
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatal("payload mismatch after resumed decode")
	}
}

func TestDecodeRejectsUnmaskedFrame(t *testing.T) {
	raw := []byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'} // fin|text, unmasked len=5
	var d wsproto.Decoder
	_, _, status := d.Decode(raw, 0)
	if status != wsproto.StatusError {
		t.Fatalf("status = %v, want StatusError for unmasked frame", status)
	}
}

func TestDecodeRejectsOversizedControlFrame(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 126)
	raw := maskedFrame(wsproto.OpcodePing, true, payload, [4]byte{1, 1, 1, 1})
	var d wsproto.Decoder
	_, _, status := d.Decode(raw, 0)
	if status != wsproto.StatusError {
		t.Fatalf("status = %v, want StatusError for oversized control frame", status)
	}
}

func TestDecodeRejectsFragmentedControlFrame(t *testing.T) {
	raw := maskedFrame(wsproto.OpcodePing, false, []byte("hi"), [4]byte{2, 2, 2, 2})
	var d wsproto.Decoder
	_, _, status := d.Decode(raw, 0)
	if status != wsproto.StatusError {
		t.Fatalf("status = %v, want StatusError for fragmented control frame", status)
	}
}

func TestEncodeProducesUnmaskedFrame(t *testing.T) {
	payload := []byte("hello")
	out := wsproto.EncodeText(payload)
	if out[1]&0x80 != 0 {
		t.Fatal("server frames must not set the mask bit")
	}
	if out[0] != 0x80|wsproto.OpcodeText {
		t.Fatalf("header byte = %#x, want fin+text", out[0])
	}
	if !bytes.Equal(out[2:], payload) {
		t.Fatal("payload mismatch in encoded frame")
	}
}

func TestEncodeCloseCarriesCodeAndReason(t *testing.T) {
	out := wsproto.EncodeClose(1000, "bye")
	var d wsproto.Decoder
	// Re-mask it as if a client sent it back, to exercise the decoder
	// against our own encoder's byte layout.
	key := [4]byte{0, 0, 0, 0}
	body := out[2:]
	masked := maskedFrame(wsproto.OpcodeClose, true, body, key)
	_, frame, status := d.Decode(masked, 0)
	if status != wsproto.StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}
	code, reason := uint16(frame.Payload[0])<<8|uint16(frame.Payload[1]), string(frame.Payload[2:])
	if code != 1000 || reason != "bye" {
		t.Fatalf("code/reason = %d/%q, want 1000/bye", code, reason)
	}
}
