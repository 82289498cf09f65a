// File: wsproto/encoder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server-to-client frames are always sent as a single unmasked frame per
// spec §4.7 — this server never fragments outbound messages. Grounded on
// protocol/frame.go's EncodeFrame bit layout, with the masking branch
// dropped since a server never masks.

package wsproto

import "encoding/binary"

// Encode renders opcode/payload as one final, unmasked frame.
func Encode(opcode byte, payload []byte) []byte {
	var header []byte
	switch {
	case len(payload) <= 125:
		header = make([]byte, 2)
		header[1] = byte(len(payload))
	case len(payload) <= 0xFFFF:
		header = make([]byte, 4)
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:], uint16(len(payload)))
	default:
		header = make([]byte, 10)
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:], uint64(len(payload)))
	}
	header[0] = finBit | opcode

	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

// EncodeText is a convenience wrapper for the common case of sending one
// JSON-encoded chat message.
func EncodeText(payload []byte) []byte { return Encode(OpcodeText, payload) }

// EncodeClose renders a close frame carrying the given status code and an
// optional UTF-8 reason, per RFC 6455 §5.5.1.
func EncodeClose(code uint16, reason string) []byte {
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, code)
	copy(payload[2:], reason)
	return Encode(OpcodeClose, payload)
}
