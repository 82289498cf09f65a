package httpserver_test

import (
	"strings"
	"testing"

	"github.com/studease/chatease-ws/httpserver"
)

func sampleRequest(keyLine string) []byte {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		keyLine +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
	return []byte(req)
}

func TestProcessBufferedWholeRequestOneShot(t *testing.T) {
	r := httpserver.NewRequest()
	data := sampleRequest("Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n")

	if st := r.ProcessBuffered(data); st != httpserver.StatusDone {
		t.Fatalf("status = %v, want StatusDone", st)
	}
	if r.Method != "GET" || r.URI != "/chat" {
		t.Fatalf("method/uri = %q/%q", r.Method, r.URI)
	}
	if r.VerMaj != 1 || r.VerMin != 1 {
		t.Fatalf("version = %d.%d, want 1.1", r.VerMaj, r.VerMin)
	}
	if r.HeadersIn.Host == nil || r.HeadersIn.Host.Value != "example.com" {
		t.Fatal("expected Host header to be captured")
	}
	if r.HeadersIn.ConnectionType != httpserver.ConnectionUpgrade {
		t.Fatal("expected Connection: Upgrade to be recognized")
	}
	if r.HeadersIn.SecWebSocketKey == nil {
		t.Fatal("expected Sec-WebSocket-Key to be captured")
	}
}

func TestProcessBufferedResumesAcrossReads(t *testing.T) {
	full := sampleRequest("Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n")
	split := len(full) / 2

	r := httpserver.NewRequest()
	if st := r.ProcessBuffered(full[:split]); st != httpserver.StatusAgain {
		t.Fatalf("first chunk status = %v, want StatusAgain", st)
	}
	if st := r.ProcessBuffered(full); st != httpserver.StatusDone {
		t.Fatalf("second chunk status = %v, want StatusDone", st)
	}
	if r.HeadersIn.SecWebSocketKey == nil {
		t.Fatal("expected key to be recovered after resuming")
	}
}

func TestDuplicateHostHeaderIsRejected(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\n" +
		"Host: a.example\r\n" +
		"Host: b.example\r\n" +
		"\r\n")
	r := httpserver.NewRequest()
	if st := r.ProcessBuffered(data); st != httpserver.StatusDone {
		t.Fatalf("status = %v, want StatusDone", st)
	}
	if ok := r.Validate(); ok {
		t.Fatal("expected validation to reject a duplicate Host header")
	}
	if r.HeadersOut.Status != httpserver.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", r.HeadersOut.Status)
	}
}

func TestHeaderArrivalOrderPreserved(t *testing.T) {
	data := sampleRequest("Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n")
	r := httpserver.NewRequest()
	r.ProcessBuffered(data)

	var order []string
	r.Headers.Each(func(h *httpserver.HeaderEntry) { order = append(order, h.LowerKey) })
	want := []string{"host", "upgrade", "connection", "sec-websocket-key", "sec-websocket-version"}
	if len(order) != len(want) {
		t.Fatalf("got %d headers, want %d: %v", len(order), len(want), order)
	}
	for i, k := range want {
		if order[i] != k {
			t.Fatalf("header[%d] = %q, want %q", i, order[i], k)
		}
	}
}

func TestConnectionWithoutUpgradeTokenMarksNotImplemented(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: keep-alive\r\n" +
		"\r\n")
	r := httpserver.NewRequest()
	if st := r.ProcessBuffered(data); st != httpserver.StatusDone {
		t.Fatalf("status = %v, want StatusDone", st)
	}
	ok := r.Validate()
	if ok {
		t.Fatal("expected validation to fail")
	}
	if r.HeadersOut.Status != httpserver.StatusNotImplemented {
		t.Fatalf("status code = %d, want 501", r.HeadersOut.Status)
	}
}

func TestMissingConnectionHeaderYields400NotNotImplemented(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"\r\n")
	r := httpserver.NewRequest()
	if st := r.ProcessBuffered(data); st != httpserver.StatusDone {
		t.Fatalf("status = %v, want StatusDone", st)
	}
	ok := r.Validate()
	if ok {
		t.Fatal("expected validation to fail")
	}
	if r.HeadersOut.Status != httpserver.StatusBadRequest {
		t.Fatalf("status code = %d, want 400 when Connection header is absent entirely", r.HeadersOut.Status)
	}
}

func TestMalformedRequestLineIsRejected(t *testing.T) {
	r := httpserver.NewRequest()
	st := r.ProcessBuffered([]byte("GET\r\n\r\n"))
	if st != httpserver.StatusError {
		t.Fatalf("status = %v, want StatusError", st)
	}
}

func TestWhitespaceInHeaderNameIsRejected(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nBad Name: value\r\n\r\n")
	r := httpserver.NewRequest()
	if st := r.ProcessBuffered(data); st != httpserver.StatusError {
		t.Fatalf("status = %v, want StatusError", st)
	}
}

func TestLowerHttpVersionYields505(t *testing.T) {
	data := []byte("GET / HTTP/1.0\r\nHost: example.com\r\n\r\n")
	r := httpserver.NewRequest()
	r.ProcessBuffered(data)
	if ok := r.Validate(); ok {
		t.Fatal("expected HTTP/1.0 to fail the upgrade gate")
	}
	if r.HeadersOut.Status != httpserver.StatusVersionNotSupported {
		t.Fatalf("status code = %d, want 505", r.HeadersOut.Status)
	}
}

func TestBuildResponseSwitchingProtocols(t *testing.T) {
	data := sampleRequest("Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n")
	r := httpserver.NewRequest()
	r.ProcessBuffered(data)
	if !r.Validate() {
		t.Fatalf("expected handshake to validate, got status %d", r.HeadersOut.Status)
	}
	resp := string(httpserver.BuildResponse(r))
	if !strings.HasPrefix(resp, "HTTP/1.1 101 Switching Protocols\r\n") {
		t.Fatalf("unexpected response: %q", resp)
	}
	if !strings.Contains(resp, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=") {
		t.Fatalf("unexpected accept key in response: %q", resp)
	}
}
