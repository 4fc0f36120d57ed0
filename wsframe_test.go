/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Tests for the RFC 6455 handshake and frame codec
 */

package main

import (
	"bytes"
	"testing"
)

// RFC 6455 section 1.3's worked example (spec.md scenario 1).
func TestComputeAcceptRFCExample(t *testing.T) {
	got := computeAccept("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("computeAccept() = %q, want %q", got, want)
	}
}

// spec.md invariant 3 / scenario 5: a 200-byte payload frame begins
// with 0x81, 0x7E, 0x00, 0xC8.
func TestWriteFrame200BytePrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, wsOpText, make([]byte, 200)); err != nil {
		t.Fatal(err)
	}

	got := buf.Bytes()[:4]
	want := []byte{0x81, 0x7E, 0x00, 0xC8}
	if !bytes.Equal(got, want) {
		t.Fatalf("prefix = % x, want % x", got, want)
	}
}

// Boundary cases for the minimal-length encoding invariant.
func TestWriteFrameLengthEncodingBoundaries(t *testing.T) {
	cases := []struct {
		n          int
		wantPrefix []byte
	}{
		{0, []byte{0x81, 0x00}},
		{125, []byte{0x81, 0x7D}},
		{126, []byte{0x81, 0x7E, 0x00, 0x7E}},
		{65535, []byte{0x81, 0x7E, 0xFF, 0xFF}},
		{65536, []byte{0x81, 0x7F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		if err := writeFrame(&buf, wsOpText, make([]byte, c.n)); err != nil {
			t.Fatal(err)
		}
		got := buf.Bytes()[:len(c.wantPrefix)]
		if !bytes.Equal(got, c.wantPrefix) {
			t.Errorf("n=%d: prefix = % x, want % x", c.n, got, c.wantPrefix)
		}
	}
}

// decode(encode(m)) == m for a masked client-style frame, round-trip
// law from spec.md section 8.
func TestFrameRoundTrip(t *testing.T) {
	messages := []string{
		"",
		"open",
		"send:op=0x1014,p1=0xD200,size=4",
		string(make([]byte, 70000)), // exercises the 64-bit length path
	}

	for _, m := range messages {
		payload := []byte(m)
		masked := maskPayload(payload, [4]byte{0x12, 0x34, 0x56, 0x78})

		var buf bytes.Buffer
		buf.WriteByte(0x81) // FIN=1, opcode=text
		writeMaskedHeader(&buf, len(payload))
		buf.Write([4]byte{0x12, 0x34, 0x56, 0x78}[:])
		buf.Write(masked)

		f, err := readFrame(&buf)
		if err != nil {
			t.Fatalf("readFrame: %v", err)
		}
		if string(f.Payload) != m {
			t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(f.Payload), len(m))
		}
	}
}

// maskPayload XORs payload with the repeating 4-byte mask, used only
// by the test to construct client-style masked frames.
func maskPayload(payload []byte, mask [4]byte) []byte {
	out := make([]byte, len(payload))
	for i, b := range payload {
		out[i] = b ^ mask[i%4]
	}
	return out
}

// writeMaskedHeader writes the length byte(s) with the MASK bit set,
// mirroring a real client's encoding, for use by TestFrameRoundTrip.
func writeMaskedHeader(buf *bytes.Buffer, n int) {
	switch {
	case n < 126:
		buf.WriteByte(0x80 | byte(n))
	case n <= 0xFFFF:
		buf.WriteByte(0x80 | 126)
		buf.WriteByte(byte(n >> 8))
		buf.WriteByte(byte(n))
	default:
		buf.WriteByte(0x80 | 127)
		for i := 7; i >= 0; i-- {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	}
}

func TestReadFrameRejectsTruncatedHeader(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x81})
	if _, err := readFrame(buf); err == nil {
		t.Fatal("expected error on truncated header")
	}
}
