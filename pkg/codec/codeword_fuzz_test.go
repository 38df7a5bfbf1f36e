//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"testing"
)

// FuzzCodewordCodec_RoundTrip tests encode/decode round-trip with random payloads
func FuzzCodewordCodec_RoundTrip(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x44, 0x33, 0x22, 0x11})
	f.Add([]byte("a twenty-eight byte payload."))

	f.Fuzz(func(t *testing.T, payload []byte) {
		if len(payload) == 0 || len(payload) > 4096 {
			t.Skip("payload size out of range")
		}

		c, err := NewCodewordCodec(len(payload) + ChecksumSize)
		if err != nil {
			t.Fatalf("NewCodewordCodec failed: %v", err)
		}

		encoded, err := c.Encode(payload)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		cw, err := c.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if !bytes.Equal(cw.Payload, payload) {
			t.Errorf("Payload mismatch: got %x, want %x", cw.Payload, payload)
		}
		if err := cw.Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
	})
}

// FuzzCodewordCodec_CorruptionDetection tests that any single bit flip is detected
func FuzzCodewordCodec_CorruptionDetection(f *testing.F) {
	f.Add([]byte{0x44, 0x33, 0x22, 0x11}, uint(0))
	f.Add([]byte("twelve bytes"), uint(95))

	f.Fuzz(func(t *testing.T, payload []byte, bit uint) {
		if len(payload) == 0 || len(payload) > 4096 {
			t.Skip("payload size out of range")
		}

		c, err := NewCodewordCodec(len(payload) + ChecksumSize)
		if err != nil {
			t.Fatalf("NewCodewordCodec failed: %v", err)
		}

		encoded, err := c.Encode(payload)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		bit %= uint(len(encoded) * 8)
		encoded[bit/8] ^= 1 << (bit % 8)

		cw, err := c.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if err := cw.Validate(); err == nil {
			t.Errorf("flip of bit %d went undetected", bit)
		}
	})
}
