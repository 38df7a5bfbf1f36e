package codec

import (
	"bytes"
	"errors"
	"hash/crc32"
	"testing"
)

func TestCRC32_KnownValues(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want uint32
	}{
		{name: "empty", data: nil, want: 0},
		{name: "zero bytes", data: make([]byte, 16), want: 0},
		{name: "low bit of single byte", data: []byte{0x01}, want: 0x77073096},
		{name: "high bit of single byte", data: []byte{0x80}, want: Polynomial},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CRC32(0, tc.data); got != tc.want {
				t.Errorf("CRC32 = %08x, want %08x", got, tc.want)
			}
		})
	}
}

func TestCRC32_MatchesIEEEWithInversion(t *testing.T) {
	data := []byte("123456789")

	if got := ^CRC32(0xffffffff, data); got != 0xcbf43926 {
		t.Errorf("inverted CRC32 = %08x, want cbf43926", got)
	}
	if got := ^CRC32(0xffffffff, data); got != crc32.ChecksumIEEE(data) {
		t.Errorf("inverted CRC32 = %08x, want %08x", got, crc32.ChecksumIEEE(data))
	}
}

func TestCRC32_Linear(t *testing.T) {
	a := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	b := []byte{0x00, 0x80, 0x00, 0x01, 0xf0, 0x0f}
	x := make([]byte, len(a))
	for i := range a {
		x[i] = a[i] ^ b[i]
	}

	if CRC32(0, x) != CRC32(0, a)^CRC32(0, b) {
		t.Error("CRC32 is not linear over XOR")
	}
}

func TestCRC32_Incremental(t *testing.T) {
	data := []byte("hello, codeword")
	whole := CRC32(0, data)
	split := CRC32(CRC32(0, data[:5]), data[5:])
	if whole != split {
		t.Errorf("incremental CRC32 = %08x, want %08x", split, whole)
	}
}

func TestNewCodewordCodec(t *testing.T) {
	for _, size := range []int{-1, 0, 1, 4} {
		if _, err := NewCodewordCodec(size); err == nil {
			t.Errorf("expected error for code size %d", size)
		}
	}

	c, err := NewCodewordCodec(8)
	if err != nil {
		t.Fatalf("NewCodewordCodec failed: %v", err)
	}
	if c.CodeSize() != 8 {
		t.Errorf("CodeSize = %d, want 8", c.CodeSize())
	}
	if c.PayloadSize() != 4 {
		t.Errorf("PayloadSize = %d, want 4", c.PayloadSize())
	}
}

func TestCodewordCodec_EncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		codeSize int
		payload  []byte
	}{
		{name: "smallest codeword", codeSize: 5, payload: []byte{0xa5}},
		{name: "four byte payload", codeSize: 8, payload: []byte{0x44, 0x33, 0x22, 0x11}},
		{name: "zero payload", codeSize: 16, payload: make([]byte, 12)},
		{name: "all ones", codeSize: 12, payload: bytes.Repeat([]byte{0xff}, 8)},
		{name: "text", codeSize: 32, payload: []byte("a twenty-eight byte payload.")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewCodewordCodec(tc.codeSize)
			if err != nil {
				t.Fatalf("NewCodewordCodec failed: %v", err)
			}

			encoded, err := c.Encode(tc.payload)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) != tc.codeSize {
				t.Fatalf("encoded length = %d, want %d", len(encoded), tc.codeSize)
			}

			cw, err := c.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(cw.Payload, tc.payload) {
				t.Errorf("Payload mismatch: got %x, want %x", cw.Payload, tc.payload)
			}
			if cw.CRC32 != CRC32(0, tc.payload) {
				t.Errorf("CRC32 mismatch: got %08x, want %08x", cw.CRC32, CRC32(0, tc.payload))
			}
			if s := cw.Syndrome(); s != 0 {
				t.Errorf("Syndrome = %08x, want 0", s)
			}
			if err := cw.Validate(); err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestCodewordCodec_ChecksumIsLittleEndian(t *testing.T) {
	c, _ := NewCodewordCodec(8)
	payload := []byte{0x80, 0x00, 0x00, 0x00}

	encoded, err := c.Encode(payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	crc := CRC32(0, payload)
	want := []byte{byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24)}
	if !bytes.Equal(encoded[4:], want) {
		t.Errorf("checksum bytes = %x, want %x", encoded[4:], want)
	}
}

func TestCodewordCodec_EncodeErrors(t *testing.T) {
	c, _ := NewCodewordCodec(8)

	if _, err := c.Encode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short payload")
	}
	if _, err := c.Encode([]byte{1, 2, 3, 4, 5}); err == nil {
		t.Error("expected error for long payload")
	}
	if err := c.EncodeInto(make([]byte, 7), []byte{1, 2, 3, 4}); err == nil {
		t.Error("expected error for short destination")
	}
}

func TestCodewordCodec_DecodeErrors(t *testing.T) {
	c, _ := NewCodewordCodec(8)
	if _, err := c.Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short codeword")
	}
}

func TestCodeword_CorruptionDetected(t *testing.T) {
	c, _ := NewCodewordCodec(16)
	payload := []byte("twelve bytes")

	for bit := 0; bit < c.CodeSize()*8; bit++ {
		encoded, err := c.Encode(payload)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		encoded[bit/8] ^= 1 << (bit % 8)

		cw, err := c.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		err = cw.Validate()
		var mismatch *ChecksumMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("bit %d: expected ChecksumMismatchError, got %v", bit, err)
		}
		if mismatch.Syndrome() != cw.Syndrome() {
			t.Errorf("bit %d: error syndrome %08x != codeword syndrome %08x",
				bit, mismatch.Syndrome(), cw.Syndrome())
		}
	}
}

func TestCodewordCodec_CodewordOffset(t *testing.T) {
	c, _ := NewCodewordCodec(8)

	testCases := []struct {
		off  uint64
		want uint64
	}{
		{0, 0},
		{3, 0},
		{4, 8},
		{8, 16},
		{13, 24},
	}
	for _, tc := range testCases {
		if got := c.CodewordOffset(tc.off); got != tc.want {
			t.Errorf("CodewordOffset(%d) = %d, want %d", tc.off, got, tc.want)
		}
	}
}
