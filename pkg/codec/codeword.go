package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// ChecksumSize is the size of the trailing CRC32 in every codeword.
const ChecksumSize = 4

// Polynomial is the reflected CRC-32 feedback constant (IEEE 802.3).
const Polynomial = 0xedb88320

// CRC32 continues a raw reflected CRC-32 over data. Unlike crc32.ChecksumIEEE
// there is no initial or final inversion, so CRC32(0, p) is a linear function
// of p and XOR differences between checksums depend only on the flipped bits.
func CRC32(crc uint32, data []byte) uint32 {
	// crc32.Update inverts on the way in and out; undo both.
	return ^crc32.Update(^crc, crc32.IEEETable, data)
}

// Codeword is a decoded codeword: the payload and the checksum stored with it.
type Codeword struct {
	Payload []byte // Payload bytes, aliasing the decoded buffer
	CRC32   uint32 // Checksum read from the trailing four bytes
}

// Syndrome returns the XOR of the recomputed and stored checksums.
func (cw *Codeword) Syndrome() uint32 {
	return Verify(cw.Payload, cw.CRC32)
}

// Validate checks the integrity of a codeword using its CRC32
func (cw *Codeword) Validate() error {
	if s := cw.Syndrome(); s != 0 {
		return &ChecksumMismatchError{
			Expected: cw.CRC32,
			Actual:   cw.CRC32 ^ s,
		}
	}
	return nil
}

// ChecksumMismatchError reports a codeword whose payload no longer matches its checksum.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("crc32 mismatch: stored %08x, computed %08x", e.Expected, e.Actual)
}

// Syndrome returns the mismatch between the two checksums.
func (e *ChecksumMismatchError) Syndrome() uint32 {
	return e.Expected ^ e.Actual
}

// Verify recomputes the checksum of payload and XORs it with stored.
// Zero means no corruption was detected.
func Verify(payload []byte, stored uint32) uint32 {
	return CRC32(0, payload) ^ stored
}

// CodewordCodec handles serialization and deserialization of fixed-size codewords
type CodewordCodec struct {
	codeSize int
}

// NewCodewordCodec creates a codec for codewords of codeSize bytes
func NewCodewordCodec(codeSize int) (*CodewordCodec, error) {
	if codeSize <= ChecksumSize {
		return nil, fmt.Errorf("code size %d must be larger than the %d byte checksum", codeSize, ChecksumSize)
	}
	return &CodewordCodec{codeSize: codeSize}, nil
}

// CodeSize returns the size of a codeword in bytes.
func (c *CodewordCodec) CodeSize() int {
	return c.codeSize
}

// PayloadSize returns the number of data bytes carried by one codeword.
func (c *CodewordCodec) PayloadSize() int {
	return c.codeSize - ChecksumSize
}

// CodewordOffset maps a logical payload offset to the offset of the codeword
// containing it.
func (c *CodewordCodec) CodewordOffset(off uint64) uint64 {
	return (off / uint64(c.PayloadSize())) * uint64(c.codeSize)
}

// Encode serializes a payload into a new codeword
// Format: [Payload(code_size-4)][CRC32(4)]
func (c *CodewordCodec) Encode(payload []byte) ([]byte, error) {
	buf := make([]byte, c.codeSize)
	if err := c.EncodeInto(buf, payload); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeInto writes the codeword for payload into dst, which must be at least
// CodeSize bytes long.
func (c *CodewordCodec) EncodeInto(dst, payload []byte) error {
	ps := c.PayloadSize()
	if len(payload) != ps {
		return fmt.Errorf("payload is %d bytes, codeword carries %d", len(payload), ps)
	}
	if len(dst) < c.codeSize {
		return fmt.Errorf("destination too short for codeword: %d < %d", len(dst), c.codeSize)
	}

	crc := CRC32(0, payload)
	copy(dst[:ps], payload)
	binary.LittleEndian.PutUint32(dst[ps:], crc)
	return nil
}

// Decode splits a codeword into its payload and stored checksum. The payload
// aliases data.
func (c *CodewordCodec) Decode(data []byte) (*Codeword, error) {
	if len(data) < c.codeSize {
		return nil, fmt.Errorf("data too short for codeword: %d < %d", len(data), c.codeSize)
	}

	ps := c.PayloadSize()
	return &Codeword{
		Payload: data[:ps],
		CRC32:   binary.LittleEndian.Uint32(data[ps:c.codeSize]),
	}, nil
}
