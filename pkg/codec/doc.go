// Package codec provides codeword serialization and deserialization for crcbd.
//
// A codeword is the unit of physical storage on a crcbd block device: a fixed
// number of payload bytes followed by a CRC-32 of that payload.
//
// # Codeword Format
//
//	[Payload(code_size-4)][CRC32(4)]
//
// Fields:
//   - Payload: the caller's data, code_size-4 bytes
//   - CRC32: raw reflected CRC-32 of the payload (little-endian)
//
// # CRC32 Calculation
//
// The checksum uses the reflected IEEE 802.3 polynomial 0xedb88320 with a seed
// of zero and no final inversion. This makes the checksum linear: the XOR of a
// stored and a recomputed checksum (the syndrome) depends only on which bits
// were flipped, not on the data. The ecc package relies on this to locate
// flipped bits.
//
// # Usage
//
//	c, err := codec.NewCodewordCodec(32)
//	if err != nil {
//	    return err
//	}
//
//	encoded, err := c.Encode(payload)
//	if err != nil {
//	    return err
//	}
//
//	cw, err := c.Decode(encoded)
//	if err != nil {
//	    return err
//	}
//	if s := cw.Syndrome(); s != 0 {
//	    // corrupted; hand s to the ecc package
//	}
//
// # Thread Safety
//
// CodewordCodec instances are immutable and safe for concurrent use.
package codec
