// Package blockdev implements a RAM block device with CRC-32 error detection
// and bounded error correction.
//
// The caller addresses the device in payload bytes using its own read, prog
// and block sizes. Physically every payload of code_size-4 bytes is stored in
// a codeword followed by its checksum, so a logical offset off maps to the
// codeword at (off/payload_size)*code_size within the block's erase unit.
//
// On read each codeword is verified. A mismatch is handed to the ecc package,
// which flips up to one, two or three bits depending on the configured
// correction strength and how far the read size is inside the CRC-32
// polynomial's Hamming distance bounds. If nothing matches, Read returns a
// *CorruptError.
//
// # Errors
//
// Configuration problems are reported by New as *ConfigError. Calls that break
// the block device contract (block out of range, misaligned offset or size)
// return *ArgumentError without touching any data; they indicate a bug in the
// caller and should not be retried. Use errors.Is with ErrConfig,
// ErrInvalidArgument, ErrCorrupt, ErrOutOfMemory and ErrClosed.
//
// # Thread Safety
//
// A Device performs no locking. Callers must serialize access.
package blockdev
