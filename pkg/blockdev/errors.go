package blockdev

import "fmt"

// Errors
var (
	ErrConfig          = &DeviceError{"invalid configuration"}
	ErrOutOfMemory     = &DeviceError{"out of memory"}
	ErrCorrupt         = &DeviceError{"corrupt data"}
	ErrInvalidArgument = &DeviceError{"invalid argument"}
	ErrClosed          = &DeviceError{"device is closed"}
)

// DeviceError represents a block device error
type DeviceError struct {
	Message string
}

func (e *DeviceError) Error() string {
	return e.Message
}

// ConfigError indicates that a geometry or correction setting was rejected at
// creation. It matches ErrConfig.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ArgumentError indicates a call that breaks the block device contract: a
// block past the end of the device or an offset or size that is not aligned to
// the read or prog size. No data is touched. It matches ErrInvalidArgument.
type ArgumentError struct {
	Op     string
	Block  uint32
	Off    uint32
	Size   int
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s 0x%x.%x %d: %s", e.Op, e.Block, e.Off, e.Size, e.Reason)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// CorruptError indicates a codeword whose checksum mismatch could not be
// corrected within the allowed number of bits. It matches ErrCorrupt.
type CorruptError struct {
	Block    uint32 // Block being read
	Off      uint32 // Logical offset of the codeword's payload within the block
	CodeOff  uint64 // Byte offset of the codeword within the backend
	Computed uint32 // Checksum of the payload as read
	Stored   uint32 // Checksum stored with the payload
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt data at 0x%x.%x: crc32 %08x (!= %08x)",
		e.Block, e.Off, e.Computed, e.Stored)
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// Syndrome returns the XOR of the computed and stored checksums.
func (e *CorruptError) Syndrome() uint32 {
	return e.Computed ^ e.Stored
}
