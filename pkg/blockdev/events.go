package blockdev

import (
	"fmt"
	"log/slog"

	"github.com/ssargent/crcbd/pkg/ecc"
)

// EventKind identifies what a correction Event reports.
type EventKind int

const (
	// EventCorrected reports a mismatch that was repaired.
	EventCorrected EventKind = iota + 1
	// EventUncorrectable reports a mismatch that no permitted search explained.
	EventUncorrectable
)

func (k EventKind) String() string {
	switch k {
	case EventCorrected:
		return "corrected"
	case EventUncorrectable:
		return "uncorrectable"
	default:
		return "unknown"
	}
}

// Event describes a checksum mismatch found during a read.
type Event struct {
	Kind     EventKind
	Device   string
	Block    uint32
	Off      uint32 // Logical payload offset within the block
	CodeOff  uint64 // Codeword offset within the backend
	Size     uint32 // Payload bytes in the codeword
	Bits     []int  // Codeword bits flipped, for EventCorrected
	Computed uint32
	Stored   uint32
}

// EventSink receives correction events. Sinks are called synchronously from
// Read and must not call back into the device.
type EventSink interface {
	Observe(Event)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Observe(e Event) {
	f(e)
}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Observe(e Event) {
	for _, s := range m {
		s.Observe(e)
	}
}

// LogSink writes events to a structured logger: corrections at debug,
// uncorrectable mismatches at warn.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Observe(e Event) {
	switch e.Kind {
	case EventCorrected:
		s.logger.Debug("found correctable crc32 error",
			"device", e.Device,
			"block", e.Block,
			"off", e.CodeOff,
			"size", e.Size,
			"bits", e.Bits,
		)
	case EventUncorrectable:
		s.logger.Warn("found uncorrectable crc32 mismatch",
			"device", e.Device,
			"block", e.Block,
			"off", e.CodeOff,
			"size", e.Size,
			"crc32", fmt.Sprintf("%08x", e.Computed),
			"stored", fmt.Sprintf("%08x", e.Stored),
		)
	}
}

// Stats counts device operations and correction outcomes.
type Stats struct {
	Reads         uint64                  `json:"reads"`
	Progs         uint64                  `json:"progs"`
	Erases        uint64                  `json:"erases"`
	Syncs         uint64                  `json:"syncs"`
	Corrected     [ecc.MaxBits + 1]uint64 `json:"corrected"` // indexed by bit count
	Uncorrectable uint64                  `json:"uncorrectable"`
}

// TotalCorrected returns the number of corrected codewords of any bit count.
func (s Stats) TotalCorrected() uint64 {
	var n uint64
	for _, c := range s.Corrected {
		n += c
	}
	return n
}
