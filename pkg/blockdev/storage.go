package blockdev

import (
	"math"
)

// Ownership records whether the device allocated its backing memory.
type Ownership int

const (
	// Owned memory was allocated by the device and is released on Close.
	Owned Ownership = iota
	// Borrowed memory was supplied by the caller and is never released.
	Borrowed
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	default:
		return "unknown"
	}
}

// backend is the flat byte region holding every codeword of the device.
type backend struct {
	ownership Ownership
	data      []byte
}

// newBackend borrows cfg.Buffer if set, otherwise allocates. Either way the
// region is zeroed for reproducibility.
func newBackend(cfg ECCConfig, limit uint64) (*backend, error) {
	size := cfg.Size()

	if cfg.Buffer != nil {
		data := cfg.Buffer[:size]
		clear(data)
		return &backend{ownership: Borrowed, data: data}, nil
	}

	if size > math.MaxInt || (limit > 0 && size > limit) {
		return nil, ErrOutOfMemory
	}
	return &backend{ownership: Owned, data: make([]byte, size)}, nil
}

// release drops owned memory. Borrowed memory stays with the caller.
func (b *backend) release() {
	switch b.ownership {
	case Owned:
		b.data = nil
	case Borrowed:
		// nothing to free
	}
}

func (b *backend) size() uint64 {
	return uint64(len(b.data))
}
