package blockdev

import (
	"fmt"
	"log/slog"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/crcbd/pkg/codec"
	"github.com/ssargent/crcbd/pkg/ecc"
)

// BlockDevice is the contract a filesystem uses to talk to its storage.
type BlockDevice interface {
	// Read fills buf from block starting at logical offset off.
	Read(block, off uint32, buf []byte) error

	// Prog programs buf into block starting at logical offset off. The range
	// must have been erased since it was last programmed.
	Prog(block, off uint32, buf []byte) error

	// Erase erases a block. The state of an erased block is undefined.
	Erase(block uint32) error

	// Sync flushes pending writes.
	Sync() error
}

var _ BlockDevice = (*Device)(nil)

// Device is a RAM block device that stores every payload in a CRC-32
// protected codeword and corrects small bit errors on read.
//
// A Device is not safe for concurrent use; callers serialize access.
type Device struct {
	id        ksuid.KSUID
	geom      Geometry
	cfg       ECCConfig
	codec     *codec.CodewordCodec
	corrector *ecc.Corrector
	storage   *backend
	logger    *slog.Logger
	sink      EventSink
	stats     Stats
	closed    bool
}

// New validates the configuration and creates a zeroed device. No device is
// returned if the configuration is rejected or memory cannot be allocated.
func New(geom Geometry, cfg ECCConfig, opts ...Option) (*Device, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if err := Validate(geom, cfg); err != nil {
		return nil, err
	}

	cdc, err := codec.NewCodewordCodec(int(cfg.CodeSize))
	if err != nil {
		return nil, &ConfigError{"CodeSize", err.Error()}
	}

	storage, err := newBackend(cfg, o.memoryLimit)
	if err != nil {
		o.logger.Debug("block device allocation failed", "size", cfg.Size(), "err", err)
		return nil, err
	}

	// keep a snapshot without the caller's buffer
	snapshot := cfg
	snapshot.Buffer = nil

	d := &Device{
		id:    ksuid.New(),
		geom:  geom,
		cfg:   snapshot,
		codec: cdc,
		corrector: ecc.NewCorrector(int(cfg.CodeSize), ecc.Policy{
			Strength: cfg.CorrectionStrength,
			ReadSize: uint64(geom.ReadSize),
		}),
		storage: storage,
		logger:  o.logger,
		sink:    append(MultiSink{NewLogSink(o.logger)}, o.sinks...),
	}

	d.logger.Debug("created block device",
		"device", d.id.String(),
		"code_size", cfg.CodeSize,
		"erase_size", cfg.EraseSize,
		"erase_count", cfg.EraseCount,
		"correction_strength", cfg.CorrectionStrength,
		"buffer", storage.ownership.String(),
	)
	return d, nil
}

// ID returns the device's instance identifier.
func (d *Device) ID() ksuid.KSUID {
	return d.id
}

// Geometry returns the caller geometry the device was created with.
func (d *Device) Geometry() Geometry {
	return d.geom
}

// Config returns the ECC configuration, without any caller buffer.
func (d *Device) Config() ECCConfig {
	return d.cfg
}

// Ownership reports whether the backend is owned or borrowed.
func (d *Device) Ownership() Ownership {
	return d.storage.ownership
}

// Policy returns the correction policy derived from the configuration.
func (d *Device) Policy() ecc.Policy {
	return d.corrector.Policy()
}

// Size returns the size of the backend in bytes.
func (d *Device) Size() uint64 {
	return d.cfg.Size()
}

// Stats returns a copy of the operation counters.
func (d *Device) Stats() Stats {
	return d.stats
}

// Close releases owned memory. A borrowed buffer is left with the caller.
// Further operations return ErrClosed.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.storage.release()
	d.closed = true
	d.logger.Debug("destroyed block device", "device", d.id.String())
	return nil
}

// Read reads size bytes of payload from block at off into buf, one codeword
// at a time. Mismatched codewords are corrected in buf when the policy
// allows; otherwise Read stops with a *CorruptError and the codewords before
// the bad one stay in buf.
func (d *Device) Read(block, off uint32, buf []byte) error {
	if err := d.check("read", block, off, len(buf), d.geom.ReadSize); err != nil {
		return err
	}
	d.logger.Debug("read", "device", d.id.String(), "block", block, "off", off, "size", len(buf))
	d.stats.Reads++

	cs := uint64(d.codec.CodeSize())
	ps := d.codec.PayloadSize()
	for done := 0; done < len(buf); done += ps {
		lo := off + uint32(done)
		co := d.codewordAddr(block, lo)

		cw, err := d.codec.Decode(d.storage.data[co : co+cs])
		if err != nil {
			return fmt.Errorf("decode codeword at %d: %w", co, err)
		}

		out := buf[done : done+ps]
		copy(out, cw.Payload)
		syndrome := codec.Verify(out, cw.CRC32)
		if syndrome == 0 {
			continue
		}

		event := Event{
			Device:   d.id.String(),
			Block:    block,
			Off:      lo,
			CodeOff:  co,
			Size:     uint32(ps),
			Computed: syndrome ^ cw.CRC32,
			Stored:   cw.CRC32,
		}

		corr, ok := d.corrector.Correct(syndrome, out)
		if !ok {
			d.stats.Uncorrectable++
			event.Kind = EventUncorrectable
			d.sink.Observe(event)
			return &CorruptError{
				Block:    block,
				Off:      lo,
				CodeOff:  co,
				Computed: event.Computed,
				Stored:   event.Stored,
			}
		}

		d.stats.Corrected[corr.Count()]++
		event.Kind = EventCorrected
		event.Bits = corr.Bits
		d.sink.Observe(event)
	}
	return nil
}

// Prog encodes buf into codewords and writes them to block at off.
func (d *Device) Prog(block, off uint32, buf []byte) error {
	if err := d.check("prog", block, off, len(buf), d.geom.ProgSize); err != nil {
		return err
	}
	d.logger.Debug("prog", "device", d.id.String(), "block", block, "off", off, "size", len(buf))
	d.stats.Progs++

	cs := uint64(d.codec.CodeSize())
	ps := d.codec.PayloadSize()
	for done := 0; done < len(buf); done += ps {
		co := d.codewordAddr(block, off+uint32(done))
		if err := d.codec.EncodeInto(d.storage.data[co:co+cs], buf[done:done+ps]); err != nil {
			return fmt.Errorf("encode codeword at %d: %w", co, err)
		}
	}
	return nil
}

// Erase checks block and otherwise does nothing: RAM needs no clearing, so an
// erased block keeps whatever was last programmed.
func (d *Device) Erase(block uint32) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if block >= d.geom.BlockCount {
		return &ArgumentError{Op: "erase", Block: block, Reason: "block out of range"}
	}
	d.logger.Debug("erase", "device", d.id.String(), "block", block, "size", d.cfg.EraseSize)
	d.stats.Erases++
	return nil
}

// Sync does nothing; there is no write-back state in memory.
func (d *Device) Sync() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.stats.Syncs++
	return nil
}

// PhysicalAddr returns the backend byte address holding the payload byte at
// logical offset off of block.
func (d *Device) PhysicalAddr(block, off uint32) (uint64, error) {
	if err := d.checkOpen(); err != nil {
		return 0, err
	}
	if block >= d.geom.BlockCount {
		return 0, &ArgumentError{Op: "addr", Block: block, Off: off, Reason: "block out of range"}
	}
	if off >= d.geom.BlockSize {
		return 0, &ArgumentError{Op: "addr", Block: block, Off: off, Reason: "offset past end of block"}
	}
	ps := uint64(d.codec.PayloadSize())
	return d.codewordAddr(block, off) + uint64(off)%ps, nil
}

// FlipBit inverts one bit of the backend, bypassing the codec. It exists to
// inject media errors.
func (d *Device) FlipBit(addr uint64, bit uint) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if addr >= d.storage.size() || bit > 7 {
		return &ArgumentError{
			Op:     "flip",
			Reason: fmt.Sprintf("bit %d of byte %d is outside the %d byte device", bit, addr, d.storage.size()),
		}
	}
	d.storage.data[addr] ^= 1 << bit
	return nil
}

// codewordAddr maps a logical offset within block to the backend offset of
// the codeword holding it.
func (d *Device) codewordAddr(block, off uint32) uint64 {
	return d.codec.CodewordOffset(uint64(block)*uint64(d.geom.BlockSize) + uint64(off))
}

func (d *Device) checkOpen() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

// check enforces the block device contract for a read or prog.
func (d *Device) check(op string, block, off uint32, size int, unit uint32) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	reason := ""
	switch {
	case block >= d.geom.BlockCount:
		reason = fmt.Sprintf("block out of range (count %d)", d.geom.BlockCount)
	case off%unit != 0:
		reason = fmt.Sprintf("offset not aligned to %d", unit)
	case uint64(size)%uint64(unit) != 0:
		reason = fmt.Sprintf("size not aligned to %d", unit)
	case uint64(off)+uint64(size) > uint64(d.geom.BlockSize):
		reason = fmt.Sprintf("range exceeds block size %d", d.geom.BlockSize)
	default:
		return nil
	}
	return &ArgumentError{Op: op, Block: block, Off: off, Size: size, Reason: reason}
}
