// Package sim runs fault-injection campaigns against a block device.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"

	"github.com/ssargent/crcbd/pkg/blockdev"
)

// Options controls a simulation run.
type Options struct {
	Flips  int      // Distinct bits flipped in every codeword
	Seed   int64    // Seed for data and fault positions
	Blocks []uint32 // Blocks to exercise; empty means all
}

// Report summarizes how every read unit fared after fault injection.
type Report struct {
	Blocks        int   `json:"blocks"`
	Codewords     int   `json:"codewords"`
	Flips         int   `json:"flips"`
	Seed          int64 `json:"seed"`
	Reads         int   `json:"reads"`
	Clean         int   `json:"clean"`
	Corrected     int   `json:"corrected"`
	Uncorrectable int   `json:"uncorrectable"`
	Miscorrected  int   `json:"miscorrected"` // read succeeded with wrong data
}

// Run erases and programs each block with pseudo-random data, flips
// opts.Flips bits in every codeword and reads the blocks back one read unit
// at a time.
func Run(dev *blockdev.Device, opts Options) (*Report, error) {
	geom := dev.Geometry()
	cfg := dev.Config()
	codeBits := int(cfg.CodeSize) * 8
	if opts.Flips < 0 || opts.Flips > codeBits {
		return nil, fmt.Errorf("flips must be between 0 and %d, got %d", codeBits, opts.Flips)
	}

	blocks := opts.Blocks
	if len(blocks) == 0 {
		blocks = make([]uint32, geom.BlockCount)
		for i := range blocks {
			blocks[i] = uint32(i)
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	ps := cfg.PayloadSize()
	report := &Report{Blocks: len(blocks), Flips: opts.Flips, Seed: opts.Seed}
	images := make(map[uint32][]byte, len(blocks))

	for _, block := range blocks {
		image := make([]byte, geom.BlockSize)
		rng.Read(image)
		images[block] = image

		if err := dev.Erase(block); err != nil {
			return nil, fmt.Errorf("erase block %d: %w", block, err)
		}
		for off := uint32(0); off < geom.BlockSize; off += geom.ProgSize {
			if err := dev.Prog(block, off, image[off:off+geom.ProgSize]); err != nil {
				return nil, fmt.Errorf("prog block %d: %w", block, err)
			}
		}

		for off := uint32(0); off < geom.BlockSize; off += ps {
			base, err := dev.PhysicalAddr(block, off)
			if err != nil {
				return nil, err
			}
			for _, bit := range pick(rng, codeBits, opts.Flips) {
				if err := dev.FlipBit(base+uint64(bit/8), uint(bit%8)); err != nil {
					return nil, err
				}
			}
			report.Codewords++
		}
	}

	buf := make([]byte, geom.ReadSize)
	for _, block := range blocks {
		image := images[block]
		for off := uint32(0); off < geom.BlockSize; off += geom.ReadSize {
			before := dev.Stats().TotalCorrected()
			err := dev.Read(block, off, buf)
			report.Reads++

			switch {
			case errors.Is(err, blockdev.ErrCorrupt):
				report.Uncorrectable++
			case err != nil:
				return nil, fmt.Errorf("read block %d: %w", block, err)
			case !bytes.Equal(buf, image[off:off+geom.ReadSize]):
				report.Miscorrected++
			case dev.Stats().TotalCorrected() > before:
				report.Corrected++
			default:
				report.Clean++
			}
		}
	}
	return report, nil
}

// pick returns k distinct values from [0, n).
func pick(rng *rand.Rand, n, k int) []int {
	seen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for len(out) < k {
		v := rng.Intn(n)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
