package ecc

import (
	"github.com/ssargent/crcbd/pkg/codec"
)

// Correction strength settings. Values 1..MaxBits are explicit ceilings.
const (
	StrengthDisabled = -1
	StrengthMax      = 0
)

// MaxBits is the largest number of flipped bits the search will try to repair.
const MaxBits = 3

// Largest read sizes, in bytes, at which the CRC-32 polynomial still has the
// Hamming distance needed to correct n bit errors:
//
//	HD=3:  4294967263 bits     536870907 bytes     1 bit error
//	HD=5:  2974 bits           371 bytes           2 bit errors
//	HD=7:  171 bits            21 bytes            3 bit errors
//
// Ref: https://users.ece.cmu.edu/~koopman/crc/crc32.html
const (
	OneBitLimit   = 536870907
	TwoBitLimit   = 371
	ThreeBitLimit = 21
)

var limits = [MaxBits + 1]uint64{0, OneBitLimit, TwoBitLimit, ThreeBitLimit}

// SafeLimit returns the largest read size at which n-bit correction is
// trustworthy, or 0 if n is out of range.
func SafeLimit(n int) uint64 {
	if n < 1 || n > MaxBits {
		return 0
	}
	return limits[n]
}

// Policy decides which bit counts a search may attempt.
type Policy struct {
	Strength int    // StrengthDisabled, StrengthMax or an explicit ceiling
	ReadSize uint64 // Caller's read size in bytes
}

// Allows reports whether an n-bit search is permitted: the strength must
// allow n bits and the read size must be inside the n-bit safety bound.
func (p Policy) Allows(n int) bool {
	if n < 1 || n > MaxBits {
		return false
	}
	if p.Strength != StrengthMax && p.Strength < n {
		return false
	}
	return p.ReadSize <= limits[n]
}

// MaxAllowed returns the largest bit count the policy will attempt, or 0 if
// correction is disabled.
func (p Policy) MaxAllowed() int {
	n := 0
	for i := 1; i <= MaxBits; i++ {
		if p.Allows(i) {
			n = i
		}
	}
	return n
}

// Correction describes the bits a search decided to flip.
type Correction struct {
	// Bits holds codeword bit indices in match order. Index b addresses bit
	// b%8 of byte b/8; indices at or beyond the payload fall in the checksum.
	Bits []int
}

// Count returns the number of bits in the correction.
func (c Correction) Count() int {
	return len(c.Bits)
}

// Apply flips every corrected bit that falls inside window. Bits outside it,
// including those in the stored checksum, are left alone.
func (c Correction) Apply(window []byte) {
	for _, bit := range c.Bits {
		if bit/8 < len(window) {
			window[bit/8] ^= 1 << (bit % 8)
		}
	}
}

// Table holds the syndrome produced by flipping each single bit of a codeword.
type Table struct {
	syndromes []uint32
}

// NewTable precomputes single-bit syndromes for codewords of codeSize bytes.
// Entry i belongs to codeword bit codeSize*8-1-i.
func NewTable(codeSize int) *Table {
	n := codeSize * 8
	t := &Table{syndromes: make([]uint32, n)}

	e := uint32(0x80000000)
	for i := 0; i < n; i++ {
		t.syndromes[i] = e
		e = shift(e)
	}
	return t
}

// shift advances the error register one bit through the reflected feedback.
func shift(e uint32) uint32 {
	if e&1 != 0 {
		return (e >> 1) ^ codec.Polynomial
	}
	return e >> 1
}

// Len returns the number of bit positions covered by the table.
func (t *Table) Len() int {
	return len(t.syndromes)
}

// At returns the syndrome for scan position i.
func (t *Table) At(i int) uint32 {
	return t.syndromes[i]
}

// Bit converts scan position i to a codeword bit index.
func (t *Table) Bit(i int) int {
	return len(t.syndromes) - 1 - i
}

// Search1 returns the first single-bit pattern matching syndrome.
func (t *Table) Search1(syndrome uint32) (Correction, bool) {
	for i, s := range t.syndromes {
		if s == syndrome {
			return Correction{Bits: []int{t.Bit(i)}}, true
		}
	}
	return Correction{}, false
}

// Search2 returns the first two-bit pattern, in (i0, i1) scan order, whose
// syndromes XOR to syndrome.
func (t *Table) Search2(syndrome uint32) (Correction, bool) {
	for i0, s0 := range t.syndromes {
		for i1, s1 := range t.syndromes {
			if s0^s1 == syndrome {
				return Correction{Bits: []int{t.Bit(i0), t.Bit(i1)}}, true
			}
		}
	}
	return Correction{}, false
}

// Search3 returns the first three-bit pattern, in (i0, i1, i2) scan order,
// whose syndromes XOR to syndrome.
func (t *Table) Search3(syndrome uint32) (Correction, bool) {
	for i0, s0 := range t.syndromes {
		for i1, s1 := range t.syndromes {
			s01 := s0 ^ s1
			for i2, s2 := range t.syndromes {
				if s01^s2 == syndrome {
					return Correction{Bits: []int{t.Bit(i0), t.Bit(i1), t.Bit(i2)}}, true
				}
			}
		}
	}
	return Correction{}, false
}

// Corrector searches for the smallest permitted bit-error pattern that
// explains a checksum mismatch. The syndrome table is built on first use;
// a Corrector is not safe for concurrent use.
type Corrector struct {
	codeSize int
	table    *Table
	policy   Policy
}

// NewCorrector creates a corrector for codewords of codeSize bytes.
func NewCorrector(codeSize int, policy Policy) *Corrector {
	return &Corrector{
		codeSize: codeSize,
		policy:   policy,
	}
}

// Policy returns the corrector's policy.
func (c *Corrector) Policy() Policy {
	return c.policy
}

// Table returns the syndrome table, building it if needed.
func (c *Corrector) Table() *Table {
	if c.table == nil {
		c.table = NewTable(c.codeSize)
	}
	return c.table
}

// Find tries 1, 2 then 3 bit searches, skipping any the policy forbids, and
// returns the first match. A zero syndrome never matches.
func (c *Corrector) Find(syndrome uint32) (Correction, bool) {
	if syndrome == 0 || c.policy.MaxAllowed() == 0 {
		return Correction{}, false
	}

	t := c.Table()
	searches := [MaxBits + 1]func(uint32) (Correction, bool){
		nil, t.Search1, t.Search2, t.Search3,
	}
	for n := 1; n <= MaxBits; n++ {
		if !c.policy.Allows(n) {
			continue
		}
		if corr, ok := searches[n](syndrome); ok {
			return corr, true
		}
	}
	return Correction{}, false
}

// Correct finds a correction for syndrome and applies it to payload in place.
func (c *Corrector) Correct(syndrome uint32, payload []byte) (Correction, bool) {
	corr, ok := c.Find(syndrome)
	if ok {
		corr.Apply(payload)
	}
	return corr, ok
}
