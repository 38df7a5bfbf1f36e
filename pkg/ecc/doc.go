// Package ecc corrects small numbers of flipped bits in CRC-32 protected
// codewords by brute force.
//
// Because the codec's checksum is linear, the syndrome of an error pattern is
// the XOR of the syndromes of its individual bits. A Table holds the syndrome
// of every single-bit flip; the searches XOR one, two or three table entries
// until they reproduce the observed syndrome. The first match in scan order
// wins. That is only the true error when the pattern is small enough for the
// polynomial's Hamming distance at the configured read size, which is what
// Policy enforces.
package ecc
