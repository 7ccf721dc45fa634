// Package difficulty implements the compact "bits" target encoding used
// by every header (spec.md §3, "difficulty bits") and the work accumulator
// derived from it: a standard Bitcoin-style big-endian mantissa/exponent
// encoding, unchanged across the GHOSTDAG family of chains.
package difficulty

import "math/big"

var (
	oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)
)

// CompactToBig expands the compact "bits" representation into the full
// target as a big.Int.
func CompactToBig(bits uint32) *big.Int {
	mantissa := bits & 0x007fffff
	exponent := uint(bits >> 24)

	var result *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		result = big.NewInt(int64(mantissa))
	} else {
		result = big.NewInt(int64(mantissa))
		result.Lsh(result, 8*(exponent-3))
	}

	if bits&0x00800000 != 0 {
		result.Neg(result)
	}
	return result
}

// BigToCompact condenses a target into the compact "bits" representation.
func BigToCompact(target *big.Int) uint32 {
	if target.Sign() == 0 {
		return 0
	}

	negative := target.Sign() < 0
	work := new(big.Int).Abs(target)

	exponent := uint((work.BitLen() + 7) / 8)
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(work.Int64() << (8 * (3 - exponent)))
	} else {
		shifted := new(big.Int).Rsh(work, 8*(exponent-3))
		mantissa = uint32(shifted.Int64())
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if negative {
		compact |= 0x00800000
	}
	return compact
}

// CalcWork returns the amount of work represented by a block with the
// given difficulty bits: (2^256) / (target + 1), the standard measure
// used to accumulate blue-work across the mergeset (spec.md §3,
// "blue-work accumulator").
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(oneLsh256, denominator)
}
