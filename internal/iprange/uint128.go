package iprange

import "math/bits"

// uint128 is an unsigned 128-bit integer, used so the IPv4 (32-bit) and
// IPv6 (128-bit) decompositions can share one implementation. The zero
// value is the number zero.
type uint128 struct {
	hi uint64
	lo uint64
}

// maskLow returns a uint128 with the low n bits set.
func maskLow(n int) uint128 {
	switch {
	case n <= 0:
		return uint128{}
	case n < 64:
		return uint128{0, 1<<uint(n) - 1}
	case n == 64:
		return uint128{0, ^uint64(0)}
	case n < 128:
		return uint128{1<<uint(n-64) - 1, ^uint64(0)}
	default:
		return uint128{^uint64(0), ^uint64(0)}
	}
}

// cmp returns -1, 0, or 1 depending on whether u is less than, equal to,
// or greater than v.
func (u uint128) cmp(v uint128) int {
	switch {
	case u.hi < v.hi:
		return -1
	case u.hi > v.hi:
		return 1
	case u.lo < v.lo:
		return -1
	case u.lo > v.lo:
		return 1
	default:
		return 0
	}
}

func (u uint128) isZero() bool { return u.hi == 0 && u.lo == 0 }

func (u uint128) and(v uint128) uint128 { return uint128{u.hi & v.hi, u.lo & v.lo} }

func (u uint128) or(v uint128) uint128 { return uint128{u.hi | v.hi, u.lo | v.lo} }

// andNot returns u with the bits of v cleared.
func (u uint128) andNot(v uint128) uint128 { return uint128{u.hi &^ v.hi, u.lo &^ v.lo} }

func (u uint128) add(v uint128) uint128 {
	lo, carry := bits.Add64(u.lo, v.lo, 0)
	hi, _ := bits.Add64(u.hi, v.hi, carry)
	return uint128{hi, lo}
}

func (u uint128) sub(v uint128) uint128 {
	lo, borrow := bits.Sub64(u.lo, v.lo, 0)
	hi, _ := bits.Sub64(u.hi, v.hi, borrow)
	return uint128{hi, lo}
}

func (u uint128) addOne() uint128 { return u.add(uint128{0, 1}) }

func (u uint128) subOne() uint128 { return u.sub(uint128{0, 1}) }

// shr returns u shifted right by n bits.
func (u uint128) shr(n int) uint128 {
	switch {
	case n <= 0:
		return u
	case n < 64:
		return uint128{u.hi >> uint(n), u.lo>>uint(n) | u.hi<<uint(64-n)}
	case n < 128:
		return uint128{0, u.hi >> uint(n-64)}
	default:
		return uint128{}
	}
}
