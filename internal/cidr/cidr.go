// Package cidr provides small helpers for turning CIDR prefixes into
// inclusive address ranges.
package cidr

import (
	"fmt"
	"net/netip"
)

// PrefixRange returns the first and last address of a prefix.
// Works for both IPv4 and IPv6 prefixes.
func PrefixRange(p netip.Prefix) (first, last netip.Addr, err error) {
	if !p.IsValid() {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("invalid prefix: %v", p)
	}
	first = p.Masked().Addr()
	last = lastAddr(p)
	return first, last, nil
}

// ParseCIDROrAddr parses a string as either a CIDR prefix ("10.0.0.0/8",
// "2001:db8::/32") or a bare address ("10.1.2.5" becomes 10.1.2.5/32).
func ParseCIDROrAddr(s string) (netip.Prefix, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Masked(), nil
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return netip.PrefixFrom(a, a.BitLen()), nil
	}
	return netip.Prefix{}, fmt.Errorf("invalid CIDR or IP: %q", s)
}

// lastAddr returns the last address in a prefix with all host bits set.
func lastAddr(p netip.Prefix) netip.Addr {
	addr := p.Masked().Addr()
	// Host bits sit at the tail of the 16-byte form for both families,
	// since IPv4 occupies the last 4 bytes.
	raw := addr.As16()
	width := 128
	if addr.Is4() {
		width = 32
	}
	hostBits := width - p.Bits()
	for i := 0; i < hostBits; i++ {
		byteIdx := 15 - i/8
		bitIdx := i % 8
		raw[byteIdx] |= 1 << bitIdx
	}
	out := netip.AddrFrom16(raw)
	if addr.Is4() {
		return out.Unmap()
	}
	return out
}
