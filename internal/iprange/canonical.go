package iprange

import (
	"fmt"
	"net/netip"
)

// CanonicalText renders addr in the fixed-form text accepted by the
// converters: dotted decimal for IPv4, eight 4-digit hextets for IPv6.
func CanonicalText(addr netip.Addr) (string, error) {
	if !addr.IsValid() {
		return "", fmt.Errorf("invalid address")
	}
	if addr.Is4() || addr.Is4In6() {
		b := addr.Unmap().As4()
		return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3]), nil
	}
	b := addr.As16()
	v := uint128{
		hi: beUint64(b[0:8]),
		lo: beUint64(b[8:16]),
	}
	return ipv6.format(v), nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
