package iprange

import (
	"fmt"
	"strings"
)

// family binds an address width to its textual codec. The parsers accept
// only the fully-expanded fixed forms: four dotted decimal octets for
// IPv4, eight colon-separated 4-digit hextets for IPv6. Zero-compressed
// ("::") and otherwise abbreviated IPv6 forms are rejected.
type family struct {
	name   string
	width  int
	parse  func(string) (uint128, error)
	format func(uint128) string
}

var (
	ipv4 = family{name: "ipv4", width: 32, parse: parseIPv4, format: formatIPv4}
	ipv6 = family{name: "ipv6", width: 128, parse: parseIPv6, format: formatIPv6}
)

// parseIPv4 parses a dotted-quad address into its integer value. Each
// octet must be 1-3 ASCII digits with a value of at most 255; anything
// else fails with ErrInvalidAddress.
func parseIPv4(s string) (uint128, error) {
	groups := strings.Split(s, ".")
	if len(groups) != 4 {
		return uint128{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var v uint64
	for _, g := range groups {
		if len(g) < 1 || len(g) > 3 {
			return uint128{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		var octet uint64
		for i := 0; i < len(g); i++ {
			c := g[i]
			if c < '0' || c > '9' {
				return uint128{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
			}
			octet = octet*10 + uint64(c-'0')
		}
		if octet > 255 {
			return uint128{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		v = v<<8 | octet
	}
	return uint128{0, v}, nil
}

// formatIPv4 renders the low 32 bits of v as a dotted-quad string.
func formatIPv4(v uint128) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		v.lo>>24&0xff, v.lo>>16&0xff, v.lo>>8&0xff, v.lo&0xff)
}

// parseIPv6 parses a fully-expanded IPv6 address into its integer value.
// Each of the eight hextets must be exactly 4 hex digits; upper and lower
// case are both accepted.
func parseIPv6(s string) (uint128, error) {
	groups := strings.Split(s, ":")
	if len(groups) != 8 {
		return uint128{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var v uint128
	for _, g := range groups {
		if len(g) != 4 {
			return uint128{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		var hextet uint64
		for i := 0; i < 4; i++ {
			d, ok := hexDigit(g[i])
			if !ok {
				return uint128{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
			}
			hextet = hextet<<4 | uint64(d)
		}
		v = uint128{v.hi<<16 | v.lo>>48, v.lo<<16 | hextet}
	}
	return v, nil
}

// formatIPv6 renders v as eight 4-digit lowercase hextets. Output is
// always the full representation; no zero compression is applied.
func formatIPv6(v uint128) string {
	return fmt.Sprintf("%04x:%04x:%04x:%04x:%04x:%04x:%04x:%04x",
		v.hi>>48&0xffff, v.hi>>32&0xffff, v.hi>>16&0xffff, v.hi&0xffff,
		v.lo>>48&0xffff, v.lo>>32&0xffff, v.lo>>16&0xffff, v.lo&0xffff)
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
