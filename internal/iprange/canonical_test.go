package iprange

import (
	"net/netip"
	"testing"
)

func TestCanonicalText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.0.2.1", "192.0.2.1"},
		{"0.0.0.0", "0.0.0.0"},
		{"255.255.255.255", "255.255.255.255"},
		{"2001:db8::1", "2001:0db8:0000:0000:0000:0000:0000:0001"},
		{"::", "0000:0000:0000:0000:0000:0000:0000:0000"},
		{"ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff"},
	}
	for _, tt := range tests {
		got, err := CanonicalText(netip.MustParseAddr(tt.in))
		if err != nil {
			t.Fatalf("CanonicalText(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("CanonicalText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	// Canonical text must round-trip through the strict parsers.
	for _, tt := range tests {
		got, _ := CanonicalText(netip.MustParseAddr(tt.in))
		fam := ipv4
		if netip.MustParseAddr(tt.in).Is6() && !netip.MustParseAddr(tt.in).Is4In6() {
			fam = ipv6
		}
		if _, err := fam.parse(got); err != nil {
			t.Errorf("parse(%q): %v", got, err)
		}
	}

	if _, err := CanonicalText(netip.Addr{}); err == nil {
		t.Error("expected error for zero value address")
	}
}
