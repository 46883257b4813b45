// Package iprange converts inclusive IP address ranges into the minimal
// set of CIDR subnets that covers them exactly. IPv4 and IPv6 share one
// decomposition; only the address width and the textual codec differ.
package iprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors surfaced by the converters. HTTP handlers map these to
// status codes with errors.Is().
var (
	// ErrRangeNotSet indicates an accessor was called before a
	// successful SetRange.
	ErrRangeNotSet = errors.New("ip address range not set")

	// ErrInvalidAddress indicates an endpoint string failed strict
	// format validation.
	ErrInvalidAddress = errors.New("invalid ip address contained")

	// ErrInvalidRange indicates both endpoints parsed but the start
	// address is greater than the end address.
	ErrInvalidRange = errors.New("invalid ip address range specified")
)

// rangeConverter holds the parsed bounds and computed subnet list for one
// address family. It is constructed empty and mutated only by SetRange;
// a failed SetRange leaves any previously stored range intact.
//
// Instances are not safe for concurrent mutation, but the underlying
// decomposition is pure, so distinct instances can be used from distinct
// goroutines freely.
type rangeConverter struct {
	fam     family
	start   uint128
	end     uint128
	subnets []string
	set     bool
}

// SetRange parses and stores an address range. rangeText is either a
// single address ("A") or a hyphenated pair ("A-B"); the split uses the
// first hyphen, so malformed extra-hyphen input fails address validation.
// Validation is complete before any state is committed.
func (c *rangeConverter) SetRange(rangeText string) error {
	startText, endText, found := strings.Cut(rangeText, "-")
	if !found {
		endText = startText
	}

	start, err := c.fam.parse(startText)
	if err != nil {
		return err
	}
	end, err := c.fam.parse(endText)
	if err != nil {
		return err
	}
	if start.cmp(end) > 0 {
		return fmt.Errorf("%w: %q", ErrInvalidRange, rangeText)
	}

	blocks := decompose(start, end, c.fam.width)
	subnets := make([]string, len(blocks))
	for i, b := range blocks {
		subnets[i] = c.fam.format(b.base) + "/" + strconv.Itoa(b.bits)
	}

	c.start = start
	c.end = end
	c.subnets = subnets
	c.set = true
	return nil
}

// RangeText returns the stored range in canonical "start-end" form.
func (c *rangeConverter) RangeText() (string, error) {
	if !c.set {
		return "", ErrRangeNotSet
	}
	return c.fam.format(c.start) + "-" + c.fam.format(c.end), nil
}

// Subnets returns the CIDR blocks covering the stored range, ascending
// by base address. The returned slice is a copy; callers may modify it.
func (c *rangeConverter) Subnets() ([]string, error) {
	if !c.set {
		return nil, ErrRangeNotSet
	}
	out := make([]string, len(c.subnets))
	copy(out, c.subnets)
	return out, nil
}

// Family returns the converter's address family name ("ipv4" or "ipv6").
func (c *rangeConverter) Family() string { return c.fam.name }

// IPv4RangeConverter converts IPv4 address ranges to /1../32 subnets.
type IPv4RangeConverter struct {
	rangeConverter
}

// NewIPv4RangeConverter returns a converter with no range set.
func NewIPv4RangeConverter() *IPv4RangeConverter {
	return &IPv4RangeConverter{rangeConverter{fam: ipv4}}
}

// IPv6RangeConverter converts IPv6 address ranges to /1../128 subnets.
// Input and output use the fully-expanded eight-hextet form.
type IPv6RangeConverter struct {
	rangeConverter
}

// NewIPv6RangeConverter returns a converter with no range set.
func NewIPv6RangeConverter() *IPv6RangeConverter {
	return &IPv6RangeConverter{rangeConverter{fam: ipv6}}
}

// Converter is the family-independent view of the range converters, used
// by callers that select the family at run time.
type Converter interface {
	SetRange(rangeText string) error
	RangeText() (string, error)
	Subnets() ([]string, error)
	Family() string
}

// NewConverter returns a converter for the named address family
// ("ipv4" or "ipv6"), or false if the name is not recognized.
func NewConverter(familyName string) (Converter, bool) {
	switch familyName {
	case "ipv4":
		return NewIPv4RangeConverter(), true
	case "ipv6":
		return NewIPv6RangeConverter(), true
	default:
		return nil, false
	}
}
