// Package domain holds the persistence-facing types shared by the
// storage, discovery, and HTTP layers.
package domain

import "time"

// Family identifies an IP address family.
type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// Valid reports whether f names a supported address family.
func (f Family) Valid() bool {
	return f == FamilyIPv4 || f == FamilyIPv6
}

// Conversion is a stored range-to-subnets conversion record.
type Conversion struct {
	ID          string   `json:"id"`
	Family      Family   `json:"family"`
	Name        string   `json:"name,omitempty"`
	RangeText   string   `json:"range"`
	StartAddr   string   `json:"start_addr"`
	EndAddr     string   `json:"end_addr"`
	Subnets     []string `json:"subnets"`
	SubnetCount int      `json:"subnet_count"`
	// Source records where the range came from: "manual" for API
	// submissions, or a provider-qualified ID such as
	// "aws:vpc-0abc1234" for discovered allocations.
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateConversion is the input for persisting a conversion. All address
// fields are expected in canonical, already-validated form.
type CreateConversion struct {
	Family    Family   `json:"family"`
	Name      string   `json:"name,omitempty"`
	RangeText string   `json:"range"`
	StartAddr string   `json:"start_addr"`
	EndAddr   string   `json:"end_addr"`
	Subnets   []string `json:"subnets"`
	Source    string   `json:"source"`
}

// SourceManual marks conversions submitted through the API.
const SourceManual = "manual"
