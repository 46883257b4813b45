package domain

import "time"

// Account is a cloud account visible to discovery.
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`
}

// DiscoveredRange is an address range observed in a cloud provider.
// StartAddr and EndAddr are in the strict canonical text form used by
// the converter, so a discovered range can be fed straight into it.
type DiscoveredRange struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id,omitempty"`
	Region    string `json:"region,omitempty"`
	// SourceID is a provider-scoped identifier, e.g. a VPC, subnet,
	// or allocation ID.
	SourceID  string `json:"source_id"`
	Name      string `json:"name,omitempty"`
	Family    Family `json:"family"`
	CIDR      string `json:"cidr,omitempty"`
	StartAddr string `json:"start_addr"`
	EndAddr   string `json:"end_addr"`
}

// SyncResult summarizes one discovery sync run.
type SyncResult struct {
	Provider   string    `json:"provider"`
	Discovered int       `json:"discovered"`
	Stored     int       `json:"stored"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
