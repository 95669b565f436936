package model

import "time"

// CacheEntry is a content-addressed record of a completion service
// response, keyed by a hash of operation+model+input. Entries are
// read-only after creation except for the hit counter; expired entries
// are inert and eligible for removal.
type CacheEntry struct {
	Key       string
	Operation string
	Model     string
	Response  string
	CreatedAt time.Time
	ExpiresAt time.Time
	HitCount  int
}

// Expired reports whether the entry is past its TTL at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// CostRecord is an append-only usage record for a successful,
// non-cached completion call.
type CostRecord struct {
	ID         string
	Operation  string
	Model      string
	InputSize  int
	OutputSize int
	Cost       float64
	CreatedAt  time.Time
}
