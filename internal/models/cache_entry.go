package models

import "time"

// CacheEntry is one row of the SQL-backed ephemeral store. Rate limiter
// counters live here when no external cache is deployed; the maintenance
// job purges rows past their expiry.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the entry is past its expiry. A zero ExpiresAt
// means the entry never expires.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
