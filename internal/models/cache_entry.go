package models

import "time"

// CacheEntry backs cache.DatabaseStore when Redis is not configured. It holds
// OTP cooldown markers, verify attempt counters and rate limit windows.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CacheEntry) TableName() string { return "cache_entries" }
