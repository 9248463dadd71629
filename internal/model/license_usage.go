package model

import (
	"time"
)

// LicenseUsage records a single validation call. The presented key is kept
// only as its fingerprint.
type LicenseUsage struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	KeyFingerprint string    `json:"key_fingerprint" gorm:"index"`
	Valid          bool      `json:"valid"`
	Reason         string    `json:"reason"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	CheckedAt      time.Time `json:"checked_at" gorm:"index"`
}
