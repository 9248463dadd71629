package model

import (
	"time"
)

// License is the server-side record of one issued token. The token text is
// the primary key; records are mutated in place and never deleted.
type License struct {
	Key       string     `json:"key" gorm:"primaryKey"`
	Username  string     `json:"username" gorm:"not null"`
	Plan      string     `json:"plan" gorm:"not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	Active    bool       `json:"active" gorm:"not null"`
	LastCheck *time.Time `json:"last_check"`
}

const secondsPerDay = 24 * 60 * 60

// DaysRemaining returns the whole days left before ExpiresAt, or 0 once
// the license has expired. Counted in seconds since time.Duration saturates
// after about 292 years.
func (l *License) DaysRemaining(now time.Time) int {
	if l.Expired(now) {
		return 0
	}
	secs := l.ExpiresAt.Unix() - now.Unix()
	if l.ExpiresAt.Nanosecond() < now.Nanosecond() {
		secs--
	}
	return int(secs / secondsPerDay)
}

// Expired reports whether the license is no longer usable at now. A license
// is usable strictly before its expiry instant.
func (l *License) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
