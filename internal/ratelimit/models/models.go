package models

import (
	"strings"
	"time"
)

// Lockout counts failed logins for one email and client IP pair.
type Lockout struct {
	Key         string     `json:"key"`
	Failures    int        `json:"failures"`
	WindowStart time.Time  `json:"window_start"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// LockoutKey joins the normalized email and the client IP, so a lock applies
// to one email from one address only.
func LockoutKey(email, clientIP string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + clientIP
}

// LockedAt reports whether the pair is refused at now.
func (l *Lockout) LockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// WindowExpired reports whether failures counted since WindowStart no longer apply.
func (l *Lockout) WindowExpired(now time.Time, window time.Duration) bool {
	return !now.Before(l.WindowStart.Add(window))
}

// Decision is the outcome of a pre-login check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}
