// Package session issues and resolves browser sessions. A session lives in a
// server-side store; the cookie carries a signed token naming it, so logout
// is a server-side revocation.
package session

import (
	"time"

	id "smartgate/pkg/domain"
)

// Session is one signed-in browser.
type Session struct {
	ID          string    `json:"id"`
	UserID      id.UserID `json:"user_id"`
	Role        string    `json:"role"`
	DeviceLabel string    `json:"device_label"`
	ClientIP    string    `json:"client_ip,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
