package auth

import (
	"time"

	"github.com/google/uuid"

	"pressgate/internal/identity"
)

// Session is a delegated (Universal Login) session held on behalf of the browser.
// The rest of the application only ever reads it as a snapshot.
type Session struct {
	ID        uuid.UUID
	Subject   string
	Claims    identity.Claims
	ExpiresAt time.Time
	CreatedAt time.Time
	UserAgent string
	IPAddress string
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
