package domain

import (
	"time"

	"github.com/google/uuid"
)

// Link represents a shortened URL
type Link struct {
	ID          int64      `json:"id"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"` // nil for anonymous links
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClickCount  int64      `json:"click_count"`
}

// IsExpired reports whether the link's expiry, if set, is strictly in the past.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// IsOwnedBy reports whether the link belongs to the given principal.
// Anonymous links belong to nobody.
func (l *Link) IsOwnedBy(p *Principal) bool {
	return l.OwnerID != nil && p != nil && *l.OwnerID == p.ID
}

// Principal is an authenticated identity. Requests without credentials
// carry a nil *Principal.
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}
