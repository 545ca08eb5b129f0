// Package fakturoid talks to the Fakturoid v3 API: the OAuth grant
// endpoints and the per-account invoice endpoints consumed by the sync.
package fakturoid

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PageSize is Fakturoid's fixed invoice page size. A response shorter than
// this is the last page.
const PageSize = 40

// refreshMargin is how close to expiry an access token may get before a
// fetch refreshes it first.
const refreshMargin = 5 * time.Minute

var (
	ErrNoConnection = errors.New("no active fakturoid connection")
	ErrNotFound     = errors.New("fakturoid connection not found")
)

// StatusError is a non-success response from the remote API. The sync layer
// treats it as retryable but owns no retry policy itself.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fakturoid api returned %d: %s", e.StatusCode, e.Body)
}

// TokenPair is one OAuth access/refresh token grant.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Connection binds a user to a Fakturoid account. One active connection
// per user; disconnecting flips IsActive instead of deleting the row.
type Connection struct {
	ID     uuid.UUID
	UserID uuid.UUID

	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time

	AccountSlug string
	AccountName string

	ConnectedAt  time.Time
	LastSyncedAt *time.Time
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
