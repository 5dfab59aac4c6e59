// Package store persists manufactured home registrations. Implementations
// must serialize MHR number assignment so concurrent creations never collide.
package store

import (
	"context"

	"mhreg/internal/registration/models"
)

// Store is the persistence boundary for registrations. Creation is the sole
// write path; list and get are read-only.
type Store interface {
	// Create persists a new registration. The caller assigns the MHR number
	// obtained from NextMHRNumber.
	Create(ctx context.Context, reg *models.Registration) error

	// GetByMHRNumber fetches a registration regardless of owning account.
	// Visibility is the service's concern. Returns a CodeNotFound error on
	// miss.
	GetByMHRNumber(ctx context.Context, mhrNumber string) (*models.Registration, error)

	// ListByAccount returns every registration owned by the account, in no
	// guaranteed order. An unknown account yields an empty slice, not an
	// error.
	ListByAccount(ctx context.Context, accountID string) ([]*models.Registration, error)

	// NextMHRNumber reserves and returns a new unique MHR number.
	NextMHRNumber(ctx context.Context) (string, error)

	// Ping reports backend health.
	Ping(ctx context.Context) error
}
