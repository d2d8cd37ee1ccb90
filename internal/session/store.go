package session

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_storefront/domain"
)

const DefaultTTL = 30 * time.Minute

var ErrNotFound = errors.New("checkout state not found")

// Store keeps the latest checkout state per user for a bounded lifetime.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, userID string) (domain.CheckoutState, error)
	// Put stores state unconditionally.
	Put(ctx context.Context, userID string, state domain.CheckoutState) error
	// Replace stores state only while the stored state belongs to the same
	// run (equal RunID). It reports false when the run was reset or superseded.
	Replace(ctx context.Context, userID string, state domain.CheckoutState) (bool, error)
	Delete(ctx context.Context, userID string) error
}
