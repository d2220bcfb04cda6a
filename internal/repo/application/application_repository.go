package application

import (
	"context"

	"github.com/mkrupp/housing-portal/internal/domain"
)

// Repository defines the interface for application record persistence.
type Repository interface {
	// Create persists one application record for the given user. The record is
	// committed atomically; documentID may be empty when no document was
	// submitted and must otherwise reference an already stored document.
	// Returns the validation sentinels for empty-after-trim fields.
	Create(
		ctx context.Context,
		userID int64,
		fullName string,
		income string,
		documentID domain.DocumentID,
	) (*domain.Application, error)

	// ListByUser retrieves the user's applications ordered by creation time
	// descending.
	ListByUser(ctx context.Context, userID int64) ([]domain.Application, error)

	// GetByID retrieves a single application.
	// Returns the application and true if found, or nil and false if not found.
	GetByID(ctx context.Context, id int64) (*domain.Application, bool, error)
}
