package document

import (
	"context"
	"io"

	"github.com/mkrupp/housing-portal/internal/domain"
)

// Repository defines the interface for durable document storage. Stored bytes
// are addressed by an opaque, store-generated key; the client-supplied
// filename is preserved as display metadata only.
type Repository interface {
	// Store persists the bytes read from reader under a freshly generated
	// storage key and returns the document's metadata. Two concurrent stores
	// of the same original filename never overwrite one another. Any I/O
	// failure is a hard error and leaves no partial files behind.
	Store(ctx context.Context, filename string, reader io.Reader) (domain.DocumentMeta, error)

	// Fetch retrieves a stored document by its key.
	// Returns ErrDocumentNotFound if the key does not resolve.
	Fetch(ctx context.Context, id domain.DocumentID) (*domain.Document, error)

	// Delete removes a stored document. Used for orphan cleanup when a
	// submission fails after its document was written.
	Delete(ctx context.Context, id domain.DocumentID) error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)
