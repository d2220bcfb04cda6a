package webhooksvc

import (
	"context"

	"github.com/mkrupp/housing-portal/internal/domain"
)

// Notifier relays a recorded submission to an external destination.
// Delivery is best-effort: the caller logs a returned error and moves on,
// there is no retry, queue or backoff.
type Notifier interface {
	// Enabled reports whether a destination is configured. When false,
	// Notify is a silent no-op and callers may skip preparing the payload.
	Enabled() bool

	// Notify performs a single delivery attempt carrying the submission's
	// structured fields and, if doc is non-nil, the document's bytes as an
	// attachment.
	Notify(ctx context.Context, notice domain.SubmissionNotice, doc *domain.Document) error
}
