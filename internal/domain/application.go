package domain

import "errors"

var (
	// ErrMissingFullName is returned when a submission has no full name after trimming.
	ErrMissingFullName = errors.New("missing full name")
	// ErrMissingIncome is returned when a submission has no income after trimming.
	ErrMissingIncome = errors.New("missing income")
	// ErrApplicationNotFound is returned when looking up a non-existent application.
	ErrApplicationNotFound = errors.New("application not found")
)

// Application represents one persisted housing-assistance submission.
// Records are immutable once created.
type Application struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"-"`
	FullName   string     `json:"fullName"`
	Income     string     `json:"income"`
	DocumentID DocumentID `json:"documentId,omitempty"` // Empty when no document was submitted
	CreatedAt  int64      `json:"createdAt"`
}

// HasDocument reports whether the application references a stored document.
func (app Application) HasDocument() bool {
	return app.DocumentID != ""
}
