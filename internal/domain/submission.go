package domain

import "strings"

// DocumentUpload is the supporting document attached to a submission,
// read fully off the wire before the workflow starts.
type DocumentUpload struct {
	Filename string
	Data     []byte
}

// Submission is the typed form of one application submission, validated
// once at the boundary instead of being accessed by string key.
type Submission struct {
	FullName string
	Income   string
	Document *DocumentUpload // nil when no document was submitted
}

// Validate checks that the required fields are non-empty after trimming.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.FullName) == "" {
		return ErrMissingFullName
	}

	if strings.TrimSpace(s.Income) == "" {
		return ErrMissingIncome
	}

	return nil
}

// Normalized returns a copy of the submission with trimmed text fields.
func (s Submission) Normalized() Submission {
	s.FullName = strings.TrimSpace(s.FullName)
	s.Income = strings.TrimSpace(s.Income)

	return s
}

// SubmissionNotice is the structured payload relayed to the webhook
// after a submission was durably recorded.
type SubmissionNotice struct {
	FullName string
	Income   string
	Username string
}
