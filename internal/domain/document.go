package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrDocumentNotFound is returned when a document reference does not resolve to stored bytes.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentTooLarge is returned when an uploaded document exceeds the configured size limit.
	ErrDocumentTooLarge = errors.New("document too large")
)

// DocumentID is the opaque storage key of a stored document.
// It is generated by the document store and carries no relation
// to the client-supplied filename.
type DocumentID string

// String returns the string representation of the DocumentID.
func (id DocumentID) String() string {
	return string(id)
}

// DocumentMeta contains metadata about a stored document.
type DocumentMeta struct {
	ID       DocumentID `json:"id"`       // Storage key
	Filename string     `json:"filename"` // Original filename, display only
	Size     int64      `json:"size"`     // Size in bytes
}

// NewDocumentMetaFromJSON decodes DocumentMeta from its JSON sidecar encoding.
func NewDocumentMetaFromJSON(data []byte) (DocumentMeta, error) {
	var meta DocumentMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return DocumentMeta{}, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return meta, nil
}

// AsJSON encodes the metadata for its JSON sidecar.
func (meta DocumentMeta) AsJSON() ([]byte, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return data, nil
}

// Document represents a stored document with its content and metadata.
type Document struct {
	data []byte
	meta DocumentMeta
}

// NewDocument creates a new Document with the given content and metadata.
// The metadata size is updated to match the content.
func NewDocument(data []byte, meta DocumentMeta) Document {
	meta.Size = int64(len(data))

	return Document{data: data, meta: meta}
}

// ID returns the document's storage key.
func (d Document) ID() DocumentID {
	return d.meta.ID
}

// Meta returns the document's metadata.
func (d Document) Meta() DocumentMeta {
	return d.meta
}

// Size returns the size of the document's content in bytes.
func (d Document) Size() int64 {
	return int64(len(d.data))
}

// Bytes returns the document's content as a byte slice.
func (d Document) Bytes() []byte {
	return d.data
}

// Read returns a reader for accessing the document's content.
func (d Document) Read() io.Reader {
	return bytes.NewReader(d.data)
}

// WriteTo writes the document's content to the given writer.
// Returns the number of bytes written and any error encountered.
func (d Document) WriteTo(writer io.Writer) (int64, error) {
	n, err := writer.Write(d.data)
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}

	return int64(n), nil
}
