package document_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mkrupp/housing-portal/internal/domain"

	. "github.com/mkrupp/housing-portal/internal/repo/document"
)

func setupFileSystemDocumentTestRepo(t *testing.T) *FileSystemRepository {
	t.Helper()

	cfg := FileSystemDocumentRepositoryConfig{
		Basedir: t.TempDir(),
		MaxSize: 1024 * 1024,
	}

	repo, err := NewFileSystemDocumentRepository(context.TODO(), cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	return repo
}

func TestFileSystemDocumentRepository_StoreFetchRoundTrip(t *testing.T) {
	t.Parallel()

	repo := setupFileSystemDocumentTestRepo(t)

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{
			name:     "regular document",
			filename: "payslip.pdf",
			content:  []byte("not really a pdf but 37 bytes of data"),
		},
		{
			name:     "empty document",
			filename: "empty.txt",
			content:  []byte(""),
		},
		{
			name:     "binary content",
			filename: "scan.png",
			content:  []byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			meta, err := repo.Store(context.TODO(), tt.filename, bytes.NewReader(tt.content))
			if err != nil {
				t.Fatalf("failed to store document: %v", err)
			}

			if meta.ID == "" {
				t.Fatal("expected non-empty storage key")
			}

			if meta.ID.String() == tt.filename {
				t.Error("storage key must not be the client filename")
			}

			if meta.Size != int64(len(tt.content)) {
				t.Errorf("Size = %d, want %d", meta.Size, len(tt.content))
			}

			doc, err := repo.Fetch(context.TODO(), meta.ID)
			if err != nil {
				t.Fatalf("failed to fetch document: %v", err)
			}

			if !bytes.Equal(doc.Bytes(), tt.content) {
				t.Errorf("content mismatch\nwant: %q\ngot:  %q", tt.content, doc.Bytes())
			}

			if doc.Meta().Filename != tt.filename {
				t.Errorf("Filename = %q, want %q", doc.Meta().Filename, tt.filename)
			}
		})
	}
}

func TestFileSystemDocumentRepository_ConcurrentSameFilename(t *testing.T) {
	t.Parallel()

	repo := setupFileSystemDocumentTestRepo(t)

	const workers = 8

	var (
		wg    sync.WaitGroup
		m     sync.Mutex
		metas = make(map[int]domain.DocumentMeta, workers)
	)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			content := []byte(strings.Repeat("x", i+1))

			meta, err := repo.Store(context.TODO(), "payslip.pdf", bytes.NewReader(content))
			if err != nil {
				t.Errorf("worker %d: store failed: %v", i, err)

				return
			}

			m.Lock()
			metas[i] = meta
			m.Unlock()
		}()
	}

	wg.Wait()

	if len(metas) != workers {
		t.Fatalf("expected %d stored documents, got %d", workers, len(metas))
	}

	seen := make(map[domain.DocumentID]bool, workers)

	for i, meta := range metas {
		if seen[meta.ID] {
			t.Fatalf("duplicate storage key %q", meta.ID)
		}

		seen[meta.ID] = true

		doc, err := repo.Fetch(context.TODO(), meta.ID)
		if err != nil {
			t.Fatalf("worker %d: fetch failed: %v", i, err)
		}

		if doc.Size() != int64(i+1) {
			t.Errorf("worker %d: content mixed up: size = %d, want %d", i, doc.Size(), i+1)
		}

		if doc.Meta().Filename != "payslip.pdf" {
			t.Errorf("worker %d: Filename = %q, want %q", i, doc.Meta().Filename, "payslip.pdf")
		}
	}
}

func TestFileSystemDocumentRepository_FetchMissing(t *testing.T) {
	t.Parallel()

	repo := setupFileSystemDocumentTestRepo(t)

	_, err := repo.Fetch(context.TODO(), domain.DocumentID("0123456789abcdef"))
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("Fetch() error = %v, want %v", err, domain.ErrDocumentNotFound)
	}
}

func TestFileSystemDocumentRepository_TooLarge(t *testing.T) {
	t.Parallel()

	cfg := FileSystemDocumentRepositoryConfig{
		Basedir: t.TempDir(),
		MaxSize: 8,
	}

	repo, err := NewFileSystemDocumentRepository(context.TODO(), cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	_, err = repo.Store(context.TODO(), "big.bin", bytes.NewReader(make([]byte, 9)))
	if !errors.Is(err, domain.ErrDocumentTooLarge) {
		t.Errorf("Store() error = %v, want %v", err, domain.ErrDocumentTooLarge)
	}
}

func TestFileSystemDocumentRepository_Delete(t *testing.T) {
	t.Parallel()

	repo := setupFileSystemDocumentTestRepo(t)

	meta, err := repo.Store(context.TODO(), "payslip.pdf", bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("failed to store document: %v", err)
	}

	if err := repo.Delete(context.TODO(), meta.ID); err != nil {
		t.Fatalf("failed to delete document: %v", err)
	}

	if _, err := repo.Fetch(context.TODO(), meta.ID); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("Fetch() after delete error = %v, want %v", err, domain.ErrDocumentNotFound)
	}

	// Deleting twice is not an error
	if err := repo.Delete(context.TODO(), meta.ID); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}
