package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
	"github.com/mkrupp/housing-portal/internal/util/encoding"
)

var (
	ErrBytesWrittenMismatch = errors.New("bytes written mismatch")
	ErrBytesReadMismatch    = errors.New("bytes read mismatch")
	ErrKeyExhausted         = errors.New("storage key space exhausted")
)

const (
	dirPrefixLength = 2 // 32^2 = 1024 directories
	dirPrefixDepth  = 2
	idMinLength     = dirPrefixDepth * dirPrefixLength

	dataExt = "bin"
	metaExt = "json"

	// maxKeyAttempts bounds the regeneration loop on the (practically
	// impossible) event of a generated key colliding with an existing file.
	maxKeyAttempts = 3
)

// FileSystemDocumentRepositoryConfig holds configuration for the
// filesystem-based document repository.
type FileSystemDocumentRepositoryConfig struct {
	// Basedir is the root directory for document storage
	Basedir string `env:"BASEDIR" default:"var/storage/documents"`

	// MaxSize is the maximum accepted document size in bytes. Default is 20MB.
	MaxSize int64 `env:"MAX_SIZE" default:"20971520"`
}

// FileSystemDocumentRepositoryFactory creates a factory function that returns
// a new FileSystemRepository. The factory function implements the
// RepositoryFactory type.
func FileSystemDocumentRepositoryFactory(cfg FileSystemDocumentRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewFileSystemDocumentRepository(ctx, cfg)
	}
}

// FileSystemRepository implements Repository using the local filesystem.
// Each document is written under an opaque, store-generated key: the data file
// holds the raw bytes and a JSON sidecar holds the metadata, including the
// original filename for display. Files are organized in a directory hierarchy
// to keep directories small.
type FileSystemRepository struct {
	cfg FileSystemDocumentRepositoryConfig
	log logging.Logger

	keyLock *sync.Mutex // serializes key generation between concurrent stores
}

var _ Repository = (*FileSystemRepository)(nil)

// NewFileSystemDocumentRepository creates a new FileSystemRepository with the
// given configuration. Returns an error if the storage root cannot be created.
func NewFileSystemDocumentRepository(
	ctx context.Context,
	cfg FileSystemDocumentRepositoryConfig,
) (*FileSystemRepository, error) {
	log := logging.GetLogger("repo.document.filesystem_repository").With(
		logging.Group("repo", "basedir", cfg.Basedir),
	)

	repo := &FileSystemRepository{
		cfg:     cfg,
		log:     log,
		keyLock: new(sync.Mutex),
	}

	if err := repo.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}

	return repo, nil
}

// Store implements Repository.Store.
func (fsRepo *FileSystemRepository) Store(
	ctx context.Context,
	filename string,
	reader io.Reader,
) (meta domain.DocumentMeta, err error) {
	defer func() {
		log := fsRepo.log.With(logging.Group("document", "filename", filename, "id", meta.ID))
		if err != nil {
			log.ErrorContext(ctx, "document store failed", "error", err)
		} else {
			log.DebugContext(ctx, "document stored", "size", meta.Size)
		}
	}()

	data, err := fsRepo.readAll(reader)
	if err != nil {
		return domain.DocumentMeta{}, fmt.Errorf("read upload: %w", err)
	}

	id, file, err := fsRepo.createDataFile()
	if err != nil {
		return domain.DocumentMeta{}, fmt.Errorf("create data file: %w", err)
	}

	meta = domain.DocumentMeta{
		ID:       id,
		Filename: filename,
		Size:     int64(len(data)),
	}

	if err := fsRepo.writeDataFile(file, data); err != nil {
		fsRepo.removeFiles(ctx, id)

		return domain.DocumentMeta{}, fmt.Errorf("write data: %w", err)
	}

	if err := fsRepo.writeMetaFile(id, meta); err != nil {
		fsRepo.removeFiles(ctx, id)

		return domain.DocumentMeta{}, fmt.Errorf("write meta: %w", err)
	}

	return meta, nil
}

// Fetch implements Repository.Fetch.
func (fsRepo *FileSystemRepository) Fetch(
	ctx context.Context,
	id domain.DocumentID,
) (doc *domain.Document, err error) {
	defer func() {
		log := fsRepo.log.With(logging.Group("document", "id", id))
		if err != nil {
			log.ErrorContext(ctx, "document fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "document fetched")
		}
	}()

	metaData, err := os.ReadFile(fsRepo.getFilename(id, metaExt))
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Join(domain.ErrDocumentNotFound, err)
		}

		return nil, fmt.Errorf("read meta: %w", err)
	}

	meta, err := domain.NewDocumentMetaFromJSON(metaData)
	if err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	data, err := os.ReadFile(fsRepo.getFilename(id, dataExt))
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Join(domain.ErrDocumentNotFound, err)
		}

		return nil, fmt.Errorf("read data: %w", err)
	}

	if int64(len(data)) != meta.Size {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrBytesReadMismatch, meta.Size, len(data))
	}

	document := domain.NewDocument(data, meta)

	return &document, nil
}

// Delete implements Repository.Delete.
func (fsRepo *FileSystemRepository) Delete(ctx context.Context, id domain.DocumentID) (err error) {
	defer func() {
		log := fsRepo.log.With(logging.Group("document", "id", id))
		if err != nil {
			log.ErrorContext(ctx, "document delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "document deleted")
		}
	}()

	for _, ext := range []string{dataExt, metaExt} {
		if err := os.Remove(fsRepo.getFilename(id, ext)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove: %w", err)
		}
	}

	return nil
}

func (fsRepo *FileSystemRepository) initStorage(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			fsRepo.log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			fsRepo.log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(fsRepo.cfg.Basedir, 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) readAll(reader io.Reader) ([]byte, error) {
	// Read one byte past the limit to detect oversized uploads
	data, err := io.ReadAll(io.LimitReader(reader, fsRepo.cfg.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read all: %w", err)
	}

	if int64(len(data)) > fsRepo.cfg.MaxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", domain.ErrDocumentTooLarge, fsRepo.cfg.MaxSize)
	}

	return data, nil
}

// createDataFile generates a fresh storage key and creates its data file with
// O_EXCL, so a key collision fails explicitly instead of overwriting a prior
// applicant's document. Key generation is serialized so concurrent stores
// cannot race on the same key.
func (fsRepo *FileSystemRepository) createDataFile() (domain.DocumentID, *os.File, error) {
	fsRepo.keyLock.Lock()
	defer fsRepo.keyLock.Unlock()

	for range maxKeyAttempts {
		id, err := newStorageKey()
		if err != nil {
			return "", nil, fmt.Errorf("new storage key: %w", err)
		}

		filename := fsRepo.getFilename(id, dataExt)

		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return "", nil, fmt.Errorf("mkdir all: %w", err)
		}

		file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue // Key collision, regenerate
			}

			return "", nil, fmt.Errorf("open: %w", err)
		}

		return id, file, nil
	}

	return "", nil, ErrKeyExhausted
}

func (fsRepo *FileSystemRepository) writeDataFile(file *os.File, data []byte) error {
	defer file.Close()

	n, err := file.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	} else if err := file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	} else if n != len(data) {
		return fmt.Errorf("%w: expected %d, got %d", ErrBytesWrittenMismatch, len(data), n)
	}

	return nil
}

func (fsRepo *FileSystemRepository) writeMetaFile(id domain.DocumentID, meta domain.DocumentMeta) error {
	metaData, err := meta.AsJSON()
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	file, err := os.OpenFile(fsRepo.getFilename(id, metaExt), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	return fsRepo.writeDataFile(file, metaData)
}

func (fsRepo *FileSystemRepository) removeFiles(ctx context.Context, id domain.DocumentID) {
	for _, ext := range []string{dataExt, metaExt} {
		if err := os.Remove(fsRepo.getFilename(id, ext)); err != nil && !os.IsNotExist(err) {
			fsRepo.log.ErrorContext(ctx, "partial file cleanup failed",
				logging.Group("document", "id", id, "ext", ext), "error", err)
		}
	}
}

func newStorageKey() (domain.DocumentID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return domain.DocumentID(encoding.EncodeCrockfordB32LC(id[:])), nil
}

// getFilename returns the full filesystem path for a document file with the
// given storage key and extension. Keys are split into prefix directories like
//
//	0h/5q/0h5q9v3f....bin
//
// to keep individual directories small.
func (fsRepo *FileSystemRepository) getFilename(id domain.DocumentID, ext string) string {
	basename := strings.ReplaceAll(id.String(), "/", "")
	basename = strings.ReplaceAll(fmt.Sprintf("%*s", idMinLength, basename), " ", "0")

	var prefixes []string
	for i := 0; i < dirPrefixLength*dirPrefixDepth && i < len(basename)-dirPrefixLength; i += dirPrefixLength {
		prefixes = append(prefixes, basename[i:i+dirPrefixLength])
	}

	parts := append(append([]string{fsRepo.cfg.Basedir}, prefixes...), basename+"."+ext)

	return filepath.Join(parts...)
}
