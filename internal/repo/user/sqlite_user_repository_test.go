package user_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/infra/sqlite"

	. "github.com/mkrupp/housing-portal/internal/repo/user"
)

func setupSQLiteUserTestRepo(t *testing.T) *SQLiteUserRepository {
	t.Helper()

	db, err := sqlite.Open(sqlite.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewSQLiteUserRepository(db)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	return repo
}

func TestSQLiteUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	repo := setupSQLiteUserTestRepo(t)
	hash := []byte("$2a$10$fakehashfakehashfakehash")

	userID, err := repo.CreateUser(context.TODO(), "alice", hash)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if userID == 0 {
		t.Error("expected non-zero user id")
	}

	user, found, err := repo.GetUserByUsername(context.TODO(), "alice")
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}

	if !found {
		t.Fatal("expected user to be found")
	}

	if user.ID != userID {
		t.Errorf("expected id %d, got %d", userID, user.ID)
	}

	if user.Username != "alice" {
		t.Errorf("expected username alice, got %q", user.Username)
	}

	if !bytes.Equal(user.PasswordHash, hash) {
		t.Error("password hash does not round-trip")
	}

	if user.CreatedAt == 0 {
		t.Error("expected created_at to be set")
	}
}

func TestSQLiteUserRepository_DuplicateUsername(t *testing.T) {
	t.Parallel()

	repo := setupSQLiteUserTestRepo(t)

	if _, err := repo.CreateUser(context.TODO(), "alice", []byte("hash-1")); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	_, err := repo.CreateUser(context.TODO(), "alice", []byte("hash-2"))
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}

	// the original row is untouched
	user, _, err := repo.GetUserByUsername(context.TODO(), "alice")
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}

	if !bytes.Equal(user.PasswordHash, []byte("hash-1")) {
		t.Error("expected original password hash to survive")
	}
}

func TestSQLiteUserRepository_GetMissing(t *testing.T) {
	t.Parallel()

	repo := setupSQLiteUserTestRepo(t)

	_, found, err := repo.GetUserByUsername(context.TODO(), "nobody")
	if found {
		t.Error("expected user to not be found")
	}

	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
