package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
)

// SQLiteApplicationRepository implements Repository on the process-wide SQLite handle.
type SQLiteApplicationRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteApplicationRepository)(nil)

// NewSQLiteApplicationRepository creates a new SQLiteApplicationRepository on
// the given database handle, creating the schema if needed. The users table
// must exist before this is called because of the foreign key.
func NewSQLiteApplicationRepository(db *sql.DB) (*SQLiteApplicationRepository, error) {
	log := logging.GetLogger("repo.application.sqlite_application_repository")

	if err := initializeDB(db); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	return &SQLiteApplicationRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) (err error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS applications (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     INTEGER NOT NULL REFERENCES users(id),
			full_name   TEXT    NOT NULL,
			income      TEXT    NOT NULL,
			document_id TEXT,
			created_at  INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Create implements Repository.Create using a single INSERT.
func (r *SQLiteApplicationRepository) Create(
	ctx context.Context,
	userID int64,
	fullName string,
	income string,
	documentID domain.DocumentID,
) (app *domain.Application, err error) {
	log := r.log.With(logging.Group("application", "userID", userID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "application create failed", "error", err)
		} else {
			log.DebugContext(ctx, "application created", "id", app.ID)
		}
	}()

	submission := domain.Submission{FullName: fullName, Income: income}
	if err := submission.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	submission = submission.Normalized()

	var docID sql.NullString
	if documentID != "" {
		docID = sql.NullString{String: documentID.String(), Valid: true}
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	createdAt := time.Now().Unix()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO applications (user_id, full_name, income, document_id, created_at) VALUES (?, ?, ?, ?, ?)",
		userID,
		submission.FullName,
		submission.Income,
		docID,
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}

	appID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &domain.Application{
		ID:         appID,
		UserID:     userID,
		FullName:   submission.FullName,
		Income:     submission.Income,
		DocumentID: documentID,
		CreatedAt:  createdAt,
	}, nil
}

// ListByUser implements Repository.ListByUser ordered newest first.
func (r *SQLiteApplicationRepository) ListByUser(
	ctx context.Context,
	userID int64,
) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, full_name, income, document_id, created_at
		FROM applications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var apps []domain.Application

	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}

		apps = append(apps, *app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	return apps, nil
}

// GetByID implements Repository.GetByID.
func (r *SQLiteApplicationRepository) GetByID(
	ctx context.Context,
	id int64,
) (*domain.Application, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, full_name, income, document_id, created_at
		FROM applications
		WHERE id = ?`,
		id,
	)

	app, err := scanApplication(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrApplicationNotFound, err)
		}

		return nil, false, fmt.Errorf("query application: %w", err)
	}

	return app, true, nil
}

func scanApplication(scan func(dest ...any) error) (*domain.Application, error) {
	var (
		app   domain.Application
		docID sql.NullString
	)

	if err := scan(&app.ID, &app.UserID, &app.FullName, &app.Income, &docID, &app.CreatedAt); err != nil {
		return nil, err
	}

	if docID.Valid {
		app.DocumentID = domain.DocumentID(docID.String)
	}

	return &app, nil
}
