package applicationsvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/housing-portal/internal/domain"
	context_ "github.com/mkrupp/housing-portal/internal/infra/context"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
	"github.com/mkrupp/housing-portal/internal/repo/application"
	"github.com/mkrupp/housing-portal/internal/repo/document"
	"github.com/mkrupp/housing-portal/internal/svc/webhooksvc"
)

// ApplicationConfig contains configuration parameters for the application service.
type ApplicationConfig struct {
	// NotifyTimeout is the budget in seconds for one webhook dispatch,
	// counted independently of the originating request
	NotifyTimeout int64 `env:"NOTIFY_TIMEOUT" default:"15"`
}

// ApplicationService orchestrates the submission workflow: it resolves the
// caller's identity, validates the submission, stores the document, commits
// the application record and dispatches the webhook notification. Failures
// before the commit abort the submission; the notification never does.
type ApplicationService struct {
	AppRepo  application.Repository
	DocRepo  document.Repository
	Notifier webhooksvc.Notifier
	Config   ApplicationConfig
	Log      logging.Logger
}

// NewApplicationService creates a new ApplicationService with the given
// repositories and notifier.
func NewApplicationService(
	appRepo application.Repository,
	docRepo document.Repository,
	notifier webhooksvc.Notifier,
	cfg ApplicationConfig,
) *ApplicationService {
	return &ApplicationService{
		AppRepo:  appRepo,
		DocRepo:  docRepo,
		Notifier: notifier,
		Config:   cfg,
		Log:      logging.GetLogger("svc.applicationsvc"),
	}
}

// Submit runs the submission workflow for the session bound to ctx.
// The document, if present, is stored before the record is committed; a
// commit failure deletes the stored document again so no unreferenced
// bytes remain. The webhook notification is dispatched asynchronously
// after the commit and cannot fail the submission.
func (svc *ApplicationService) Submit(
	ctx context.Context,
	submission domain.Submission,
) (app *domain.Application, err error) {
	session, ok := context_.SessionFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	log := svc.Log.With(logging.Group("user", "username", session.Username))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "submission failed", "error", err)
		} else {
			log.DebugContext(ctx, "submission accepted", "application_id", app.ID)
		}
	}(ctx)

	if err := submission.Validate(); err != nil {
		return nil, fmt.Errorf("validate submission: %w", err)
	}

	submission = submission.Normalized()

	var documentID domain.DocumentID

	if submission.Document != nil {
		meta, err := svc.DocRepo.Store(ctx, submission.Document.Filename, bytes.NewReader(submission.Document.Data))
		if err != nil {
			return nil, fmt.Errorf("store document: %w", err)
		}

		documentID = meta.ID
	}

	app, err = svc.AppRepo.Create(ctx, session.UserID, submission.FullName, submission.Income, documentID)
	if err != nil {
		if documentID != "" {
			if delErr := svc.DocRepo.Delete(ctx, documentID); delErr != nil {
				log.ErrorContext(ctx, "orphaned document cleanup failed",
					"document_id", documentID, "error", delErr)
			}
		}

		return nil, fmt.Errorf("create application: %w", err)
	}

	svc.dispatchNotification(session, *app)

	return app, nil
}

// ListForUser retrieves the session user's applications, newest first.
func (svc *ApplicationService) ListForUser(ctx context.Context) ([]domain.Application, error) {
	session, ok := context_.SessionFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	apps, err := svc.AppRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	return apps, nil
}

// GetDocument retrieves the document attached to one of the session user's
// applications. Applications of other users are reported as not found.
func (svc *ApplicationService) GetDocument(
	ctx context.Context,
	applicationID int64,
) (*domain.Document, error) {
	session, ok := context_.SessionFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	app, found, err := svc.AppRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	if !found || app.UserID != session.UserID {
		return nil, domain.ErrApplicationNotFound
	}

	if !app.HasDocument() {
		return nil, domain.ErrDocumentNotFound
	}

	doc, err := svc.DocRepo.Fetch(ctx, app.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	return doc, nil
}

// dispatchNotification relays the committed submission to the webhook on a
// detached goroutine with its own deadline. The request that triggered it
// has already been answered; errors are logged and dropped.
func (svc *ApplicationService) dispatchNotification(session domain.Session, app domain.Application) {
	if !svc.Notifier.Enabled() {
		return
	}

	notice := domain.SubmissionNotice{
		FullName: app.FullName,
		Income:   app.Income,
		Username: session.Username,
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				svc.Log.Error("notification dispatch panicked", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(svc.Config.NotifyTimeout*int64(time.Second)),
		)
		defer cancel()

		var doc *domain.Document

		if app.HasDocument() {
			fetched, err := svc.DocRepo.Fetch(ctx, app.DocumentID)
			if err != nil {
				svc.Log.ErrorContext(ctx, "fetch document for notification failed",
					"document_id", app.DocumentID, "error", err)
			} else {
				doc = fetched
			}
		}

		if err := svc.Notifier.Notify(ctx, notice, doc); err != nil {
			if errors.Is(err, webhooksvc.ErrWebhookRejected) {
				svc.Log.WarnContext(ctx, "webhook rejected notification",
					"application_id", app.ID, "error", err)
			} else {
				svc.Log.ErrorContext(ctx, "webhook notification failed",
					"application_id", app.ID, "error", err)
			}
		}
	}()
}
