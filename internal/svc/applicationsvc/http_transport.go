package applicationsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
	http_ "github.com/mkrupp/housing-portal/internal/infra/transport/http"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	// MultipartFormMaxMemory is the in-memory budget in bytes for parsing
	// multipart submissions; larger parts spill to temp files
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_MEMORY" default:"33554432"`
}

// HTTPTransport handles HTTP requests for the application service.
// All endpoints require an authenticated session.
type HTTPTransport struct {
	appSvc   *ApplicationService
	sessions http_.SessionResolver
	log      logging.Logger
	cfg      HTTPTransportConfig
}

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// The session resolver guards every route; requests reach the handlers only
// with a session already bound to their context.
func NewHTTPTransport(
	appSvc *ApplicationService,
	sessions http_.SessionResolver,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	return &HTTPTransport{
		appSvc:   appSvc,
		sessions: sessions,
		log:      logging.GetLogger("svc.applicationsvc.http_transport"),
		cfg:      cfg,
	}
}

// ServeHTTP implements http.Handler and sets up routes for the application service endpoints:
// - POST /applications: Submit a new application
// - GET /applications: List the user's applications
// - GET /applications/{application_id}/document: Download a submitted document.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /applications", ht.HandleSubmit)
	mux.HandleFunc("GET /applications", ht.HandleList)
	mux.HandleFunc("GET /applications/{application_id}/document", ht.HandleGetDocument)

	http_.SessionMiddleware(mux, ht.sessions, ht.log).ServeHTTP(w, r)
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// HandleSubmit processes application submission requests.
// Expects multipart form parameters: full_name, income and optionally a
// document file part. Redirects to the application list on success.
func (ht *HTTPTransport) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleSubmit(w, r)
}

func (ht *HTTPTransport) handleSubmit(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "application submit failed", "error", err)
		} else {
			log.DebugContext(ctx, "application submitted")
		}
	}(r.Context())

	submission, err := ht.parseSubmission(w, r)
	if err != nil {
		return err
	}

	if _, err := ht.appSvc.Submit(r.Context(), submission); err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingFullName), errors.Is(err, domain.ErrMissingIncome):
			http.Error(w, "full_name and income are required", http.StatusBadRequest)
		case errors.Is(err, domain.ErrDocumentTooLarge):
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
		default:
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

		return fmt.Errorf("submit application: %w", err)
	}

	http.Redirect(w, r, "/applications", http.StatusSeeOther)

	return nil
}

// HandleList returns the user's applications as JSON, newest first.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "application list failed", "error", err)
		} else {
			log.DebugContext(ctx, "applications listed")
		}
	}(r.Context())

	apps, err := ht.appSvc.ListForUser(r.Context())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("list applications: %w", err)
	}

	if apps == nil {
		apps = []domain.Application{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(apps); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// HandleGetDocument streams the document attached to one of the user's
// applications. The response carries the original filename, not the
// storage key.
func (ht *HTTPTransport) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGetDocument(w, r)
}

func (ht *HTTPTransport) handleGetDocument(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "document download failed", "error", err)
		} else {
			log.DebugContext(ctx, "document downloaded")
		}
	}(r.Context())

	applicationID, err := strconv.ParseInt(r.PathValue("application_id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("parse application id: %w", err)
	}

	doc, err := ht.appSvc.GetDocument(r.Context(), applicationID)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) || errors.Is(err, domain.ErrDocumentNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		} else {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

		return fmt.Errorf("get document: %w", err)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": doc.Meta().Filename}))
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size(), 10))

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	return nil
}

func (ht *HTTPTransport) parseSubmission(w http.ResponseWriter, r *http.Request) (domain.Submission, error) {
	if err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return domain.Submission{}, fmt.Errorf("parse multipart form: %w", err)
	}

	submission := domain.Submission{
		FullName: r.FormValue("full_name"),
		Income:   r.FormValue("income"),
	}

	file, header, err := r.FormFile("document")

	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Submissions without a document are valid
	case err != nil:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return domain.Submission{}, fmt.Errorf("read document part: %w", err)
	case header.Filename == "":
		// Browsers send an empty part when the file input is left blank
		_ = file.Close()
	default:
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

			return domain.Submission{}, fmt.Errorf("read document part: %w", err)
		}

		submission.Document = &domain.DocumentUpload{
			Filename: header.Filename,
			Data:     data,
		}
	}

	return submission, nil
}
