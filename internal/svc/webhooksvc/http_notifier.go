package webhooksvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
)

// ErrWebhookRejected is returned when the destination answers with a
// non-success status.
var ErrWebhookRejected = errors.New("webhook rejected notification")

// WebhookConfig holds configuration for the HTTP notifier.
type WebhookConfig struct {
	// URL is the destination for submission notifications. Empty disables
	// notifications entirely; this is a supported operating mode, not an error.
	URL string `env:"WEBHOOK_URL" default:""`

	// Timeout is the per-attempt timeout in seconds
	Timeout int64 `env:"WEBHOOK_TIMEOUT" default:"10"`

	// AttachmentField is the multipart field name for the document part
	AttachmentField string `env:"WEBHOOK_ATTACHMENT_FIELD" default:"document"`
}

// HTTPNotifier implements Notifier with a single multipart POST per
// submission.
type HTTPNotifier struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        WebhookConfig
}

var _ Notifier = (*HTTPNotifier)(nil)

// NewHTTPNotifier creates a new HTTPNotifier with the given configuration.
// If httpClient is nil, a client with the configured timeout is used.
func NewHTTPNotifier(cfg WebhookConfig, httpClient *http.Client) *HTTPNotifier {
	if httpClient == nil {
		httpClient = &http.Client{ //nolint:exhaustruct
			Timeout: time.Duration(cfg.Timeout * int64(time.Second)),
		}
	}

	return &HTTPNotifier{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.webhooksvc.http_notifier"),
		cfg:        cfg,
	}
}

// Enabled implements Notifier.Enabled.
func (n *HTTPNotifier) Enabled() bool {
	return n.cfg.URL != ""
}

// Notify implements Notifier.Notify. The payload is multipart/form-data with
// the fields full_name, income and username, plus the document bytes as a
// file part under the original filename when a document is attached.
func (n *HTTPNotifier) Notify(
	ctx context.Context,
	notice domain.SubmissionNotice,
	doc *domain.Document,
) (err error) {
	if !n.Enabled() {
		return nil
	}

	log := n.log.With(logging.Group("webhook", "url", n.cfg.URL, "username", notice.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "webhook notify failed", "error", err)
		} else {
			log.DebugContext(ctx, "webhook notified")
		}
	}()

	body, contentType, err := n.encodePayload(notice, doc)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s", ErrWebhookRejected, resp.Status)
	}

	return nil
}

func (n *HTTPNotifier) encodePayload(
	notice domain.SubmissionNotice,
	doc *domain.Document,
) (*bytes.Buffer, string, error) {
	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"full_name": notice.FullName,
		"income":    notice.Income,
		"username":  notice.Username,
	}

	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", field, err)
		}
	}

	if doc != nil {
		part, err := writer.CreateFormFile(n.cfg.AttachmentField, doc.Meta().Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}

		if _, err := doc.WriteTo(part); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}

	return &body, writer.FormDataContentType(), nil
}
