package webhooksvc_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/svc/webhooksvc"
)

func TestHTTPNotifier_Disabled(t *testing.T) {
	t.Parallel()

	notifier := webhooksvc.NewHTTPNotifier(webhooksvc.WebhookConfig{URL: ""}, nil)

	assert.False(t, notifier.Enabled())

	// Notify without a destination is a silent no-op
	err := notifier.Notify(context.Background(), domain.SubmissionNotice{
		FullName: "Alice Smith",
		Income:   "50000",
		Username: "alice",
	}, nil)
	require.NoError(t, err)
}

func TestHTTPNotifier_Notify(t *testing.T) {
	t.Parallel()

	var (
		gotFullName string
		gotIncome   string
		gotUsername string
		gotFile     []byte
		gotFilename string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotFullName = r.FormValue("full_name")
		gotIncome = r.FormValue("income")
		gotUsername = r.FormValue("username")

		file, header, err := r.FormFile("document")
		require.NoError(t, err)

		defer file.Close()

		gotFilename = header.Filename
		gotFile, err = io.ReadAll(file)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	notifier := webhooksvc.NewHTTPNotifier(webhooksvc.WebhookConfig{
		URL:             server.URL,
		Timeout:         5,
		AttachmentField: "document",
	}, nil)

	require.True(t, notifier.Enabled())

	doc := domain.NewDocument([]byte("payslip bytes"), domain.DocumentMeta{
		ID:       "abc123",
		Filename: "payslip.pdf",
	})

	err := notifier.Notify(context.Background(), domain.SubmissionNotice{
		FullName: "Alice Smith",
		Income:   "50000",
		Username: "alice",
	}, &doc)
	require.NoError(t, err)

	assert.Equal(t, "Alice Smith", gotFullName)
	assert.Equal(t, "50000", gotIncome)
	assert.Equal(t, "alice", gotUsername)
	assert.Equal(t, "payslip.pdf", gotFilename)
	assert.Equal(t, []byte("payslip bytes"), gotFile)
}

func TestHTTPNotifier_NotifyWithoutDocument(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		_, _, err := r.FormFile("document")
		assert.Error(t, err, "no document part expected")

		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	notifier := webhooksvc.NewHTTPNotifier(webhooksvc.WebhookConfig{
		URL:             server.URL,
		Timeout:         5,
		AttachmentField: "document",
	}, nil)

	err := notifier.Notify(context.Background(), domain.SubmissionNotice{
		FullName: "Alice Smith",
		Income:   "50000",
		Username: "alice",
	}, nil)
	require.NoError(t, err)
}

func TestHTTPNotifier_NotifyRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	notifier := webhooksvc.NewHTTPNotifier(webhooksvc.WebhookConfig{
		URL:     server.URL,
		Timeout: 5,
	}, nil)

	err := notifier.Notify(context.Background(), domain.SubmissionNotice{
		FullName: "Alice Smith",
		Income:   "50000",
		Username: "alice",
	}, nil)
	require.ErrorIs(t, err, webhooksvc.ErrWebhookRejected)
}

func TestHTTPNotifier_NotifyUnreachable(t *testing.T) {
	t.Parallel()

	// A server that is already closed
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	notifier := webhooksvc.NewHTTPNotifier(webhooksvc.WebhookConfig{
		URL:     server.URL,
		Timeout: 1,
	}, nil)

	err := notifier.Notify(context.Background(), domain.SubmissionNotice{Username: "alice"}, nil)
	require.Error(t, err)
}
