package authsvc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/svc/authsvc"
)

func newHTTPTransport() (*authsvc.HTTPTransport, *authsvc.AuthService) {
	svc, _ := newAuthService()

	return authsvc.NewHTTPTransport(svc, authsvc.HTTPTransportConfig{
		SessionCookieMaxAge: 3600,
	}), svc
}

func postForm(transport http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	transport.ServeHTTP(w, r)

	return w
}

func TestHTTPTransport_Register(t *testing.T) {
	t.Parallel()

	transport, _ := newHTTPTransport()

	w := postForm(transport, "/auth/register", url.Values{
		"username": {"alice"},
		"password": {"pw123"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// duplicate registration is rejected
	w = postForm(transport, "/auth/register", url.Values{
		"username": {"alice"},
		"password": {"other"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// missing fields are rejected before the service is touched
	w = postForm(transport, "/auth/register", url.Values{"username": {"bob"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPTransport_Login(t *testing.T) {
	t.Parallel()

	transport, svc := newHTTPTransport()

	w := postForm(transport, "/auth/register", url.Values{
		"username": {"alice"},
		"password": {"pw123"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postForm(transport, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"pw123"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response domain.SessionTokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.NotEmpty(t, response.Token)

	// the cookie carries the same token as the JSON body
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_token", cookies[0].Name)
	assert.Equal(t, response.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	_, ok := svc.Authenticate(context.Background(), response.Token)
	assert.True(t, ok)

	w = postForm(transport, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHTTPTransport_Logout(t *testing.T) {
	t.Parallel()

	transport, svc := newHTTPTransport()

	w := postForm(transport, "/auth/register", url.Values{
		"username": {"alice"},
		"password": {"pw123"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postForm(transport, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"pw123"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response domain.SessionTokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r.Header.Set("Authorization", "Bearer "+response.Token)
	w = httptest.NewRecorder()
	transport.ServeHTTP(w, r)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))

	// the session is destroyed server-side, not just the cookie
	_, ok := svc.Authenticate(context.Background(), response.Token)
	assert.False(t, ok)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_token", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)

	// logout without a token is still a redirect
	w = postForm(transport, "/auth/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}
