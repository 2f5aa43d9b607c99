package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testSecret, time.Hour)
	require.NoError(t, err)
	return m
}

func TestManager_IssueAndParse(t *testing.T) {
	m := newTestManager(t)

	token, issued, err := m.Issue("admin")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.User)
	assert.Equal(t, issued.ID, got.ID)
	assert.Equal(t, issued.ExpiresAt.Unix(), got.ExpiresAt.Unix())
}

func TestManager_RejectsTamperedToken(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue("admin")
	require.NoError(t, err)

	other, err := NewManager("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = m.Parse(token + "x")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	m := newTestManager(t)
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	token, _, err := m.Issue("admin")
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_Revoke(t *testing.T) {
	m := newTestManager(t)
	token, s, err := m.Issue("admin")
	require.NoError(t, err)

	m.Revoke(s)
	assert.Equal(t, 1, m.RevokedCount())

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)
	_, err = NewManager(testSecret, 0)
	assert.Error(t, err)
}

func TestStaticAuthenticator(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	ctx := context.Background()

	a := NewStaticAuthenticator("admin", string(hash), false)

	user, err := a.Authenticate(ctx, "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	_, err = a.Authenticate(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStaticAuthenticator_NoHash(t *testing.T) {
	ctx := context.Background()

	_, err := NewStaticAuthenticator("admin", "", false).Authenticate(ctx, "admin", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := NewStaticAuthenticator("admin", "", true).Authenticate(ctx, "admin", "anything")
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
}

func TestRequire_RedirectsWithoutSession(t *testing.T) {
	m := newTestManager(t)
	h := m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/ui/transactions/grid", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
}

func TestRequire_PassesSessionThrough(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue("admin")
	require.NoError(t, err)

	var seen Session
	h := m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = s
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin", seen.User)
}

func TestRequireAPI_Unauthorized(t *testing.T) {
	m := newTestManager(t)
	h := m.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}
