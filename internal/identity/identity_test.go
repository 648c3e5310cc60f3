package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pickleai/internal/store"
)

func newRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMiddleware_IssuesAndReusesIdentity(t *testing.T) {
	repo := newRepo(t)

	var seenUser, seenSession string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserIDFromContext(r.Context())
		seenSession = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/state", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, isValidAnonID(seenUser))
	assert.Equal(t, DefaultSessionIDValue, seenSession)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AnonCookieName, cookies[0].Name)

	user, err := repo.GetUser(context.Background(), seenUser)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, deriveUsername(seenUser), user.Username)

	first := seenUser
	req := httptest.NewRequest(http.MethodGet, "/api/chat/state", nil)
	req.AddCookie(cookies[0])
	req.Header.Set(SessionHeaderName, "tab-2")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, first, seenUser)
	assert.Equal(t, "tab-2", seenSession)
}

func TestMiddleware_RejectsForgedCookie(t *testing.T) {
	repo := newRepo(t)

	var seenUser string
	h := Middleware(repo, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "admin"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "admin", seenUser)
	assert.True(t, isValidAnonID(seenUser))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestSanitizeSessionID(t *testing.T) {
	assert.Equal(t, "abc-123", sanitizeSessionID(" abc-123 "))
	assert.Equal(t, DefaultSessionIDValue, sanitizeSessionID(""))
	assert.Equal(t, DefaultSessionIDValue, sanitizeSessionID("bad id with spaces"))
	assert.Equal(t, DefaultSessionIDValue, sanitizeSessionID("../../etc/passwd"))
}

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), "anon_0123456789abcdef0123456789abcdef", "cli")
	assert.Equal(t, "anon_0123456789abcdef0123456789abcdef", UserIDFromContext(ctx))
	assert.Equal(t, "cli", SessionIDFromContext(ctx))
	assert.Equal(t, "anon-89abcdef", UsernameFromContext(ctx))

	assert.Empty(t, UserIDFromContext(context.Background()))
	assert.Equal(t, DefaultSessionIDValue, SessionIDFromContext(context.Background()))
}
