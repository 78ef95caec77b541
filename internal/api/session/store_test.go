package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	gsessions "github.com/gorilla/sessions"
	"github.com/jon4hz/evoting/internal/cache"
	"github.com/jon4hz/evoting/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "evoting_session"

var (
	oldKey = []byte("0123456789abcdef0123456789abcdef")
	newKey = []byte("fedcba9876543210fedcba9876543210")
)

func newCache() *cache.PrefixedCache[map[string]any] {
	return cache.New[map[string]any](&config.CacheConfig{Type: config.CacheTypeMemory}, cache.SessionCachePrefix)
}

// saveSession stores values in a fresh session and returns the issued cookie.
func saveSession(t *testing.T, store *Store, values map[string]any) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	session, err := store.New(req, cookieName)
	require.NoError(t, err)
	require.True(t, session.IsNew)

	for k, v := range values {
		session.Values[k] = v
	}
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, session))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func load(t *testing.T, store *Store, cookie *http.Cookie) *gsessions.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	session, err := store.New(req, cookieName)
	require.NoError(t, err)
	return session
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(newCache(), oldKey)
	cookie := saveSession(t, store, map[string]any{"user_usn": "1ab", "user_is_admin": true})

	assert.True(t, cookie.HttpOnly)
	assert.NotContains(t, cookie.Value, "1ab")

	session := load(t, store, cookie)
	assert.False(t, session.IsNew)
	assert.Equal(t, "1ab", session.Values["user_usn"])
	assert.Equal(t, true, session.Values["user_is_admin"])
}

func TestStoreTamperedCookie(t *testing.T) {
	store := NewStore(newCache(), oldKey)
	cookie := saveSession(t, store, map[string]any{"user_usn": "1ab"})

	cookie.Value = "AAAA" + cookie.Value[4:]
	session := load(t, store, cookie)
	assert.True(t, session.IsNew)
	assert.Empty(t, session.Values)
}

func TestStoreForeignKey(t *testing.T) {
	c := newCache()
	cookie := saveSession(t, NewStore(c, newKey), map[string]any{"user_usn": "1ab"})

	session := load(t, NewStore(c, oldKey), cookie)
	assert.True(t, session.IsNew)
}

func TestStoreKeyRotation(t *testing.T) {
	c := newCache()
	cookie := saveSession(t, NewStore(c, oldKey), map[string]any{"user_usn": "1ab"})

	rotated := NewStore(c, newKey, oldKey)
	session := load(t, rotated, cookie)
	assert.False(t, session.IsNew)
	assert.Equal(t, "1ab", session.Values["user_usn"])

	// cookies are re-signed with the new key
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, rotated.Save(req, rec, session))
	reissued := rec.Result().Cookies()[0]

	session = load(t, NewStore(c, newKey), reissued)
	assert.False(t, session.IsNew)
	assert.Equal(t, "1ab", session.Values["user_usn"])
}

func TestStoreDeleteOnNegativeMaxAge(t *testing.T) {
	store := NewStore(newCache(), oldKey)
	cookie := saveSession(t, store, map[string]any{"user_usn": "1ab"})

	session := load(t, store, cookie)
	require.False(t, session.IsNew)
	session.Options.MaxAge = -1

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, session))

	expired := rec.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Empty(t, expired[0].Value)
	assert.Negative(t, expired[0].MaxAge)

	// the old cookie no longer resolves
	assert.True(t, load(t, store, cookie).IsNew)
}

func TestStoreOptions(t *testing.T) {
	store := NewStore(newCache(), oldKey)
	store.Options(sessions.Options{Path: "/", MaxAge: 60, Secure: true, HttpOnly: true})

	cookie := saveSession(t, store, map[string]any{"user_usn": "1ab"})
	assert.True(t, cookie.Secure)
	assert.Equal(t, 60, cookie.MaxAge)
}

func TestStoreMissingCookie(t *testing.T) {
	store := NewStore(newCache(), oldKey)
	session, err := store.New(httptest.NewRequest(http.MethodGet, "/", nil), cookieName)
	require.NoError(t, err)
	assert.True(t, session.IsNew)
	assert.Empty(t, session.ID)
}

func TestStoreRenew(t *testing.T) {
	store := NewStore(newCache(), oldKey)
	cookie := saveSession(t, store, map[string]any{"user_usn": "1ab"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	session, err := store.Get(req, cookieName)
	require.NoError(t, err)
	oldID := session.ID
	require.NotEmpty(t, oldID)

	require.NoError(t, store.Renew(req, cookieName))
	assert.Empty(t, session.ID)
	assert.True(t, session.IsNew)

	session.Values["user_usn"] = "2cd"
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, session))
	assert.NotEqual(t, oldID, session.ID)

	// the old cookie is gone, the new one carries the new values
	assert.True(t, load(t, store, cookie).IsNew)
	renewed := load(t, store, rec.Result().Cookies()[0])
	assert.False(t, renewed.IsNew)
	assert.Equal(t, "2cd", renewed.Values["user_usn"])
}
