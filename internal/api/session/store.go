// Package session implements a server-side session store for gin-contrib/sessions.
// The cookie only carries a signed session id, the values live in the cache backend.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/google/uuid"
	gsessions "github.com/gorilla/sessions"
	"github.com/gorilla/securecookie"
	"github.com/jon4hz/evoting/internal/cache"
)

var _ sessions.Store = (*Store)(nil)

// Store keeps session values in a cache and hands out signed session ids.
type Store struct {
	codecs  []securecookie.Codec
	options *gsessions.Options
	cache   *cache.PrefixedCache[map[string]any]
}

// NewStore creates a store. The first key signs new cookies, all keys are accepted when verifying.
func NewStore(c *cache.PrefixedCache[map[string]any], keys ...[]byte) *Store {
	pairs := make([][]byte, 0, len(keys)*2)
	for _, key := range keys {
		// sign only, the cookie holds nothing but the id
		pairs = append(pairs, key, nil)
	}
	return &Store{
		codecs: securecookie.CodecsFromPairs(pairs...),
		options: &gsessions.Options{
			Path:     "/",
			MaxAge:   86400,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		cache: c,
	}
}

// Options sets the cookie options of new sessions.
func (s *Store) Options(options sessions.Options) {
	s.options = options.ToGorillaOptions()
	for _, codec := range s.codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(options.MaxAge)
		}
	}
}

// Get returns the session of the request, using the request registry.
func (s *Store) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the cookie or returns a new empty session.
// Invalid, tampered or expired cookies yield a new session.
func (s *Store) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.codecs...); err != nil {
		log.Debug("Ignoring invalid session cookie", "error", err)
		return session, nil
	}

	values, err := s.cache.Get(r.Context(), id)
	if err != nil {
		if !cache.IsNotFound(err) {
			log.Error("failed to load session", "error", err)
		}
		return session, nil
	}

	session.ID = id
	for k, v := range values {
		session.Values[k] = v
	}
	session.IsNew = false
	return session, nil
}

// Save persists the session values and writes the cookie.
// A session with a negative MaxAge is deleted and its cookie expired.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge <= 0 {
		if session.ID != "" {
			if err := s.Delete(ctx, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	values := make(map[string]any, len(session.Values))
	for k, v := range session.Values {
		key, ok := k.(string)
		if !ok {
			return fmt.Errorf("session keys must be strings, got %T", k)
		}
		values[key] = v
	}

	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.cache.SetWithTTL(ctx, session.ID, values, ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Delete removes a session from the backend without touching cookies.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, id); err != nil && !cache.IsNotFound(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Renew drops the server-side record of the request's session and detaches it from its id,
// so the next Save issues a new id and cookie. Values set afterwards are kept.
func (s *Store) Renew(r *http.Request, name string) error {
	session, err := s.Get(r, name)
	if err != nil {
		return err
	}
	if session.ID != "" {
		if err := s.Delete(r.Context(), session.ID); err != nil {
			return err
		}
	}
	session.ID = ""
	session.IsNew = true
	return nil
}
