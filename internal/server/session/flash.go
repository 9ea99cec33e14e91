package session

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/google/uuid"
)

// Flash stores one-shot messages for the next page render of the same
// browser. The browser is identified by the sid cookie, minted on first Set.
type Flash struct {
	store  Store
	ttl    time.Duration
	secure bool
	logger logging.Logger
}

func NewFlash(store Store, ttl time.Duration, secure bool, logger logging.Logger) *Flash {
	return &Flash{store: store, ttl: ttl, secure: secure, logger: logger}
}

// Set stores value under key for the caller's session, starting a session
// if the request has none.
func (f *Flash) Set(w http.ResponseWriter, r *http.Request, key, value string) error {
	sid := f.ensureSession(w, r)
	return f.store.Set(r.Context(), sid, key, value, f.ttl)
}

// TakeOnce returns and clears the value under key. A request without a
// session, a missing value and a store failure all report false.
func (f *Flash) TakeOnce(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	sid, ok := sessionID(r)
	if !ok {
		return "", false
	}

	v, found, err := f.store.Take(r.Context(), sid, key)
	if err != nil {
		f.logger.Warn(r.Context(), "flash read failed", "key", key, "error", err)
		return "", false
	}
	return v, found
}

func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(common.SessionCookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func (f *Flash) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if sid, ok := sessionID(r); ok {
		return sid
	}

	sid := uuid.NewString()
	c := &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(f.ttl / time.Second),
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, c)
	// later Set calls while serving this request reuse the new session
	r.AddCookie(c)
	return sid
}
