// Package web is the HTTP binding of the identity core: gate middlewares,
// sign-up, sign-in, federated sign-in and logout routes.
package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/auth"
)

type ctxKey string

const identityKey ctxKey = "identity"

// TokenVerifier checks a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Identity is what the gate learned about the caller. Claims is nil for an
// anonymous caller.
type Identity struct {
	Claims *auth.Claims
}

func (i Identity) Anonymous() bool {
	return i.Claims == nil
}

// IdentityFromContext returns the identity attached by a gate middleware.
// The bool is false when no gate ran for the request.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func withIdentity(r *http.Request, claims *auth.Claims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, Identity{Claims: claims}))
}

// Gate decides per request whether the caller may proceed, based on the
// token cookie (or a bearer header for API routes).
type Gate struct {
	tokens TokenVerifier
	logger logging.Logger
}

func NewGate(tokens TokenVerifier, logger logging.Logger) *Gate {
	return &Gate{tokens: tokens, logger: logger}
}

func (g *Gate) fromCookie(r *http.Request) (*auth.Claims, error) {
	c, err := r.Cookie(common.TokenCookieName)
	if err != nil || c.Value == "" {
		return nil, common.ErrUnauthorized
	}
	claims, err := g.tokens.Verify(c.Value)
	if err != nil {
		g.logger.Debug(r.Context(), "token rejected", "path", r.URL.Path, "error", err)
		return nil, err
	}
	return claims, nil
}

// RequireAuthenticated lets through callers with a valid token and sends
// everyone else to the sign-in page.
func (g *Gate) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.fromCookie(r)
		if err != nil {
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, withIdentity(r, claims))
	})
}

// RequireGuest lets through callers without a valid token and sends signed-in
// callers home.
func (g *Gate) RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := g.fromCookie(r); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, withIdentity(r, nil))
	})
}

// PopulateOptional never blocks. It attaches the caller's claims, or an
// anonymous identity when the token is missing or invalid.
func (g *Gate) PopulateOptional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.fromCookie(r)
		if err != nil {
			claims = nil
		}
		next.ServeHTTP(w, withIdentity(r, claims))
	})
}

// RequireAPIToken accepts the token from an Authorization bearer header or
// the token cookie and answers 401 JSON otherwise.
func (g *Gate) RequireAPIToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			claims *auth.Claims
			err    error
		)
		if token, ok := bearerToken(r); ok {
			claims, err = g.tokens.Verify(token)
		} else {
			claims, err = g.fromCookie(r)
		}
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, withIdentity(r, claims))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}
