package web

import (
	"net/http"

	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/gorilla/mux"
)

// NewRouter mounts every route behind its gate and wraps the result in
// request logging.
func NewRouter(h *Handlers, g *Gate, logger logging.Logger) http.Handler {
	r := mux.NewRouter()

	r.Handle("/", g.PopulateOptional(http.HandlerFunc(h.Index))).Methods(http.MethodGet)
	r.Handle("/signup", g.RequireGuest(http.HandlerFunc(h.SignUpPage))).Methods(http.MethodGet)
	r.Handle("/signin", g.RequireGuest(http.HandlerFunc(h.SignInPage))).Methods(http.MethodGet)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodGet)

	u := r.PathPrefix("/user").Subrouter()
	u.HandleFunc("/signup", h.SignUp).Methods(http.MethodPost)
	u.HandleFunc("/signin", h.SignIn).Methods(http.MethodPost)
	u.HandleFunc("/auth/google", h.GoogleStart).Methods(http.MethodGet)
	u.HandleFunc("/auth/google/callback", h.GoogleCallback).Methods(http.MethodGet)
	u.Handle("/profile", g.RequireAuthenticated(http.HandlerFunc(h.Profile))).Methods(http.MethodGet)

	r.Handle("/api/me", g.RequireAPIToken(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	return RequestLogger(logger)(r)
}
