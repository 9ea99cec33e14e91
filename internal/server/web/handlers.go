package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/identity"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/dmitrijs2005/inkwell/internal/server/services"
	"github.com/dmitrijs2005/inkwell/internal/server/session"
)

// User-visible messages.
const (
	msgUserCreated    = "User created successfully"
	msgUsernameTaken  = "Username already exists"
	msgCannotCreate   = "Cannot create Account. Contact Support!"
	msgFieldsRequired = "All fields are required!"
	msgInvalidCreds   = "Invalid credentials!"
	msgContactSupport = "Contact Support!"
	msgGoogleFailed   = "Google Sign In Failed. Contact Support!"
	msgNotFound       = "Not found"
)

const oauthStateLifetime = 10 * time.Minute

type AccountService interface {
	SignUp(ctx context.Context, in services.SignUpInput) (*models.FullUser, error)
	SignIn(ctx context.Context, username, password string) (string, error)
}

type IdentityLinker interface {
	Link(ctx context.Context, profile models.Profile) (*identity.LinkResult, error)
}

// CookieConfig controls the token cookie.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// Handlers translates service outcomes into cookies, redirects, flash
// messages and rendered pages.
type Handlers struct {
	users     AccountService
	linker    IdentityLinker
	exchanger identity.ProfileExchanger
	flash     *session.Flash
	render    Renderer
	cookies   CookieConfig
	logger    logging.Logger
}

func NewHandlers(
	users AccountService,
	linker IdentityLinker,
	exchanger identity.ProfileExchanger,
	flash *session.Flash,
	render Renderer,
	cookies CookieConfig,
	logger logging.Logger,
) *Handlers {
	return &Handlers{
		users:     users,
		linker:    linker,
		exchanger: exchanger,
		flash:     flash,
		render:    render,
		cookies:   cookies,
		logger:    logger.With("module", "web"),
	}
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	if err := h.render.Render(w, status, page, data); err != nil {
		h.logger.Error(r.Context(), "render failed", "page", page, "error", err)
	}
}

func callerClaims(r *http.Request) any {
	id, ok := IdentityFromContext(r.Context())
	if !ok || id.Anonymous() {
		return nil
	}
	return id.Claims
}

// Index renders the home page with the caller (if any) and pending flashes.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"user": callerClaims(r)}
	if v, ok := h.flash.TakeOnce(w, r, common.FlashError); ok {
		data["error"] = v
	}
	if v, ok := h.flash.TakeOnce(w, r, common.FlashMessage); ok {
		data["message"] = v
	}
	h.renderPage(w, r, http.StatusOK, "index", data)
}

func (h *Handlers) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "signup", nil)
}

func (h *Handlers) SignInPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"error": nil}
	if v, ok := h.flash.TakeOnce(w, r, common.FlashError); ok {
		data["error"] = v
	}
	h.renderPage(w, r, http.StatusOK, "signin", data)
}

// SignUp is a JSON endpoint: 201 on success, 400 with the first validation
// message or a taken username, 500 otherwise.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	in, err := decodeSignUp(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Malformed request body"})
		return
	}

	_, err = h.users.SignUp(r.Context(), in)

	var ve *common.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, messageBody{Message: msgUserCreated})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Message})
	case errors.Is(err, common.ErrAlreadyExists):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgUsernameTaken})
	default:
		h.logger.Error(r.Context(), "sign up failed", "username", in.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgCannotCreate})
	}
}

type signInForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignIn sets the token cookie and goes home on success. Every failure goes
// back to the sign-in page with a flash message and no cookie.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	form, err := decodeSignIn(r)
	if err != nil {
		h.failSignIn(w, r, msgFieldsRequired)
		return
	}

	token, err := h.users.SignIn(r.Context(), form.Username, form.Password)
	switch {
	case err == nil:
		h.setTokenCookie(w, token)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, common.ErrValidation):
		h.failSignIn(w, r, msgFieldsRequired)
	case errors.Is(err, common.ErrUnauthorized):
		h.failSignIn(w, r, msgInvalidCreds)
	default:
		h.logger.Error(r.Context(), "sign in failed", "username", form.Username, "error", err)
		h.failSignIn(w, r, msgContactSupport)
	}
}

func (h *Handlers) failSignIn(w http.ResponseWriter, r *http.Request, msg string) {
	if err := h.flash.Set(w, r, common.FlashError, msg); err != nil {
		h.logger.Warn(r.Context(), "flash write failed", "error", err)
	}
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GoogleStart sends the browser to the provider with a fresh anti-forgery
// state remembered in a short-lived cookie.
func (h *Handlers) GoogleStart(w http.ResponseWriter, r *http.Request) {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		h.logger.Error(r.Context(), "oauth state generation failed", "error", err)
		h.failGoogle(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.OAuthStateCookieName,
		Value:    state,
		Path:     "/user/auth/google",
		MaxAge:   int(oauthStateLifetime / time.Second),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.exchanger.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback completes federated sign-in.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	expected := h.takeOAuthState(w, r)

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Warn(ctx, "provider refused sign in", "reason", e)
		h.failGoogle(w, r)
		return
	}

	state := q.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		h.logger.Warn(ctx, "oauth state mismatch")
		h.failGoogle(w, r)
		return
	}

	profile, err := h.exchanger.Exchange(ctx, q.Get("code"))
	if err != nil {
		h.logger.Error(ctx, "google code exchange failed", "error", err)
		h.failGoogle(w, r)
		return
	}

	res, err := h.linker.Link(ctx, *profile)
	if err != nil {
		h.logger.Error(ctx, "federated account link failed", "error", err)
		h.failGoogle(w, r)
		return
	}

	h.setTokenCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) takeOAuthState(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(common.OAuthStateCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     common.OAuthStateCookieName,
		Value:    "",
		Path:     "/user/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Value
}

func (h *Handlers) failGoogle(w http.ResponseWriter, r *http.Request) {
	if err := h.flash.Set(w, r, common.FlashError, msgGoogleFailed); err != nil {
		h.logger.Warn(r.Context(), "flash write failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Profile renders the signed-in caller's page.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "profile", map[string]any{"user": callerClaims(r)})
}

// Me returns the caller's token claims.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, callerClaims(r))
}

// NotFound answers with a page for browsers, JSON for API clients and plain
// text for everyone else.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	switch negotiate(r.Header.Get("Accept")) {
	case "html":
		h.renderPage(w, r, http.StatusNotFound, "404", map[string]any{"url": r.URL.RequestURI()})
	case "json":
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgNotFound})
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(msgNotFound))
	}
}

// negotiate picks "html", "json" or "" from an Accept header. The first
// recognised media range wins; a missing header counts as html.
func negotiate(accept string) string {
	if strings.TrimSpace(accept) == "" {
		return "html"
	}
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "text/html", "*/*", "text/*":
			return "html"
		case "application/json", "application/*":
			return "json"
		}
	}
	return ""
}

func (h *Handlers) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookies.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

// decodeSignUp reads the sign-up form from a JSON body or posted form values.
func decodeSignUp(r *http.Request) (services.SignUpInput, error) {
	var in services.SignUpInput
	if isJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}
	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in.Name = r.PostFormValue("name")
	in.City = r.PostFormValue("city")
	in.Username = r.PostFormValue("username")
	in.Password = r.PostFormValue("password")
	in.Mobile = r.PostFormValue("mobile")
	return in, nil
}

func decodeSignIn(r *http.Request) (signInForm, error) {
	var form signInForm
	if isJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&form)
		return form, err
	}
	if err := r.ParseForm(); err != nil {
		return form, err
	}
	form.Username = r.PostFormValue("username")
	form.Password = r.PostFormValue("password")
	return form, nil
}
