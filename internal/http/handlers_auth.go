package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*domainauth.Session, error)
	Refresh(ctx context.Context, clientID string) (*domainauth.Session, error)
	Logout(ctx context.Context, clientID string)
	CurrentSession(ctx context.Context, clientID string) (*domainauth.Session, error)
	Watch(ctx context.Context, clientID string) (*service.SessionWatch, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// statusResponse is the body of /auth/status, /auth/refresh and each /auth/events message.
type statusResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *domainauth.Session `json:"user,omitempty"`
}

func statusOf(s *domainauth.Session) statusResponse {
	return statusResponse{Authenticated: s != nil, User: s}
}

// Login handles the login initiation endpoint.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		RenderError(w, r, h.logger(), "login_failed", err)
		return
	}

	maxAge := int(oauthCookieTTL.Seconds())
	h.setCookie(w, r, stateCookie, result.State, maxAge)
	h.setCookie(w, r, nonceCookie, result.Nonce, maxAge)
	h.setCookie(w, r, redirectCookie, redirectURI, maxAge)

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles the OAuth callback endpoint and waits for the client's role to resolve.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	sc, err := r.Cookie(stateCookie)
	if err != nil || sc.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nc, err := r.Cookie(nonceCookie)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	sess, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		ClientID: ClientIDFromContext(r.Context()),
		Code:     code,
		State:    state,
		Nonce:    nc.Value,
	})
	if err != nil {
		RenderError(w, r, h.logger(), "login_completion_failed", err)
		return
	}

	h.clearCookie(w, r, stateCookie)
	h.clearCookie(w, r, nonceCookie)

	h.logger().InfoContext(r.Context(), "signed in",
		"client_id", ClientIDFromContext(r.Context()),
		"subject_id", sess.ID,
		"role", sess.Role,
	)
	http.Redirect(w, r, h.postLoginRedirect(w, r), http.StatusFound)
}

// Refresh re-resolves the role of the client's current identity.
// POST /auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Refresh(r.Context(), ClientIDFromContext(r.Context()))
	if err != nil {
		RenderError(w, r, h.logger(), "refresh_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, statusOf(sess))
}

// Logout clears the client's session. The provider sign-out finishes in the background.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Svc.Logout(r.Context(), ClientIDFromContext(r.Context()))

	redirectURI := r.FormValue("redirect_uri")
	if redirectURI == "" {
		redirectURI = r.URL.Query().Get("redirect_uri")
	}
	redirectURI = safeRedirectPath(redirectURI)

	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "signed_out",
			"redirect_to": redirectURI,
		})
		return
	}

	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.CurrentSession(r.Context(), ClientIDFromContext(r.Context()))
	if err != nil {
		WriteJSON(w, http.StatusOK, statusOf(nil))
		return
	}
	WriteJSON(w, http.StatusOK, statusOf(sess))
}

func (h *AuthHandlers) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearCookie mirrors the attributes used when setting so browsers match the cookie.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// postLoginRedirect returns the stored post-login path and clears its cookie.
func (h *AuthHandlers) postLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(redirectCookie)
	if err != nil {
		return "/"
	}
	h.clearCookie(w, r, redirectCookie)
	return safeRedirectPath(c.Value)
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute or protocol-relative URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
