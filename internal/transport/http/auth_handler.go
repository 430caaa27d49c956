package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/constants"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"
	"github.com/IgorGrieder/encurtador-live/pkg/httputils"
	"go.uber.org/zap"
)

const (
	oauthStateCookie = "oauth-state"
	oauthStateTTL    = 10 * time.Minute
)

type AuthHandler struct {
	oauth  *auth.GitHubOAuth
	secure bool
}

func NewAuthHandler(oauth *auth.GitHubOAuth, secureCookies bool) *AuthHandler {
	return &AuthHandler{oauth: oauth, secure: secureCookies}
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) error {
	state, err := auth.NewState()
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/oauth",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
	return nil
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(query.Get("state"))) != 1 {
		httputils.WriteText(w, r, http.StatusBadRequest, constants.MsgInvalidState)
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/oauth", MaxAge: -1})

	sessionID, identity, err := h.oauth.Complete(r.Context(), query.Get("code"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			httputils.WriteText(w, r, http.StatusBadRequest, constants.MsgInvalidState)
			return nil
		}
		return err
	}

	if err := h.oauth.Sessions().Issue(w, sessionID); err != nil {
		return err
	}

	logger.Info("user signed in", zap.String("login", identity.Login))
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) error {
	h.oauth.Sessions().Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

// Home reports who is signed in; data is null for anonymous callers.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) error {
	identity, _ := auth.FromContext(r.Context())
	httputils.WriteAPISuccess(w, r, constants.SuccessIdentityFound, identity)
	return nil
}
