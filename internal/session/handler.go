package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/onboarding"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

// Authenticator is the credential side of the identity service.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (*entity.Identity, error)
	Logout(ctx context.Context, id int64) (int64, error)
}

// Handler exposes login and logout.
type Handler struct {
	auth   Authenticator
	tokens *Service
	mw     *Middleware
	logger *zap.SugaredLogger
}

func NewHandler(auth Authenticator, tokens *Service, mw *Middleware, logger *zap.SugaredLogger) *Handler {
	return &Handler{auth: auth, tokens: tokens, mw: mw, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// LoginResponse carries the session token and where to go next.
type LoginResponse struct {
	Redirect  string    `json:"redirect"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "request_id", utilities.RequestID(r.Context()), "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ident, err := h.auth.Authenticate(r.Context(), req.Identifier, req.Secret)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthFailure) {
			utilities.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Errorw("login failed", "request_id", utilities.RequestID(r.Context()), "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, exp, err := h.tokens.Issue(ident)
	if err != nil {
		h.logger.Errorw("issue session token failed", "request_id", utilities.RequestID(r.Context()), "identity_id", ident.ID, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}
	state, err := h.mw.State(WithIdentity(r.Context(), ident))
	if err != nil {
		h.logger.Errorw("onboarding state lookup failed", "request_id", utilities.RequestID(r.Context()), "identity_id", ident.ID, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, LoginResponse{
		Redirect:  onboarding.Landing(state).String(),
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: exp,
	})
}

// Logout invalidates every token issued to the caller.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())
	if _, err := h.auth.Logout(r.Context(), ident.ID); err != nil {
		h.logger.Errorw("logout failed", "request_id", utilities.RequestID(r.Context()), "identity_id", ident.ID, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	utilities.WriteRedirect(w, http.StatusOK, onboarding.AfterLogout().String())
}
