package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/onboarding"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

// IdentityLoader reloads the identity named by a token.
type IdentityLoader interface {
	Get(ctx context.Context, id int64) (*entity.Identity, error)
}

// PreferenceChecker reports whether an identity finished onboarding setup.
type PreferenceChecker interface {
	Exists(ctx context.Context, identityID int64) (bool, error)
}

// Middleware resolves bearer tokens into identities.
type Middleware struct {
	tokens     *Service
	identities IdentityLoader
	prefs      PreferenceChecker
	logger     *zap.SugaredLogger
}

func NewMiddleware(tokens *Service, identities IdentityLoader, prefs PreferenceChecker, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{tokens: tokens, identities: identities, prefs: prefs, logger: logger}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("bearer "):])
}

// resolve returns the identity for the request's token, or nil when the
// request is anonymous or the token is no longer acceptable.
func (m *Middleware) resolve(r *http.Request) (*entity.Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, nil
	}
	claims, err := m.tokens.Parse(raw)
	if err != nil {
		m.logger.Debugw("session token rejected", "err", err)
		return nil, nil
	}
	id, err := claims.IdentityID()
	if err != nil {
		return nil, nil
	}
	ident, err := m.identities.Get(r.Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ident.IsActive || ident.Version != claims.Version {
		m.logger.Debugw("session token stale", "identity_id", id)
		return nil, nil
	}
	return ident, nil
}

// Attach puts the identity in the request context when a valid token is
// presented. Anonymous requests pass through untouched.
func (m *Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := m.resolve(r)
		if err != nil {
			m.logger.Errorw("session lookup failed", "request_id", utilities.RequestID(r.Context()), "err", err)
			utilities.WriteError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if ident != nil {
			r = r.WithContext(WithIdentity(r.Context(), ident))
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without an authenticated identity.
func Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			utilities.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error":    "unauthorized",
				"redirect": onboarding.Login.String(),
			})
			return
		}
		next(w, r)
	}
}

// State derives the onboarding state of the request.
func (m *Middleware) State(ctx context.Context) (onboarding.State, error) {
	ident, ok := IdentityFrom(ctx)
	if !ok {
		return onboarding.Unauthenticated, nil
	}
	has, err := m.prefs.Exists(ctx, ident.ID)
	if err != nil {
		return onboarding.Unauthenticated, err
	}
	return onboarding.StateOf(true, has), nil
}

// Gate serves next only when the onboarding state allows screen; otherwise
// it answers with a redirect to the allowed screen.
func (m *Middleware) Gate(screen onboarding.Screen, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := m.State(r.Context())
		if err != nil {
			m.logger.Errorw("onboarding state lookup failed", "request_id", utilities.RequestID(r.Context()), "err", err)
			utilities.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if dest := onboarding.Route(state, screen); dest != screen {
			if state == onboarding.Unauthenticated {
				Require(next)(w, r)
				return
			}
			utilities.WriteRedirect(w, http.StatusOK, dest.String())
			return
		}
		next(w, r)
	}
}
