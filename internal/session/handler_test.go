package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

type stubAuth struct {
	ids       stubIdentities
	err       error
	loggedOut []int64
}

func (s *stubAuth) Authenticate(_ context.Context, identifier, secret string) (*entity.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if identifier == "a@example.dz" && secret == "secret123" {
		return s.ids.Get(context.Background(), 1)
	}
	return nil, apperr.ErrAuthFailure
}

func (s *stubAuth) Logout(_ context.Context, id int64) (int64, error) {
	s.loggedOut = append(s.loggedOut, id)
	s.ids[id].Version++
	return s.ids[id].Version, nil
}

func login(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))
	return rec
}

func TestLogin(t *testing.T) {
	f := newMWFixture()
	auth := &stubAuth{ids: f.ids}
	h := NewHandler(auth, f.tokens, f.mw, zap.NewNop().Sugar())

	t.Run("lands on setup without preferences", func(t *testing.T) {
		rec := login(h, `{"identifier":"a@example.dz","secret":"secret123"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "preferences_setup", resp.Redirect)
		assert.Equal(t, "Bearer", resp.TokenType)

		claims, err := f.tokens.Parse(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "1", claims.Subject)
	})

	t.Run("lands on dashboard with preferences", func(t *testing.T) {
		f.prefs[1] = true
		t.Cleanup(func() { delete(f.prefs, 1) })
		rec := login(h, `{"identifier":"a@example.dz","secret":"secret123"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "dashboard", redirectOf(t, rec))
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := login(h, `{"identifier":"a@example.dz","secret":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotContains(t, rec.Body.String(), "token")
	})

	t.Run("malformed body", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, login(h, `{`).Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		h := NewHandler(&stubAuth{ids: f.ids, err: errors.New("db down")}, f.tokens, f.mw, zap.NewNop().Sugar())
		assert.Equal(t, http.StatusInternalServerError, login(h, `{"identifier":"a@example.dz","secret":"secret123"}`).Code)
	})
}

func TestLogoutInvalidatesToken(t *testing.T) {
	f := newMWFixture()
	auth := &stubAuth{ids: f.ids}
	h := NewHandler(auth, f.tokens, f.mw, zap.NewNop().Sugar())
	tok := f.token(t, 1)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.mw.Attach(Require(h.Logout)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "login", redirectOf(t, rec))
	assert.Equal(t, []int64{1}, auth.loggedOut)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	f.mw.Attach(Require(h.Logout)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
