package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/onboarding"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

type stubIdentities map[int64]*entity.Identity

func (s stubIdentities) Get(_ context.Context, id int64) (*entity.Identity, error) {
	if i, ok := s[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, apperr.ErrNotFound
}

type stubPrefs map[int64]bool

func (s stubPrefs) Exists(_ context.Context, id int64) (bool, error) { return s[id], nil }

type mwFixture struct {
	tokens *Service
	ids    stubIdentities
	prefs  stubPrefs
	mw     *Middleware
}

func newMWFixture() mwFixture {
	f := mwFixture{
		tokens: NewService(testConfig()),
		ids:    stubIdentities{1: {ID: 1, Version: 1, IsActive: true}},
		prefs:  stubPrefs{},
	}
	f.mw = NewMiddleware(f.tokens, f.ids, f.prefs, zap.NewNop().Sugar())
	return f
}

func (f mwFixture) token(t *testing.T, id int64) string {
	t.Helper()
	tok, _, err := f.tokens.Issue(f.ids[id])
	require.NoError(t, err)
	return tok
}

func (f mwFixture) serve(screen onboarding.Screen, token string) *httptest.ResponseRecorder {
	h := f.mw.Attach(f.mw.Gate(screen, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func redirectOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["redirect"]
}

func TestGate_Anonymous(t *testing.T) {
	f := newMWFixture()
	rec := f.serve(onboarding.Dashboard, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "login", redirectOf(t, rec))

	assert.Equal(t, http.StatusTeapot, f.serve(onboarding.Login, "").Code)
	assert.Equal(t, http.StatusTeapot, f.serve(onboarding.Register, "").Code)
}

func TestGate_NoPrefs(t *testing.T) {
	f := newMWFixture()
	tok := f.token(t, 1)

	rec := f.serve(onboarding.Dashboard, tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "preferences_setup", redirectOf(t, rec))

	assert.Equal(t, "preferences_setup", redirectOf(t, f.serve(onboarding.Login, tok)))
	assert.Equal(t, http.StatusTeapot, f.serve(onboarding.PreferencesSetup, tok).Code)
}

func TestGate_WithPrefs(t *testing.T) {
	f := newMWFixture()
	f.prefs[1] = true
	tok := f.token(t, 1)

	assert.Equal(t, "dashboard", redirectOf(t, f.serve(onboarding.PreferencesSetup, tok)))
	assert.Equal(t, "dashboard", redirectOf(t, f.serve(onboarding.Register, tok)))
	assert.Equal(t, http.StatusTeapot, f.serve(onboarding.Dashboard, tok).Code)
	assert.Equal(t, http.StatusTeapot, f.serve(onboarding.PreferencesEdit, tok).Code)
}

func TestAttach_StaleOrInactive(t *testing.T) {
	t.Run("version bumped", func(t *testing.T) {
		f := newMWFixture()
		tok := f.token(t, 1)
		f.ids[1].Version++
		assert.Equal(t, http.StatusUnauthorized, f.serve(onboarding.Dashboard, tok).Code)
	})

	t.Run("deactivated", func(t *testing.T) {
		f := newMWFixture()
		tok := f.token(t, 1)
		f.ids[1].IsActive = false
		assert.Equal(t, http.StatusUnauthorized, f.serve(onboarding.Dashboard, tok).Code)
	})

	t.Run("deleted", func(t *testing.T) {
		f := newMWFixture()
		tok := f.token(t, 1)
		delete(f.ids, 1)
		assert.Equal(t, http.StatusUnauthorized, f.serve(onboarding.Dashboard, tok).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newMWFixture()
		assert.Equal(t, http.StatusUnauthorized, f.serve(onboarding.Dashboard, "not.a.jwt").Code)
	})
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))
	r.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", bearerToken(r))
	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(r))
}
