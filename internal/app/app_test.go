package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference/entity"
)

func TestNew_MemoryCascadesPreferences(t *testing.T) {
	t.Setenv("S3_BUCKET", "")
	t.Setenv("BCRYPT_COST", "4")
	ctx := context.Background()

	a, err := New(ctx, zap.NewNop().Sugar(), Options{Memory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Nil(t, a.DB)

	ident, err := a.Identities.CreateIdentity(ctx, identity.NewIdentity{
		Email: "x@example.dz", Password: "secret123", Nom: "N", Prenom: "P", NationalID: "9",
	})
	require.NoError(t, err)
	_, err = a.Preferences.SetInitial(ctx, ident.ID, entity.Choices{StudyField: "droit", DegreeType: "licence", CareerInterest: "recherche"})
	require.NoError(t, err)

	require.NoError(t, a.Identities.Delete(ctx, ident.ID))
	ok, err := a.Preferences.Exists(ctx, ident.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("ACCOUNTS_STORAGE", "memory")
	t.Setenv("DATABASE_AUTO_MIGRATE", "0")
	assert.Equal(t, Options{Memory: true, Migrate: false}, OptionsFromEnv())
}
