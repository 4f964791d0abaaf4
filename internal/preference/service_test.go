package preference

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference/repo"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

// spyStore counts calls reaching storage.
type spyStore struct {
	*repo.MemoryRepo
	mu    sync.Mutex
	calls int
}

func (s *spyStore) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *spyStore) Create(ctx context.Context, rec *entity.Record) error {
	s.hit()
	return s.MemoryRepo.Create(ctx, rec)
}

func (s *spyStore) GetByIdentity(ctx context.Context, id int64) (*entity.Record, error) {
	s.hit()
	return s.MemoryRepo.GetByIdentity(ctx, id)
}

func (s *spyStore) Exists(ctx context.Context, id int64) (bool, error) {
	s.hit()
	return s.MemoryRepo.Exists(ctx, id)
}

func newTestService() (*Service, *spyStore) {
	store := &spyStore{MemoryRepo: repo.NewMemoryRepo()}
	return NewService(store, nil), store
}

func strPtr(s string) *string { return &s }

var validChoices = entity.Choices{StudyField: "informatique", DegreeType: "master", CareerInterest: "recherche"}

func TestSetInitial(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	rec, err := svc.SetInitial(ctx, 1, validChoices)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	ok, err := svc.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.SetInitial(ctx, 1, entity.Choices{StudyField: "droit", DegreeType: "licence", CareerInterest: "industrie"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "informatique", got.StudyField)
}

func TestSetInitial_InvalidValuesNeverReachStorage(t *testing.T) {
	svc, store := newTestService()
	_, err := svc.SetInitial(context.Background(), 1, entity.Choices{StudyField: "astrologie", DegreeType: "master"})
	ve, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"study_field":     apperr.CodeInvalid,
		"career_interest": apperr.CodeRequired,
	}, ve.Fields)
	assert.Zero(t, store.calls)
}

func TestSetInitial_ConcurrentOnlyOneWins(t *testing.T) {
	svc, _ := newTestService()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SetInitial(context.Background(), 7, validChoices)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, apperr.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	t.Run("absent record is not found", func(t *testing.T) {
		_, err := svc.Update(ctx, 1, entity.Patch{StudyField: strPtr("droit")})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		ok, _ := svc.Exists(ctx, 1)
		assert.False(t, ok)
	})

	created, err := svc.SetInitial(ctx, 1, validChoices)
	require.NoError(t, err)

	t.Run("partial patch", func(t *testing.T) {
		rec, err := svc.Update(ctx, 1, entity.Patch{DegreeType: strPtr("doctorat")})
		require.NoError(t, err)
		assert.Equal(t, "informatique", rec.StudyField)
		assert.Equal(t, "doctorat", rec.DegreeType)
		assert.Equal(t, int64(2), rec.Version)
		assert.Equal(t, created.ID, rec.ID)
		assert.Equal(t, created.CreatedAt, rec.CreatedAt)
		assert.False(t, rec.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		v := int64(1)
		_, err := svc.Update(ctx, 1, entity.Patch{CareerInterest: strPtr("consulting"), Version: &v})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("invalid value never reaches storage", func(t *testing.T) {
		before := store.calls
		_, err := svc.Update(ctx, 1, entity.Patch{CareerInterest: strPtr("astronaute")})
		ve, ok := apperr.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeInvalid, ve.Fields["career_interest"])
		assert.Equal(t, before, store.calls)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		rec, err := svc.Update(ctx, 1, entity.Patch{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Version)
	})
}

func TestDeleteByIdentityIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	_, err := svc.SetInitial(ctx, 3, validChoices)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteByIdentity(ctx, 3))
	require.NoError(t, svc.DeleteByIdentity(ctx, 3))
	_, err = svc.Get(ctx, 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOptions(t *testing.T) {
	svc, _ := newTestService()
	opts := svc.Options()
	require.Len(t, opts, 3)
	assert.Len(t, opts[0].Options, 10)
	assert.Len(t, opts[1].Options, 6)
	assert.Len(t, opts[2].Options, 8)
	assert.Equal(t, "Sciences Exactes", entity.StudyFields.LabelOf("sciences"))
	assert.Equal(t, "Conseil", entity.CareerInterests.LabelOf("consulting"))
}
