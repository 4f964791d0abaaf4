package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestRepo_CreateErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *pq.Error
		want error
	}{
		{"second record", &pq.Error{Code: uniqueViolation, Constraint: constraintIdentity}, apperr.ErrConflict},
		{"unknown identity", &pq.Error{Code: foreignKeyViolation}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newMockRepo(t)
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO preferences")).WillReturnError(tt.err)
			assert.ErrorIs(t, r.Create(context.Background(), record(1)), tt.want)
		})
	}
}

func TestRepo_GetByIdentity(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM preferences WHERE identity_id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identity_id", "study_field", "degree_type", "career_interest", "version", "created_at", "updated_at"}).
			AddRow("p4", 4, "arts", "master", "consulting", 2, now, now))

	rec, err := r.GetByIdentity(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "p4", rec.ID)
	assert.Equal(t, int64(2), rec.Version)
}

func TestRepo_UpdateLocksAndChecksVersion(t *testing.T) {
	t.Run("matching version", func(t *testing.T) {
		r, mock := newMockRepo(t)
		rec := record(1)
		rec.Version = 3
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM preferences WHERE identity_id = $1 FOR UPDATE")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE preferences")).
			WithArgs(int64(1), rec.StudyField, rec.DegreeType, rec.CareerInterest, int64(3), rec.UpdatedAt, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := r.Update(context.Background(), rec, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		r, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))
		mock.ExpectCommit()

		n, err := r.Update(context.Background(), record(1), 2)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
