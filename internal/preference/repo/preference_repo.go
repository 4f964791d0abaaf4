package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/database"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	constraintIdentity  = "preferences_identity_id_key"
	recordColumns       = `id, identity_id, study_field, degree_type, career_interest, version, created_at, updated_at`
)

// Repo is the preferences repository backed by PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

// Create inserts the record. A second record for the same identity is
// apperr.ErrConflict; an unknown identity is apperr.ErrNotFound.
func (r *Repo) Create(ctx context.Context, rec *entity.Record) error {
	const q = `INSERT INTO preferences (id, identity_id, study_field, degree_type, career_interest, version, created_at, updated_at)
		VALUES (:id, :identity_id, :study_field, :degree_type, :career_interest, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, rec); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch {
			case pqErr.Code == uniqueViolation && pqErr.Constraint == constraintIdentity:
				return apperr.ErrConflict
			case pqErr.Code == foreignKeyViolation:
				return apperr.ErrNotFound
			}
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByIdentity returns the record owned by identityID.
func (r *Repo) GetByIdentity(ctx context.Context, identityID int64) (*entity.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM preferences WHERE identity_id = $1`
	var rec entity.Record
	if err := r.db.GetContext(ctx, &rec, q, identityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

func (r *Repo) Exists(ctx context.Context, identityID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM preferences WHERE identity_id = $1)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, identityID); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Update writes rec if the stored version still equals expected. The row is
// locked for the duration of the check. Returns rows affected (0 on a
// version mismatch or a missing record).
func (r *Repo) Update(ctx context.Context, rec *entity.Record, expected int64) (int64, error) {
	var rows int64
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		var current int64
		err := tx.GetContext(ctx, &current, `SELECT version FROM preferences WHERE identity_id = $1 FOR UPDATE`, rec.IdentityID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if current != expected {
			return nil
		}
		res, err := tx.ExecContext(ctx, `UPDATE preferences
			SET study_field = $2, degree_type = $3, career_interest = $4, version = $5, updated_at = $6
			WHERE identity_id = $1 AND version = $7`,
			rec.IdentityID, rec.StudyField, rec.DegreeType, rec.CareerInterest, rec.Version, rec.UpdatedAt, expected)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return rows, nil
}

// DeleteByIdentity removes the record owned by identityID, returning rows affected.
func (r *Repo) DeleteByIdentity(ctx context.Context, identityID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE identity_id = $1`, identityID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
