package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/database"
)

var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateNationalID = errors.New("national id already registered")
)

const (
	uniqueViolation          = "23505"
	constraintEmail          = "identities_email_key"
	constraintNationalID     = "identities_national_id_key"
	identityColumns          = `id, email, password_hash, password_algo, nom, prenom, national_id, id_document_key, is_active, is_staff, is_superuser, version, last_login_at, created_at, updated_at`
	findByEmailLookaheadRows = 2
)

// IdentityRepo provides data access for the identities table using sqlx.
type IdentityRepo struct {
	db database.DBTX
}

func NewIdentityRepo(db *sqlx.DB) *IdentityRepo { return &IdentityRepo{db: db} }

// Create inserts the base identity row and fills in the generated columns.
// Unique violations are reported as ErrDuplicateEmail / ErrDuplicateNationalID.
func (r *IdentityRepo) Create(ctx context.Context, i *entity.Identity) error {
	const q = `INSERT INTO identities (email, password_hash, password_algo, nom, prenom, national_id, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q,
		i.Email, i.PasswordHash, i.PasswordAlgo, i.Nom, i.Prenom, i.NationalID, i.IsActive, i.IsStaff, i.IsSuperuser)
	if err := row.Scan(&i.ID, &i.Version, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

// FindByEmail returns identities whose email matches case-insensitively
// (citext). At most two rows are fetched: enough to detect ambiguity.
func (r *IdentityRepo) FindByEmail(ctx context.Context, email string) ([]entity.Identity, error) {
	q := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1 ORDER BY id LIMIT $2`
	var rows []entity.Identity
	if err := r.db.SelectContext(ctx, &rows, q, email, findByEmailLookaheadRows); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rows, nil
}

// GetByID fetches a full identity row.
func (r *IdentityRepo) GetByID(ctx context.Context, id int64) (*entity.Identity, error) {
	q := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	var row entity.Identity
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &row, nil
}

// ExistsByNationalID reports whether any identity already uses nationalID.
func (r *IdentityRepo) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM identities WHERE national_id = $1)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, nationalID); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// AttachDocument stores the object-storage key of the identity document.
func (r *IdentityRepo) AttachDocument(ctx context.Context, id int64, key string) error {
	const q = `UPDATE identities SET id_document_key = $2, updated_at = NOW() WHERE id = $1`
	return r.expectOne(ctx, q, id, key)
}

// TouchLogin records a successful authentication.
func (r *IdentityRepo) TouchLogin(ctx context.Context, id int64) error {
	const q = `UPDATE identities SET last_login_at = NOW() WHERE id = $1`
	return r.expectOne(ctx, q, id)
}

// BumpVersion increments version for token invalidation and returns the new value.
func (r *IdentityRepo) BumpVersion(ctx context.Context, id int64) (int64, error) {
	const q = `UPDATE identities SET version = version + 1, updated_at = NOW() WHERE id = $1 RETURNING version`
	var v int64
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// SetActive flips is_active (deactivated identities cannot authenticate).
func (r *IdentityRepo) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE identities SET is_active = $2, updated_at = NOW() WHERE id = $1`
	return r.expectOne(ctx, q, id, active)
}

// Delete removes the identity; the preferences row goes with it (ON DELETE CASCADE).
func (r *IdentityRepo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM identities WHERE id = $1`
	return r.expectOne(ctx, q, id)
}

func (r *IdentityRepo) expectOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case constraintEmail:
			return ErrDuplicateEmail
		case constraintNationalID:
			return ErrDuplicateNationalID
		}
	}
	return fmt.Errorf("db error: %w", err)
}
