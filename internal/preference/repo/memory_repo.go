package repo

import (
	"context"
	"sync"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

// MemoryRepo keeps preference records keyed by identity id, enforcing the
// one-record-per-identity constraint.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[int64]entity.Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[int64]entity.Record)}
}

func (m *MemoryRepo) Create(_ context.Context, rec *entity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[rec.IdentityID]; ok {
		return apperr.ErrConflict
	}
	m.rows[rec.IdentityID] = *rec
	return nil
}

func (m *MemoryRepo) GetByIdentity(_ context.Context, identityID int64) (*entity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.rows[identityID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryRepo) Exists(_ context.Context, identityID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rows[identityID]
	return ok, nil
}

func (m *MemoryRepo) Update(_ context.Context, rec *entity.Record, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[rec.IdentityID]
	if !ok || cur.Version != expected {
		return 0, nil
	}
	next := *rec
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	m.rows[rec.IdentityID] = next
	return 1, nil
}

func (m *MemoryRepo) DeleteByIdentity(_ context.Context, identityID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[identityID]; !ok {
		return 0, nil
	}
	delete(m.rows, identityID)
	return 1, nil
}
