package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

// MemoryRepo is an in-process identity store enforcing the same uniqueness
// constraints as the identities table. Used by tests and local runs.
type MemoryRepo struct {
	mu         sync.RWMutex
	nextID     int64
	rows       map[int64]entity.Identity
	byEmail    map[string]int64
	byNational map[string]int64
	now        func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		rows:       make(map[int64]entity.Identity),
		byEmail:    make(map[string]int64),
		byNational: make(map[string]int64),
		now:        time.Now,
	}
}

func emailKey(email string) string { return strings.ToLower(email) }

func (m *MemoryRepo) Create(_ context.Context, i *entity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[emailKey(i.Email)]; ok {
		return ErrDuplicateEmail
	}
	if _, ok := m.byNational[i.NationalID]; ok {
		return ErrDuplicateNationalID
	}
	m.nextID++
	now := m.now().UTC()
	i.ID = m.nextID
	i.Version = 1
	i.CreatedAt = now
	i.UpdatedAt = now
	m.rows[i.ID] = *i
	m.byEmail[emailKey(i.Email)] = i.ID
	m.byNational[i.NationalID] = i.ID
	return nil
}

func (m *MemoryRepo) FindByEmail(_ context.Context, email string) ([]entity.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[emailKey(email)]
	if !ok {
		return nil, nil
	}
	return []entity.Identity{m.rows[id]}, nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id int64) (*entity.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &row, nil
}

func (m *MemoryRepo) ExistsByNationalID(_ context.Context, nationalID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byNational[nationalID]
	return ok, nil
}

func (m *MemoryRepo) AttachDocument(_ context.Context, id int64, key string) error {
	return m.update(id, func(i *entity.Identity) { i.IDDocumentKey = &key })
}

// TouchLogin records the login time only; updated_at is left alone.
func (m *MemoryRepo) TouchLogin(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	now := m.now().UTC()
	row.LastLoginAt = &now
	m.rows[id] = row
	return nil
}

func (m *MemoryRepo) BumpVersion(_ context.Context, id int64) (int64, error) {
	var v int64
	err := m.update(id, func(i *entity.Identity) {
		i.Version++
		v = i.Version
	})
	return v, err
}

func (m *MemoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	return m.update(id, func(i *entity.Identity) { i.IsActive = active })
}

func (m *MemoryRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	delete(m.rows, id)
	delete(m.byEmail, emailKey(row.Email))
	delete(m.byNational, row.NationalID)
	return nil
}

func (m *MemoryRepo) update(id int64, fn func(*entity.Identity)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	fn(&row)
	row.UpdatedAt = m.now().UTC()
	m.rows[id] = row
	return nil
}
