package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

// Store is the persistence contract for preference records.
type Store interface {
	Create(ctx context.Context, rec *entity.Record) error
	GetByIdentity(ctx context.Context, identityID int64) (*entity.Record, error)
	Exists(ctx context.Context, identityID int64) (bool, error)
	Update(ctx context.Context, rec *entity.Record, expected int64) (int64, error)
	DeleteByIdentity(ctx context.Context, identityID int64) (int64, error)
}

// Service enforces the create-once / edit-after lifecycle of preference records.
type Service struct {
	store   Store
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	newID   func() string
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(store Store, logger *zap.SugaredLogger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{
		store:  store,
		logger: logger,
		newID:  utilities.NewSnowflakeID,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Options lists the enumerated fields with their labels.
func (s *Service) Options() []entity.Enum { return entity.Enums() }

func checkEnum(v *apperr.ValidationError, e entity.Enum, value string) {
	if value == "" {
		v.Add(e.Field, apperr.CodeRequired)
		return
	}
	if !e.Contains(value) {
		v.Add(e.Field, apperr.CodeInvalid)
	}
}

// SetInitial creates the identity's preference record. It is
// apperr.ErrConflict if one already exists.
func (s *Service) SetInitial(ctx context.Context, identityID int64, c entity.Choices) (*entity.Record, error) {
	v := apperr.NewValidationError()
	checkEnum(v, entity.StudyFields, c.StudyField)
	checkEnum(v, entity.DegreeTypes, c.DegreeType)
	checkEnum(v, entity.CareerInterests, c.CareerInterest)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("check preferences: %w", err)
	}
	if exists {
		return nil, apperr.ErrConflict
	}

	now := s.now()
	rec := &entity.Record{
		ID:             s.newID(),
		IdentityID:     identityID,
		StudyField:     c.StudyField,
		DegreeType:     c.DegreeType,
		CareerInterest: c.CareerInterest,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create preferences: %w", err)
	}
	s.logger.Infow("preferences created", "identity_id", identityID, "preference_id", rec.ID)
	s.metrics.IncPreferenceWrite("create")
	return rec, nil
}

// Update applies p to the existing record using optimistic locking.
// apperr.ErrNotFound if the identity has no record yet.
func (s *Service) Update(ctx context.Context, identityID int64, p entity.Patch) (*entity.Record, error) {
	v := apperr.NewValidationError()
	if p.StudyField != nil {
		checkEnum(v, entity.StudyFields, *p.StudyField)
	}
	if p.DegreeType != nil {
		checkEnum(v, entity.DegreeTypes, *p.DegreeType)
	}
	if p.CareerInterest != nil {
		checkEnum(v, entity.CareerInterests, *p.CareerInterest)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	existing, err := s.store.GetByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if p.Version != nil && *p.Version != existing.Version {
		return nil, apperr.ErrConflict
	}
	if p.Empty() {
		return existing, nil
	}

	expected := existing.Version
	next := p.Apply(*existing)
	next.Version = expected + 1
	next.UpdatedAt = s.now()
	rows, err := s.store.Update(ctx, &next, expected)
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	if rows == 0 {
		// the record was read above, so 0 rows means someone else won
		return nil, apperr.ErrConflict
	}
	s.logger.Infow("preferences updated", "identity_id", identityID, "version", next.Version)
	s.metrics.IncPreferenceWrite("update")
	return &next, nil
}

func (s *Service) Get(ctx context.Context, identityID int64) (*entity.Record, error) {
	return s.store.GetByIdentity(ctx, identityID)
}

func (s *Service) Exists(ctx context.Context, identityID int64) (bool, error) {
	return s.store.Exists(ctx, identityID)
}

// DeleteByIdentity removes the record if there is one.
func (s *Service) DeleteByIdentity(ctx context.Context, identityID int64) error {
	n, err := s.store.DeleteByIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Infow("preferences deleted", "identity_id", identityID)
	}
	return nil
}
