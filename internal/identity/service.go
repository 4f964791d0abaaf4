package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/repo"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/metrics"
)

// ErrDocumentNotAttached is returned together with a created identity when the
// identity document could not be stored. The account itself exists.
var ErrDocumentNotAttached = errors.New("identity document not attached")

var errNoDocumentStorage = errors.New("document storage not configured")

// Store is the persistence contract for identities. repo.IdentityRepo and
// repo.MemoryRepo implement it.
type Store interface {
	Create(ctx context.Context, i *entity.Identity) error
	FindByEmail(ctx context.Context, email string) ([]entity.Identity, error)
	GetByID(ctx context.Context, id int64) (*entity.Identity, error)
	ExistsByNationalID(ctx context.Context, nationalID string) (bool, error)
	AttachDocument(ctx context.Context, id int64, key string) error
	TouchLogin(ctx context.Context, id int64) error
	BumpVersion(ctx context.Context, id int64) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// DocumentStorage persists uploaded identity documents and returns their key.
type DocumentStorage interface {
	Put(ctx context.Context, prefix, filename, contentType string, data []byte) (string, error)
}

// Dependent is anything owned by an identity that must go when it does.
type Dependent interface {
	DeleteByIdentity(ctx context.Context, identityID int64) error
}

// NewIdentity is the input for account creation.
type NewIdentity struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"secret" validate:"required,min=8"`
	Nom        string `json:"nom" validate:"required,max=100"`
	Prenom     string `json:"prenom" validate:"required,max=100"`
	NationalID string `json:"national_id" validate:"required,max=20"`
	// Privilege flags; only CreatePrivilegedIdentity accepts them.
	IsStaff     *bool            `json:"is_staff"`
	IsSuperuser *bool            `json:"is_superuser"`
	Document    *entity.Document `json:"-"`
}

// Service owns the identity lifecycle and credential resolution.
type Service struct {
	store      Store
	hasher     PasswordHasher
	docs       DocumentStorage
	dependents []Dependent
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	dummyHash  string
}

type Option func(*Service)

func WithHasher(h PasswordHasher) Option { return func(s *Service) { s.hasher = h } }
func WithDocumentStorage(d DocumentStorage) Option { return func(s *Service) { s.docs = d } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// NewService builds the service. The dummy hash used to equalize
// authentication timing is computed here, once.
func NewService(store Store, logger *zap.SugaredLogger, opts ...Option) (*Service, error) {
	s := &Service{store: store, logger: logger}
	for _, o := range opts {
		o(s)
	}
	if s.hasher == nil {
		s.hasher = BcryptHasher{Cost: ConfigFromEnv().BcryptCost}
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	h, _, err := s.hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = h
	return s, nil
}

// RegisterDependent adds d to the set cleaned up by Delete.
func (s *Service) RegisterDependent(d Dependent) {
	s.dependents = append(s.dependents, d)
}

// NormalizeEmail trims the address and lower-cases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// CreateIdentity registers a regular (non-privileged) account.
func (s *Service) CreateIdentity(ctx context.Context, in NewIdentity) (*entity.Identity, error) {
	v := apperr.NewValidationError()
	if in.IsStaff != nil && *in.IsStaff {
		v.Add("is_staff", apperr.CodeForbidden)
	}
	if in.IsSuperuser != nil && *in.IsSuperuser {
		v.Add("is_superuser", apperr.CodeForbidden)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return s.create(ctx, in, false)
}

// CreatePrivilegedIdentity registers a staff superuser. Both flags default to
// true and must not be explicitly false.
func (s *Service) CreatePrivilegedIdentity(ctx context.Context, in NewIdentity) (*entity.Identity, error) {
	v := apperr.NewValidationError()
	if in.IsStaff != nil && !*in.IsStaff {
		v.Add("is_staff", apperr.CodeInvalid)
	}
	if in.IsSuperuser != nil && !*in.IsSuperuser {
		v.Add("is_superuser", apperr.CodeInvalid)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return s.create(ctx, in, true)
}

func (s *Service) create(ctx context.Context, in NewIdentity, privileged bool) (*entity.Identity, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Nom = strings.TrimSpace(in.Nom)
	in.Prenom = strings.TrimSpace(in.Prenom)
	in.NationalID = strings.TrimSpace(in.NationalID)
	if err := validateNew(in); err != nil {
		return nil, err
	}
	if err := s.precheckUnique(ctx, in); err != nil {
		return nil, err
	}

	hash, algo, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	ident := &entity.Identity{
		Email:        in.Email,
		PasswordHash: hash,
		PasswordAlgo: algo,
		Nom:          in.Nom,
		Prenom:       in.Prenom,
		NationalID:   in.NationalID,
		IsActive:     true,
		IsStaff:      privileged,
		IsSuperuser:  privileged,
	}
	if err := s.store.Create(ctx, ident); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, apperr.FieldError("email", apperr.CodeDuplicate)
		case errors.Is(err, repo.ErrDuplicateNationalID):
			return nil, apperr.FieldError("national_id", apperr.CodeDuplicate)
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	s.logger.Infow("identity created", "identity_id", ident.ID, "privileged", privileged)
	s.metrics.IncIdentitiesCreated()

	if in.Document != nil {
		if err := s.attach(ctx, ident, in.Document); err != nil {
			s.logger.Warnw("identity document not attached", "identity_id", ident.ID, "err", err)
			s.metrics.IncDocumentsDetached()
			return ident, fmt.Errorf("%w: %w", ErrDocumentNotAttached, err)
		}
	}
	return ident, nil
}

// validateNew runs the tag rules plus the byte limit bcrypt imposes on
// secrets, which a rune-counting max tag cannot express.
func validateNew(in NewIdentity) error {
	v := apperr.NewValidationError()
	if err := apperr.Validate(in); err != nil {
		ve, ok := apperr.AsValidation(err)
		if !ok {
			return err
		}
		v = ve
	}
	if len(in.Password) > MaxSecretBytes {
		v.Add("secret", apperr.CodeTooLong)
	}
	return v.OrNil()
}

// precheckUnique reports every duplicate field at once. The storage
// constraints remain authoritative.
func (s *Service) precheckUnique(ctx context.Context, in NewIdentity) error {
	v := apperr.NewValidationError()
	rows, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if len(rows) > 0 {
		v.Add("email", apperr.CodeDuplicate)
	}
	taken, err := s.store.ExistsByNationalID(ctx, in.NationalID)
	if err != nil {
		return fmt.Errorf("check national id: %w", err)
	}
	if taken {
		v.Add("national_id", apperr.CodeDuplicate)
	}
	return v.OrNil()
}

func (s *Service) attach(ctx context.Context, ident *entity.Identity, doc *entity.Document) error {
	if s.docs == nil {
		return errNoDocumentStorage
	}
	key, err := s.docs.Put(ctx, fmt.Sprintf("id-documents/%d", ident.ID), doc.Filename, doc.ContentType, doc.Data)
	if err != nil {
		return err
	}
	if err := s.store.AttachDocument(ctx, ident.ID, key); err != nil {
		return err
	}
	ident.IDDocumentKey = &key
	return nil
}

// Get returns the identity with id or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Identity, error) {
	return s.store.GetByID(ctx, id)
}

// GetByEmail resolves exactly one identity by email. Ambiguous matches are a conflict.
func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	rows, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, apperr.ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, apperr.ErrConflict
	}
}

// Delete removes the identity and everything registered as depending on it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	for _, d := range s.dependents {
		if err := d.DeleteByIdentity(ctx, id); err != nil {
			return fmt.Errorf("delete dependents: %w", err)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("identity deleted", "identity_id", id)
	return nil
}

// Logout invalidates outstanding session tokens by bumping the version.
func (s *Service) Logout(ctx context.Context, id int64) (int64, error) {
	v, err := s.store.BumpVersion(ctx, id)
	if err != nil {
		return 0, err
	}
	s.logger.Infow("identity logged out", "identity_id", id, "version", v)
	return v, nil
}

// SetActive enables or disables authentication for the identity.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return err
	}
	// drop live sessions along with the flag
	if _, err := s.store.BumpVersion(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("identity activation changed", "identity_id", id, "active", active)
	return nil
}
