package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

const (
	outcomeSuccess       = "success"
	outcomeNotFound      = "not_found"
	outcomeAmbiguous     = "ambiguous"
	outcomeWrongPassword = "wrong_password"
	outcomeInactive      = "inactive"
)

// Authenticate resolves identifier (an email, case-insensitive) and secret to
// an active identity. Every failure is reported as apperr.ErrAuthFailure and
// each path performs exactly one password verification so response time does
// not reveal which check failed. Storage errors are returned wrapped.
func (s *Service) Authenticate(ctx context.Context, identifier, secret string) (*entity.Identity, error) {
	start := time.Now()
	email := NormalizeEmail(identifier)
	var rows []entity.Identity
	if email != "" {
		var err error
		rows, err = s.store.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	switch len(rows) {
	case 0:
		s.hasher.Verify(s.dummyHash, secret)
		return nil, s.fail(outcomeNotFound, 0, start)
	case 1:
	default:
		s.hasher.Verify(s.dummyHash, secret)
		return nil, s.fail(outcomeAmbiguous, 0, start)
	}

	ident := rows[0]
	if !s.hasher.Verify(ident.PasswordHash, secret) {
		return nil, s.fail(outcomeWrongPassword, ident.ID, start)
	}
	if !ident.IsActive {
		return nil, s.fail(outcomeInactive, ident.ID, start)
	}

	if err := s.store.TouchLogin(ctx, ident.ID); err != nil {
		s.logger.Warnw("record last login failed", "identity_id", ident.ID, "err", err)
	}
	if s.hasher.NeedsRehash(ident.PasswordHash) {
		s.logger.Debugw("password hash uses outdated parameters", "identity_id", ident.ID)
	}
	s.logger.Infow("authentication", "outcome", outcomeSuccess, "identity_id", ident.ID)
	s.metrics.ObserveAuth(outcomeSuccess, start)
	return &ident, nil
}

func (s *Service) fail(outcome string, identityID int64, start time.Time) error {
	s.metrics.ObserveAuth(outcome, start)
	if identityID != 0 {
		s.logger.Infow("authentication", "outcome", outcome, "identity_id", identityID)
	} else {
		s.logger.Infow("authentication", "outcome", outcome)
	}
	return apperr.ErrAuthFailure
}
