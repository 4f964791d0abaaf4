package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims carried by a session token. Version must match the identity's
// current version for the token to be accepted.
type Claims struct {
	jwt.RegisteredClaims
	Version int64 `json:"v"`
}

// IdentityID parses the subject.
func (c *Claims) IdentityID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Service issues and verifies HS256 session tokens.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewService(cfg Config) *Service {
	return &Service{secret: cfg.Secret, issuer: cfg.Issuer, ttl: cfg.TTL, now: time.Now}
}

// Issue returns a signed token for ident and its expiry.
func (s *Service) Issue(ident *entity.Identity) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(ident.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Version: ident.Version,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, issuer and expiry.
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
