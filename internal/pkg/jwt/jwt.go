package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"merchantpay/internal/domain"
)

const (
	Issuer          = "merchantpay"
	MinSecretLength = 32
)

var (
	ErrInvalidSignature = errors.New("invalid token")
	ErrExpired          = errors.New("token expired")
	ErrWeakSecret       = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
)

// Claims is serialized in field order by encoding/json, which keeps signing input canonical.
type Claims struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantID   *int64 `json:"tenant_id,omitempty"`
	MerchantID *int64 `json:"merchant_id,omitempty"`
	BranchID   *int64 `json:"branch_id,omitempty"`
	PosID      *int64 `json:"pos_id,omitempty"`
	jwtlib.RegisteredClaims
}

func NewClaims(id domain.Identity) Claims {
	return Claims{
		UserID:     id.UserID,
		Email:      id.Email,
		Role:       string(id.Role),
		TenantID:   id.TenantID,
		MerchantID: id.MerchantID,
		BranchID:   id.BranchID,
		PosID:      id.PosID,
	}
}

func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		UserID:     c.UserID,
		Email:      c.Email,
		Role:       domain.UserRole(c.Role),
		TenantID:   c.TenantID,
		MerchantID: c.MerchantID,
		BranchID:   c.BranchID,
		PosID:      c.PosID,
	}
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, used by tests that move past expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		return nil, errors.New("access token ttl must be > 0")
	}
	s := &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) TTL() time.Duration { return s.ttl }

// GenerateToken issues an access token for the identity with the configured TTL.
func (s *Service) GenerateToken(id domain.Identity) (string, time.Time, error) {
	claims := NewClaims(id)
	token, err := s.Issue(claims, s.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, s.now().Add(s.ttl).Truncate(time.Second), nil
}

// Issue signs claims with HS256. iat/exp/sub/iss are overwritten from the clock and ttl.
func (s *Service) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be > 0")
	}
	now := s.now()
	claims.RegisteredClaims = jwtlib.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   strconv.FormatInt(claims.UserID, 10),
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry.
// Only HS256 is accepted, so "none" and asymmetric-key confusion are rejected.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(Issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.IssuedAt == nil || !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, ErrInvalidSignature
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return claims, nil
}
