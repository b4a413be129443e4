package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"merchantpay/internal/domain"
	"merchantpay/internal/repository"
)

// dummyHash keeps the "unknown email" path as slow as a real password check.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("merchantpay-timing-equalizer"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

type Service struct {
	users  UserRepositoryInterface
	tokens RefreshTokenRepositoryInterface
	jwt    AccessTokenIssuer

	refreshTTL         time.Duration
	refreshTokenPepper string
	now                func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	users UserRepositoryInterface,
	tokens RefreshTokenRepositoryInterface,
	jwt AccessTokenIssuer,
	refreshTTL time.Duration,
	refreshTokenPepper string,
	opts ...Option,
) *Service {
	s := &Service{
		users:              users,
		tokens:             tokens,
		jwt:                jwt,
		refreshTTL:         refreshTTL,
		refreshTokenPepper: refreshTokenPepper,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) AccessTTL() time.Duration  { return s.jwt.TTL() }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// ValidateCredentials checks email/password. Unknown email, wrong password
// and inactive account are indistinguishable to the caller.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login validates credentials and issues a session. Earlier refresh tokens
// of the user are revoked so only one stays active.
func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (*Session, error) {
	user, err := s.ValidateCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	accessToken, accessExp, err := s.jwt.GenerateToken(user.Identity())
	if err != nil {
		return nil, err
	}
	raw, hash, err := generateOpaqueRefreshToken(s.refreshTokenPepper)
	if err != nil {
		return nil, err
	}

	rt := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		FamilyID:  uuid.NewString(),
		UserAgent: nullableString(meta.UserAgent),
		IP:        nullableString(meta.IP),
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.tokens.ReplaceForUser(ctx, rt, now); err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to update last login")
	}
	user.LastLoginAt = &now

	return &Session{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: rt.ExpiresAt,
		User:             user,
	}, nil
}

// Refresh rotates a refresh token. Every rejection reason collapses to
// ErrInvalidRefreshToken.
func (s *Service) Refresh(ctx context.Context, refreshRaw string, meta ClientMeta) (*Session, error) {
	refreshRaw = strings.TrimSpace(refreshRaw)
	if refreshRaw == "" {
		return nil, ErrInvalidRefreshToken
	}

	now := s.now().UTC()
	newRaw, newHash, err := generateOpaqueRefreshToken(s.refreshTokenPepper)
	if err != nil {
		return nil, err
	}
	next := &domain.RefreshToken{
		TokenHash: newHash,
		UserAgent: nullableString(meta.UserAgent),
		IP:        nullableString(meta.IP),
		ExpiresAt: now.Add(s.refreshTTL),
	}

	old, err := s.tokens.Rotate(ctx, hashTokenWithPepper(refreshRaw, s.refreshTokenPepper), now, next)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenReused):
			log.Warn().Str("ip", meta.IP).Msg("refresh token reuse detected, family revoked")
			return nil, ErrInvalidRefreshToken
		case errors.Is(err, repository.ErrTokenNotFound),
			errors.Is(err, repository.ErrTokenExpired),
			errors.Is(err, repository.ErrTokenRevoked):
			log.Debug().Err(err).Msg("refresh rejected")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, old.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if user == nil || !user.IsActive {
		if err := s.tokens.RevokeFamily(ctx, old.FamilyID, now); err != nil {
			return nil, err
		}
		return nil, ErrInvalidRefreshToken
	}

	accessToken, accessExp, err := s.jwt.GenerateToken(user.Identity())
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRaw,
		RefreshExpiresAt: next.ExpiresAt,
		User:             user,
	}, nil
}

// Logout revokes the refresh token. Unknown or already revoked tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshRaw string) error {
	refreshRaw = strings.TrimSpace(refreshRaw)
	if refreshRaw == "" {
		return nil
	}
	_, err := s.tokens.RevokeByHash(ctx, hashTokenWithPepper(refreshRaw, s.refreshTokenPepper), s.now().UTC())
	return err
}

// LogoutAll revokes every refresh token of the user.
func (s *Service) LogoutAll(ctx context.Context, userID int64) error {
	return s.tokens.RevokeByUser(ctx, userID, s.now().UTC())
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ActiveSessions counts the user's refresh tokens that are neither revoked nor expired.
func (s *Service) ActiveSessions(ctx context.Context, userID int64) (int64, error) {
	return s.tokens.CountActiveByUser(ctx, userID, s.now().UTC())
}

func generateOpaqueRefreshToken(pepper string) (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	hash = hashTokenWithPepper(raw, pepper)
	return raw, hash, nil
}

func hashTokenWithPepper(raw, pepper string) string {
	sum := sha256.Sum256([]byte(raw + pepper))
	return hex.EncodeToString(sum[:])
}

func nullableString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// HashPassword is shared with user management and the seed command.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
