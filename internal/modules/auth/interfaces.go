package auth

import (
	"context"
	"time"

	"merchantpay/internal/domain"
)

// UserRepositoryInterface lists the user storage methods the auth service uses.
type UserRepositoryInterface interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// RefreshTokenRepositoryInterface is the refresh token store.
type RefreshTokenRepositoryInterface interface {
	ReplaceForUser(ctx context.Context, t *domain.RefreshToken, now time.Time) error
	Rotate(ctx context.Context, oldHash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error)
	RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error)
	RevokeByUser(ctx context.Context, userID int64, now time.Time) error
	RevokeFamily(ctx context.Context, familyID string, now time.Time) error
	CountActiveByUser(ctx context.Context, userID int64, now time.Time) (int64, error)
}

// AccessTokenIssuer is satisfied by *jwt.Service.
type AccessTokenIssuer interface {
	GenerateToken(id domain.Identity) (string, time.Time, error)
	TTL() time.Duration
}

// OutcomeRecorder is satisfied by *telemetry.Metrics.
type OutcomeRecorder interface {
	LoginOutcome(outcome string)
	RefreshOutcome(outcome string)
}
