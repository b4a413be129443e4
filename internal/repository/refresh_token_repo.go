package repository

import (
	"context"
	"errors"
	"time"

	"merchantpay/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenReused   = errors.New("refresh token reuse detected")
)

// RefreshTokenRepository provides DB access for refresh tokens.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// ReplaceForUser revokes every active token of the user and stores t,
// leaving t as the only active token.
func (r *RefreshTokenRepository) ReplaceForUser(ctx context.Context, t *domain.RefreshToken, now time.Time) error {
	now = now.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", t.UserID).
			Update("revoked_at", now).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// Rotate exchanges the token with oldHash for next inside one transaction.
// next receives the user and family of the old token. Presenting a token that
// was already rotated revokes its whole family; that revocation is committed
// even though ErrTokenReused is returned.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldHash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error) {
	now = now.UTC()
	var current domain.RefreshToken
	var outcome error

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", oldHash).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = ErrTokenNotFound
				return nil
			}
			return err
		}

		if current.WasRotated() {
			if err := tx.Model(&domain.RefreshToken{}).
				Where("id = ?", current.ID).
				Update("reuse_detected_at", now).Error; err != nil {
				return err
			}
			if err := revokeFamily(tx, current.FamilyID, now); err != nil {
				return err
			}
			outcome = ErrTokenReused
			return nil
		}
		if current.IsRevoked() {
			outcome = ErrTokenRevoked
			return nil
		}
		if current.IsExpired(now) {
			outcome = ErrTokenExpired
			return nil
		}

		res := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", current.ID).
			Updates(map[string]any{"used_at": now, "revoked_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			outcome = ErrTokenRevoked
			return nil
		}

		next.UserID = current.UserID
		next.FamilyID = current.FamilyID
		next.CreatedAt = now
		if err := tx.Create(next).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.RefreshToken{}).
			Where("id = ?", current.ID).
			Update("replaced_by_id", next.ID).Error; err != nil {
			return err
		}

		current.UsedAt = &now
		current.RevokedAt = &now
		current.ReplacedByID = &next.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &current, nil
}

// RevokeByHash revokes an active token. It reports whether a row changed.
func (r *RefreshTokenRepository) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now.UTC())
	return res.RowsAffected > 0, res.Error
}

func (r *RefreshTokenRepository) RevokeByUser(ctx context.Context, userID int64, now time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now.UTC()).Error
}

func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, familyID string, now time.Time) error {
	return revokeFamily(r.db.WithContext(ctx), familyID, now.UTC())
}

func revokeFamily(tx *gorm.DB, familyID string, now time.Time) error {
	return tx.Model(&domain.RefreshToken{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", now).Error
}

func (r *RefreshTokenRepository) CountActiveByUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now.UTC()).
		Count(&n).Error
	return n, err
}

// DeleteStale removes tokens that expired or were revoked before cutoff.
func (r *RefreshTokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}
