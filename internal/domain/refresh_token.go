package domain

import "time"

// RefreshToken stores refresh tokens for users.
//
// Security notes:
// - We never store the raw token in DB, only its SHA-256 hash (TokenHash).
// - On refresh we rotate tokens: old token is revoked and replaced by a new one
//   from the same family. Presenting a rotated token again revokes the family.
type RefreshToken struct {
	ID     int64 `json:"id" gorm:"primaryKey"`
	UserID int64 `json:"user_id" gorm:"index;not null"`

	TokenHash string `json:"-" gorm:"size:64;uniqueIndex;not null"`
	FamilyID  string `json:"family_id" gorm:"size:36;index;not null"`

	UserAgent *string `json:"user_agent,omitempty"`
	IP        *string `json:"ip,omitempty" gorm:"size:64"`

	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at" gorm:"index;not null"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty" gorm:"index"`
	ReuseDetectedAt *time.Time `json:"reuse_detected_at,omitempty"`

	ReplacedByID *int64 `json:"replaced_by_id,omitempty" gorm:"index"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// WasRotated is true when the token was already exchanged once.
func (t *RefreshToken) WasRotated() bool {
	return t.UsedAt != nil
}
