package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"merchantpay/internal/database"
	"merchantpay/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", Name: "Test", Role: role, IsActive: true}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func newToken(userID int64, hash string, expires time.Time) *domain.RefreshToken {
	return &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		FamilyID:  uuid.NewString(),
		ExpiresAt: expires.UTC(),
	}
}

func tokenByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func TestRotate_Success(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRefreshTokenRepository(db)
	u := createUser(t, db, "a@x.com", domain.RoleCashier)
	now := time.Now().UTC()

	old := newToken(u.ID, "hash-1", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, old))

	next := &domain.RefreshToken{TokenHash: "hash-2", ExpiresAt: now.Add(time.Hour)}
	rotated, err := repo.Rotate(ctx, "hash-1", now, next)
	require.NoError(t, err)
	assert.Equal(t, old.ID, rotated.ID)
	assert.Equal(t, u.ID, next.UserID)
	assert.Equal(t, old.FamilyID, next.FamilyID)
	assert.NotZero(t, next.ID)

	stored, err := tokenByHash(ctx, db, "hash-1")
	require.NoError(t, err)
	assert.NotNil(t, stored.UsedAt)
	assert.NotNil(t, stored.RevokedAt)
	require.NotNil(t, stored.ReplacedByID)
	assert.Equal(t, next.ID, *stored.ReplacedByID)

	n, err := repo.CountActiveByUser(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRotate_ReuseRevokesFamily(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRefreshTokenRepository(db)
	u := createUser(t, db, "b@x.com", domain.RoleCashier)
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newToken(u.ID, "r1", now.Add(time.Hour))))
	_, err := repo.Rotate(ctx, "r1", now, &domain.RefreshToken{TokenHash: "r2", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	_, err = repo.Rotate(ctx, "r1", now, &domain.RefreshToken{TokenHash: "r3", ExpiresAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrTokenReused)

	first, err := tokenByHash(ctx, db, "r1")
	require.NoError(t, err)
	assert.NotNil(t, first.ReuseDetectedAt)

	second, err := tokenByHash(ctx, db, "r2")
	require.NoError(t, err)
	assert.NotNil(t, second.RevokedAt, "successor must be revoked after reuse")

	_, err = tokenByHash(ctx, db, "r3")
	assert.True(t, IsNotFound(err))
}

func TestRotate_Rejections(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRefreshTokenRepository(db)
	u := createUser(t, db, "c@x.com", domain.RoleCashier)
	now := time.Now().UTC()

	_, err := repo.Rotate(ctx, "missing", now, &domain.RefreshToken{TokenHash: "n1", ExpiresAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, repo.Create(ctx, newToken(u.ID, "expired", now.Add(-time.Minute))))
	_, err = repo.Rotate(ctx, "expired", now, &domain.RefreshToken{TokenHash: "n2", ExpiresAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrTokenExpired)

	require.NoError(t, repo.Create(ctx, newToken(u.ID, "revoked", now.Add(time.Hour))))
	changed, err := repo.RevokeByHash(ctx, "revoked", now)
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = repo.Rotate(ctx, "revoked", now, &domain.RefreshToken{TokenHash: "n3", ExpiresAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	changed, err = repo.RevokeByHash(ctx, "revoked", now)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRotate_ConcurrentExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRefreshTokenRepository(db)
	u := createUser(t, db, "d@x.com", domain.RoleCashier)
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newToken(u.ID, "shared", now.Add(time.Hour))))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := &domain.RefreshToken{TokenHash: uuid.NewString(), ExpiresAt: now.Add(time.Hour)}
			_, errs[i] = repo.Rotate(ctx, "shared", now, next)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestReplaceForUser_SingleActiveToken(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRefreshTokenRepository(db)
	u := createUser(t, db, "e@x.com", domain.RoleAdmin)
	now := time.Now().UTC()

	require.NoError(t, repo.ReplaceForUser(ctx, newToken(u.ID, "s1", now.Add(time.Hour)), now))
	require.NoError(t, repo.ReplaceForUser(ctx, newToken(u.ID, "s2", now.Add(time.Hour)), now))

	n, err := repo.CountActiveByUser(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s1, err := tokenByHash(ctx, db, "s1")
	require.NoError(t, err)
	assert.True(t, s1.IsRevoked())
}

func TestDeleteStale(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRefreshTokenRepository(db)
	u := createUser(t, db, "f@x.com", domain.RoleAdmin)
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newToken(u.ID, "old-expired", now.Add(-48*time.Hour))))
	require.NoError(t, repo.Create(ctx, newToken(u.ID, "live", now.Add(time.Hour))))

	deleted, err := repo.DeleteStale(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = tokenByHash(ctx, db, "live")
	assert.NoError(t, err)
}
