package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func newUser(email string) *domain.User {
	return &domain.User{
		Name:         "Alice",
		Email:        email,
		PasswordHash: "$2a$10$hash",
		Status:       domain.UserStatusActive,
	}
}

func TestMemoryUserRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := newUser("a@x.com")
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestMemoryUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("a@x.com")))

	err := repo.Create(ctx, newUser("a@x.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMemoryUserRepository_GetMissing(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository_Update(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := newUser("a@x.com")
	require.NoError(t, repo.Create(ctx, user))
	other := newUser("b@x.com")
	require.NoError(t, repo.Create(ctx, other))

	t.Run("changes name and email", func(t *testing.T) {
		user.Name = "Alice B"
		user.Email = "alice@x.com"
		require.NoError(t, repo.Update(ctx, user))

		fetched, err := repo.GetByEmail(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.Equal(t, "Alice B", fetched.Name)

		_, err = repo.GetByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects taken email", func(t *testing.T) {
		user.Email = "b@x.com"
		assert.ErrorIs(t, repo.Update(ctx, user), ErrDuplicateEmail)
	})

	t.Run("missing record", func(t *testing.T) {
		ghost := newUser("ghost@x.com")
		ghost.ID = "missing"
		assert.ErrorIs(t, repo.Update(ctx, ghost), ErrNotFound)
	})
}

func TestMemoryUserRepository_UpdatePassword(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := newUser("a@x.com")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "newhash"))

	fetched, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", fetched.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "h"), ErrNotFound)
}

func TestMemoryPasswordResetRepository(t *testing.T) {
	repo := NewMemoryPasswordResetRepository()
	ctx := context.Background()

	token := &PasswordResetToken{
		UserID:    "user-1",
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, token))
	require.NotEmpty(t, token.ID)

	fetched, err := repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", fetched.UserID)
	assert.Nil(t, fetched.UsedAt)

	require.NoError(t, repo.MarkUsed(ctx, token.ID))
	fetched, err = repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.NotNil(t, fetched.UsedAt)

	_, err = repo.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
