package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// memoryUserRepository is the in-memory UserRepository used when
// STORE_DRIVER=memory and by tests. It enforces the same email uniqueness
// invariant as the Postgres schema.
type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

// NewMemoryUserRepository returns an empty in-memory store.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, exists := r.byEmail[user.Email]; exists && owner != user.ID {
		return ErrDuplicateEmail
	}

	delete(r.byEmail, stored.Email)
	stored.Name = user.Name
	stored.Email = user.Email
	stored.Status = user.Status
	stored.UpdatedAt = time.Now()

	r.byID[user.ID] = stored
	r.byEmail[stored.Email] = user.ID
	*user = stored
	return nil
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = time.Now()
	r.byID[id] = stored
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := stored
	return &copied, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	copied := r.byID[id]
	return &copied, nil
}

// memoryPasswordResetRepository keeps reset tokens in memory.
type memoryPasswordResetRepository struct {
	mu      sync.RWMutex
	byID    map[string]PasswordResetToken
	byToken map[string]string
}

// NewMemoryPasswordResetRepository returns an empty in-memory token store.
func NewMemoryPasswordResetRepository() PasswordResetRepository {
	return &memoryPasswordResetRepository{
		byID:    make(map[string]PasswordResetToken),
		byToken: make(map[string]string),
	}
}

func (r *memoryPasswordResetRepository) Create(_ context.Context, token *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	r.byID[token.ID] = *token
	r.byToken[token.Token] = token.ID
	return nil
}

func (r *memoryPasswordResetRepository) GetByToken(_ context.Context, token string) (*PasswordResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	copied := r.byID[id]
	return &copied, nil
}

func (r *memoryPasswordResetRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	stored.UsedAt = &now
	r.byID[id] = stored
	return nil
}
