package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/cache"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/resilience"
)

// countingUserRepo wraps a UserRepository and counts store hits per method.
type countingUserRepo struct {
	inner      repository.UserRepository
	creates    atomic.Int64
	getByID    atomic.Int64
	getByEmail atomic.Int64
	updates    atomic.Int64
	passwords  atomic.Int64
}

func (r *countingUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.creates.Add(1)
	return r.inner.Create(ctx, user)
}

func (r *countingUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.updates.Add(1)
	return r.inner.Update(ctx, user)
}

func (r *countingUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	r.passwords.Add(1)
	return r.inner.UpdatePassword(ctx, id, hash)
}

func (r *countingUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.getByID.Add(1)
	return r.inner.GetByID(ctx, id)
}

func (r *countingUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.getByEmail.Add(1)
	return r.inner.GetByEmail(ctx, email)
}

type testEnv struct {
	repo       *countingUserRepo
	resets     repository.PasswordResetRepository
	cache      *cache.Cache
	guard      *resilience.Guard
	dispatcher events.Dispatcher
	auth       *AuthService
	users      *UserService
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	repo := &countingUserRepo{inner: repository.NewMemoryUserRepository()}
	resets := repository.NewMemoryPasswordResetRepository()

	guard := resilience.NewGuardFromSettings(
		resilience.BreakerSettings{
			Name:             "test",
			FailureThreshold: 3,
			ErrorPercent:     50,
			ResetTimeout:     30 * time.Millisecond,
			CallTimeout:      time.Second,
			Window:           time.Second,
		},
		resilience.RetryPolicy{
			MaxAttempts: 3,
			MinBackoff:  time.Millisecond,
			MaxBackoff:  2 * time.Millisecond,
		},
		logger, nil)

	profileCache := cache.New(cache.NewMemoryBackend(), "auth", time.Hour, logger)
	dispatcher := events.NewInMemoryDispatcher()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}

	env := &testEnv{
		repo:       repo,
		resets:     resets,
		cache:      profileCache,
		guard:      guard,
		dispatcher: dispatcher,
	}
	env.auth = NewAuthService(cfg, AuthDependencies{
		UserRepo:          repo,
		PasswordResetRepo: resets,
		Guard:             guard,
		Cache:             profileCache,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	env.users = NewUserService(UserDependencies{
		UserRepo:   repo,
		Guard:      guard,
		Cache:      profileCache,
		ReadTTL:    5 * time.Minute,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	return env
}
