package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/cache"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/resilience"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// AuthService coordinates registration, login and password flows. Every
// store access runs under the resilience guard; password mutations
// invalidate the cached profile afterwards.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	guard      *resilience.Guard
	cache      *cache.Cache
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Guard             *resilience.Guard
	Cache             *cache.Cache
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		guard:      deps.Guard,
		cache:      deps.Cache,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new account. Email uniqueness is enforced by the store
// constraint; a duplicate surfaces as a conflict and is never retried.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if _, err := s.guard.Do(ctx, opUserCreate, func(ctx context.Context) (any, error) {
		return nil, s.users.Create(ctx, user)
	}); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserRegistered,
		UserID:    user.ID,
		Timestamp: time.Now(),
		Payload:   events.UserRegisteredPayload{Email: user.Email, Name: user.Name},
	})
	return user, token, exp, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := resilience.Do(ctx, s.guard, opUserGetByEmail, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByEmail(ctx, email)
	})
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// ChangePassword verifies the current password and stores a new hash, then
// invalidates the cached profile.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := resilience.Do(ctx, s.guard, opUserGetByID, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByID(ctx, userID)
	})
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	if _, err := s.guard.Do(ctx, opUserSetPass, func(ctx context.Context) (any, error) {
		return nil, s.users.UpdatePassword(ctx, userID, hash)
	}); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, s.cache.Key(userID))

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordChanged,
		UserID:    userID,
		Timestamp: time.Now(),
	})
	return nil
}

// RequestPasswordReset persists a single-use reset token for the account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := resilience.Do(ctx, s.guard, opUserGetByEmail, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByEmail(ctx, email)
	})
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if _, err := s.guard.Do(ctx, opResetCreate, func(ctx context.Context) (any, error) {
		return nil, s.resets.Create(ctx, token)
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordReset,
		UserID:    user.ID,
		Timestamp: time.Now(),
		Payload:   events.PasswordResetPayload{Email: email, ExpiresAt: token.ExpiresAt},
	})
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := resilience.Do(ctx, s.guard, opResetGet, func(ctx context.Context) (*repository.PasswordResetToken, error) {
		return s.resets.GetByToken(ctx, tokenStr)
	})
	if err != nil {
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("token expired or used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	if _, err := s.guard.Do(ctx, opUserSetPass, func(ctx context.Context) (any, error) {
		return nil, s.users.UpdatePassword(ctx, token.UserID, hash)
	}); err != nil {
		return err
	}
	if _, err := s.guard.Do(ctx, opResetMarkUsed, func(ctx context.Context) (any, error) {
		return nil, s.resets.MarkUsed(ctx, token.ID)
	}); err != nil {
		s.logger.Warn("failed to mark reset token used",
			zap.String("token_id", token.ID), zap.Error(err))
	}

	s.cache.Invalidate(ctx, s.cache.Key(token.UserID))

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordChanged,
		UserID:    token.UserID,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
