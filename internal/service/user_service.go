package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/cache"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/resilience"
)

// Guarded store operation names, used as metric and log labels.
const (
	opUserCreate     = "user.create"
	opUserGetByID    = "user.get_by_id"
	opUserGetByEmail = "user.get_by_email"
	opUserUpdate     = "user.update"
	opUserSetPass    = "user.update_password"
	opResetCreate    = "reset.create"
	opResetGet       = "reset.get_by_token"
	opResetMarkUsed  = "reset.mark_used"
)

// UserService serves profile reads and updates. Reads go through the cache
// first; every store access runs under the resilience guard. Writes never
// populate the cache, they invalidate the profile key after the store
// mutation succeeds.
type UserService struct {
	users      repository.UserRepository
	guard      *resilience.Guard
	cache      *cache.Cache
	readTTL    time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// UserDependencies bundles what UserService needs.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Guard      *resilience.Guard
	Cache      *cache.Cache
	ReadTTL    time.Duration
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	readTTL := deps.ReadTTL
	if readTTL <= 0 {
		readTTL = 5 * time.Minute
	}
	return &UserService{
		users:      deps.UserRepo,
		guard:      deps.Guard,
		cache:      deps.Cache,
		readTTL:    readTTL,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// GetProfile returns the user record by id, serving from the cache when
// possible and repopulating it on a miss.
func (s *UserService) GetProfile(ctx context.Context, id string) (*domain.User, error) {
	key := s.cache.Key(id)

	if data, ok := s.cache.Get(ctx, key); ok {
		var user domain.User
		if err := json.Unmarshal(data, &user); err == nil {
			return &user, nil
		}
		// unreadable entry; drop it and fall through to the store
		s.cache.Invalidate(ctx, key)
	}

	user, err := resilience.Do(ctx, s.guard, opUserGetByID, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(user); err == nil {
		s.cache.Set(ctx, key, data, s.readTTL)
	}
	return user, nil
}

// UpdateProfile changes name and email, invalidates the cached profile and
// publishes a profile_updated event.
func (s *UserService) UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error) {
	current, err := resilience.Do(ctx, s.guard, opUserGetByID, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	oldEmail := current.Email
	current.Name = name
	current.Email = email

	if _, err := s.guard.Do(ctx, opUserUpdate, func(ctx context.Context) (any, error) {
		return nil, s.users.Update(ctx, current)
	}); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, s.cache.Key(id))

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventProfileUpdated,
		UserID:    id,
		Timestamp: time.Now(),
		Payload: events.ProfileUpdatedPayload{
			OldEmail: oldEmail,
			NewEmail: email,
			Name:     name,
		},
	})
	return current, nil
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
