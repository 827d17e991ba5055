package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/repository"
)

type userServiceImpl struct {
	repo repository.UserRepository
	ids  idgen.Generator
	opts options
}

func NewUserService(repo repository.UserRepository, ids idgen.Generator, opts ...Option) UserService {
	return &userServiceImpl{
		repo: repo,
		ids:  ids,
		opts: buildOptions(opts),
	}
}

// Upsert registers a device or refreshes its name, push token and last seen
// time. A nil pushToken clears any stored token.
func (s *userServiceImpl) Upsert(ctx context.Context, name, deviceID string, pushToken *string) (*domain.User, error) {
	id, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Upsert(ctx, &domain.User{
		ID:        id,
		Name:      name,
		DeviceID:  deviceID,
		PushToken: pushToken,
		LastSeen:  domain.FromMillis(domain.ToMillis(s.opts.now())),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	audit.LogWithDetail(ctx, audit.ActionUpsertUser, deviceID, fmt.Sprintf("push_token=%t", user.HasPushToken()), "user upserted")
	return user, nil
}

func (s *userServiceImpl) GetByDeviceID(ctx context.Context, deviceID string) (*domain.User, error) {
	user, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
