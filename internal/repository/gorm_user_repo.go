package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Upsert stores the user keyed by device id. On conflict the existing row
// keeps its id; name, push_token and last_seen are overwritten, so a nil
// push token clears the stored one.
func (r *GormUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	l := log.Ctx(ctx)
	db := conn(ctx, r.db)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "push_token", "last_seen"}),
	}).Create(domain.UserToModel(user)).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldDeviceID, user.DeviceID).Msg("failed to upsert user")
		return nil, err
	}

	return r.GetByDeviceID(ctx, user.DeviceID)
}

// GetByDeviceID retrieves a user by device id.
func (r *GormUserRepository) GetByDeviceID(ctx context.Context, deviceID string) (*domain.User, error) {
	var model domain.UserModel
	result := conn(ctx, r.db).First(&model, "device_id = ?", deviceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldDeviceID, deviceID).Msg("failed to get user by device id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByDeviceIDs retrieves the users registered for any of deviceIDs.
func (r *GormUserRepository) GetByDeviceIDs(ctx context.Context, deviceIDs []string) ([]domain.User, error) {
	if len(deviceIDs) == 0 {
		return []domain.User{}, nil
	}

	var models []domain.UserModel
	if err := conn(ctx, r.db).Where("device_id IN ?", deviceIDs).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("count", len(deviceIDs)).Msg("failed to get users by device ids")
		return nil, err
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = *model.ToDomain()
	}
	return users, nil
}
