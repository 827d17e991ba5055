package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := conn(ctx, r.db).Create(domain.MessageToModel(msg)).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, msg.ChatRoomID).Msg("failed to create message in db")
		return err
	}
	return nil
}

// ListByRoom returns up to limit messages of a room, newest first. Messages
// created in the same millisecond are ordered by their ULID.
func (r *GormMessageRepository) ListByRoom(ctx context.Context, chatRoomID string, limit int) ([]domain.Message, error) {
	var models []domain.MessageModel
	err := conn(ctx, r.db).
		Where("chat_room_id = ?", chatRoomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, chatRoomID).Msg("failed to list messages from db")
		return nil, err
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages, nil
}
