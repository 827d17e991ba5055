package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/database"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create inserts a new room. The caller assigns the id and timestamps.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.ChatRoom) error {
	l := log.Ctx(ctx)

	model := domain.ChatRoomToModel(room)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create room in db")
		return err
	}

	l.Debug().Str(log.FieldRoomID, room.ID).Msg("room created in db")
	return nil
}

// GetByID retrieves a room by ID.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.ChatRoom, error) {
	return r.get(ctx, conn(ctx, r.db), id)
}

// GetByIDForUpdate retrieves a room by ID holding a row lock. SQLite has no
// row locks and serialises writers instead.
func (r *GormRoomRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.ChatRoom, error) {
	return r.get(ctx, conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormRoomRepository) get(ctx context.Context, db *gorm.DB, id string) (*domain.ChatRoom, error) {
	var model domain.ChatRoomModel
	result := db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByIDs retrieves the rooms that exist among ids, in no particular order.
func (r *GormRoomRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.ChatRoom, error) {
	if len(ids) == 0 {
		return []domain.ChatRoom{}, nil
	}

	var models []domain.ChatRoomModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("count", len(ids)).Msg("failed to get rooms by ids")
		return nil, err
	}

	rooms := make([]domain.ChatRoom, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}
	return rooms, nil
}

// UpdateParticipants replaces a room's participant list.
func (r *GormRoomRepository) UpdateParticipants(ctx context.Context, id string, participantIDs []string) error {
	return r.patch(ctx, id, "participant_ids", database.StringArray(participantIDs))
}

// TouchLastMessage advances a room's last_message_at to at (Unix ms). The
// column never moves backwards, so a send that commits late cannot undo a
// newer one.
func (r *GormRoomRepository) TouchLastMessage(ctx context.Context, id string, at int64) error {
	return r.patch(ctx, id, "last_message_at",
		gorm.Expr("CASE WHEN last_message_at < ? THEN ? ELSE last_message_at END", at, at))
}

func (r *GormRoomRepository) patch(ctx context.Context, id, column string, value interface{}) error {
	l := log.Ctx(ctx)
	db := conn(ctx, r.db)

	result := db.Model(&domain.ChatRoomModel{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Str("column", column).Msg("failed to update room in db")
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the value did not change.
	var count int64
	if err := db.Model(&domain.ChatRoomModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// AddParticipant inserts a participant record unless the pair already exists.
func (r *GormRoomRepository) AddParticipant(ctx context.Context, p *domain.Participant) (bool, error) {
	l := log.Ctx(ctx)

	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "chat_room_id"}},
			DoNothing: true,
		}).
		Create(domain.ParticipantToModel(p))
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, p.ChatRoomID).Str(log.FieldDeviceID, p.UserID).Msg("failed to add participant")
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListParticipations returns every participant record of a user, oldest first.
func (r *GormRoomRepository) ListParticipations(ctx context.Context, userID string) ([]domain.Participant, error) {
	var models []domain.ParticipantModel
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Order("joined_at ASC").Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldDeviceID, userID).Msg("failed to list participations")
		return nil, err
	}

	out := make([]domain.Participant, len(models))
	for i, model := range models {
		out[i] = *model.ToDomain()
	}
	return out, nil
}

// ListRecent returns up to limit rooms, most recently active first.
func (r *GormRoomRepository) ListRecent(ctx context.Context, limit int) ([]domain.ChatRoom, error) {
	var models []domain.ChatRoomModel
	if err := conn(ctx, r.db).Order("last_message_at DESC").Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list recent rooms")
		return nil, err
	}

	rooms := make([]domain.ChatRoom, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}
	return rooms, nil
}
