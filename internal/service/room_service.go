package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/observability/metrics"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

const defaultPublicRoomLimit = 20

// roomServiceImpl implements RoomService interface.
type roomServiceImpl struct {
	tx          repository.Transactor
	repo        repository.RoomRepository
	cache       cache.RoomCache
	cacheTTL    time.Duration
	publisher   pubsub.Publisher
	ids         idgen.Generator
	publicLimit int
	opts        options
	sf          singleflight.Group
}

// NewRoomService creates a new room service. publisher may be nil.
func NewRoomService(
	tx repository.Transactor,
	repo repository.RoomRepository,
	roomCache cache.RoomCache,
	cacheTTL time.Duration,
	publisher pubsub.Publisher,
	ids idgen.Generator,
	publicLimit int,
	opts ...Option,
) RoomService {
	if publicLimit <= 0 {
		publicLimit = defaultPublicRoomLimit
	}
	if roomCache == nil {
		roomCache = cache.NewNoopRoomCache()
	}
	return &roomServiceImpl{
		tx:          tx,
		repo:        repo,
		cache:       roomCache,
		cacheTTL:    cacheTTL,
		publisher:   publisher,
		ids:         ids,
		publicLimit: publicLimit,
		opts:        buildOptions(opts),
	}
}

// now returns the current time at the stored millisecond precision.
func (s *roomServiceImpl) now() time.Time {
	return domain.FromMillis(domain.ToMillis(s.opts.now()))
}

// Create creates a room whose only participant is its creator.
func (s *roomServiceImpl) Create(ctx context.Context, name, createdBy string) (*domain.ChatRoom, error) {
	roomID, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}
	participantID, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	room := &domain.ChatRoom{
		ID:             roomID,
		Name:           name,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		LastMessageAt:  now,
		ParticipantIDs: []string{createdBy},
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, room); err != nil {
			return err
		}
		_, err := s.repo.AddParticipant(ctx, &domain.Participant{
			ID:         participantID,
			UserID:     createdBy,
			ChatRoomID: roomID,
			JoinedAt:   now,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	metrics.RoomsCreatedTotal.Inc()
	audit.LogRoom(ctx, audit.ActionCreateRoom, createdBy, roomID, "room created")
	publishRoomEvent(ctx, s.publisher, pubsub.EventRoomCreated, roomID, pubsub.RoomCreatedPayload{
		RoomID:    roomID,
		Name:      name,
		CreatedBy: createdBy,
	})

	return room, nil
}

// Join adds userID to a room. Joining twice is a no-op.
func (s *roomServiceImpl) Join(ctx context.Context, chatRoomID, userID string) (*domain.ChatRoom, bool, error) {
	participantID, err := s.ids.Generate()
	if err != nil {
		return nil, false, err
	}

	var (
		room    *domain.ChatRoom
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetByIDForUpdate(ctx, chatRoomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		room = r

		if r.HasParticipant(userID) {
			return nil
		}

		if _, err := s.repo.AddParticipant(ctx, &domain.Participant{
			ID:         participantID,
			UserID:     userID,
			ChatRoomID: chatRoomID,
			JoinedAt:   s.now(),
		}); err != nil {
			return err
		}

		r.ParticipantIDs = append(r.ParticipantIDs, userID)
		if err := s.repo.UpdateParticipants(ctx, chatRoomID, r.ParticipantIDs); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		metrics.RoomJoinsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		if errors.Is(err, ErrRoomNotFound) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("join room: %w", err)
	}

	if !changed {
		metrics.RoomJoinsTotal.WithLabelValues(metrics.ResultAlready).Inc()
		return room, false, nil
	}

	metrics.RoomJoinsTotal.WithLabelValues(metrics.ResultJoined).Inc()
	s.invalidate(ctx, chatRoomID)
	audit.LogRoom(ctx, audit.ActionJoinRoom, userID, chatRoomID, "room joined")
	publishRoomEvent(ctx, s.publisher, pubsub.EventRoomJoined, chatRoomID, pubsub.RoomJoinedPayload{
		RoomID:         chatRoomID,
		UserID:         userID,
		ParticipantIDs: room.ParticipantIDs,
	})

	return room, true, nil
}

// ListForUser returns the rooms userID participates in, most recently
// active first.
func (s *roomServiceImpl) ListForUser(ctx context.Context, userID string) ([]domain.ChatRoom, error) {
	participations, err := s.repo.ListParticipations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}

	ids := make([]string, 0, len(participations))
	seen := make(map[string]struct{}, len(participations))
	for _, p := range participations {
		if _, ok := seen[p.ChatRoomID]; ok {
			continue
		}
		seen[p.ChatRoomID] = struct{}{}
		ids = append(ids, p.ChatRoomID)
	}

	found, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get rooms: %w", err)
	}
	byID := make(map[string]domain.ChatRoom, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	// Participations pointing at missing rooms are skipped.
	rooms := make([]domain.ChatRoom, 0, len(found))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			rooms = append(rooms, r)
		}
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
	})
	return rooms, nil
}

// Get returns a room through the cache. A missing room is nil, nil.
func (s *roomServiceImpl) Get(ctx context.Context, id string) (*domain.ChatRoom, error) {
	result, err, _ := s.sf.Do(id, func() (interface{}, error) {
		return s.fetchWithCache(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}

	shared, ok := result.(*domain.ChatRoom)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}

	// Callers sharing a flight must not alias each other's slice.
	room := *shared
	room.ParticipantIDs = append([]string(nil), shared.ParticipantIDs...)
	return &room, nil
}

func (s *roomServiceImpl) fetchWithCache(ctx context.Context, id string) (*domain.ChatRoom, error) {
	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		// Log error but continue to fetch from DB
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, id).Msg("cache get error")
	}

	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Store in cache (async to avoid blocking response)
	snapshot := *room
	snapshot.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(cacheCtx, &snapshot, s.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldRoomID, id).Msg("cache set error")
		}
	}()

	return room, nil
}

// ListPublic returns the most recently active rooms regardless of membership.
func (s *roomServiceImpl) ListPublic(ctx context.Context) ([]domain.ChatRoom, error) {
	rooms, err := s.repo.ListRecent(ctx, s.publicLimit)
	if err != nil {
		return nil, fmt.Errorf("list public rooms: %w", err)
	}
	return rooms, nil
}

func (s *roomServiceImpl) invalidate(ctx context.Context, roomID string) {
	if err := s.cache.Invalidate(ctx, roomID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("cache delete error")
	}
}
