package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
)

const createMessagesByRoom = `
	CREATE TABLE IF NOT EXISTS messages_by_room (
		chat_room_id text,
		message_id   text,
		sender_id    text,
		sender_name  text,
		content      text,
		created_at   timestamp,
		PRIMARY KEY ((chat_room_id), message_id)
	) WITH CLUSTERING ORDER BY (message_id DESC)`

// CassandraMessageRepository implements MessageRepository on Cassandra.
// Message ids are ULIDs, so clustering by id gives creation order.
type CassandraMessageRepository struct {
	session *gocql.Session
}

func NewCassandraMessageRepository(cfg config.CassandraConfig) (*CassandraMessageRepository, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.Timeout

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	if err := session.Query(createMessagesByRoom).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create messages_by_room: %w", err)
	}

	return &CassandraMessageRepository{session: session}, nil
}

func (r *CassandraMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages_by_room (
			chat_room_id, message_id, sender_id, sender_name, content, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	err := r.session.Query(query,
		msg.ChatRoomID,
		msg.ID,
		msg.SenderID,
		msg.SenderName,
		msg.Content,
		msg.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (r *CassandraMessageRepository) ListByRoom(ctx context.Context, chatRoomID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, chat_room_id, sender_id, sender_name, content, created_at
			  FROM messages_by_room
			  WHERE chat_room_id = ?
			  ORDER BY message_id DESC
			  LIMIT ?`

	iter := r.session.Query(query, chatRoomID, limit).WithContext(ctx).Iter()

	messages := make([]domain.Message, 0, limit)
	var msg domain.Message
	var createdAt time.Time

	for iter.Scan(
		&msg.ID,
		&msg.ChatRoomID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.Content,
		&createdAt,
	) {
		msg.CreatedAt = createdAt.UTC()
		messages = append(messages, msg)
		msg = domain.Message{}
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func (r *CassandraMessageRepository) Close() error {
	r.session.Close()
	return nil
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ONE":
		return gocql.One
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_ONE":
		return gocql.LocalOne
	case "EACH_QUORUM":
		return gocql.EachQuorum
	default:
		return gocql.LocalQuorum
	}
}
