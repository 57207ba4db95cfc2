package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"gatechat/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, senderID, receiverID int, text, image *string) (models.Message, error)
	ListConversation(ctx context.Context, userID, peerID int) ([]models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
	HideForUser(ctx context.Context, messageID, userID int) error
	Tombstone(ctx context.Context, messageID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, sender_id, receiver_id, text, image, is_deleted, deleted_for, created_at`

func (r *MessageRepo) Create(ctx context.Context, senderID, receiverID int, text, image *string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `INSERT INTO messages (sender_id, receiver_id, text, image) VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		senderID, receiverID, text, image)
	return msg, errors.Wrap(err, "messageRepo.Create")
}

// ListConversation returns both directions of the conversation in insertion order,
// without the messages userID deleted for themselves.
func (r *MessageRepo) ListConversation(ctx context.Context, userID, peerID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))
        AND NOT ($1 = ANY(deleted_for))
        ORDER BY created_at ASC, id ASC`
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, query, userID, peerID)
	return msgs, errors.Wrap(err, "messageRepo.ListConversation")
}

func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, errors.Wrap(err, "messageRepo.Get")
}

// HideForUser adds userID to deleted_for once.
func (r *MessageRepo) HideForUser(ctx context.Context, messageID, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_for = array_append(deleted_for, $2)
        WHERE id=$1 AND NOT ($2 = ANY(deleted_for))`, messageID, userID)
	return errors.Wrap(err, "messageRepo.HideForUser")
}

// Tombstone replaces the content of a message for everyone.
func (r *MessageRepo) Tombstone(ctx context.Context, messageID int) (models.Message, error) {
	tomb := models.Message{ID: messageID}
	tomb.Tombstone()

	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `UPDATE messages SET text=$2, image=$3, is_deleted=$4 WHERE id=$1 RETURNING `+messageColumns,
		messageID, tomb.Text, tomb.Image, tomb.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, errors.Wrap(err, "messageRepo.Tombstone")
}
