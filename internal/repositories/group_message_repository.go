package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"gatechat/internal/models"
)

// GroupMessageRepository defines interactions for group messages.
type GroupMessageRepository interface {
	Create(ctx context.Context, groupID, senderID int, text string) (models.GroupMessage, error)
	List(ctx context.Context, groupID int) ([]models.GroupMessage, error)
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// Create persists a group message and returns it with the sender's display fields.
func (r *GroupMessageRepo) Create(ctx context.Context, groupID, senderID int, text string) (models.GroupMessage, error) {
	query := `WITH inserted AS (
            INSERT INTO group_messages (group_id, sender_id, text) VALUES ($1, $2, $3)
            RETURNING id, group_id, sender_id, text, created_at
        )
        SELECT i.id, i.group_id, i.sender_id, i.text, i.created_at,
            u.full_name AS sender_name, u.profile_pic AS sender_pic
        FROM inserted i JOIN users u ON u.id = i.sender_id`
	var msg models.GroupMessage
	err := r.db.GetContext(ctx, &msg, query, groupID, senderID, text)
	return msg, errors.Wrap(err, "groupMessageRepo.Create")
}

// List returns the group's messages in insertion order.
func (r *GroupMessageRepo) List(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	query := `SELECT gm.id, gm.group_id, gm.sender_id, gm.text, gm.created_at,
            u.full_name AS sender_name, u.profile_pic AS sender_pic
        FROM group_messages gm JOIN users u ON u.id = gm.sender_id
        WHERE gm.group_id=$1
        ORDER BY gm.created_at ASC, gm.id ASC`
	msgs := []models.GroupMessage{}
	err := r.db.SelectContext(ctx, &msgs, query, groupID)
	return msgs, errors.Wrap(err, "groupMessageRepo.List")
}
