package models

import (
	"time"

	"github.com/lib/pq"
)

// DeletedMessageText replaces the text of a message deleted for everyone.
const DeletedMessageText = "This message was deleted"

// Message is a direct message between two users.
type Message struct {
	ID         int           `db:"id" json:"id"`
	SenderID   int           `db:"sender_id" json:"sender_id"`
	ReceiverID int           `db:"receiver_id" json:"receiver_id"`
	Text       *string       `db:"text" json:"text"`
	Image      *string       `db:"image" json:"image"`
	IsDeleted  bool          `db:"is_deleted" json:"is_deleted"`
	DeletedFor pq.Int64Array `db:"deleted_for" json:"deleted_for"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// Involves reports whether the message belongs to the conversation between a and b.
func (m Message) Involves(a, b int) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// IsParticipant reports whether userID sent or received the message.
func (m Message) IsParticipant(userID int) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// HiddenFor reports whether userID deleted the message for themselves.
func (m Message) HiddenFor(userID int) bool {
	for _, id := range m.DeletedFor {
		if int(id) == userID {
			return true
		}
	}
	return false
}

// Tombstone clears the content while keeping the identity of the message.
func (m *Message) Tombstone() {
	text := DeletedMessageText
	m.Text = &text
	m.Image = nil
	m.IsDeleted = true
}
