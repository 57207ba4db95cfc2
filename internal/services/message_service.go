package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"gatechat/internal/apperr"
	"gatechat/internal/media"
	"gatechat/internal/models"
	"gatechat/internal/repositories"
)

// SendInput is the body of a direct send. At least one field is required.
type SendInput struct {
	Text  string
	Image string
}

// MessageService handles direct messages.
type MessageService struct {
	users     repositories.UserRepository
	messages  repositories.MessageRepository
	uploader  media.Uploader
	deliverer Deliverer
	logger    *slog.Logger
}

func NewMessageService(users repositories.UserRepository, messages repositories.MessageRepository, uploader media.Uploader, deliverer Deliverer, logger *slog.Logger) *MessageService {
	return &MessageService{
		users:     users,
		messages:  messages,
		uploader:  uploader,
		deliverer: deliverer,
		logger:    logger.With(slog.String("component", "messages")),
	}
}

// ListContacts returns every user except the caller.
func (s *MessageService) ListContacts(ctx context.Context, userID int) ([]models.User, error) {
	users, err := s.users.ListExcept(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load users", err)
	}
	return users, nil
}

// Conversation returns the history between userID and peerID as userID sees it.
func (s *MessageService) Conversation(ctx context.Context, userID, peerID int) ([]models.Message, error) {
	if peerID <= 0 {
		return nil, apperr.InvalidArg("invalid user id")
	}
	msgs, err := s.messages.ListConversation(ctx, userID, peerID)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", err)
	}
	return msgs, nil
}

// SendDirect persists the message, then pushes it if the receiver is online.
func (s *MessageService) SendDirect(ctx context.Context, senderID, receiverID int, in SendInput) (models.Message, error) {
	text := strings.TrimSpace(in.Text)
	if receiverID <= 0 {
		return models.Message{}, apperr.InvalidArg("invalid receiver id")
	}
	if text == "" && in.Image == "" {
		return models.Message{}, apperr.InvalidArg("text or image is required")
	}

	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Message{}, apperr.NotFound("receiver not found")
		}
		return models.Message{}, apperr.Internal("failed to load receiver", err)
	}

	var textPtr, imagePtr *string
	if text != "" {
		textPtr = &text
	}
	if in.Image != "" {
		url, err := s.uploader.Upload(ctx, in.Image)
		if err != nil {
			if errors.Is(err, media.ErrInvalidImage) {
				return models.Message{}, apperr.InvalidArg("invalid image")
			}
			return models.Message{}, apperr.Internal("failed to upload image", err)
		}
		imagePtr = &url
	}

	msg, err := s.messages.Create(ctx, senderID, receiverID, textPtr, imagePtr)
	if err != nil {
		return models.Message{}, apperr.Internal("failed to store message", err)
	}

	s.deliverer.DeliverDirect(msg)
	return msg, nil
}

// DeleteForMe hides the message for userID only.
func (s *MessageService) DeleteForMe(ctx context.Context, userID, messageID int) error {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.IsParticipant(userID) {
		return apperr.Forbidden("not a participant of this message")
	}
	if msg.HiddenFor(userID) {
		return nil
	}
	if err := s.messages.HideForUser(ctx, messageID, userID); err != nil {
		return apperr.Internal("failed to delete message", err)
	}
	return nil
}

// DeleteForEveryone tombstones the message. Only the sender may do this.
func (s *MessageService) DeleteForEveryone(ctx context.Context, userID, messageID int) (models.Message, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != userID {
		return models.Message{}, apperr.Forbidden("only the sender can delete for everyone")
	}
	if msg.IsDeleted {
		return msg, nil
	}
	updated, err := s.messages.Tombstone(ctx, messageID)
	if err != nil {
		return models.Message{}, apperr.Internal("failed to delete message", err)
	}
	return updated, nil
}

func (s *MessageService) load(ctx context.Context, messageID int) (models.Message, error) {
	if messageID <= 0 {
		return models.Message{}, apperr.InvalidArg("message_id is required")
	}
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.Message{}, apperr.NotFound("message not found")
		}
		return models.Message{}, apperr.Internal("failed to load message", err)
	}
	return msg, nil
}
