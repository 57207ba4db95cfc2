package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"gatechat/internal/apperr"
	"gatechat/internal/models"
	"gatechat/internal/repositories"
)

// GroupService handles groups and their messages.
type GroupService struct {
	users     repositories.UserRepository
	groups    repositories.GroupRepository
	messages  repositories.GroupMessageRepository
	deliverer Deliverer
	logger    *slog.Logger
}

func NewGroupService(users repositories.UserRepository, groups repositories.GroupRepository, messages repositories.GroupMessageRepository, deliverer Deliverer, logger *slog.Logger) *GroupService {
	return &GroupService{
		users:     users,
		groups:    groups,
		messages:  messages,
		deliverer: deliverer,
		logger:    logger.With(slog.String("component", "groups")),
	}
}

// Create stores a group with the creator added to its members and announces it.
func (s *GroupService) Create(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, apperr.InvalidArg("group name is required")
	}
	if len(memberIDs) == 0 {
		return models.Group{}, apperr.InvalidArg("members are required")
	}
	for _, id := range memberIDs {
		if id <= 0 {
			return models.Group{}, apperr.InvalidArg("invalid member id")
		}
	}

	ids := repositories.DedupeMembers(creatorID, memberIDs)
	count, err := s.users.CountExisting(ctx, ids)
	if err != nil {
		return models.Group{}, apperr.Internal("failed to verify members", err)
	}
	if count != len(ids) {
		return models.Group{}, apperr.NotFound("member not found")
	}

	group, err := s.groups.Create(ctx, creatorID, name, ids)
	if err != nil {
		return models.Group{}, apperr.Internal("failed to create group", err)
	}

	s.deliverer.AnnounceGroup(group)
	s.logger.Info("group created", slog.Int("group_id", group.ID), slog.Int("members", len(group.Members)))
	return group, nil
}

// Send stores a group message from a member and pushes it to online members.
// A non-member is rejected before anything is stored.
func (s *GroupService) Send(ctx context.Context, senderID, groupID int, text string) (models.GroupMessage, error) {
	group, err := s.load(ctx, groupID)
	if err != nil {
		return models.GroupMessage{}, err
	}
	if !group.HasMember(senderID) {
		return models.GroupMessage{}, apperr.Forbidden("you are not a member of this group")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.GroupMessage{}, apperr.InvalidArg("text is required")
	}

	msg, err := s.messages.Create(ctx, groupID, senderID, text)
	if err != nil {
		return models.GroupMessage{}, apperr.Internal("failed to store message", err)
	}

	s.deliverer.DeliverGroup(group, msg)
	return msg, nil
}

// Messages returns the group history for a member.
func (s *GroupService) Messages(ctx context.Context, userID, groupID int) ([]models.GroupMessage, error) {
	group, err := s.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, apperr.Forbidden("you are not a member of this group")
	}
	msgs, err := s.messages.List(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", err)
	}
	return msgs, nil
}

// ListForUser lists userID's groups. Callers may only list their own.
func (s *GroupService) ListForUser(ctx context.Context, callerID, userID int) ([]models.Group, error) {
	if userID <= 0 {
		return nil, apperr.InvalidArg("user id is required")
	}
	if callerID != userID {
		return nil, apperr.Forbidden("cannot list groups of another user")
	}
	groups, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load groups", err)
	}
	return groups, nil
}

func (s *GroupService) load(ctx context.Context, groupID int) (models.Group, error) {
	if groupID <= 0 {
		return models.Group{}, apperr.InvalidArg("invalid group id")
	}
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return models.Group{}, apperr.NotFound("group not found")
		}
		return models.Group{}, apperr.Internal("failed to load group", err)
	}
	return group, nil
}
