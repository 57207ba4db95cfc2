package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gatechat/internal/models"
	"gatechat/internal/telemetry"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, fullName, email, passwordHash string) (models.User, error) {
	args := m.Called(ctx, fullName, email, passwordHash)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListExcept(ctx context.Context, userID int) ([]models.User, error) {
	args := m.Called(ctx, userID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) CountExisting(ctx context.Context, userIDs []int) (int, error) {
	args := m.Called(ctx, userIDs)
	return args.Int(0), args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfilePic(ctx context.Context, userID int, url string) (models.User, error) {
	args := m.Called(ctx, userID, url)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type AccessRequestRepositoryMock struct {
	mock.Mock
}

func (m *AccessRequestRepositoryMock) Create(ctx context.Context, email string) (models.AccessRequest, error) {
	args := m.Called(ctx, email)
	var req models.AccessRequest
	if val := args.Get(0); val != nil {
		req = val.(models.AccessRequest)
	}
	return req, args.Error(1)
}

func (m *AccessRequestRepositoryMock) FindByEmail(ctx context.Context, email string) (models.AccessRequest, error) {
	args := m.Called(ctx, email)
	var req models.AccessRequest
	if val := args.Get(0); val != nil {
		req = val.(models.AccessRequest)
	}
	return req, args.Error(1)
}

func (m *AccessRequestRepositoryMock) List(ctx context.Context) ([]models.AccessRequest, error) {
	args := m.Called(ctx)
	var reqs []models.AccessRequest
	if val := args.Get(0); val != nil {
		reqs = val.([]models.AccessRequest)
	}
	return reqs, args.Error(1)
}

func (m *AccessRequestRepositoryMock) Grant(ctx context.Context, email string) (models.AccessRequest, error) {
	args := m.Called(ctx, email)
	var req models.AccessRequest
	if val := args.Get(0); val != nil {
		req = val.(models.AccessRequest)
	}
	return req, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, senderID, receiverID int, text, image *string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, text, image)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversation(ctx context.Context, userID, peerID int) ([]models.Message, error) {
	args := m.Called(ctx, userID, peerID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) HideForUser(ctx context.Context, messageID, userID int) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) Tombstone(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) Create(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Group, error) {
	args := m.Called(ctx, creatorID, name, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) Get(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) Create(ctx context.Context, groupID, senderID int, text string) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, senderID, text)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) List(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	args := m.Called(ctx, groupID)
	var msgs []models.GroupMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.GroupMessage)
	}
	return msgs, args.Error(1)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, image string) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

type DelivererMock struct {
	mock.Mock
}

func (m *DelivererMock) DeliverDirect(msg models.Message) bool {
	args := m.Called(msg)
	return args.Bool(0)
}

func (m *DelivererMock) DeliverGroup(group models.Group, msg models.GroupMessage) int {
	args := m.Called(group, msg)
	return args.Int(0)
}

func (m *DelivererMock) AnnounceGroup(group models.Group) int {
	args := m.Called(group)
	return args.Int(0)
}

type AuditorMock struct {
	mock.Mock
}

func (m *AuditorMock) Emit(ctx context.Context, rec telemetry.Record) {
	m.Called(ctx, rec)
}
