package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gatechat/internal/fanout"
	"gatechat/internal/logging"
	"gatechat/internal/mocks"
	"gatechat/internal/models"
	"gatechat/internal/ws"
)

// pushes drains c and counts the queued frames carrying event. Presence
// snapshots from later connects are skipped.
func pushes(t *testing.T, c *ws.Client, event string) int {
	t.Helper()
	n := 0
	for len(c.Outbound()) > 0 {
		var env models.Envelope
		require.NoError(t, json.Unmarshal(<-c.Outbound(), &env))
		if env.Event == event {
			n++
		}
	}
	return n
}

func connect(t *testing.T, hub *ws.Hub, userID int) *ws.Client {
	t.Helper()
	c := ws.NewClient(nil, ws.ConnInfo{UserID: userID}, 32)
	require.NoError(t, hub.Connect(c))
	return c
}

func TestDirectSendToOfflineReceiverPersistsWithoutPush(t *testing.T) {
	hub := ws.NewHub(logging.Discard())
	sender := connect(t, hub, 1)
	users := new(mocks.UserRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(users, messages, nil, fanout.NewRouter(hub, logging.Discard()), logging.Discard())

	users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	messages.On("Create", mock.Anything, 1, 2, mock.Anything, mock.Anything).Return(models.Message{ID: 1, SenderID: 1, ReceiverID: 2}, nil).Once()

	_, err := svc.SendDirect(context.Background(), 1, 2, SendInput{Text: "hi"})
	require.NoError(t, err)
	messages.AssertExpectations(t)
	assert.Zero(t, pushes(t, sender, models.EventNewMessage))
}

func TestDirectSendToOnlineReceiverPushesOnce(t *testing.T) {
	hub := ws.NewHub(logging.Discard())
	sender := connect(t, hub, 1)
	receiver := connect(t, hub, 2)
	bystander := connect(t, hub, 3)
	users := new(mocks.UserRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(users, messages, nil, fanout.NewRouter(hub, logging.Discard()), logging.Discard())

	users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	messages.On("Create", mock.Anything, 1, 2, mock.Anything, mock.Anything).Return(models.Message{ID: 1, SenderID: 1, ReceiverID: 2}, nil).Once()

	_, err := svc.SendDirect(context.Background(), 1, 2, SendInput{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, pushes(t, receiver, models.EventNewMessage))
	assert.Zero(t, pushes(t, sender, models.EventNewMessage))
	assert.Zero(t, pushes(t, bystander, models.EventNewMessage))
}

func TestGroupSendReachesOnlyOnlineMembers(t *testing.T) {
	hub := ws.NewHub(logging.Discard())
	b := connect(t, hub, 2)
	outsider := connect(t, hub, 9)
	groups := new(mocks.GroupRepositoryMock)
	messages := new(mocks.GroupMessageRepositoryMock)
	svc := NewGroupService(nil, groups, messages, fanout.NewRouter(hub, logging.Discard()), logging.Discard())

	group := models.Group{ID: 5, CreatorID: 1, Members: pq.Int64Array{1, 2, 3}}
	groups.On("Get", mock.Anything, 5).Return(group, nil).Once()
	messages.On("Create", mock.Anything, 5, 1, "yo").Return(models.GroupMessage{ID: 1, GroupID: 5, SenderID: 1, Text: "yo"}, nil).Once()

	_, err := svc.Send(context.Background(), 1, 5, "yo")
	require.NoError(t, err)
	assert.Equal(t, 1, pushes(t, b, models.EventGroupMessage))
	assert.Zero(t, pushes(t, outsider, models.EventGroupMessage))
}
