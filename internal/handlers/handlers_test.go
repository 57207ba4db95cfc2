package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gatechat/internal/auth"
	"gatechat/internal/logging"
	"gatechat/internal/middleware"
	"gatechat/internal/mocks"
	"gatechat/internal/models"
	"gatechat/internal/repositories"
	"gatechat/internal/services"
	"gatechat/internal/telemetry"
)

type testEnv struct {
	router     *gin.Engine
	tokens     *auth.TokenManager
	users      *mocks.UserRepositoryMock
	requests   *mocks.AccessRequestRepositoryMock
	messages   *mocks.MessageRepositoryMock
	groups     *mocks.GroupRepositoryMock
	groupMsgs  *mocks.GroupMessageRepositoryMock
	deliverer  *mocks.DelivererMock
	uploader   *mocks.UploaderMock
	userToken  string
	adminToken string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.Discard()
	env := &testEnv{
		tokens:    auth.NewTokenManager("secret", time.Hour),
		users:     new(mocks.UserRepositoryMock),
		requests:  new(mocks.AccessRequestRepositoryMock),
		messages:  new(mocks.MessageRepositoryMock),
		groups:    new(mocks.GroupRepositoryMock),
		groupMsgs: new(mocks.GroupMessageRepositoryMock),
		deliverer: new(mocks.DelivererMock),
		uploader:  new(mocks.UploaderMock),
	}

	access := services.NewAccessService(env.requests, nil, logger)
	authSvc := services.NewAuthService(env.users, access, env.tokens, env.uploader,
		services.AdminCredentials{Email: "admin@example.com", Password: "pa55word"}, nil, logger)
	msgSvc := services.NewMessageService(env.users, env.messages, env.uploader, env.deliverer, logger)
	groupSvc := services.NewGroupService(env.users, env.groups, env.groupMsgs, env.deliverer, logger)

	env.router = gin.New()
	Register(env.router, Routes{
		Auth:      NewAuthHandler(authSvc, access, CookieConfig{UserName: "jwt", AdminName: "adminJWT", MaxAge: 3600}, logger),
		Messages:  NewMessageHandler(msgSvc, logger),
		Groups:    NewGroupHandler(groupSvc, nil, logger),
		Socket:    func(c *gin.Context) { c.Status(http.StatusTeapot) },
		UserAuth:  middleware.AuthMiddleware(env.tokens, "jwt"),
		AdminAuth: middleware.AdminMiddleware(env.tokens, "adminJWT", authSvc.IsAdmin),
	})

	var err error
	env.userToken, err = env.tokens.Issue("1", auth.RoleUser)
	require.NoError(t, err)
	env.adminToken, err = env.tokens.Issue("admin@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestListUsersRequiresAuth(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(http.MethodGet, "/messages/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListUsersHidesPasswords(t *testing.T) {
	env := setupEnv(t)
	env.users.On("ListExcept", mock.Anything, 1).Return([]models.User{{ID: 2, FullName: "Bob", Password: "hash"}}, nil).Once()

	rec := env.do(http.MethodGet, "/messages/users", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hash")

	var resp struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "Bob", resp.Users[0].FullName)
}

func TestGetConversation(t *testing.T) {
	env := setupEnv(t)
	env.messages.On("ListConversation", mock.Anything, 1, 2).Return([]models.Message{{ID: 1, SenderID: 1, ReceiverID: 2}}, nil).Once()

	rec := env.do(http.MethodGet, "/messages/2", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages"`)

	rec = env.do(http.MethodGet, "/messages/abc", env.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageCreated(t *testing.T) {
	env := setupEnv(t)
	text := "hello"
	stored := models.Message{ID: 3, SenderID: 1, ReceiverID: 2, Text: &text}
	env.users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	env.messages.On("Create", mock.Anything, 1, 2, &text, (*string)(nil)).Return(stored, nil).Once()
	env.deliverer.On("DeliverDirect", stored).Return(false).Once()

	rec := env.do(http.MethodPost, "/messages/send/2", env.userToken, gin.H{"text": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.ID)
	env.deliverer.AssertExpectations(t)
}

func TestSendMessageRequiresContent(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(http.MethodPost, "/messages/send/2", env.userToken, gin.H{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteForMeAndEveryone(t *testing.T) {
	env := setupEnv(t)
	text := "secret"
	msg := models.Message{ID: 9, SenderID: 2, ReceiverID: 1, Text: &text}
	env.messages.On("Get", mock.Anything, 9).Return(msg, nil)
	env.messages.On("HideForUser", mock.Anything, 9, 1).Return(nil).Once()

	rec := env.do(http.MethodPost, "/messages/delete-for-me", env.userToken, gin.H{"message_id": 9})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodPost, "/messages/delete-for-everyone", env.userToken, gin.H{"message_id": 9})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/messages/delete-for-everyone", env.userToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteForEveryoneBySender(t *testing.T) {
	env := setupEnv(t)
	text := "secret"
	msg := models.Message{ID: 9, SenderID: 1, ReceiverID: 2, Text: &text}
	tomb := msg
	tomb.Tombstone()
	env.messages.On("Get", mock.Anything, 9).Return(msg, nil).Once()
	env.messages.On("Tombstone", mock.Anything, 9).Return(tomb, nil).Once()

	rec := env.do(http.MethodPost, "/messages/delete-for-everyone", env.userToken, gin.H{"message_id": 9})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"This message was deleted"`, mustField(t, rec, "text"))
	assert.JSONEq(t, `null`, mustField(t, rec, "image"))
	assert.JSONEq(t, `true`, mustField(t, rec, "is_deleted"))
}

func mustField(t *testing.T, rec *httptest.ResponseRecorder, key string) string {
	t.Helper()
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &obj))
	raw, ok := obj[key]
	require.True(t, ok, key)
	return string(raw)
}

func TestCreateGroup(t *testing.T) {
	env := setupEnv(t)
	group := models.Group{ID: 4, Name: "team", CreatorID: 1, Members: pq.Int64Array{1, 2}}
	env.users.On("CountExisting", mock.Anything, []int{1, 2}).Return(2, nil).Once()
	env.groups.On("Create", mock.Anything, 1, "team", []int{1, 2}).Return(group, nil).Once()
	env.deliverer.On("AnnounceGroup", group).Return(2).Once()

	rec := env.do(http.MethodPost, "/messages/create-group", env.userToken, gin.H{"name": "team", "members": []int{2}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `[1,2]`, mustField(t, rec, "members"))

	rec = env.do(http.MethodPost, "/messages/create-group", env.userToken, gin.H{"members": []int{2}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendGroupMessageNonMember(t *testing.T) {
	env := setupEnv(t)
	env.groups.On("Get", mock.Anything, 5).Return(models.Group{ID: 5, Members: pq.Int64Array{2, 3}}, nil).Once()

	rec := env.do(http.MethodPost, "/messages/send-group/5", env.userToken, gin.H{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	env.groupMsgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendGroupMessageMissingGroup(t *testing.T) {
	env := setupEnv(t)
	env.groups.On("Get", mock.Anything, 5).Return(nil, repositories.ErrGroupNotFound).Once()

	rec := env.do(http.MethodPost, "/messages/send-group/5", env.userToken, gin.H{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupMessagesAndListing(t *testing.T) {
	env := setupEnv(t)
	env.groups.On("Get", mock.Anything, 5).Return(models.Group{ID: 5, Members: pq.Int64Array{1}}, nil).Once()
	env.groupMsgs.On("List", mock.Anything, 5).Return([]models.GroupMessage{{ID: 1, SenderName: "Ann"}}, nil).Once()
	env.groups.On("ListForUser", mock.Anything, 1).Return([]models.Group{{ID: 5}}, nil).Once()

	rec := env.do(http.MethodGet, "/messages/group-messages/5", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ann")

	rec = env.do(http.MethodGet, "/messages/groups/1", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"groups"`)

	rec = env.do(http.MethodGet, "/messages/groups/2", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAccessRequestFlow(t *testing.T) {
	env := setupEnv(t)
	env.requests.On("FindByEmail", mock.Anything, "foo@bar.com").Return(nil, repositories.ErrRequestNotFound).Once()
	env.requests.On("Create", mock.Anything, "foo@bar.com").Return(models.AccessRequest{ID: 1, Email: "foo@bar.com"}, nil).Once()
	env.requests.On("FindByEmail", mock.Anything, "foo@bar.com").Return(models.AccessRequest{ID: 1, Email: "foo@bar.com"}, nil).Once()

	rec := env.do(http.MethodPost, "/auth/request", "", gin.H{"email": "Foo@Bar.com"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/auth/request", "", gin.H{"email": "foo@bar.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminRoutesGuarded(t *testing.T) {
	env := setupEnv(t)
	env.requests.On("List", mock.Anything).Return([]models.AccessRequest{{Email: "a@b.c"}}, nil).Once()
	env.requests.On("Grant", mock.Anything, "a@b.c").Return(models.AccessRequest{Email: "a@b.c", Access: true}, nil).Once()
	env.requests.On("Grant", mock.Anything, "none@b.c").Return(nil, repositories.ErrRequestNotFound).Once()

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/auth/requested-users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/auth/requested-users", env.userToken, nil).Code)

	rec := env.do(http.MethodGet, "/auth/requested-users", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requests"`)

	rec = env.do(http.MethodPost, "/auth/accept-request?id=A@b.c", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `true`, mustField(t, rec, "access"))

	rec = env.do(http.MethodPost, "/auth/accept-request?id=none@b.c", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/auth/check-admin", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"admin@example.com"}`, rec.Body.String())
}

func TestAdminLoginSetsCookie(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(http.MethodPost, "/auth/admin-login", "", gin.H{"email": "admin@example.com", "password": "pa55word"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "adminJWT=")

	rec = env.do(http.MethodPost, "/auth/admin-login", "", gin.H{"email": "admin@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupGate(t *testing.T) {
	env := setupEnv(t)
	body := gin.H{"full_name": "Foo", "email": "foo@bar.com", "password": "secret1"}
	env.users.On("GetByEmail", mock.Anything, "foo@bar.com").Return(nil, repositories.ErrUserNotFound)
	env.requests.On("FindByEmail", mock.Anything, "foo@bar.com").Return(models.AccessRequest{Email: "foo@bar.com"}, nil).Once()

	rec := env.do(http.MethodPost, "/auth/signup", "", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.requests.On("FindByEmail", mock.Anything, "foo@bar.com").Return(models.AccessRequest{Email: "foo@bar.com", Access: true}, nil).Once()
	env.users.On("Create", mock.Anything, "Foo", "foo@bar.com", mock.AnythingOfType("string")).Return(models.User{ID: 5, FullName: "Foo"}, nil).Once()

	rec = env.do(http.MethodPost, "/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "jwt=")
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestLoginAndCheck(t *testing.T) {
	env := setupEnv(t)
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	env.users.On("GetByEmail", mock.Anything, "a@b.c").Return(models.User{ID: 1, Email: "a@b.c", Password: hash}, nil)
	env.users.On("GetByID", mock.Anything, 1).Return(models.User{ID: 1, Email: "a@b.c"}, nil).Once()

	rec := env.do(http.MethodPost, "/auth/login", "", gin.H{"email": "a@b.c", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/auth/login", "", gin.H{"email": "a@b.c", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/auth/check", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"a@b.c"`, mustField(t, rec, "email"))

	rec = env.do(http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestSocketRouteMounted(t *testing.T) {
	env := setupEnv(t)
	assert.Equal(t, http.StatusTeapot, env.do(http.MethodGet, "/ws", "", nil).Code)
}

type fakePresence struct{}

func (fakePresence) OnlineUsers() []int     { return []int{1, 2} }
func (fakePresence) RoomSizes() map[int]int { return map[int]int{5: 1} }

func TestDebugRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterDebugRoutes(router, nil, fakePresence{}, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/presence", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"online":[1,2],"rooms":{"5":1}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	disabled := gin.New()
	RegisterDebugRoutes(disabled, nil, fakePresence{}, false)
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/presence", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugAuditCheckPublishes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, "audit.chat", mock.AnythingOfType("telemetry.Envelope"), mock.Anything).Return(nil).Once()
	emitter := telemetry.NewAuditEmitter(pub, "audit.chat", "gatechat", "test", logging.Discard())

	router := gin.New()
	RegisterDebugRoutes(router, emitter, fakePresence{}, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil)
	req.Header.Set("X-Request-Id", "audit-1")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	pub.AssertExpectations(t)
	env := pub.Calls[0].Arguments.Get(2).(telemetry.Envelope)
	assert.Equal(t, telemetry.ActionAuditCheck, env.Action)
	assert.Equal(t, "audit-1", env.RequestID)
	assert.Equal(t, "audit-test", env.Subject)
}
