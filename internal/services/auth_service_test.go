package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gatechat/internal/apperr"
	"gatechat/internal/auth"
	"gatechat/internal/logging"
	"gatechat/internal/mocks"
	"gatechat/internal/models"
	"gatechat/internal/repositories"
)

type authDeps struct {
	users    *mocks.UserRepositoryMock
	requests *mocks.AccessRequestRepositoryMock
	uploader *mocks.UploaderMock
	tokens   *auth.TokenManager
}

func newAuthService() (*AuthService, authDeps) {
	deps := authDeps{
		users:    new(mocks.UserRepositoryMock),
		requests: new(mocks.AccessRequestRepositoryMock),
		uploader: new(mocks.UploaderMock),
		tokens:   auth.NewTokenManager("secret", time.Hour),
	}
	gate := NewAccessService(deps.requests, nil, logging.Discard())
	admin := AdminCredentials{Email: "Admin@Example.com", Password: "pa55word"}
	return NewAuthService(deps.users, gate, deps.tokens, deps.uploader, admin, nil, logging.Discard()), deps
}

func TestSignupGatedByAccess(t *testing.T) {
	svc, deps := newAuthService()
	in := SignupInput{FullName: "Foo", Email: "Foo@Bar.com", Password: "secret1"}

	deps.users.On("GetByEmail", mock.Anything, "foo@bar.com").Return(nil, repositories.ErrUserNotFound)
	deps.requests.On("FindByEmail", mock.Anything, "foo@bar.com").Return(models.AccessRequest{Email: "foo@bar.com"}, nil).Once()

	_, _, err := svc.Signup(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
	deps.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	deps.requests.On("FindByEmail", mock.Anything, "foo@bar.com").Return(models.AccessRequest{Email: "foo@bar.com", Access: true}, nil).Once()
	deps.users.On("Create", mock.Anything, "Foo", "foo@bar.com", mock.AnythingOfType("string")).Return(models.User{ID: 7, FullName: "Foo", Email: "foo@bar.com"}, nil).Once()

	user, token, err := svc.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)

	claims, err := deps.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, auth.RoleUser, claims.Role)
}

func TestSignupHashesPassword(t *testing.T) {
	svc, deps := newAuthService()
	deps.users.On("GetByEmail", mock.Anything, "a@b.c").Return(nil, repositories.ErrUserNotFound).Once()
	deps.requests.On("FindByEmail", mock.Anything, "a@b.c").Return(models.AccessRequest{Access: true}, nil).Once()
	deps.users.On("Create", mock.Anything, "A", "a@b.c", mock.MatchedBy(func(hash string) bool {
		return hash != "secret1" && auth.CheckPassword(hash, "secret1")
	})).Return(models.User{ID: 1}, nil).Once()

	_, _, err := svc.Signup(context.Background(), SignupInput{FullName: "A", Email: "a@b.c", Password: "secret1"})
	require.NoError(t, err)
	deps.users.AssertExpectations(t)
}

func TestSignupValidationAndDuplicate(t *testing.T) {
	svc, deps := newAuthService()

	_, _, err := svc.Signup(context.Background(), SignupInput{Email: "a@b.c", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	_, _, err = svc.Signup(context.Background(), SignupInput{FullName: "A", Email: "a@b.c", Password: "123"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	deps.users.On("GetByEmail", mock.Anything, "a@b.c").Return(models.User{ID: 1}, nil).Once()
	_, _, err = svc.Signup(context.Background(), SignupInput{FullName: "A", Email: "a@b.c", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.CodeAlreadyExists))
}

func TestLogin(t *testing.T) {
	svc, deps := newAuthService()
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	deps.users.On("GetByEmail", mock.Anything, "a@b.c").Return(models.User{ID: 3, Password: hash}, nil)
	deps.users.On("GetByEmail", mock.Anything, "no@b.c").Return(nil, repositories.ErrUserNotFound)

	user, token, err := svc.Login(context.Background(), "A@b.c", "secret1")
	require.NoError(t, err)
	assert.Equal(t, 3, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), "a@b.c", "wrong")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
	_, _, err = svc.Login(context.Background(), "no@b.c", "secret1")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestAdminLogin(t *testing.T) {
	svc, deps := newAuthService()

	token, err := svc.AdminLogin(context.Background(), "admin@example.com", "pa55word")
	require.NoError(t, err)
	claims, err := deps.tokens.Parse(token)
	require.NoError(t, err)
	assert.True(t, svc.IsAdmin(claims))

	_, err = svc.AdminLogin(context.Background(), "admin@example.com", "nope")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))

	userToken, err := deps.tokens.Issue("1", auth.RoleUser)
	require.NoError(t, err)
	userClaims, err := deps.tokens.Parse(userToken)
	require.NoError(t, err)
	assert.False(t, svc.IsAdmin(userClaims))
}

func TestAdminLoginDisabledWithoutCredentials(t *testing.T) {
	svc := NewAuthService(nil, nil, auth.NewTokenManager("s", time.Hour), nil, AdminCredentials{}, nil, logging.Discard())
	_, err := svc.AdminLogin(context.Background(), "", "")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestUpdateProfilePic(t *testing.T) {
	svc, deps := newAuthService()
	deps.uploader.On("Upload", mock.Anything, "data:image/png;base64,AA==").Return("/media/p.png", nil).Once()
	deps.users.On("UpdateProfilePic", mock.Anything, 3, "/media/p.png").Return(models.User{ID: 3, ProfilePic: "/media/p.png"}, nil).Once()

	user, err := svc.UpdateProfilePic(context.Background(), 3, "data:image/png;base64,AA==")
	require.NoError(t, err)
	assert.Equal(t, "/media/p.png", user.ProfilePic)

	_, err = svc.UpdateProfilePic(context.Background(), 3, "")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}
