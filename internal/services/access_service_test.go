package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gatechat/internal/apperr"
	"gatechat/internal/logging"
	"gatechat/internal/mocks"
	"gatechat/internal/models"
	"gatechat/internal/repositories"
	"gatechat/internal/telemetry"
)

func newAccessService() (*AccessService, *mocks.AccessRequestRepositoryMock, *mocks.AuditorMock) {
	repo := new(mocks.AccessRequestRepositoryMock)
	audit := new(mocks.AuditorMock)
	audit.On("Emit", mock.Anything, mock.Anything).Return()
	return NewAccessService(repo, audit, logging.Discard()), repo, audit
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "foo@bar.com", NormalizeEmail("  Foo@Bar.COM "))
}

func TestRequestNormalizesAndConflicts(t *testing.T) {
	svc, repo, audit := newAccessService()
	created := models.AccessRequest{ID: 1, Email: "foo@bar.com"}

	repo.On("FindByEmail", mock.Anything, "foo@bar.com").Return(nil, repositories.ErrRequestNotFound).Once()
	repo.On("Create", mock.Anything, "foo@bar.com").Return(created, nil).Once()
	got, err := svc.Request(context.Background(), " Foo@Bar.com ")
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.False(t, got.Access)

	repo.On("FindByEmail", mock.Anything, "foo@bar.com").Return(created, nil).Once()
	_, err = svc.Request(context.Background(), "foo@bar.com")
	assert.True(t, apperr.Is(err, apperr.CodeAlreadyExists))

	repo.AssertExpectations(t)
	audit.AssertNumberOfCalls(t, "Emit", 1)
}

func TestRequestRaceMapsDuplicate(t *testing.T) {
	svc, repo, _ := newAccessService()
	repo.On("FindByEmail", mock.Anything, "a@b.c").Return(nil, repositories.ErrRequestNotFound).Once()
	repo.On("Create", mock.Anything, "a@b.c").Return(nil, repositories.ErrDuplicate).Once()

	_, err := svc.Request(context.Background(), "a@b.c")
	assert.True(t, apperr.Is(err, apperr.CodeAlreadyExists))
}

func TestRequestValidation(t *testing.T) {
	svc, _, _ := newAccessService()
	_, err := svc.Request(context.Background(), "   ")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	_, err = svc.Request(context.Background(), "nobody")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestAcceptMissingRequest(t *testing.T) {
	svc, repo, _ := newAccessService()
	repo.On("Grant", mock.Anything, "x@y.z").Return(nil, repositories.ErrRequestNotFound).Once()

	_, err := svc.Accept(context.Background(), "X@y.z")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestAcceptGrants(t *testing.T) {
	svc, repo, audit := newAccessService()
	repo.On("Grant", mock.Anything, "x@y.z").Return(models.AccessRequest{Email: "x@y.z", Access: true}, nil).Once()

	got, err := svc.Accept(context.Background(), "x@y.z")
	require.NoError(t, err)
	assert.True(t, got.Access)
	audit.AssertCalled(t, "Emit", mock.Anything, telemetry.Record{Action: telemetry.ActionAccessGranted, Subject: "x@y.z"})
}

func TestCheckSignupAllowed(t *testing.T) {
	svc, repo, _ := newAccessService()
	repo.On("FindByEmail", mock.Anything, "none@x.y").Return(nil, repositories.ErrRequestNotFound).Once()
	repo.On("FindByEmail", mock.Anything, "pending@x.y").Return(models.AccessRequest{Access: false}, nil).Once()
	repo.On("FindByEmail", mock.Anything, "ok@x.y").Return(models.AccessRequest{Access: true}, nil).Once()
	repo.On("FindByEmail", mock.Anything, "err@x.y").Return(nil, errors.New("db")).Once()

	assert.True(t, apperr.Is(svc.CheckSignupAllowed(context.Background(), "none@x.y"), apperr.CodePermissionDenied))
	assert.True(t, apperr.Is(svc.CheckSignupAllowed(context.Background(), "Pending@x.y"), apperr.CodePermissionDenied))
	assert.NoError(t, svc.CheckSignupAllowed(context.Background(), "ok@x.y"))
	assert.True(t, apperr.Is(svc.CheckSignupAllowed(context.Background(), "err@x.y"), apperr.CodeInternal))
}
