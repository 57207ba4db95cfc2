package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"gatechat/internal/apperr"
	"gatechat/internal/models"
	"gatechat/internal/repositories"
	"gatechat/internal/telemetry"
)

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccessService is the signup gate. A request moves from pending to
// accepted once and never back.
type AccessService struct {
	requests repositories.AccessRequestRepository
	audit    Auditor
	logger   *slog.Logger
}

func NewAccessService(requests repositories.AccessRequestRepository, audit Auditor, logger *slog.Logger) *AccessService {
	if audit == nil {
		audit = noopAuditor{}
	}
	return &AccessService{requests: requests, audit: audit, logger: logger.With(slog.String("component", "access"))}
}

// Request records a pending request. A second request for the same address conflicts.
func (s *AccessService) Request(ctx context.Context, email string) (models.AccessRequest, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return models.AccessRequest{}, apperr.InvalidArg("email is required")
	}
	if !strings.Contains(email, "@") {
		return models.AccessRequest{}, apperr.InvalidArg("invalid email")
	}

	if _, err := s.requests.FindByEmail(ctx, email); err == nil {
		return models.AccessRequest{}, apperr.AlreadyExists("email already requested")
	} else if !errors.Is(err, repositories.ErrRequestNotFound) {
		return models.AccessRequest{}, apperr.Internal("failed to check request", err)
	}

	req, err := s.requests.Create(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.AccessRequest{}, apperr.AlreadyExists("email already requested")
		}
		return models.AccessRequest{}, apperr.Internal("failed to store request", err)
	}

	s.audit.Emit(ctx, telemetry.Record{Action: telemetry.ActionAccessRequested, Subject: email})
	return req, nil
}

func (s *AccessService) List(ctx context.Context) ([]models.AccessRequest, error) {
	reqs, err := s.requests.List(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to load requests", err)
	}
	return reqs, nil
}

// Accept grants access for email. Accepting an accepted request returns it unchanged.
func (s *AccessService) Accept(ctx context.Context, email string) (models.AccessRequest, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return models.AccessRequest{}, apperr.InvalidArg("email is required")
	}
	req, err := s.requests.Grant(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return models.AccessRequest{}, apperr.NotFound("request not found")
		}
		return models.AccessRequest{}, apperr.Internal("failed to accept request", err)
	}

	s.audit.Emit(ctx, telemetry.Record{Action: telemetry.ActionAccessGranted, Subject: email})
	s.logger.Info("access granted", slog.String("email", email))
	return req, nil
}

// CheckSignupAllowed fails unless email has an accepted request.
func (s *AccessService) CheckSignupAllowed(ctx context.Context, email string) error {
	req, err := s.requests.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return apperr.Forbidden("access not granted for this email")
		}
		return apperr.Internal("failed to check access", err)
	}
	if !req.Access {
		return apperr.Forbidden("access not granted for this email")
	}
	return nil
}
