package services

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"gatechat/internal/apperr"
	"gatechat/internal/auth"
	"gatechat/internal/media"
	"gatechat/internal/models"
	"gatechat/internal/repositories"
	"gatechat/internal/telemetry"
)

const minPasswordLength = 6

// SignupGate decides whether an email may sign up.
type SignupGate interface {
	CheckSignupAllowed(ctx context.Context, email string) error
}

// AdminCredentials are the configured admin login.
type AdminCredentials struct {
	Email    string
	Password string
}

type SignupInput struct {
	FullName string
	Email    string
	Password string
}

// AuthService issues sessions for users and the admin.
type AuthService struct {
	users    repositories.UserRepository
	gate     SignupGate
	tokens   *auth.TokenManager
	uploader media.Uploader
	admin    AdminCredentials
	audit    Auditor
	logger   *slog.Logger
}

func NewAuthService(users repositories.UserRepository, gate SignupGate, tokens *auth.TokenManager, uploader media.Uploader, admin AdminCredentials, audit Auditor, logger *slog.Logger) *AuthService {
	if audit == nil {
		audit = noopAuditor{}
	}
	admin.Email = NormalizeEmail(admin.Email)
	return &AuthService{
		users:    users,
		gate:     gate,
		tokens:   tokens,
		uploader: uploader,
		admin:    admin,
		audit:    audit,
		logger:   logger.With(slog.String("component", "auth")),
	}
}

// Signup creates an account for an email whose access request was accepted.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (models.User, string, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := NormalizeEmail(in.Email)
	if fullName == "" || email == "" || in.Password == "" {
		return models.User{}, "", apperr.InvalidArg("all fields are required")
	}
	if len(in.Password) < minPasswordLength {
		return models.User{}, "", apperr.InvalidArg("password must be at least 6 characters")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return models.User{}, "", apperr.AlreadyExists("email already exists")
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, "", apperr.Internal("failed to check user", err)
	}

	if err := s.gate.CheckSignupAllowed(ctx, email); err != nil {
		return models.User{}, "", err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, "", apperr.Internal("failed to hash password", err)
	}
	user, err := s.users.Create(ctx, fullName, email, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.User{}, "", apperr.AlreadyExists("email already exists")
		}
		return models.User{}, "", apperr.Internal("failed to create user", err)
	}

	token, err := s.issueUser(user)
	if err != nil {
		return models.User{}, "", err
	}
	s.audit.Emit(ctx, telemetry.Record{Action: telemetry.ActionUserSignedUp, ActorID: user.ID, Subject: user.Email})
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, "", apperr.InvalidArg("email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, "", apperr.Unauthorized("invalid credentials")
		}
		return models.User{}, "", apperr.Internal("failed to load user", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return models.User{}, "", apperr.Unauthorized("invalid credentials")
	}

	token, err := s.issueUser(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// AdminLogin checks the configured admin credentials and issues an admin token.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if s.admin.Email == "" || s.admin.Password == "" {
		return "", apperr.Unauthorized("invalid email or password")
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.admin.Email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	if !emailOK || !passOK {
		s.audit.Emit(ctx, telemetry.Record{Action: telemetry.ActionAdminLoginFailed, Subject: email})
		return "", apperr.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.Issue(s.admin.Email, auth.RoleAdmin)
	if err != nil {
		return "", apperr.Internal("failed to issue token", err)
	}
	s.audit.Emit(ctx, telemetry.Record{Action: telemetry.ActionAdminLogin, Subject: s.admin.Email})
	return token, nil
}

// IsAdmin reports whether claims belong to the configured admin.
func (s *AuthService) IsAdmin(claims *auth.Claims) bool {
	return claims != nil && claims.Role == auth.RoleAdmin && s.admin.Email != "" && claims.Subject == s.admin.Email
}

func (s *AuthService) Me(ctx context.Context, userID int) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, apperr.Unauthorized("user not found")
		}
		return models.User{}, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

// UpdateProfilePic uploads image and stores its URL on the user.
func (s *AuthService) UpdateProfilePic(ctx context.Context, userID int, image string) (models.User, error) {
	if image == "" {
		return models.User{}, apperr.InvalidArg("profile pic is required")
	}
	url, err := s.uploader.Upload(ctx, image)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return models.User{}, apperr.InvalidArg("invalid image")
		}
		return models.User{}, apperr.Internal("failed to upload image", err)
	}
	user, err := s.users.UpdateProfilePic(ctx, userID, url)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Internal("failed to update profile", err)
	}
	return user, nil
}

func (s *AuthService) issueUser(user models.User) (string, error) {
	token, err := s.tokens.Issue(strconv.Itoa(user.ID), auth.RoleUser)
	if err != nil {
		return "", apperr.Internal("failed to issue token", err)
	}
	return token, nil
}
