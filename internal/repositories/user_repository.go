package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"gatechat/internal/models"
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, fullName, email, passwordHash string) (models.User, error)
	GetByID(ctx context.Context, userID int) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	ListExcept(ctx context.Context, userID int) ([]models.User, error)
	CountExisting(ctx context.Context, userIDs []int) (int, error)
	UpdateProfilePic(ctx context.Context, userID int, url string) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, full_name, email, password, profile_pic, created_at`

// Create inserts a user; a taken email yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, fullName, email, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `INSERT INTO users (full_name, email, password) VALUES ($1, $2, $3) RETURNING `+userColumns,
		fullName, email, passwordHash)
	if isUniqueViolation(err) {
		return models.User{}, ErrDuplicate
	}
	return user, errors.Wrap(err, "userRepo.Create")
}

func (r *UserRepo) GetByID(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, errors.Wrap(err, "userRepo.GetByID")
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, errors.Wrap(err, "userRepo.GetByEmail")
}

// ListExcept returns every user but the caller, ordered by name.
func (r *UserRepo) ListExcept(ctx context.Context, userID int) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE id<>$1 ORDER BY full_name ASC, id ASC`, userID)
	return users, errors.Wrap(err, "userRepo.ListExcept")
}

// CountExisting counts how many of the given ids exist.
func (r *UserRepo) CountExisting(ctx context.Context, userIDs []int) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	ids := make(pq.Int64Array, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, int64(id))
	}
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE id = ANY($1)`, ids)
	return count, errors.Wrap(err, "userRepo.CountExisting")
}

func (r *UserRepo) UpdateProfilePic(ctx context.Context, userID int, url string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `UPDATE users SET profile_pic=$2 WHERE id=$1 RETURNING `+userColumns, userID, url)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, errors.Wrap(err, "userRepo.UpdateProfilePic")
}
