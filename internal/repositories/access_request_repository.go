package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"gatechat/internal/models"
)

// AccessRequestRepository abstracts access request persistence.
// Email lookups are case-insensitive.
type AccessRequestRepository interface {
	Create(ctx context.Context, email string) (models.AccessRequest, error)
	FindByEmail(ctx context.Context, email string) (models.AccessRequest, error)
	List(ctx context.Context) ([]models.AccessRequest, error)
	Grant(ctx context.Context, email string) (models.AccessRequest, error)
}

type AccessRequestRepo struct {
	db *sqlx.DB
}

func NewAccessRequestRepo(db *sqlx.DB) *AccessRequestRepo {
	return &AccessRequestRepo{db: db}
}

const requestColumns = `id, email, access, created_at, updated_at`

func (r *AccessRequestRepo) Create(ctx context.Context, email string) (models.AccessRequest, error) {
	var req models.AccessRequest
	err := r.db.GetContext(ctx, &req, `INSERT INTO access_requests (email) VALUES ($1) RETURNING `+requestColumns, email)
	if isUniqueViolation(err) {
		return models.AccessRequest{}, ErrDuplicate
	}
	return req, errors.Wrap(err, "accessRequestRepo.Create")
}

func (r *AccessRequestRepo) FindByEmail(ctx context.Context, email string) (models.AccessRequest, error) {
	var req models.AccessRequest
	err := r.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM access_requests WHERE LOWER(email)=LOWER($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccessRequest{}, ErrRequestNotFound
	}
	return req, errors.Wrap(err, "accessRequestRepo.FindByEmail")
}

func (r *AccessRequestRepo) List(ctx context.Context) ([]models.AccessRequest, error) {
	reqs := []models.AccessRequest{}
	err := r.db.SelectContext(ctx, &reqs, `SELECT `+requestColumns+` FROM access_requests ORDER BY created_at ASC, id ASC`)
	return reqs, errors.Wrap(err, "accessRequestRepo.List")
}

// Grant moves a request to the accepted state. Granting twice is a no-op.
func (r *AccessRequestRepo) Grant(ctx context.Context, email string) (models.AccessRequest, error) {
	var req models.AccessRequest
	err := r.db.GetContext(ctx, &req, `UPDATE access_requests SET access=TRUE, updated_at=NOW() WHERE LOWER(email)=LOWER($1) RETURNING `+requestColumns, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccessRequest{}, ErrRequestNotFound
	}
	return req, errors.Wrap(err, "accessRequestRepo.Grant")
}
