package repositories

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("access request not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrDuplicate       = errors.New("duplicate record")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
