package repositories

import (
	"context"
	"database/sql"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"gatechat/internal/models"
)

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	Create(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Group, error)
	Get(ctx context.Context, groupID int) (models.Group, error)
	ListForUser(ctx context.Context, userID int) ([]models.Group, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// groupSelect loads groups with member ids, member display cards and the
// creator's name.
const groupSelect = `SELECT g.id, g.name, g.creator_id, g.created_at,
        COALESCE(c.full_name, '') AS creator_name,
        COALESCE(ARRAY(SELECT gm.user_id FROM group_members gm WHERE gm.group_id = g.id ORDER BY gm.user_id), '{}') AS members,
        COALESCE((SELECT json_agg(json_build_object('id', u.id, 'full_name', u.full_name, 'profile_pic', u.profile_pic) ORDER BY u.id)
            FROM group_members gm JOIN users u ON u.id = gm.user_id WHERE gm.group_id = g.id), '[]'::json) AS member_profiles
        FROM groups g LEFT JOIN users c ON c.id = g.creator_id`

// Create inserts the group and its members in one transaction.
// The creator is always a member and duplicates collapse.
func (r *GroupRepo) Create(ctx context.Context, creatorID int, name string, memberIDs []int) (group models.Group, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, errors.Wrap(err, "groupRepo.Create begin")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx, `INSERT INTO groups (name, creator_id) VALUES ($1, $2) RETURNING id, name, creator_id, created_at`, name, creatorID).
		Scan(&group.ID, &group.Name, &group.CreatorID, &group.CreatedAt); err != nil {
		return models.Group{}, errors.Wrap(err, "groupRepo.Create insert group")
	}

	ids := DedupeMembers(creatorID, memberIDs)
	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, id); err != nil {
			return models.Group{}, errors.Wrap(err, "groupRepo.Create insert member")
		}
		group.Members = append(group.Members, int64(id))
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, errors.Wrap(err, "groupRepo.Create commit")
	}
	return group, nil
}

// DedupeMembers returns the sorted member set with the creator included.
func DedupeMembers(creatorID int, memberIDs []int) []int {
	set := map[int]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		set[id] = struct{}{}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (r *GroupRepo) Get(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, groupSelect+` WHERE g.id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, errors.Wrap(err, "groupRepo.Get")
}

// ListForUser returns groups that include the user, newest first.
func (r *GroupRepo) ListForUser(ctx context.Context, userID int) ([]models.Group, error) {
	groups := []models.Group{}
	err := r.db.SelectContext(ctx, &groups, groupSelect+`
        WHERE EXISTS(SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id=$1)
        ORDER BY g.created_at DESC, g.id DESC`, userID)
	return groups, errors.Wrap(err, "groupRepo.ListForUser")
}
