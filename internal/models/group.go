package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Group is a named set of members. Membership is fixed at creation.
type Group struct {
	ID             int            `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	CreatorID      int            `db:"creator_id" json:"creator_id"`
	CreatorName    string         `db:"creator_name" json:"creator_name,omitempty"`
	Members        pq.Int64Array  `db:"members" json:"members"`
	MemberProfiles MemberProfiles `db:"member_profiles" json:"member_profiles,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// MemberProfile is the display card of a group member.
type MemberProfile struct {
	ID         int    `json:"id"`
	FullName   string `json:"full_name"`
	ProfilePic string `json:"profile_pic"`
}

// MemberProfiles scans a JSON array column.
type MemberProfiles []MemberProfile

func (p *MemberProfiles) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("member profiles: unsupported type %T", src)
	}
	var out MemberProfiles
	if err := json.Unmarshal(raw, &out); err != nil {
		return errors.Wrap(err, "member profiles")
	}
	*p = out
	return nil
}

// HasMember reports whether userID belongs to the group.
func (g Group) HasMember(userID int) bool {
	for _, id := range g.Members {
		if int(id) == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member list as ints.
func (g Group) MemberIDs() []int {
	ids := make([]int, 0, len(g.Members))
	for _, id := range g.Members {
		ids = append(ids, int(id))
	}
	return ids
}

// GroupMessage is an immutable message sent in a group.
type GroupMessage struct {
	ID         int       `db:"id" json:"id"`
	GroupID    int       `db:"group_id" json:"group_id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	SenderPic  string    `db:"sender_pic" json:"sender_pic"`
	Text       string    `db:"text" json:"text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
