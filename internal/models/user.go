package models

import "time"

// User is the credential record. The password hash never leaves the service.
type User struct {
	ID         int       `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	Password   string    `db:"password" json:"-"`
	ProfilePic string    `db:"profile_pic" json:"profile_pic"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AccessRequest gates signup for an email address.
type AccessRequest struct {
	ID        int       `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Access    bool      `db:"access" json:"access"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
