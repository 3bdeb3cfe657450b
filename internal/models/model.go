package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// UserPatch carries the fields of a profile edit. Nil fields are left as they are.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
}

func (p UserPatch) Empty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.FirstName == nil && p.LastName == nil
}

type Post struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	CreatedAt time.Time
	Comments  []string
	UpVotes   []string
}

type Comment struct {
	ID              string
	PostID          string
	AuthorFirstName string
	Content         string
	CreatedAt       time.Time
}

// Identity is what the auth gate resolves a bearer token to.
type Identity struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
