// Package store defines the persistence contracts shared by the sqlite and
// mongodb backends.
package store

import (
	"context"
	"errors"
	"time"

	"blog/internal/models"
)

var (
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicateKey is returned on unique constraint violations (user email).
	ErrDuplicateKey = errors.New("store: duplicate key")
	// ErrAlreadyExists is returned when a set membership (up-vote) is already present.
	ErrAlreadyExists = errors.New("store: already exists")
	ErrNotOwner      = errors.New("store: not owner")
)

type Users interface {
	CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, bool, error)
	FindUserByID(ctx context.Context, id string) (models.User, bool, error)
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
	DeleteUser(ctx context.Context, id string) (models.User, error)
}

type Posts interface {
	CreatePost(ctx context.Context, ownerID, title, content string, createdAt time.Time) (models.Post, error)
	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListPostsByOwner(ctx context.Context, ownerID string) ([]models.Post, error)
	FindPost(ctx context.Context, id string) (models.Post, bool, error)
	// DeletePostIfOwner removes the post only when ownerID owns it, together
	// with all of its comments. The owner check and the delete are one write.
	DeletePostIfOwner(ctx context.Context, id, ownerID string) (models.Post, error)
	// AddUpVote appends userID to the post's up-voters unless already present.
	AddUpVote(ctx context.Context, postID, userID string) error
	CreateComment(ctx context.Context, postID, authorFirstName, content string, createdAt time.Time) (models.Comment, error)
	// ListComments returns the post's comments, oldest first.
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	CountComments(ctx context.Context, postID string) (int, error)
}

type Store interface {
	Users
	Posts
	Close() error
}
