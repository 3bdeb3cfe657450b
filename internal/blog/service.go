// Package blog holds the use cases of the service: accounts, posts, votes and
// comments, with the ownership and existence rules applied to each of them.
//
// Every method except Register and Login takes the identity resolved by the
// auth gate. Tokens are never verified here.
package blog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"blog/internal/models"
	"blog/internal/store"
)

// bcrypt only looks at the first 72 bytes of a password and rejects longer ones.
const maxPasswordBytes = 72

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Check(pw, hash string) bool
}

type Service struct {
	users     store.Users
	posts     store.Posts
	tokens    TokenIssuer
	passwords PasswordHasher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(users store.Users, posts store.Posts, tokens TokenIssuer, passwords PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		posts:     posts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// Session is what Register and Login hand back.
type Session struct {
	Token string
	User  models.User
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileEdit lists the fields a user may change on their own profile.
// Empty strings count as absent.
type ProfileEdit struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// PostView is a post together with its owner's first name. Comments is only
// filled in by GetPost.
type PostView struct {
	Post           models.Post
	OwnerFirstName string
	Comments       []models.Comment
}

func requireIdentity(id models.Identity) error {
	if id.UserID == "" {
		return ErrUnauthenticated
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" {
		return Session{}, invalid("email, password, firstName and lastName are required")
	}
	if len(in.Password) > maxPasswordBytes {
		return Session{}, invalid("password is too long")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		s.logger.Error("password hash failed", "event", "register_hash_failed", "error", err)
		return Session{}, ErrStoreFailure
	}
	// The unique email index decides between concurrent registrations.
	u, err := s.users.CreateUser(ctx, in.Email, hash, in.FirstName, in.LastName)
	if err != nil {
		return Session{}, s.fail("register", err)
	}
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		s.logger.Error("token issue failed", "event", "register_token_failed", "user_id", u.ID, "error", err)
		return Session{}, ErrStoreFailure
	}
	s.logger.Info("user registered", "event", "user_registered", "user_id", u.ID)
	return Session{Token: tok, User: u}, nil
}

// Login does not tell an unknown email apart from a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, ok, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Session{}, s.fail("login", err)
	}
	if !ok || !s.passwords.Check(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		s.logger.Error("token issue failed", "event", "login_token_failed", "user_id", u.ID, "error", err)
		return Session{}, ErrStoreFailure
	}
	return Session{Token: tok, User: u}, nil
}

func (s *Service) GetSelf(ctx context.Context, id models.Identity) (models.User, error) {
	if err := requireIdentity(id); err != nil {
		return models.User{}, err
	}
	return s.requester(ctx, id)
}

func (s *Service) EditSelf(ctx context.Context, id models.Identity, edit ProfileEdit) (models.User, error) {
	if err := requireIdentity(id); err != nil {
		return models.User{}, err
	}
	var patch models.UserPatch
	if v := strings.TrimSpace(edit.Email); v != "" {
		patch.Email = &v
	}
	if v := strings.TrimSpace(edit.FirstName); v != "" {
		patch.FirstName = &v
	}
	if v := strings.TrimSpace(edit.LastName); v != "" {
		patch.LastName = &v
	}
	if len(edit.Password) > maxPasswordBytes {
		return models.User{}, invalid("password is too long")
	}
	if edit.Password != "" {
		hash, err := s.passwords.Hash(edit.Password)
		if err != nil {
			s.logger.Error("password hash failed", "event", "edit_hash_failed", "user_id", id.UserID, "error", err)
			return models.User{}, ErrStoreFailure
		}
		patch.PasswordHash = &hash
	}
	u, err := s.users.UpdateUser(ctx, id.UserID, patch)
	if err != nil {
		return models.User{}, s.fail("edit profile", err)
	}
	return u, nil
}

func (s *Service) RemoveSelf(ctx context.Context, id models.Identity) (models.User, error) {
	if err := requireIdentity(id); err != nil {
		return models.User{}, err
	}
	u, err := s.users.DeleteUser(ctx, id.UserID)
	if err != nil {
		return models.User{}, s.fail("remove user", err)
	}
	s.logger.Info("user removed", "event", "user_removed", "user_id", u.ID)
	return u, nil
}

// requester loads the calling user; a token whose user is gone is NotFound.
func (s *Service) requester(ctx context.Context, id models.Identity) (models.User, error) {
	u, ok, err := s.users.FindUserByID(ctx, id.UserID)
	if err != nil {
		return models.User{}, s.fail("load requester", err)
	}
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

// fail maps a store error and logs it when it is not an expected outcome.
func (s *Service) fail(op string, err error) error {
	mapped := fromStore(err)
	if mapped != ErrNotFound && mapped != ErrDuplicateEmail && mapped != ErrAlreadyVoted && mapped != ErrNotOwner {
		s.logger.Error("store operation failed", "event", "store_failure", "op", op, "error", err)
	}
	return mapped
}
