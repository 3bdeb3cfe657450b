package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"blog/internal/models"
	"blog/internal/store"
)

const userColumns = `id, email, password_hash, first_name, last_name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(`+userColumns+`) VALUES(?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName)
	if isUniqueViolation(err) {
		return models.User{}, fmt.Errorf("create user %q: %w", email, store.ErrDuplicateKey)
	} else if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, bool, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) findUser(ctx context.Context, q string, arg any) (models.User, bool, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	} else if err != nil {
		return models.User{}, false, fmt.Errorf("find user: %w", err)
	}
	return u, true, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	if patch.Empty() {
		u, ok, err := s.FindUserByID(ctx, id)
		if err != nil {
			return models.User{}, err
		}
		if !ok {
			return models.User{}, fmt.Errorf("update user %s: %w", id, store.ErrNotFound)
		}
		return u, nil
	}

	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("email", patch.Email)
	add("password_hash", patch.PasswordHash)
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	args = append(args, id)

	q := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ? RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRowContext(ctx, q, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.User{}, fmt.Errorf("update user %s: %w", id, store.ErrNotFound)
	case isUniqueViolation(err):
		return models.User{}, fmt.Errorf("update user %s: %w", id, store.ErrDuplicateKey)
	case err != nil:
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`DELETE FROM users WHERE id = ? RETURNING `+userColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("delete user %s: %w", id, store.ErrNotFound)
	} else if err != nil {
		return models.User{}, fmt.Errorf("delete user: %w", err)
	}
	return u, nil
}
