package blog

import (
	"errors"
	"fmt"

	"blog/internal/store"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("a user with this email address already exists")
	ErrInvalidCredentials = errors.New("incorrect email address or password")
	ErrUnauthenticated    = errors.New("no credential supplied")
	ErrForbidden          = errors.New("invalid credential")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyVoted       = errors.New("you have already voted for this post")
	ErrStoreFailure       = errors.New("store failure")

	// ErrNotOwner is the ownership flavour of ErrForbidden.
	ErrNotOwner = fmt.Errorf("post belongs to another user: %w", ErrForbidden)
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// fromStore translates store sentinels into the service taxonomy. Anything
// unrecognised is a store failure.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return ErrDuplicateEmail
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrAlreadyVoted
	case errors.Is(err, store.ErrNotOwner):
		return ErrNotOwner
	}
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}
