package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"blog/internal/blog"
)

const maxBodyBytes = 1 << 20

// envelope is the shape of every response body.
type envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{OK: true, Data: data})
}

// writeError is the only place service errors become status codes.
func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeJSON(w, status, envelope{OK: false, Message: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, blog.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, blog.ErrDuplicateEmail):
		return http.StatusBadRequest, blog.ErrDuplicateEmail.Error()
	case errors.Is(err, blog.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email address or password"
	case errors.Is(err, blog.ErrUnauthenticated):
		return http.StatusForbidden, "Token not provided"
	case errors.Is(err, blog.ErrNotOwner):
		return http.StatusForbidden, "You can only delete your own posts"
	case errors.Is(err, blog.ErrForbidden):
		return http.StatusUnauthorized, "Invalid JWT token"
	case errors.Is(err, blog.ErrNotFound):
		return http.StatusNotFound, "Item not found"
	case errors.Is(err, blog.ErrAlreadyVoted):
		return http.StatusConflict, "You have already voted for this post."
	}
	return http.StatusInternalServerError, "Something went wrong!"
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body", blog.ErrValidation)
	}
	return nil
}
