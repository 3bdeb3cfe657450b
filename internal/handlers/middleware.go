package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/config"
)

// WithRecover wraps an http.Handler and recovers from panics,
// returning HTTP 500 instead of crashing the server.
func WithRecover(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("recovered panic", "panic", rec, "method", r.Method, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, envelope{OK: false, Message: "Something went wrong!"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequireAuth is the auth gate. It verifies the bearer token once and hands
// the resolved identity to next through the request context. A missing
// header and a bad one are reported differently.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, blog.ErrUnauthenticated)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
			writeError(w, blog.ErrForbidden)
			return
		}
		id, err := h.tokens.Verify(token)
		if err != nil {
			h.logger.Debug("bearer token rejected", "path", r.URL.Path, "error", err)
			writeError(w, blog.ErrForbidden)
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func withCORS(c config.CORS, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:       []string{c.AllowedOrigin},
		AllowedMethods:       c.AllowedMethods,
		AllowedHeaders:       c.AllowedHeaders,
		OptionsSuccessStatus: http.StatusOK,
	}).Handler(next)
}
