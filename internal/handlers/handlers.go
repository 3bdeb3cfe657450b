package handlers

import (
	"log/slog"
	"net/http"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/config"
	"blog/internal/models"
)

type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

type Handler struct {
	svc    *blog.Service
	tokens TokenVerifier
	logger *slog.Logger
}

func New(svc *blog.Service, tokens TokenVerifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// Routes builds the full HTTP surface wrapped in recovery, request logging
// and CORS.
func (h *Handler) Routes(c config.CORS) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/protection", h.RequireAuth(h.Protection))

	mux.HandleFunc("GET /user/me", h.RequireAuth(h.Me))
	mux.HandleFunc("PUT /user/edit", h.RequireAuth(h.EditUser))
	mux.HandleFunc("DELETE /user/remove", h.RequireAuth(h.RemoveUser))

	mux.HandleFunc("GET /post", h.RequireAuth(h.ListPosts))
	mux.HandleFunc("POST /post", h.RequireAuth(h.CreatePost))
	mux.HandleFunc("GET /post/me", h.RequireAuth(h.MyPosts))
	mux.HandleFunc("GET /post/{id}", h.RequireAuth(h.PostByID))
	mux.HandleFunc("DELETE /post/{id}", h.RequireAuth(h.DeletePost))
	mux.HandleFunc("POST /post/vote/{id}", h.RequireAuth(h.VotePost))

	mux.HandleFunc("POST /comment/{id}", h.RequireAuth(h.CreateComment))

	mux.HandleFunc("OPTIONS /", h.Preflight)

	return WithRecover(h.logRequests(withCORS(c, mux)), h.logger)
}

func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// identity returns the identity the gate attached to the request.
func identity(r *http.Request) models.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

// -------- Accounts

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.svc.Register(r.Context(), blog.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toSession(sess))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toSession(sess))
}

func (h *Handler) Protection(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	writeData(w, http.StatusOK, identityResponse{
		UserID:    id.UserID,
		IssuedAt:  id.IssuedAt,
		ExpiresAt: id.ExpiresAt,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetSelf(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUser(u))
}

func (h *Handler) EditUser(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.svc.EditSelf(r.Context(), identity(r), blog.ProfileEdit{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUser(u))
}

func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.RemoveSelf(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := toUser(u)
	resp.Removed = true
	writeData(w, http.StatusOK, resp)
}

// -------- Posts

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toPosts(posts))
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.svc.CreatePost(r.Context(), identity(r), req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toPostView(view))
}

func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListOwnPosts(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toPosts(posts))
}

func (h *Handler) PostByID(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetPost(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toPostDetail(view))
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.DeletePost(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := toPostView(view)
	resp.Removed = true
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) VotePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VotePost(r.Context(), identity(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Message: "post upvoted"})
}

// -------- Comments

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.CreateComment(r.Context(), identity(r), r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toComment(c))
}
