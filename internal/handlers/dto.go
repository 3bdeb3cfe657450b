package handlers

import (
	"time"

	"blog/internal/blog"
	"blog/internal/models"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// editRequest fields left empty are not changed.
type editRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type userResponse struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Removed   bool   `json:"removed,omitempty"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type identityResponse struct {
	UserID    string    `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type postResponse struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
	FirstName string    `json:"firstName,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Comments  []string  `json:"comments"`
	UpVotes   []string  `json:"upVotes"`
	Removed   bool      `json:"removed,omitempty"`
}

// postDetailResponse replaces the comment ids with the comments themselves.
type postDetailResponse struct {
	postResponse
	Comments []commentResponse `json:"comments"`
}

type commentResponse struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"postId"`
	FirstName string    `json:"firstName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUser(u models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func toSession(s blog.Session) sessionResponse {
	return sessionResponse{Token: s.Token, User: toUser(s.User)}
}

func toPost(p models.Post) postResponse {
	r := postResponse{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		UserID:    p.OwnerID,
		Title:     p.Title,
		Content:   p.Content,
		Comments:  p.Comments,
		UpVotes:   p.UpVotes,
	}
	if r.Comments == nil {
		r.Comments = []string{}
	}
	if r.UpVotes == nil {
		r.UpVotes = []string{}
	}
	return r
}

func toPostView(v blog.PostView) postResponse {
	r := toPost(v.Post)
	r.FirstName = v.OwnerFirstName
	return r
}

func toPostDetail(v blog.PostView) postDetailResponse {
	r := postDetailResponse{postResponse: toPostView(v), Comments: make([]commentResponse, 0, len(v.Comments))}
	for _, c := range v.Comments {
		r.Comments = append(r.Comments, toComment(c))
	}
	return r
}

func toPosts(posts []models.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPost(p))
	}
	return out
}

func toComment(c models.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		FirstName: c.AuthorFirstName,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}
