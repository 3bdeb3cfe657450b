package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"blog/internal/models"
	"blog/internal/store"
)

const postColumns = `id, user_id, title, content, created_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanPost(row rowScanner) (models.Post, error) {
	var p models.Post
	var created int64
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Content, &created); err != nil {
		return models.Post{}, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.Comments = []string{}
	p.UpVotes = []string{}
	return p, nil
}

func (s *Store) CreatePost(ctx context.Context, ownerID, title, content string, createdAt time.Time) (models.Post, error) {
	p := models.Post{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: time.UnixMilli(createdAt.UnixMilli()).UTC(),
		Comments:  []string{},
		UpVotes:   []string{},
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts(`+postColumns+`) VALUES(?,?,?,?,?)`,
		p.ID, p.OwnerID, p.Title, p.Content, p.CreatedAt.UnixMilli())
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.listPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, rowid DESC`)
}

func (s *Store) ListPostsByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	return s.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID)
}

func (s *Store) listPosts(ctx context.Context, q string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list posts: %w", err)
	}
	rows.Close()

	if err := loadRefs(ctx, s.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) FindPost(ctx context.Context, id string) (models.Post, bool, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, false, nil
	} else if err != nil {
		return models.Post{}, false, fmt.Errorf("find post: %w", err)
	}
	posts := []models.Post{p}
	if err := loadRefs(ctx, s.db, posts); err != nil {
		return models.Post{}, false, err
	}
	return posts[0], true, nil
}

func (s *Store) DeletePostIfOwner(ctx context.Context, id, ownerID string) (models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Post{}, fmt.Errorf("delete post: %w", err)
	}
	defer tx.Rollback()

	// The references are read first: the cascade removes them with the post.
	refs := []models.Post{{ID: id}}
	if err := loadRefs(ctx, tx, refs); err != nil {
		return models.Post{}, err
	}

	p, err := scanPost(tx.QueryRowContext(ctx,
		`DELETE FROM posts WHERE id = ? AND user_id = ? RETURNING `+postColumns, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		var one int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, fmt.Errorf("delete post %s: %w", id, store.ErrNotFound)
		} else if err != nil {
			return models.Post{}, fmt.Errorf("delete post: %w", err)
		}
		return models.Post{}, fmt.Errorf("delete post %s: %w", id, store.ErrNotOwner)
	} else if err != nil {
		return models.Post{}, fmt.Errorf("delete post: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return models.Post{}, fmt.Errorf("delete comments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_votes WHERE post_id = ?`, id); err != nil {
		return models.Post{}, fmt.Errorf("delete votes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Post{}, fmt.Errorf("delete post: %w", err)
	}
	p.Comments = refs[0].Comments
	p.UpVotes = refs[0].UpVotes
	return p, nil
}

func (s *Store) AddUpVote(ctx context.Context, postID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO post_votes(post_id, user_id, created_at)
		SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)`,
		postID, userID, time.Now().UnixMilli(), postID)
	if isUniqueViolation(err) {
		return fmt.Errorf("vote post %s: %w", postID, store.ErrAlreadyExists)
	} else if err != nil {
		return fmt.Errorf("vote post: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("vote post: %w", err)
	} else if n == 0 {
		return fmt.Errorf("vote post %s: %w", postID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateComment(ctx context.Context, postID, authorFirstName, content string, createdAt time.Time) (models.Comment, error) {
	c := models.Comment{
		ID:              uuid.NewString(),
		PostID:          postID,
		AuthorFirstName: authorFirstName,
		Content:         content,
		CreatedAt:       time.UnixMilli(createdAt.UnixMilli()).UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments(id, post_id, first_name, content, created_at)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)`,
		c.ID, c.PostID, c.AuthorFirstName, c.Content, c.CreatedAt.UnixMilli(), postID)
	if err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	} else if n == 0 {
		return models.Comment{}, fmt.Errorf("create comment on %s: %w", postID, store.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, first_name, content, created_at FROM comments
		WHERE post_id = ? ORDER BY created_at, rowid`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		var created int64
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorFirstName, &c.Content, &created); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = time.UnixMilli(created).UTC()
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *Store) CountComments(ctx context.Context, postID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

// maxRefBatch keeps IN lists well below sqlite's bound-parameter limit.
const maxRefBatch = 500

// loadRefs fills in Comments and UpVotes for posts, in insertion order.
func loadRefs(ctx context.Context, q querier, posts []models.Post) error {
	byID := make(map[string]*models.Post, len(posts))
	ids := make([]any, 0, len(posts))
	for i := range posts {
		if posts[i].Comments == nil {
			posts[i].Comments = []string{}
		}
		if posts[i].UpVotes == nil {
			posts[i].UpVotes = []string{}
		}
		byID[posts[i].ID] = &posts[i]
		ids = append(ids, posts[i].ID)
	}

	comments := func(p *models.Post, id string) { p.Comments = append(p.Comments, id) }
	votes := func(p *models.Post, id string) { p.UpVotes = append(p.UpVotes, id) }

	for len(ids) > 0 {
		batch := ids
		if len(batch) > maxRefBatch {
			batch = ids[:maxRefBatch]
		}
		ids = ids[len(batch):]
		in := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		if err := collect(ctx, q, byID, comments,
			`SELECT post_id, id FROM comments WHERE post_id IN (`+in+`) ORDER BY created_at, rowid`, batch); err != nil {
			return fmt.Errorf("load comments: %w", err)
		}
		if err := collect(ctx, q, byID, votes,
			`SELECT post_id, user_id FROM post_votes WHERE post_id IN (`+in+`) ORDER BY created_at, rowid`, batch); err != nil {
			return fmt.Errorf("load votes: %w", err)
		}
	}
	return nil
}

func collect(ctx context.Context, q querier, byID map[string]*models.Post, add func(*models.Post, string), query string, args []any) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID, ref string
		if err := rows.Scan(&postID, &ref); err != nil {
			return err
		}
		if p, ok := byID[postID]; ok {
			add(p, ref)
		}
	}
	return rows.Err()
}
