package blog

import (
	"context"
	"strings"

	"blog/internal/models"
)

// ListPosts returns every post. The requester must still exist.
func (s *Service) ListPosts(ctx context.Context, id models.Identity) ([]models.Post, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if _, err := s.requester(ctx, id); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, s.fail("list posts", err)
	}
	return posts, nil
}

func (s *Service) CreatePost(ctx context.Context, id models.Identity, title, content string) (PostView, error) {
	if err := requireIdentity(id); err != nil {
		return PostView{}, err
	}
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return PostView{}, invalid("title and content are required")
	}
	owner, err := s.requester(ctx, id)
	if err != nil {
		return PostView{}, err
	}
	p, err := s.posts.CreatePost(ctx, owner.ID, title, content, s.now())
	if err != nil {
		return PostView{}, s.fail("create post", err)
	}
	s.logger.Info("post created", "event", "post_created", "user_id", owner.ID, "post_id", p.ID)
	return PostView{Post: p, OwnerFirstName: owner.FirstName}, nil
}

func (s *Service) ListOwnPosts(ctx context.Context, id models.Identity) ([]models.Post, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsByOwner(ctx, id.UserID)
	if err != nil {
		return nil, s.fail("list own posts", err)
	}
	return posts, nil
}

// GetPost resolves the owner's first name and loads the comments. The name
// is empty when the owner has since removed their account.
func (s *Service) GetPost(ctx context.Context, id models.Identity, postID string) (PostView, error) {
	if err := requireIdentity(id); err != nil {
		return PostView{}, err
	}
	p, ok, err := s.posts.FindPost(ctx, postID)
	if err != nil {
		return PostView{}, s.fail("get post", err)
	}
	if !ok {
		return PostView{}, ErrNotFound
	}
	owner, _, err := s.users.FindUserByID(ctx, p.OwnerID)
	if err != nil {
		return PostView{}, s.fail("get post owner", err)
	}
	comments, err := s.posts.ListComments(ctx, p.ID)
	if err != nil {
		return PostView{}, s.fail("get post comments", err)
	}
	return PostView{Post: p, OwnerFirstName: owner.FirstName, Comments: comments}, nil
}

// DeletePost removes the post and its comments when the requester owns it.
// The store checks ownership and deletes in one conditional write.
func (s *Service) DeletePost(ctx context.Context, id models.Identity, postID string) (PostView, error) {
	if err := requireIdentity(id); err != nil {
		return PostView{}, err
	}
	p, err := s.posts.DeletePostIfOwner(ctx, postID, id.UserID)
	if err != nil {
		return PostView{}, s.fail("delete post", err)
	}
	view := PostView{Post: p}
	if owner, ok, err := s.users.FindUserByID(ctx, p.OwnerID); err == nil && ok {
		view.OwnerFirstName = owner.FirstName
	}
	s.logger.Info("post deleted", "event", "post_deleted", "user_id", id.UserID, "post_id", p.ID,
		"comments", len(p.Comments))
	return view, nil
}

// VotePost records an up-vote. A second vote by the same user is rejected.
func (s *Service) VotePost(ctx context.Context, id models.Identity, postID string) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if err := s.posts.AddUpVote(ctx, postID, id.UserID); err != nil {
		return s.fail("vote post", err)
	}
	return nil
}

// CreateComment stores the author's first name as it is now; later profile
// edits do not reach existing comments.
func (s *Service) CreateComment(ctx context.Context, id models.Identity, postID, content string) (models.Comment, error) {
	if err := requireIdentity(id); err != nil {
		return models.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, invalid("content is required")
	}
	author, err := s.requester(ctx, id)
	if err != nil {
		return models.Comment{}, err
	}
	c, err := s.posts.CreateComment(ctx, postID, author.FirstName, content, s.now())
	if err != nil {
		return models.Comment{}, s.fail("create comment", err)
	}
	return c, nil
}
