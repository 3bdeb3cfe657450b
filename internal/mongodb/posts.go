package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blog/internal/models"
	"blog/internal/store"
)

func (s *Store) CreatePost(ctx context.Context, ownerID, title, content string, createdAt time.Time) (models.Post, error) {
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: owner id %q: %w", ownerID, err)
	}
	doc := postDoc{
		ID:        bson.NewObjectID(),
		UserID:    owner,
		Title:     title,
		Content:   content,
		CreatedAt: mongoTime(createdAt),
		Comments:  []bson.ObjectID{},
		UpVotes:   []bson.ObjectID{},
	}
	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.findPosts(ctx, bson.M{})
}

func (s *Store) ListPostsByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return []models.Post{}, nil
	}
	return s.findPosts(ctx, bson.M{"userId": owner})
}

func (s *Store) findPosts(ctx context.Context, filter bson.M) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := make([]models.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, d.model())
	}
	return posts, nil
}

func (s *Store) FindPost(ctx context.Context, id string) (models.Post, bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.Post{}, false, nil
	}
	var doc postDoc
	err = s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if isNoDocuments(err) {
		return models.Post{}, false, nil
	} else if err != nil {
		return models.Post{}, false, fmt.Errorf("find post: %w", err)
	}
	return doc.model(), true, nil
}

func (s *Store) postExists(ctx context.Context, oid bson.ObjectID) (bool, error) {
	n, err := s.posts.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeletePostIfOwner(ctx context.Context, id, ownerID string) (models.Post, error) {
	pid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.Post{}, fmt.Errorf("delete post %s: %w", id, store.ErrNotFound)
	}
	owner, _ := bson.ObjectIDFromHex(ownerID)

	var doc postDoc
	err = s.posts.FindOneAndDelete(ctx, ownerFilter(pid, owner)).Decode(&doc)
	if isNoDocuments(err) {
		exists, err := s.postExists(ctx, pid)
		if err != nil {
			return models.Post{}, fmt.Errorf("delete post: %w", err)
		}
		if exists {
			return models.Post{}, fmt.Errorf("delete post %s: %w", id, store.ErrNotOwner)
		}
		return models.Post{}, fmt.Errorf("delete post %s: %w", id, store.ErrNotFound)
	} else if err != nil {
		return models.Post{}, fmt.Errorf("delete post: %w", err)
	}

	if _, err := s.comments.DeleteMany(ctx, bson.M{"post": pid}); err != nil {
		return models.Post{}, fmt.Errorf("delete comments of %s: %w", id, err)
	}
	return doc.model(), nil
}

func (s *Store) AddUpVote(ctx context.Context, postID, userID string) error {
	pid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return fmt.Errorf("vote post %s: %w", postID, store.ErrNotFound)
	}
	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("vote post: voter id %q: %w", userID, err)
	}

	res, err := s.posts.UpdateOne(ctx, voteFilter(pid, uid), bson.M{"$push": bson.M{"upVotes": uid}})
	if err != nil {
		return fmt.Errorf("vote post: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	exists, err := s.postExists(ctx, pid)
	if err != nil {
		return fmt.Errorf("vote post: %w", err)
	}
	if exists {
		return fmt.Errorf("vote post %s: %w", postID, store.ErrAlreadyExists)
	}
	return fmt.Errorf("vote post %s: %w", postID, store.ErrNotFound)
}

func (s *Store) CreateComment(ctx context.Context, postID, authorFirstName, content string, createdAt time.Time) (models.Comment, error) {
	pid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return models.Comment{}, fmt.Errorf("create comment on %s: %w", postID, store.ErrNotFound)
	}
	doc := commentDoc{
		ID:        bson.NewObjectID(),
		Post:      pid,
		FirstName: authorFirstName,
		Content:   content,
		CreatedAt: mongoTime(createdAt),
	}

	// Linking first means a missing post is detected before anything is written.
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": pid}, bson.M{"$push": bson.M{"comments": doc.ID}})
	if err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Comment{}, fmt.Errorf("create comment on %s: %w", postID, store.ErrNotFound)
	}
	if _, err := s.comments.InsertOne(ctx, doc); err != nil {
		if _, perr := s.posts.UpdateOne(ctx, bson.M{"_id": pid}, bson.M{"$pull": bson.M{"comments": doc.ID}}); perr != nil {
			return models.Comment{}, fmt.Errorf("create comment: %w (unlink: %v)", err, perr)
		}
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	pid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return []models.Comment{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.comments.Find(ctx, bson.M{"post": pid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	comments := make([]models.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, d.model())
	}
	return comments, nil
}

func (s *Store) CountComments(ctx context.Context, postID string) (int, error) {
	pid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return 0, nil
	}
	n, err := s.comments.CountDocuments(ctx, bson.M{"post": pid})
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return int(n), nil
}
