package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"blog/internal/models"
)

type userDoc struct {
	ID        bson.ObjectID `bson:"_id"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	FirstName string        `bson:"firstName"`
	LastName  string        `bson:"lastName"`
}

type postDoc struct {
	ID        bson.ObjectID   `bson:"_id"`
	UserID    bson.ObjectID   `bson:"userId"`
	Title     string          `bson:"title"`
	Content   string          `bson:"content"`
	CreatedAt time.Time       `bson:"createdAt"`
	Comments  []bson.ObjectID `bson:"comments"`
	UpVotes   []bson.ObjectID `bson:"upVotes"`
}

type commentDoc struct {
	ID        bson.ObjectID `bson:"_id"`
	Post      bson.ObjectID `bson:"post"`
	FirstName string        `bson:"firstName"`
	Content   string        `bson:"content"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
	}
}

func (d postDoc) model() models.Post {
	return models.Post{
		ID:        d.ID.Hex(),
		OwnerID:   d.UserID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
		Comments:  hexes(d.Comments),
		UpVotes:   hexes(d.UpVotes),
	}
}

func (d commentDoc) model() models.Comment {
	return models.Comment{
		ID:              d.ID.Hex(),
		PostID:          d.Post.Hex(),
		AuthorFirstName: d.FirstName,
		Content:         d.Content,
		CreatedAt:       d.CreatedAt.UTC(),
	}
}

func hexes(ids []bson.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

// userPatchSet builds the $set document for a profile edit. Only fields
// present in the patch are written.
func userPatchSet(p models.UserPatch) bson.M {
	set := bson.M{}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.PasswordHash != nil {
		set["password"] = *p.PasswordHash
	}
	if p.FirstName != nil {
		set["firstName"] = *p.FirstName
	}
	if p.LastName != nil {
		set["lastName"] = *p.LastName
	}
	return set
}

// voteFilter matches the post only while userID is not yet an up-voter, so
// the $push that follows it can never add a duplicate.
func voteFilter(postID, userID bson.ObjectID) bson.M {
	return bson.M{"_id": postID, "upVotes": bson.M{"$ne": userID}}
}

// ownerFilter matches the post only when ownerID owns it.
func ownerFilter(postID, ownerID bson.ObjectID) bson.M {
	return bson.M{"_id": postID, "userId": ownerID}
}

// mongoTime truncates to the millisecond resolution BSON dates keep.
func mongoTime(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
