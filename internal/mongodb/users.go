package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blog/internal/models"
	"blog/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (models.User, error) {
	doc := userDoc{
		ID:        bson.NewObjectID(),
		Email:     email,
		Password:  passwordHash,
		FirstName: firstName,
		LastName:  lastName,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, fmt.Errorf("create user %q: %w", email, store.ErrDuplicateKey)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, false, nil
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (models.User, bool, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if isNoDocuments(err) {
		return models.User{}, false, nil
	} else if err != nil {
		return models.User{}, false, fmt.Errorf("find user: %w", err)
	}
	return doc.model(), true, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, fmt.Errorf("update user %s: %w", id, store.ErrNotFound)
	}
	if patch.Empty() {
		u, ok, err := s.findUser(ctx, bson.M{"_id": oid})
		if err != nil {
			return models.User{}, err
		}
		if !ok {
			return models.User{}, fmt.Errorf("update user %s: %w", id, store.ErrNotFound)
		}
		return u, nil
	}

	var doc userDoc
	err = s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": userPatchSet(patch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case isNoDocuments(err):
		return models.User{}, fmt.Errorf("update user %s: %w", id, store.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return models.User{}, fmt.Errorf("update user %s: %w", id, store.ErrDuplicateKey)
	case err != nil:
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, fmt.Errorf("delete user %s: %w", id, store.ErrNotFound)
	}
	var doc userDoc
	err = s.users.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if isNoDocuments(err) {
		return models.User{}, fmt.Errorf("delete user %s: %w", id, store.ErrNotFound)
	} else if err != nil {
		return models.User{}, fmt.Errorf("delete user: %w", err)
	}
	return doc.model(), nil
}
