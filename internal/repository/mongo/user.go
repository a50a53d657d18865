package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore implements repository.UserRepository.
type UserStore struct {
	coll *driver.Collection
}

// Upsert is one update with upsert=true: $setOnInsert carries the profile of a
// brand-new user, $set refreshes last_loggedIn on every call. paymentStatus is
// never written here, so new users have none.
func (s *UserStore) Upsert(ctx context.Context, user *model.User) (bool, error) {
	ts := now()
	role := user.Role
	if role == "" {
		role = model.RoleFree
	}

	onInsert := bson.M{
		"email":     user.Email,
		"role":      role,
		"createdAt": ts,
	}
	if user.Name != "" {
		onInsert["name"] = user.Name
	}
	if user.PhotoURL != "" {
		onInsert["photoURL"] = user.PhotoURL
	}

	// Two first logins for the same email can both miss the filter and race
	// to insert; the unique index rejects the loser with a duplicate key. A
	// second attempt then matches the winner's document and only refreshes it.
	var res *driver.UpdateResult
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		res, err = s.coll.UpdateOne(ctx,
			bson.M{"email": user.Email},
			bson.M{
				"$setOnInsert": onInsert,
				"$set":         bson.M{"last_loggedIn": ts},
			},
			options.Update().SetUpsert(true),
		)
		if !driver.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return false, writeError(err, "user", user.Email, "upserting")
	}

	stored, err := s.GetByEmail(ctx, user.Email)
	if err != nil {
		return false, err
	}
	*user = *stored
	return res.UpsertedCount > 0, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("mongo: getting user %s: %w", email, err)
	}
	u := doc.toModel()
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	}))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing users: %w", err)
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding users: %w", err)
	}

	users := make([]model.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toModel())
	}
	return users, nil
}

func (s *UserStore) UpdateRole(ctx context.Context, email, role string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return fmt.Errorf("mongo: updating role of %s: %w", email, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", email)
	}
	return nil
}

// MarkPaid reports matched rather than modified, so repeating it on an
// already-premium user still counts as a match.
func (s *UserStore) MarkPaid(ctx context.Context, email string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{
			"paymentStatus": model.PaymentPaid,
			"role":          model.RolePremium,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("mongo: marking %s paid: %w", email, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *UserStore) Count(ctx context.Context, role string) (int64, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	n, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongo: counting users: %w", err)
	}
	return n, nil
}
