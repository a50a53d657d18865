package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

var _ repository.LessonRepository = (*LessonStore)(nil)

// maxToggleAttempts bounds the add/remove race loop in Toggle. Each attempt
// only repeats when another caller flipped the same membership in between.
const maxToggleAttempts = 5

// LessonStore implements repository.LessonRepository.
type LessonStore struct {
	coll *driver.Collection
}

// now returns the current time at the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *LessonStore) Create(ctx context.Context, lesson *model.Lesson) error {
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now()
	}
	doc := lessonDoc{
		Title:         lesson.Title,
		Description:   lesson.Description,
		Category:      lesson.Category,
		EmotionalTone: lesson.EmotionalTone,
		Privacy:       lesson.Privacy,
		AccessLevel:   lesson.AccessLevel,
		Image:         lesson.Image,
		Email:         lesson.Email,
		AuthorName:    lesson.AuthorName,
		AuthorPhoto:   lesson.AuthorPhoto,
		Likes:         []string{},
		Favorites:     []string{},
		CreatedAt:     lesson.CreatedAt,
		Extra:         lesson.Extra,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("mongo: creating lesson: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("mongo: unexpected inserted id type %T", res.InsertedID)
	}
	lesson.ID = oid.Hex()
	lesson.Likes, lesson.LikesCount = []string{}, 0
	lesson.Favorites, lesson.FavoritesCount = []string{}, 0
	lesson.UpdatedAt = nil
	return nil
}

func (s *LessonStore) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	oid, err := parseID("lesson", id)
	if err != nil {
		return nil, err
	}

	var doc lessonDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, apperror.NotFound("lesson", id)
		}
		return nil, fmt.Errorf("mongo: getting lesson %s: %w", id, err)
	}

	lesson := doc.toModel()
	return &lesson, nil
}

// lessonQuery renders a LessonFilter as a query document. Category and
// emotionalTone together become an $or; every other key is implicitly AND-ed.
func lessonQuery(f repository.LessonFilter) bson.M {
	q := bson.M{}

	if f.Email != "" {
		q["email"] = f.Email
	}

	switch {
	case f.Category != "" && f.EmotionalTone != "":
		q["$or"] = bson.A{
			bson.M{"category": f.Category},
			bson.M{"emotionalTone": f.EmotionalTone},
		}
	case f.Category != "":
		q["category"] = f.Category
	case f.EmotionalTone != "":
		q["emotionalTone"] = f.EmotionalTone
	}

	if f.Privacy != "" {
		q["privacy"] = f.Privacy
	}
	// Equality against an array field matches any element.
	if f.FavoritedBy != "" {
		q["favorites"] = f.FavoritedBy
	}
	if !f.CreatedSince.IsZero() {
		q["createdAt"] = bson.M{"$gte": f.CreatedSince}
	}

	return q
}

func (s *LessonStore) List(ctx context.Context, filter repository.LessonFilter) ([]model.Lesson, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	return findLessons(ctx, s.coll, lessonQuery(filter), opts)
}

func findLessons(ctx context.Context, coll *driver.Collection, query any, opts *options.FindOptions) ([]model.Lesson, error) {
	cur, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing lessons: %w", err)
	}

	var docs []lessonDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding lessons: %w", err)
	}

	lessons := make([]model.Lesson, 0, len(docs))
	for i := range docs {
		lessons = append(lessons, docs[i].toModel())
	}
	return lessons, nil
}

// updateSet builds the $set document for a LessonUpdate: only the keys the
// caller supplied, plus updatedAt.
func updateSet(upd model.LessonUpdate) bson.M {
	set := bson.M{"updatedAt": now()}
	for _, f := range upd.Fields() {
		set[f.Name] = f.Value
	}
	for k, v := range upd.Extra {
		set[k] = v
	}
	return set
}

// Update writes only the fields present in upd. Absent fields keep their
// stored value.
func (s *LessonStore) Update(ctx context.Context, id string, upd model.LessonUpdate) (*model.Lesson, error) {
	oid, err := parseID("lesson", id)
	if err != nil {
		return nil, err
	}

	set := updateSet(upd)

	var doc lessonDoc
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, apperror.NotFound("lesson", id)
		}
		return nil, fmt.Errorf("mongo: updating lesson %s: %w", id, err)
	}

	lesson := doc.toModel()
	return &lesson, nil
}

func (s *LessonStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID("lesson", id)
	if err != nil {
		return err
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting lesson %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("lesson", id)
	}
	return nil
}

// counters is the projection Toggle reads back after its update.
type counters struct {
	LikesCount     int `bson:"likesCount"`
	FavoritesCount int `bson:"favoritesCount"`
}

func (c counters) of(set model.ReactionSet) int {
	if set == model.ReactionFavorites {
		return c.FavoritesCount
	}
	return c.LikesCount
}

// Toggle flips membership with conditional single-document updates.
//
// The add is guarded by {set: {$ne: identity}} and the remove by
// {set: identity}, so exactly one of them can match a given document state and
// each applies its $addToSet/$pull together with the $inc. If neither matches,
// either the lesson is gone or a concurrent toggler flipped the membership
// between the two calls; the loop tells those apart and retries the latter.
func (s *LessonStore) Toggle(ctx context.Context, id string, set model.ReactionSet, identity string) (*model.ToggleResult, error) {
	oid, err := parseID("lesson", id)
	if err != nil {
		return nil, err
	}
	if !set.Valid() {
		return nil, apperror.ValidationFailed("set", fmt.Sprintf("unknown reaction set %q", set))
	}

	field, countField := string(set), set.CountField()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likesCount": 1, "favoritesCount": 1})

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		var c counters
		err := s.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, field: bson.M{"$ne": identity}},
			bson.M{
				"$addToSet": bson.M{field: identity},
				"$inc":      bson.M{countField: 1},
			},
			opts,
		).Decode(&c)
		if err == nil {
			return &model.ToggleResult{Active: true, Delta: 1, Count: c.of(set)}, nil
		}
		if !errors.Is(err, driver.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: adding to %s of lesson %s: %w", field, id, err)
		}

		err = s.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, field: identity},
			bson.M{
				"$pull": bson.M{field: identity},
				"$inc":  bson.M{countField: -1},
			},
			opts,
		).Decode(&c)
		if err == nil {
			return &model.ToggleResult{Active: false, Delta: -1, Count: c.of(set)}, nil
		}
		if !errors.Is(err, driver.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: removing from %s of lesson %s: %w", field, id, err)
		}

		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
		if err != nil {
			return nil, fmt.Errorf("mongo: checking lesson %s: %w", id, err)
		}
		if n == 0 {
			return nil, apperror.NotFound("lesson", id)
		}
	}

	return nil, fmt.Errorf("mongo: toggling %s of lesson %s: gave up after %d contended attempts", field, id, maxToggleAttempts)
}

func (s *LessonStore) Count(ctx context.Context, filter repository.LessonFilter) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, lessonQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("mongo: counting lessons: %w", err)
	}
	return n, nil
}
