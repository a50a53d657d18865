package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsStore)(nil)

// AnalyticsStore implements repository.AnalyticsRepository as aggregation
// pipelines over the lessons collection.
type AnalyticsStore struct {
	lessons *driver.Collection
}

// topContributorsPipeline groups by author email, ranks, trims to n and only
// then joins users, so $lookup runs at most n times.
func topContributorsPipeline(since time.Time, n int) driver.Pipeline {
	return driver.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: since}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$email"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "count", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: n}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "email"},
			{Key: "as", Value: "user"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "email", Value: "$_id"},
			{Key: "count", Value: 1},
			{Key: "name", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{"$user.name", 0}}}, "",
			}}}},
			{Key: "photo", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{"$user.photoURL", 0}}}, "",
			}}}},
		}}},
	}
}

type contributorRow struct {
	Email string `bson:"email"`
	Name  string `bson:"name"`
	Photo string `bson:"photo"`
	Count int    `bson:"count"`
}

func (s *AnalyticsStore) TopContributors(ctx context.Context, since time.Time, n int) ([]model.Contributor, error) {
	cur, err := s.lessons.Aggregate(ctx, topContributorsPipeline(since, n))
	if err != nil {
		return nil, fmt.Errorf("mongo: aggregating top contributors: %w", err)
	}

	var rows []contributorRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongo: decoding contributors: %w", err)
	}

	out := make([]model.Contributor, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Contributor(r))
	}
	return out, nil
}

func (s *AnalyticsStore) MostFavorited(ctx context.Context, n int) ([]model.Lesson, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "favoritesCount", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetLimit(int64(n))

	return findLessons(ctx, s.lessons, bson.M{"favoritesCount": bson.M{"$gt": 0}}, opts)
}
