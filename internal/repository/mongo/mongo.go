// Package mongo implements the repository interfaces on MongoDB, the
// production document store. Collection and field names match the documents
// the web client already reads: lessons, users, comments and lessonReports,
// with camelCase fields and ObjectID _ids.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/repository"
)

const (
	lessonsCollection  = "lessons"
	usersCollection    = "users"
	commentsCollection = "comments"
	reportsCollection  = "lessonReports"
)

var _ repository.Store = (*Store)(nil)

// Store holds the single client opened at startup. The sub-stores it hands
// out share that client and are safe for concurrent use.
type Store struct {
	client *driver.Client
	db     *driver.Database
}

// Connect dials uri, pings the deployment and prepares the indexes the
// queries rely on. The Stable API v1 is requested in strict mode so a server
// upgrade cannot silently change query behaviour.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(10 * time.Second)

	client, err := driver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: creating indexes: %w", err)
	}

	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	// Email is the natural key of a user; the unique index is what makes the
	// upsert safe against two concurrent first logins.
	if _, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, driver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users: %w", err)
	}

	if _, err := s.db.Collection(lessonsCollection).Indexes().CreateMany(ctx, []driver.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "favoritesCount", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("lessons: %w", err)
	}

	if _, err := s.db.Collection(commentsCollection).Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "lessonId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("comments: %w", err)
	}

	return nil
}

// Ping runs the ping command against the admin database.
func (s *Store) Ping(ctx context.Context) error {
	var result bson.M
	if err := s.client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

// Close disconnects the client, waiting for in-flight operations up to ctx's deadline.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnecting: %w", err)
	}
	return nil
}

func (s *Store) Lessons() repository.LessonRepository {
	return &LessonStore{coll: s.db.Collection(lessonsCollection)}
}

func (s *Store) Users() repository.UserRepository {
	return &UserStore{coll: s.db.Collection(usersCollection)}
}

func (s *Store) Comments() repository.CommentRepository {
	return &CommentStore{coll: s.db.Collection(commentsCollection)}
}

func (s *Store) Reports() repository.ReportRepository {
	return &ReportStore{coll: s.db.Collection(reportsCollection)}
}

func (s *Store) Analytics() repository.AnalyticsRepository {
	return &AnalyticsStore{lessons: s.db.Collection(lessonsCollection)}
}

// writeError maps a duplicate-key failure to apperror.Conflict and wraps
// anything else with the operation that failed.
func writeError(err error, resource, id, action string) error {
	if driver.IsDuplicateKeyError(err) {
		return apperror.Conflict(resource, id)
	}
	return fmt.Errorf("mongo: %s %s %s: %w", action, resource, id, err)
}

// parseID converts a hex id from the API into an ObjectID.
func parseID(resource, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidID(resource, id)
	}
	return oid, nil
}
