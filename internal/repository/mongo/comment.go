package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

var (
	_ repository.CommentRepository = (*CommentStore)(nil)
	_ repository.ReportRepository  = (*ReportStore)(nil)
)

// CommentStore implements repository.CommentRepository.
type CommentStore struct {
	coll *driver.Collection
}

func (s *CommentStore) Create(ctx context.Context, c *model.Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	res, err := s.coll.InsertOne(ctx, commentDoc{
		LessonID:  c.LessonID,
		UserID:    c.UserID,
		UserName:  c.UserName,
		UserPhoto: c.UserPhoto,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("mongo: creating comment: %w", err)
	}
	c.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *CommentStore) ListByLesson(ctx context.Context, lessonID string) ([]model.Comment, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"lessonId": lessonID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing comments of %s: %w", lessonID, err)
	}

	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding comments: %w", err)
	}

	comments := make([]model.Comment, 0, len(docs))
	for i := range docs {
		comments = append(comments, docs[i].toModel())
	}
	return comments, nil
}

func (s *CommentStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID("comment", id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting comment %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

// ReportStore implements repository.ReportRepository.
type ReportStore struct {
	coll *driver.Collection
}

func (s *ReportStore) Create(ctx context.Context, r *model.LessonReport) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = now()
	}
	res, err := s.coll.InsertOne(ctx, reportDoc{
		LessonID:       r.LessonID,
		ReporterUserID: r.ReporterUserID,
		ReporterName:   r.ReporterName,
		Reason:         r.Reason,
		Timestamp:      r.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("mongo: creating report: %w", err)
	}
	r.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *ReportStore) List(ctx context.Context) ([]model.LessonReport, error) {
	cur, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing reports: %w", err)
	}

	var docs []reportDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding reports: %w", err)
	}

	reports := make([]model.LessonReport, 0, len(docs))
	for i := range docs {
		reports = append(reports, docs[i].toModel())
	}
	return reports, nil
}

func (s *ReportStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting reports: %w", err)
	}
	return n, nil
}
