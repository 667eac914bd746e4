package mongo

import (
	"context"
	"time"

	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RecordingRepository interface {
	InsertChunk(ctx context.Context, c *models.RecordingChunk) error
	ListByRecording(ctx context.Context, recordingID string) ([]models.RecordingChunk, error)
	SetStatus(ctx context.Context, recordingID, status string) error
	DeleteByRecording(ctx context.Context, recordingID string) error
}

type recordingRepo struct {
	col *mongo.Collection
}

func NewRecordingRepo(db *mongo.Database) RecordingRepository {
	return &recordingRepo{col: db.Collection("recording_chunks")}
}

func (r *recordingRepo) InsertChunk(ctx context.Context, c *models.RecordingChunk) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *recordingRepo) ListByRecording(ctx context.Context, recordingID string) ([]models.RecordingChunk, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"recording_id": recordingID},
		options.Find().SetSort(bson.D{{Key: "chunk_index", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.RecordingChunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recordingRepo) SetStatus(ctx context.Context, recordingID, status string) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"recording_id": recordingID},
		bson.M{"$set": bson.M{"status": status}},
	)
	return err
}

func (r *recordingRepo) DeleteByRecording(ctx context.Context, recordingID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"recording_id": recordingID})
	return err
}
