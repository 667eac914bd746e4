package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recording chunk statuses.
const (
	RecordingPending    = "pending"
	RecordingProcessing = "processing"
	RecordingDone       = "done"
	RecordingFailed     = "failed"
)

// RecordingChunk is one sparse-sample payload from the browser recorder,
// buffered in Mongo until the recording is finalized and classified.
type RecordingChunk struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecordingID string             `bson:"recording_id" json:"recording_id"`
	ChunkIndex  int64              `bson:"chunk_index" json:"chunk_index"`

	// Sample index → byte value, keys kept as strings for BSON.
	Samples map[string]uint8 `bson:"samples" json:"samples"`

	Status string `bson:"status" json:"status"` // pending|processing|done|failed

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
