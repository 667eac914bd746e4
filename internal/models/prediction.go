package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Prediction sources.
const (
	SourceFile      = "file"
	SourceRecording = "recording"
)

// EmbeddingDim is the dimensionality of the clip embedding stored for
// similarity search: the time-averaged MFCC vector, one value per coefficient.
const EmbeddingDim = 13

// Prediction is one classified clip, persisted for history and similarity
// lookup.
type Prediction struct {
	ID     string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Source string `gorm:"column:source;type:text;index" json:"source"` // "file" | "recording"

	Keyword    string  `gorm:"column:keyword;type:text;index" json:"keyword"`
	Confidence float64 `gorm:"column:confidence;type:double precision" json:"confidence"`

	// Ranked top-K labels, confidence descending.
	TopLabels pq.StringArray `gorm:"column:top_labels;type:text[]" json:"top_labels"`

	// Full confidence vector in vocabulary order, one float per label.
	Confidences datatypes.JSON `gorm:"column:confidences;type:jsonb" json:"confidences"`

	// Time-averaged MFCC vector for nearest-clip search.
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(13)" json:"embedding"`

	// Decoded clip duration in milliseconds, before length normalization.
	DurationMS int64  `gorm:"column:duration_ms" json:"duration_ms"`
	ClipURL    string `gorm:"column:clip_url;type:text" json:"clip_url,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (Prediction) TableName() string { return "predictions" }

// LabelScore is one (label, confidence) pair of the ranked series handed to
// the presentation layer.
type LabelScore struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// PredictionResult is the outcome of one pipeline run.
type PredictionResult struct {
	PredictionID string       `json:"prediction_id"`
	Source       string       `json:"source"`
	Keyword      string       `json:"keyword"`
	Confidence   float64      `json:"confidence"`
	Ranked       []LabelScore `json:"ranked"`
	DurationMS   int64        `json:"duration_ms"` // clip duration, not processing time
	Cached       bool         `json:"cached"`
}
