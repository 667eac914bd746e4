package services

import (
	"context"
	"time"

	"github.com/Corgi239/Speech-Command-Recognition/internal/audio"
	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	mongorepo "github.com/Corgi239/Speech-Command-Recognition/internal/repositories/mongo"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"
)

// RecordingService buffers live-recording chunks until the client finalizes,
// then hands the merged sparse map to the prediction pipeline.
type RecordingService interface {
	AppendChunk(ctx context.Context, recordingID string, chunkIndex int64, samples map[string]uint8) (*models.RecordingChunk, error)
	// Process merges all buffered chunks of a recording, reconstructs the
	// clip and classifies it. Chunk status tracks the outcome.
	Process(ctx context.Context, recordingID string) (*models.PredictionResult, error)
	// Cancel discards the buffered chunks of an abandoned recording without
	// waiting for the TTL sweep.
	Cancel(ctx context.Context, recordingID string) error
}

type recordingService struct {
	chunks      mongorepo.RecordingRepository
	predictions PredictionService
	ttl         time.Duration
}

func NewRecordingService(chunks mongorepo.RecordingRepository, predictions PredictionService, ttl time.Duration) RecordingService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &recordingService{chunks: chunks, predictions: predictions, ttl: ttl}
}

func (s *recordingService) AppendChunk(ctx context.Context, recordingID string, chunkIndex int64, samples map[string]uint8) (*models.RecordingChunk, error) {
	const op = "RecordingService.AppendChunk"

	if recordingID == "" || chunkIndex < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording_id is required and chunk_index must be >= 0", nil)
	}
	if len(samples) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "chunk contains no samples", audio.ErrEmptyRecording)
	}
	// Reject malformed indices at ingest rather than at finalize.
	if _, err := audio.ParseSparseSamples(samples); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid sample indices", err)
	}

	now := time.Now().UTC()
	doc := &models.RecordingChunk{
		RecordingID: recordingID,
		ChunkIndex:  chunkIndex,
		Samples:     samples,
		Status:      models.RecordingPending,
		Timestamp:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.chunks.InsertChunk(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to buffer chunk", err)
	}
	return doc, nil
}

func (s *recordingService) Process(ctx context.Context, recordingID string) (*models.PredictionResult, error) {
	const op = "RecordingService.Process"

	if recordingID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording_id is required", nil)
	}

	_ = s.chunks.SetStatus(ctx, recordingID, models.RecordingProcessing)

	docs, err := s.chunks.ListByRecording(ctx, recordingID)
	if err != nil {
		_ = s.chunks.SetStatus(ctx, recordingID, models.RecordingFailed)
		return nil, utils.E(utils.CodeInternal, op, "failed to load buffered chunks", err)
	}
	if len(docs) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no chunks buffered for recording", audio.ErrEmptyRecording)
	}

	sparse := make([]audio.SparseSamples, 0, len(docs))
	for _, d := range docs {
		m, err := audio.ParseSparseSamples(d.Samples)
		if err != nil {
			_ = s.chunks.SetStatus(ctx, recordingID, models.RecordingFailed)
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid sample indices in buffered chunk", err)
		}
		sparse = append(sparse, m)
	}

	result, err := s.predictions.PredictRecording(ctx, audio.MergeSparse(sparse))
	if err != nil {
		_ = s.chunks.SetStatus(ctx, recordingID, models.RecordingFailed)
		return nil, err
	}

	_ = s.chunks.SetStatus(ctx, recordingID, models.RecordingDone)
	return result, nil
}

func (s *recordingService) Cancel(ctx context.Context, recordingID string) error {
	const op = "RecordingService.Cancel"

	if recordingID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "recording_id is required", nil)
	}
	if err := s.chunks.DeleteByRecording(ctx, recordingID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to discard buffered chunks", err)
	}
	return nil
}
