package services

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/Corgi239/Speech-Command-Recognition/internal/audio"
	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"
)

type fakeRecordingRepo struct {
	chunks   []models.RecordingChunk
	statuses []string
	deleted  []string
	listErr  error
}

func (r *fakeRecordingRepo) InsertChunk(_ context.Context, c *models.RecordingChunk) error {
	r.chunks = append(r.chunks, *c)
	return nil
}

func (r *fakeRecordingRepo) ListByRecording(_ context.Context, recordingID string) ([]models.RecordingChunk, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.RecordingChunk
	for _, c := range r.chunks {
		if c.RecordingID == recordingID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ChunkIndex < out[b].ChunkIndex })
	return out, nil
}

func (r *fakeRecordingRepo) SetStatus(_ context.Context, _, status string) error {
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *fakeRecordingRepo) DeleteByRecording(_ context.Context, recordingID string) error {
	r.deleted = append(r.deleted, recordingID)
	return nil
}

type stubPredictor struct {
	got    audio.SparseSamples
	result *models.PredictionResult
	err    error
}

func (s *stubPredictor) PredictClip(context.Context, string, []byte) (*models.PredictionResult, error) {
	return s.result, s.err
}

func (s *stubPredictor) PredictRecording(_ context.Context, samples audio.SparseSamples) (*models.PredictionResult, error) {
	s.got = samples
	return s.result, s.err
}

func TestAppendChunkValidation(t *testing.T) {
	repo := &fakeRecordingRepo{}
	svc := NewRecordingService(repo, &stubPredictor{}, 0)

	cases := []struct {
		name        string
		recordingID string
		index       int64
		samples     map[string]uint8
	}{
		{"missing id", "", 0, map[string]uint8{"0": 1}},
		{"negative index", "r1", -1, map[string]uint8{"0": 1}},
		{"no samples", "r1", 0, map[string]uint8{}},
		{"bad key", "r1", 0, map[string]uint8{"x": 1}},
		{"negative key", "r1", 0, map[string]uint8{"-2": 1}},
	}
	for _, tc := range cases {
		if _, err := svc.AppendChunk(context.Background(), tc.recordingID, tc.index, tc.samples); !utils.IsCode(err, utils.CodeInvalidArgument) {
			t.Fatalf("%s: got %v", tc.name, err)
		}
	}
	if len(repo.chunks) != 0 {
		t.Fatalf("rejected chunks were buffered: %d", len(repo.chunks))
	}
}

func TestAppendChunkBuffersPending(t *testing.T) {
	repo := &fakeRecordingRepo{}
	svc := NewRecordingService(repo, &stubPredictor{}, 0)

	doc, err := svc.AppendChunk(context.Background(), "r1", 0, map[string]uint8{"0": 9})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if doc.Status != models.RecordingPending {
		t.Fatalf("status = %q, want %q", doc.Status, models.RecordingPending)
	}
	if !doc.ExpiresAt.After(doc.Timestamp) {
		t.Fatal("expiry must be after the chunk timestamp")
	}
	if len(repo.chunks) != 1 {
		t.Fatalf("buffered %d chunks, want 1", len(repo.chunks))
	}
}

func TestProcessMergesChunksInOrder(t *testing.T) {
	repo := &fakeRecordingRepo{}
	pred := &stubPredictor{result: &models.PredictionResult{Keyword: "go", Source: models.SourceRecording}}
	svc := NewRecordingService(repo, pred, 0)

	for i, samples := range []map[string]uint8{
		{"0": 1, "1": 2},
		{"2": 3},
	} {
		if _, err := svc.AppendChunk(context.Background(), "r1", int64(i), samples); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	result, err := svc.Process(context.Background(), "r1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Keyword != "go" {
		t.Fatalf("keyword = %q", result.Keyword)
	}

	want := audio.SparseSamples{0: 1, 1: 2, 2: 3}
	if len(pred.got) != len(want) {
		t.Fatalf("merged %d samples, want %d", len(pred.got), len(want))
	}
	for k, v := range want {
		if pred.got[k] != v {
			t.Fatalf("merged[%d] = %d, want %d", k, pred.got[k], v)
		}
	}

	last := repo.statuses[len(repo.statuses)-1]
	if last != models.RecordingDone {
		t.Fatalf("final status = %q, want %q", last, models.RecordingDone)
	}
	seenProcessing := false
	for _, s := range repo.statuses {
		if s == models.RecordingProcessing {
			seenProcessing = true
		}
	}
	if !seenProcessing {
		t.Fatal("processing status was never recorded")
	}
}

func TestProcessWithoutChunksFails(t *testing.T) {
	svc := NewRecordingService(&fakeRecordingRepo{}, &stubPredictor{}, 0)

	_, err := svc.Process(context.Background(), "ghost")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(err, audio.ErrEmptyRecording) {
		t.Fatalf("expected ErrEmptyRecording, got %v", err)
	}
}

func TestProcessBadChunkMarksFailed(t *testing.T) {
	repo := &fakeRecordingRepo{chunks: []models.RecordingChunk{{
		RecordingID: "r1",
		ChunkIndex:  0,
		Samples:     map[string]uint8{"x": 1},
	}}}
	svc := NewRecordingService(repo, &stubPredictor{}, 0)

	if _, err := svc.Process(context.Background(), "r1"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("got %v", err)
	}
	last := repo.statuses[len(repo.statuses)-1]
	if last != models.RecordingFailed {
		t.Fatalf("final status = %q, want %q", last, models.RecordingFailed)
	}
}

func TestProcessPredictionFailureMarksFailed(t *testing.T) {
	repo := &fakeRecordingRepo{}
	pred := &stubPredictor{err: utils.E(utils.CodeInternal, "stub", "inference failed", nil)}
	svc := NewRecordingService(repo, pred, 0)

	if _, err := svc.AppendChunk(context.Background(), "r1", 0, map[string]uint8{"0": 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.Process(context.Background(), "r1"); err == nil {
		t.Fatal("expected prediction error to propagate")
	}
	last := repo.statuses[len(repo.statuses)-1]
	if last != models.RecordingFailed {
		t.Fatalf("final status = %q, want %q", last, models.RecordingFailed)
	}
}

func TestCancelDiscardsBufferedChunks(t *testing.T) {
	repo := &fakeRecordingRepo{}
	svc := NewRecordingService(repo, &stubPredictor{}, 0)

	if err := svc.Cancel(context.Background(), ""); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty id: got %v", err)
	}
	if err := svc.Cancel(context.Background(), "r1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "r1" {
		t.Fatalf("deleted = %v, want [r1]", repo.deleted)
	}
}
