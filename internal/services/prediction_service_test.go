package services

import (
	"context"
	"math"
	"testing"

	"github.com/Corgi239/Speech-Command-Recognition/internal/audio"
	"github.com/Corgi239/Speech-Command-Recognition/internal/classifier"
	"github.com/Corgi239/Speech-Command-Recognition/internal/mfcc"
	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	postgresrepo "github.com/Corgi239/Speech-Command-Recognition/internal/repositories/postgres"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"
	"github.com/pgvector/pgvector-go"
)

func TestRankDescending(t *testing.T) {
	labels := []string{"yes", "no", "up", "down"}
	conf := []float32{0.1, 0.4, 0.2, 0.3}

	ranked := Rank(labels, conf, 4)
	want := []string{"no", "down", "up", "yes"}
	for i, w := range want {
		if ranked[i].Label != w {
			t.Fatalf("rank %d = %q, want %q", i, ranked[i].Label, w)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Confidence > ranked[i-1].Confidence {
			t.Fatalf("ranking not descending at %d", i)
		}
	}
}

func TestRankTiesKeepLabelOrder(t *testing.T) {
	labels := []string{"zero", "one", "two", "three"}
	conf := []float32{0.25, 0.25, 0.25, 0.25}

	ranked := Rank(labels, conf, 4)
	for i, l := range labels {
		if ranked[i].Label != l {
			t.Fatalf("tied rank %d = %q, want %q", i, ranked[i].Label, l)
		}
	}
}

func TestRankCapsK(t *testing.T) {
	labels := []string{"yes", "no"}
	conf := []float32{0.6, 0.4}

	if got := len(Rank(labels, conf, 10)); got != 2 {
		t.Fatalf("got %d ranked labels, want 2", got)
	}
	if got := len(Rank(labels, conf, 1)); got != 1 {
		t.Fatalf("got %d ranked labels, want 1", got)
	}
}

func TestMeanEmbedding(t *testing.T) {
	features := [][]float32{
		{1, 2, 3},
		{3, 4, 5},
	}
	emb := MeanEmbedding(features)
	want := []float32{2, 3, 4}
	if len(emb) != len(want) {
		t.Fatalf("embedding length %d, want %d", len(emb), len(want))
	}
	for i := range want {
		if math.Abs(float64(emb[i]-want[i])) > 1e-6 {
			t.Fatalf("emb[%d] = %v, want %v", i, emb[i], want[i])
		}
	}
	if MeanEmbedding(nil) != nil {
		t.Fatal("empty feature matrix should yield nil embedding")
	}
}

// lcg mirrors the generator used for classifier fixtures so service tests get
// the same deterministic weights.
type lcg uint64

func (g *lcg) next() float32 {
	*g = *g*6364136223846793005 + 1442695040888963407
	return float32(int32(uint32(*g>>33))) / float32(1<<31) * 0.1
}

func fixtureService(t *testing.T) PredictionService {
	t.Helper()
	return fixtureServiceWithHistory(t, nil)
}

func fixtureServiceWithHistory(t *testing.T, history postgresrepo.PredictionRepository) PredictionService {
	t.Helper()
	g := lcg(42)
	fill := func(n int) []float32 {
		out := make([]float32, n)
		for i := range out {
			out[i] = g.next()
		}
		return out
	}

	net, err := classifier.NewNetwork(44, 13,
		classifier.Conv2D(3, 3, 1, 4, classifier.ActReLU, classifier.PadValid, fill(3*3*1*4), fill(4)),
		classifier.MaxPool2D(2, 2, 2, 2, classifier.PadValid),
		classifier.Flatten(),
		classifier.Dense(420, 35, classifier.ActSoftmax, fill(420*35), fill(35)),
	)
	if err != nil {
		t.Fatalf("fixture network: %v", err)
	}
	clf, err := classifier.New(net, classifier.DefaultLabels)
	if err != nil {
		t.Fatalf("fixture classifier: %v", err)
	}

	return NewPredictionService(mfcc.New(mfcc.DefaultConfig()), clf, history, nil, nil, nil, PredictionConfig{})
}

type fakeHistoryRepo struct {
	rows []*models.Prediction
}

func (r *fakeHistoryRepo) Insert(_ context.Context, p *models.Prediction) error {
	r.rows = append(r.rows, p)
	return nil
}

func (r *fakeHistoryRepo) GetByID(context.Context, string) (*models.Prediction, error) {
	return nil, utils.ErrNotFound
}

func (r *fakeHistoryRepo) List(context.Context, int, int) ([]models.Prediction, error) {
	return nil, nil
}

func (r *fakeHistoryRepo) Delete(context.Context, string) error { return nil }

func (r *fakeHistoryRepo) SimilarByEmbedding(context.Context, pgvector.Vector, string, int) ([]models.Prediction, error) {
	return nil, nil
}

func fixtureClip(t *testing.T) []byte {
	t.Helper()
	samples := make([]float32, 22050)
	for i := range samples {
		samples[i] = float32(0.4 * math.Sin(2*math.Pi*440*float64(i)/22050))
	}
	clip, err := audio.EncodeWAV(samples, 22050)
	if err != nil {
		t.Fatalf("encode fixture clip: %v", err)
	}
	return clip
}

func TestPredictClipDeterministic(t *testing.T) {
	svc := fixtureService(t)
	clip := fixtureClip(t)

	first, err := svc.PredictClip(context.Background(), models.SourceFile, clip)
	if err != nil {
		t.Fatalf("PredictClip: %v", err)
	}
	if first.Keyword == "" {
		t.Fatal("expected a keyword")
	}
	if len(first.Ranked) != 10 {
		t.Fatalf("got %d ranked labels, want 10", len(first.Ranked))
	}
	if first.Confidence != first.Ranked[0].Confidence {
		t.Fatal("headline confidence must match first ranked entry")
	}

	second, err := svc.PredictClip(context.Background(), models.SourceFile, clip)
	if err != nil {
		t.Fatalf("PredictClip repeat: %v", err)
	}
	if second.Keyword != first.Keyword {
		t.Fatalf("keyword changed between runs: %q vs %q", first.Keyword, second.Keyword)
	}
	for i := range first.Ranked {
		if first.Ranked[i] != second.Ranked[i] {
			t.Fatalf("ranking differs at %d", i)
		}
	}
}

func TestPredictClipPersistsHistoryRow(t *testing.T) {
	repo := &fakeHistoryRepo{}
	svc := fixtureServiceWithHistory(t, repo)

	result, err := svc.PredictClip(context.Background(), models.SourceFile, fixtureClip(t))
	if err != nil {
		t.Fatalf("PredictClip: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("persisted %d rows, want 1", len(repo.rows))
	}

	row := repo.rows[0]
	if row.ID != result.PredictionID || row.Keyword != result.Keyword {
		t.Fatalf("row does not match result: %+v vs %+v", row, result)
	}
	// The fixture clip is exactly one second, and the stored duration is the
	// clip's, not the pipeline's wall time.
	if row.DurationMS != 1000 {
		t.Fatalf("duration_ms = %d, want 1000", row.DurationMS)
	}
	if result.DurationMS != 1000 {
		t.Fatalf("result duration_ms = %d, want 1000", result.DurationMS)
	}
	if got := len(row.Embedding.Slice()); got != models.EmbeddingDim {
		t.Fatalf("embedding dim = %d, want %d", got, models.EmbeddingDim)
	}
	if len(row.TopLabels) != len(result.Ranked) {
		t.Fatalf("top_labels len = %d, want %d", len(row.TopLabels), len(result.Ranked))
	}
}

func TestPredictClipSilenceStable(t *testing.T) {
	svc := fixtureService(t)
	clip, err := audio.EncodeWAV(make([]float32, 22050), 22050)
	if err != nil {
		t.Fatalf("encode silence: %v", err)
	}

	first, err := svc.PredictClip(context.Background(), models.SourceFile, clip)
	if err != nil {
		t.Fatalf("PredictClip: %v", err)
	}
	for i := 0; i < 3; i++ {
		res, err := svc.PredictClip(context.Background(), models.SourceFile, clip)
		if err != nil {
			t.Fatalf("PredictClip run %d: %v", i, err)
		}
		if res.Keyword != first.Keyword {
			t.Fatalf("silent clip keyword drifted: %q vs %q", res.Keyword, first.Keyword)
		}
	}
}

func TestPredictClipRejectsBadInput(t *testing.T) {
	svc := fixtureService(t)

	if _, err := svc.PredictClip(context.Background(), "stream", fixtureClip(t)); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("unknown source: got %v", err)
	}
	if _, err := svc.PredictClip(context.Background(), models.SourceFile, nil); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty buffer: got %v", err)
	}
	if _, err := svc.PredictClip(context.Background(), models.SourceFile, []byte("not a wav file")); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("garbage bytes: got %v", err)
	}
}

func TestPredictRecording(t *testing.T) {
	svc := fixtureService(t)

	clip := fixtureClip(t)
	samples := make(audio.SparseSamples, len(clip))
	for i, b := range clip {
		samples[i] = b
	}

	res, err := svc.PredictRecording(context.Background(), samples)
	if err != nil {
		t.Fatalf("PredictRecording: %v", err)
	}
	if res.Source != models.SourceRecording {
		t.Fatalf("source = %q, want %q", res.Source, models.SourceRecording)
	}

	if _, err := svc.PredictRecording(context.Background(), audio.SparseSamples{}); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty recording: got %v", err)
	}
}
