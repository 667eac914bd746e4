package services

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/Corgi239/Speech-Command-Recognition/internal/audio"
	"github.com/Corgi239/Speech-Command-Recognition/internal/cache"
	"github.com/Corgi239/Speech-Command-Recognition/internal/classifier"
	"github.com/Corgi239/Speech-Command-Recognition/internal/logger"
	"github.com/Corgi239/Speech-Command-Recognition/internal/mfcc"
	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	postgresrepo "github.com/Corgi239/Speech-Command-Recognition/internal/repositories/postgres"
	"github.com/Corgi239/Speech-Command-Recognition/internal/storage"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

// PredictionService is the single entry point of the audio-to-prediction
// pipeline. Both producers (file upload and reconstructed recording) feed the
// same path: clip bytes → signal → features → classifier → ranked top-K.
type PredictionService interface {
	PredictClip(ctx context.Context, source string, clip []byte) (*models.PredictionResult, error)
	PredictRecording(ctx context.Context, samples audio.SparseSamples) (*models.PredictionResult, error)
}

type PredictionConfig struct {
	TopK     int           // ranked labels returned for the chart (default 10)
	CacheTTL time.Duration // result cache TTL (default 1h)
}

type predictionService struct {
	extractor *mfcc.Extractor
	clf       *classifier.Classifier
	history   postgresrepo.PredictionRepository
	cache     cache.Cache      // optional
	uploader  storage.Uploader // optional
	log       *logrus.Entry
	topK      int
	cacheTTL  time.Duration
}

func NewPredictionService(
	extractor *mfcc.Extractor,
	clf *classifier.Classifier,
	history postgresrepo.PredictionRepository,
	c cache.Cache,
	uploader storage.Uploader,
	log *logrus.Logger,
	cfg PredictionConfig,
) PredictionService {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if log == nil {
		log = logrus.New()
	}
	return &predictionService{
		extractor: extractor,
		clf:       clf,
		history:   history,
		cache:     c,
		uploader:  uploader,
		log:       logger.WithComponent(log, "prediction"),
		topK:      cfg.TopK,
		cacheTTL:  cfg.CacheTTL,
	}
}

func (s *predictionService) PredictClip(ctx context.Context, source string, clip []byte) (*models.PredictionResult, error) {
	const op = "PredictionService.PredictClip"

	if source != models.SourceFile && source != models.SourceRecording {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown source", nil)
	}
	if len(clip) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty audio buffer", nil)
	}

	var key string
	if s.cache != nil {
		key = cache.ClipKey(clip)
		var cached models.PredictionResult
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	signal, duration, err := audio.PrepareSignal(clip)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "could not decode audio", err)
	}

	features := s.extractor.Extract(signal)

	keyword, confidences, err := s.clf.Predict(features)
	if err != nil {
		// Shape mismatch between extractor and model is a deployment bug,
		// not a caller mistake.
		return nil, utils.E(utils.CodeInternal, op, "inference failed", err)
	}

	ranked := Rank(s.clf.Labels(), confidences, s.topK)

	result := &models.PredictionResult{
		PredictionID: uuid.NewString(),
		Source:       source,
		Keyword:      keyword,
		Confidence:   ranked[0].Confidence,
		Ranked:       ranked,
		DurationMS:   int64(duration * 1000),
	}

	s.persist(ctx, result, confidences, features, clip)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, result, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("prediction cache write failed")
		}
	}
	return result, nil
}

func (s *predictionService) PredictRecording(ctx context.Context, samples audio.SparseSamples) (*models.PredictionResult, error) {
	const op = "PredictionService.PredictRecording"

	clip, err := audio.Reconstruct(samples)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording contains no samples", err)
	}
	return s.PredictClip(ctx, models.SourceRecording, clip)
}

// persist writes the history row and archives the clip. Both are auxiliary to
// the prediction itself and only logged on failure.
func (s *predictionService) persist(ctx context.Context, result *models.PredictionResult, confidences []float32, features [][]float32, clip []byte) {
	clipURL := ""
	if s.uploader != nil {
		url, err := s.uploader.Upload(ctx, "clips/"+result.PredictionID+".wav", "audio/wav", bytes.NewReader(clip))
		if err != nil {
			s.log.WithError(err).WithField("prediction_id", result.PredictionID).Warn("clip archive failed")
		} else {
			clipURL = url
		}
	}

	if s.history == nil {
		return
	}

	confJSON, err := json.Marshal(confidences)
	if err != nil {
		s.log.WithError(err).Warn("confidence vector marshal failed")
		return
	}

	topLabels := make([]string, len(result.Ranked))
	for i, ls := range result.Ranked {
		topLabels[i] = ls.Label
	}

	embedding := MeanEmbedding(features)
	if len(embedding) != models.EmbeddingDim {
		// The vector column is fixed-width; a misconfigured extractor would
		// fail at the database with a far worse message.
		s.log.WithField("dim", len(embedding)).Warn("embedding dimension mismatch, history row skipped")
		return
	}

	row := &models.Prediction{
		ID:          result.PredictionID,
		Source:      result.Source,
		Keyword:     result.Keyword,
		Confidence:  result.Confidence,
		TopLabels:   topLabels,
		Confidences: confJSON,
		Embedding:   pgvector.NewVector(embedding),
		DurationMS:  result.DurationMS,
		ClipURL:     clipURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.history.Insert(ctx, row); err != nil {
		s.log.WithError(err).WithField("prediction_id", result.PredictionID).Warn("history insert failed")
	}
}

// Rank pairs each label with its confidence and returns the top k by
// confidence descending. Exact ties keep label-index order (stable sort over
// the index-ordered slice).
func Rank(labels []string, confidences []float32, k int) []models.LabelScore {
	scores := make([]models.LabelScore, len(labels))
	for i, l := range labels {
		scores[i] = models.LabelScore{Label: l, Confidence: float64(confidences[i])}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Confidence > scores[b].Confidence
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}

// MeanEmbedding averages a feature matrix over time, producing one value per
// coefficient. This is the clip embedding stored for similarity search.
func MeanEmbedding(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	cols := len(features[0])
	out := make([]float32, cols)
	for _, row := range features {
		for j, v := range row {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float32(len(features))
	}
	return out
}
