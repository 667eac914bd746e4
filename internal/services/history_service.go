package services

import (
	"context"
	"errors"

	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	postgresrepo "github.com/Corgi239/Speech-Command-Recognition/internal/repositories/postgres"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"
)

type HistoryService interface {
	List(ctx context.Context, limit, offset int) ([]models.Prediction, error)
	Get(ctx context.Context, predictionID string) (*models.Prediction, error)
	Similar(ctx context.Context, predictionID string, k int) ([]models.Prediction, error)
	Delete(ctx context.Context, predictionID string) error
}

type historyService struct {
	predictions postgresrepo.PredictionRepository
}

func NewHistoryService(predictions postgresrepo.PredictionRepository) HistoryService {
	return &historyService{predictions: predictions}
}

func (s *historyService) List(ctx context.Context, limit, offset int) ([]models.Prediction, error) {
	const op = "HistoryService.List"

	rows, err := s.predictions.List(ctx, limit, offset)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list predictions", err)
	}
	return rows, nil
}

func (s *historyService) Get(ctx context.Context, predictionID string) (*models.Prediction, error) {
	const op = "HistoryService.Get"

	if predictionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "prediction_id is required", nil)
	}

	row, err := s.predictions.GetByID(ctx, predictionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "prediction not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get prediction", err)
	}
	return row, nil
}

func (s *historyService) Similar(ctx context.Context, predictionID string, k int) ([]models.Prediction, error) {
	const op = "HistoryService.Similar"

	row, err := s.Get(ctx, predictionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.predictions.SimilarByEmbedding(ctx, row.Embedding, row.ID, k)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "similarity query failed", err)
	}
	return rows, nil
}

func (s *historyService) Delete(ctx context.Context, predictionID string) error {
	const op = "HistoryService.Delete"

	if predictionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "prediction_id is required", nil)
	}

	if err := s.predictions.Delete(ctx, predictionID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "prediction not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete prediction", err)
	}
	return nil
}
