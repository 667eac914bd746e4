package postgres

import (
	"context"
	"errors"

	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PredictionRepository interface {
	Insert(ctx context.Context, p *models.Prediction) error
	GetByID(ctx context.Context, id string) (*models.Prediction, error)
	List(ctx context.Context, limit, offset int) ([]models.Prediction, error)
	Delete(ctx context.Context, id string) error
	// SimilarByEmbedding returns the k stored predictions nearest to vec by
	// L2 distance over the MFCC-mean embedding, excluding excludeID.
	SimilarByEmbedding(ctx context.Context, vec pgvector.Vector, excludeID string, k int) ([]models.Prediction, error)
}

type predictionRepo struct {
	db *gorm.DB
}

func NewPredictionRepo(db *gorm.DB) PredictionRepository {
	return &predictionRepo{db: db}
}

func (r *predictionRepo) Insert(ctx context.Context, p *models.Prediction) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *predictionRepo) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	var row models.Prediction
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *predictionRepo) List(ctx context.Context, limit, offset int) ([]models.Prediction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []models.Prediction
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (r *predictionRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Prediction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *predictionRepo) SimilarByEmbedding(ctx context.Context, vec pgvector.Vector, excludeID string, k int) ([]models.Prediction, error) {
	if k <= 0 || k > 50 {
		k = 5
	}

	var rows []models.Prediction
	err := r.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{vec}},
		}).
		Limit(k).
		Find(&rows).Error
	return rows, err
}
