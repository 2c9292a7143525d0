package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// RubricRepository defines persistence operations for rubrics and their criteria.
type RubricRepository interface {
	GetByID(ctx context.Context, id uint) (models.Rubric, error)
	ListCriteria(ctx context.Context, rubricID uint) ([]models.RubricCriterion, error)
	Create(ctx context.Context, rubric *models.Rubric) error
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository instantiates the repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

func (r *rubricRepository) GetByID(ctx context.Context, id uint) (models.Rubric, error) {
	var rubric models.Rubric
	if err := r.db.WithContext(ctx).Preload("Criteria").First(&rubric, id).Error; err != nil {
		return models.Rubric{}, err
	}

	return rubric, nil
}

func (r *rubricRepository) ListCriteria(ctx context.Context, rubricID uint) ([]models.RubricCriterion, error) {
	var criteria []models.RubricCriterion
	if err := r.db.WithContext(ctx).
		Where("rubric_id = ?", rubricID).
		Order("id ASC").
		Find(&criteria).Error; err != nil {
		return nil, err
	}

	return criteria, nil
}

func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Create(rubric).Error
}
