package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// SubmissionGradeUpdate carries the submission fields overwritten when a
// grading result lands.
type SubmissionGradeUpdate struct {
	TotalScore  float64
	MaxScore    float64
	LetterGrade string
	GradedAt    time.Time
}

// GradingRepository applies a grading result as one atomic unit. The previous
// feedback draft and criterion scores for the submission are removed and the
// new rows inserted in the same transaction, so a submission can never be
// observed with scores from one judgment and feedback from another.
type GradingRepository interface {
	ReplaceResult(ctx context.Context, submissionID uint, draft models.FeedbackDraft, scores []models.CriterionScore, update SubmissionGradeUpdate) error
	GetDraft(ctx context.Context, submissionID uint) (models.FeedbackDraft, error)
	ListScores(ctx context.Context, submissionID uint) ([]models.CriterionScore, error)
}

type gradingRepository struct {
	db *gorm.DB
}

// NewGradingRepository instantiates the repository.
func NewGradingRepository(db *gorm.DB) GradingRepository {
	return &gradingRepository{db: db}
}

func (r *gradingRepository) ReplaceResult(ctx context.Context, submissionID uint, draft models.FeedbackDraft, scores []models.CriterionScore, update SubmissionGradeUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", submissionID).
			Delete(&models.FeedbackDraft{}).Error; err != nil {
			return err
		}

		if err := tx.Where("submission_id = ?", submissionID).
			Delete(&models.CriterionScore{}).Error; err != nil {
			return err
		}

		draft.ID = 0
		draft.SubmissionID = submissionID
		draft.Status = models.FeedbackStatusDraft
		if err := tx.Create(&draft).Error; err != nil {
			return err
		}

		if len(scores) > 0 {
			for i := range scores {
				scores[i].ID = 0
				scores[i].SubmissionID = submissionID
			}
			if err := tx.Create(&scores).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&models.Submission{}).
			Where("id = ?", submissionID).
			Updates(map[string]interface{}{
				"status":       models.SubmissionStatusGraded,
				"total_score":  update.TotalScore,
				"max_score":    update.MaxScore,
				"letter_grade": update.LetterGrade,
				"graded_at":    update.GradedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

func (r *gradingRepository) GetDraft(ctx context.Context, submissionID uint) (models.FeedbackDraft, error) {
	var draft models.FeedbackDraft
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&draft).Error; err != nil {
		return models.FeedbackDraft{}, err
	}

	return draft, nil
}

func (r *gradingRepository) ListScores(ctx context.Context, submissionID uint) ([]models.CriterionScore, error) {
	var scores []models.CriterionScore
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("criterion_id ASC").
		Find(&scores).Error; err != nil {
		return nil, err
	}

	return scores, nil
}
