package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/pkg/ai"
)

// ErrRubricDataCorrupt indicates stored rubric levels or criterion
// descriptors are not valid JSON. This is a data-integrity fault introduced
// by an earlier write, not a user error, and is never retried.
var ErrRubricDataCorrupt = errors.New("rubric data corrupt")

// BuildRubricInput normalizes a stored rubric, its criteria, and the
// assignment into the structures the grading engine consumes. Pure
// transformation, no side effects.
func BuildRubricInput(rubric models.Rubric, criteria []models.RubricCriterion, assignment models.Assignment) (ai.RubricInput, ai.AssignmentInput, error) {
	var levels []string
	if err := json.Unmarshal([]byte(rubric.Levels), &levels); err != nil {
		return ai.RubricInput{}, ai.AssignmentInput{}, fmt.Errorf("%w: rubric %d levels: %v", ErrRubricDataCorrupt, rubric.ID, err)
	}

	criteriaInputs := make([]ai.RubricCriterionInput, 0, len(criteria))
	for _, criterion := range criteria {
		var descriptors map[string]string
		if err := json.Unmarshal([]byte(criterion.Descriptors), &descriptors); err != nil {
			return ai.RubricInput{}, ai.AssignmentInput{}, fmt.Errorf("%w: criterion %d descriptors: %v", ErrRubricDataCorrupt, criterion.ID, err)
		}

		criteriaInputs = append(criteriaInputs, ai.RubricCriterionInput{
			ID:          criterion.ID,
			Name:        criterion.Name,
			Description: criterion.Description,
			Weight:      criterion.Weight,
			Descriptors: descriptors,
		})
	}

	rubricInput := ai.RubricInput{
		Title:    rubric.Title,
		Levels:   levels,
		Criteria: criteriaInputs,
	}

	assignmentInput := ai.AssignmentInput{
		Title:        assignment.Title,
		Description:  assignment.Description,
		Instructions: assignment.Instructions,
		Subject:      assignment.Subject,
		GradeLevel:   assignment.GradeLevel,
	}

	return rubricInput, assignmentInput, nil
}
