package ai

import "context"

// RubricCriterionInput is one weighted dimension of the rubric as presented
// to the grading model. Descriptors maps a level name to its descriptive text.
type RubricCriterionInput struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Weight      float64           `json:"weight"`
	Descriptors map[string]string `json:"descriptors"`
}

// RubricInput is the normalized rubric handed to the grading model. Levels
// are ordered from lowest to highest performance.
type RubricInput struct {
	Title    string                 `json:"title"`
	Levels   []string               `json:"levels"`
	Criteria []RubricCriterionInput `json:"criteria"`
}

// AssignmentInput describes the assignment the submission answers.
type AssignmentInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Instructions string `json:"instructions,omitempty"`
	Subject      string `json:"subject"`
	GradeLevel   string `json:"gradeLevel"`
}

// GradeInput contains everything needed to grade one submission.
type GradeInput struct {
	StudentWork     string
	Rubric          RubricInput
	Assignment      AssignmentInput
	FeedbackTone    string
	TeacherGuidance string
}

// CriterionScoreResult is the model's judgment for a single rubric criterion.
type CriterionScoreResult struct {
	CriterionID   uint    `json:"criterionId"`
	CriterionName string  `json:"criterionName"`
	Level         string  `json:"level"`
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"maxScore"`
	Justification string  `json:"justification"`
}

// GradingResult is the structured judgment returned for one submission.
type GradingResult struct {
	CriterionScores []CriterionScoreResult `json:"criterionScores"`
	TotalScore      float64                `json:"totalScore"`
	MaxScore        float64                `json:"maxScore"`
	LetterGrade     string                 `json:"letterGrade"`
	OverallFeedback string                 `json:"overallFeedback"`
	Strengths       []string               `json:"strengths"`
	Improvements    []string               `json:"improvements"`
	NextSteps       []string               `json:"nextSteps"`
	Misconceptions  []string               `json:"misconceptions,omitempty"`
}

// GradingEngine describes an AI model capable of grading a submission
// against a rubric.
type GradingEngine interface {
	Grade(ctx context.Context, input GradeInput) (GradingResult, error)
	// Model identifies the underlying model for audit trails.
	Model() string
}
