package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/repository"
	"github.com/noah-isme/gradia-go-api/pkg/ai"
)

// ErrSubmissionNotFound indicates the submission was not located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAssignmentNotFound indicates the assignment was not located.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrAssignmentForbidden indicates the acting teacher does not own the assignment.
var ErrAssignmentForbidden = errors.New("assignment does not belong to acting teacher")

// ErrRubricMissing indicates the assignment has no rubric attached.
var ErrRubricMissing = errors.New("assignment has no rubric")

// ErrInvalidGradeTarget indicates neither a submission id nor a complete
// assignment/student/content triple was supplied.
var ErrInvalidGradeTarget = errors.New("provide submission_id, or assignment_id with student_id and content")

// ErrFeedbackNotFound indicates no feedback draft exists for the submission.
var ErrFeedbackNotFound = errors.New("feedback draft not found")

// Audit actions and prompt labels recorded for AI-driven grading writes.
const (
	auditActionAIGrade      = "ai_grade"
	auditPromptGrade        = "grade_submission"
	auditEntitySubmission   = "submission"
	metadataKeyLetterGrade  = "letterGrade"
	metadataKeyMisconceived = "misconceptions"
)

// ResultPersister durably applies one grading judgment to the store. The
// previous draft and scores are fully replaced; the call is idempotent under
// replay with the same judgment.
type ResultPersister interface {
	PersistGradingResult(ctx context.Context, submissionID, teacherID uint, result ai.GradingResult, extraMeta map[string]interface{}) error
}

// GradingService drives AI grading for single submissions.
type GradingService interface {
	ResultPersister
	Grade(ctx context.Context, req dto.GradeSubmissionRequest, actor AuditActor) (dto.GradeSubmissionResponse, error)
	ListQueue(ctx context.Context, req dto.SubmissionQueueRequest, actor AuditActor) ([]dto.SubmissionQueueItem, error)
	GetFeedback(ctx context.Context, submissionID uint, actor AuditActor) (dto.FeedbackDraftResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	rubrics     repository.RubricRepository
	grading     repository.GradingRepository
	engine      ai.GradingEngine
	audit       AuditRecorder
	events      EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// GradingServiceDeps bundles the collaborators of the grading service.
type GradingServiceDeps struct {
	Submissions repository.SubmissionRepository
	Assignments repository.AssignmentRepository
	Rubrics     repository.RubricRepository
	Grading     repository.GradingRepository
	Engine      ai.GradingEngine
	Audit       AuditRecorder
	Events      EventPublisher
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

// NewGradingService constructs the grading service.
func NewGradingService(deps GradingServiceDeps) GradingService {
	return &gradingService{
		submissions: deps.Submissions,
		assignments: deps.Assignments,
		rubrics:     deps.Rubrics,
		grading:     deps.Grading,
		engine:      deps.Engine,
		audit:       deps.Audit,
		events:      deps.Events,
		validator:   deps.Validator,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      deps.Logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gradia-go-api/internal/service/grading"),
		now:         time.Now,
	}
}

// PersistGradingResult applies the judgment as a single transactional unit:
// replace the feedback draft, replace the criterion scores, overwrite the
// submission's score and status. It does not write audit entries; callers
// audit their own invocations.
func (s *gradingService) PersistGradingResult(ctx context.Context, submissionID, teacherID uint, result ai.GradingResult, extraMeta map[string]interface{}) error {
	misconceptions := result.Misconceptions
	if misconceptions == nil {
		misconceptions = []string{}
	}

	metadata := datatypes.JSONMap{
		metadataKeyMisconceived: misconceptions,
		metadataKeyLetterGrade:  result.LetterGrade,
	}
	for key, value := range extraMeta {
		metadata[key] = value
	}

	draft := models.FeedbackDraft{
		TeacherID:    teacherID,
		AIFeedback:   s.sanitizer.Sanitize(result.OverallFeedback),
		Strengths:    datatypes.JSONSlice[string](s.sanitizeAll(result.Strengths)),
		Improvements: datatypes.JSONSlice[string](s.sanitizeAll(result.Improvements)),
		NextSteps:    datatypes.JSONSlice[string](s.sanitizeAll(result.NextSteps)),
		AIMetadata:   metadata,
		Status:       models.FeedbackStatusDraft,
	}

	scores := make([]models.CriterionScore, 0, len(result.CriterionScores))
	for _, cs := range result.CriterionScores {
		scores = append(scores, models.CriterionScore{
			CriterionID:   cs.CriterionID,
			Level:         cs.Level,
			Score:         cs.Score,
			MaxScore:      cs.MaxScore,
			Justification: s.sanitizer.Sanitize(cs.Justification),
		})
	}

	update := repository.SubmissionGradeUpdate{
		TotalScore:  result.TotalScore,
		MaxScore:    result.MaxScore,
		LetterGrade: result.LetterGrade,
		GradedAt:    s.now(),
	}

	if err := s.grading.ReplaceResult(ctx, submissionID, draft, scores, update); err != nil {
		return fmt.Errorf("persist grading result for submission %d: %w", submissionID, err)
	}

	return nil
}

func (s *gradingService) Grade(ctx context.Context, req dto.GradeSubmissionRequest, actor AuditActor) (dto.GradeSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade")
	span.SetAttributes(attribute.Int64("grading.actor_id", int64(actor.ID)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeSubmissionResponse{}, err
	}

	submission, err := s.resolveTarget(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "target_resolution_failed")
		return dto.GradeSubmissionResponse{}, err
	}
	span.SetAttributes(attribute.Int64("grading.submission_id", int64(submission.ID)))

	assignment, rubric, criteria, err := s.resolveScope(ctx, submission.AssignmentID, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scope_resolution_failed")
		return dto.GradeSubmissionResponse{}, err
	}

	rubricInput, assignmentInput, err := BuildRubricInput(rubric, criteria, assignment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_input_failed")
		return dto.GradeSubmissionResponse{}, err
	}

	before := submissionSnapshot(submission)

	if err := s.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusGrading); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status_update_failed")
		return dto.GradeSubmissionResponse{}, err
	}

	result, err := s.engine.Grade(ctx, ai.GradeInput{
		StudentWork:     submission.Content,
		Rubric:          rubricInput,
		Assignment:      assignmentInput,
		FeedbackTone:    req.FeedbackTone,
		TeacherGuidance: req.TeacherGuidance,
	})
	if err != nil {
		s.revertStatus(ctx, submission.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine_failed")
		return dto.GradeSubmissionResponse{}, fmt.Errorf("grade submission %d: %w", submission.ID, err)
	}

	if err := s.PersistGradingResult(ctx, submission.ID, actor.ID, result, nil); err != nil {
		s.revertStatus(ctx, submission.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_failed")
		return dto.GradeSubmissionResponse{}, err
	}

	gradedAt := s.now()
	s.recordAudit(ctx, submission, actor, result, before, "")
	if s.events != nil {
		s.events.PublishGraded(ctx, GradedEvent{
			SubmissionID: submission.ID,
			AssignmentID: submission.AssignmentID,
			StudentID:    submission.StudentID,
			TotalScore:   result.TotalScore,
			MaxScore:     result.MaxScore,
			LetterGrade:  result.LetterGrade,
			GradedAt:     gradedAt,
		})
	}

	span.SetAttributes(
		attribute.Float64("grading.total_score", result.TotalScore),
		attribute.String("grading.letter_grade", result.LetterGrade),
	)

	return newGradeSubmissionResponse(submission.ID, result, gradedAt), nil
}

func (s *gradingService) ListQueue(ctx context.Context, req dto.SubmissionQueueRequest, actor AuditActor) ([]dto.SubmissionQueueItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	assignmentIDs, err := s.assignments.ListIDsByTeacher(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if len(assignmentIDs) == 0 {
		return []dto.SubmissionQueueItem{}, nil
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentIDs: assignmentIDs,
		AssignmentID:  req.AssignmentID,
		Status:        req.Status,
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.SubmissionQueueItem, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.NewSubmissionQueueItem(submission))
	}

	return items, nil
}

// GetFeedback returns the live feedback draft for a submission the acting
// teacher owns.
func (s *gradingService) GetFeedback(ctx context.Context, submissionID uint, actor AuditActor) (dto.FeedbackDraftResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackDraftResponse{}, ErrSubmissionNotFound
		}
		return dto.FeedbackDraftResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackDraftResponse{}, ErrAssignmentNotFound
		}
		return dto.FeedbackDraftResponse{}, err
	}
	if assignment.TeacherID != actor.ID && actor.Role != models.RoleAdmin {
		return dto.FeedbackDraftResponse{}, ErrAssignmentForbidden
	}

	draft, err := s.grading.GetDraft(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackDraftResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackDraftResponse{}, err
	}

	return dto.NewFeedbackDraftResponse(draft), nil
}

// resolveTarget loads the submission to grade, creating one first when the
// request carries assignment/student/content instead of a submission id.
func (s *gradingService) resolveTarget(ctx context.Context, req dto.GradeSubmissionRequest) (models.Submission, error) {
	if req.SubmissionID != nil {
		submission, err := s.submissions.GetByID(ctx, *req.SubmissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Submission{}, ErrSubmissionNotFound
			}
			return models.Submission{}, err
		}
		return submission, nil
	}

	if req.AssignmentID == nil || req.StudentID == nil || req.Content == "" {
		return models.Submission{}, ErrInvalidGradeTarget
	}

	submission := models.Submission{
		AssignmentID: *req.AssignmentID,
		StudentID:    *req.StudentID,
		Content:      req.Content,
		Status:       models.SubmissionStatusSubmitted,
		SubmittedAt:  s.now(),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (s *gradingService) resolveScope(ctx context.Context, assignmentID uint, actor AuditActor) (models.Assignment, models.Rubric, []models.RubricCriterion, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, models.Rubric{}, nil, ErrAssignmentNotFound
		}
		return models.Assignment{}, models.Rubric{}, nil, err
	}

	if assignment.TeacherID != actor.ID && actor.Role != models.RoleAdmin {
		return models.Assignment{}, models.Rubric{}, nil, ErrAssignmentForbidden
	}

	if !assignment.HasRubric() {
		return models.Assignment{}, models.Rubric{}, nil, ErrRubricMissing
	}

	rubric, err := s.rubrics.GetByID(ctx, *assignment.RubricID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, models.Rubric{}, nil, ErrRubricMissing
		}
		return models.Assignment{}, models.Rubric{}, nil, err
	}

	return assignment, rubric, rubric.Criteria, nil
}

// revertStatus returns a submission to the grading queue after a failed
// attempt. Best effort; the original failure is what reaches the caller.
func (s *gradingService) revertStatus(ctx context.Context, submissionID uint) {
	if err := s.submissions.UpdateStatus(ctx, submissionID, models.SubmissionStatusSubmitted); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to revert submission status")
	}
}

func (s *gradingService) recordAudit(ctx context.Context, submission models.Submission, actor AuditActor, result ai.GradingResult, before map[string]interface{}, batchRunID string) {
	if s.audit == nil {
		return
	}

	after := map[string]interface{}{
		"status":       models.SubmissionStatusGraded,
		"total_score":  result.TotalScore,
		"max_score":    result.MaxScore,
		"letter_grade": result.LetterGrade,
	}
	if batchRunID != "" {
		after["batch_run_id"] = batchRunID
	}

	userID := actor.ID
	if _, err := s.audit.Record(ctx, AuditEntry{
		EntityType: auditEntitySubmission,
		EntityID:   submission.ID,
		Action:     auditActionAIGrade,
		UserID:     &userID,
		Before:     before,
		After:      after,
		AIModel:    s.engine.Model(),
		AIPrompt:   auditPromptGrade,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to record grading audit entry")
	}
}

func (s *gradingService) sanitizeAll(values []string) []string {
	sanitized := make([]string, 0, len(values))
	for _, value := range values {
		sanitized = append(sanitized, s.sanitizer.Sanitize(value))
	}
	return sanitized
}

func submissionSnapshot(submission models.Submission) map[string]interface{} {
	snapshot := map[string]interface{}{
		"status": submission.Status,
	}
	if submission.TotalScore != nil {
		snapshot["total_score"] = *submission.TotalScore
	}
	if submission.MaxScore != nil {
		snapshot["max_score"] = *submission.MaxScore
	}
	if submission.LetterGrade != nil {
		snapshot["letter_grade"] = *submission.LetterGrade
	}
	return snapshot
}

func newGradeSubmissionResponse(submissionID uint, result ai.GradingResult, gradedAt time.Time) dto.GradeSubmissionResponse {
	scores := make([]dto.CriterionScoreResponse, 0, len(result.CriterionScores))
	for _, cs := range result.CriterionScores {
		scores = append(scores, dto.CriterionScoreResponse{
			CriterionID:   cs.CriterionID,
			Level:         cs.Level,
			Score:         cs.Score,
			MaxScore:      cs.MaxScore,
			Justification: cs.Justification,
		})
	}

	return dto.GradeSubmissionResponse{
		SubmissionID:    submissionID,
		Status:          models.SubmissionStatusGraded,
		TotalScore:      result.TotalScore,
		MaxScore:        result.MaxScore,
		LetterGrade:     result.LetterGrade,
		Feedback:        result.OverallFeedback,
		CriterionScores: scores,
		Strengths:       result.Strengths,
		Improvements:    result.Improvements,
		NextSteps:       result.NextSteps,
		GradedAt:        gradedAt,
	}
}
