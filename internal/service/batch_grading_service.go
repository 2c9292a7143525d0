package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/observability"
	"github.com/noah-isme/gradia-go-api/internal/repository"
	"github.com/noah-isme/gradia-go-api/pkg/ai"
)

// ErrBatchInProgress indicates another batch run already holds the lock for
// the assignment.
var ErrBatchInProgress = errors.New("batch grading already in progress for assignment")

const (
	defaultBatchConcurrency = 4
	batchLockTTL            = 10 * time.Minute
)

// Metadata keys stamped on drafts persisted by a batch run.
const (
	metadataKeyBatchGraded = "batchGraded"
	metadataKeyBatchRunID  = "batchRunId"
)

// BatchGradingService grades every ungraded submission of an assignment in
// one orchestrated operation. A single submission's failure never aborts the
// batch; only scope resolution failures do.
type BatchGradingService interface {
	BatchGrade(ctx context.Context, req dto.BatchGradeRequest, actor AuditActor) (dto.BatchGradeResponse, error)
}

type batchGradingService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	rubrics     repository.RubricRepository
	persister   ResultPersister
	engine      ai.GradingEngine
	audit       AuditRecorder
	events      EventPublisher
	redis       *redis.Client
	validator   *validator.Validate
	concurrency int
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	newRunID    func() string
}

// BatchGradingServiceDeps bundles the collaborators of the batch orchestrator.
type BatchGradingServiceDeps struct {
	Submissions repository.SubmissionRepository
	Assignments repository.AssignmentRepository
	Rubrics     repository.RubricRepository
	Persister   ResultPersister
	Engine      ai.GradingEngine
	Audit       AuditRecorder
	Events      EventPublisher
	Redis       *redis.Client
	Validator   *validator.Validate
	Concurrency int
	Logger      zerolog.Logger
}

// NewBatchGradingService constructs the batch orchestrator.
func NewBatchGradingService(deps BatchGradingServiceDeps) BatchGradingService {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	return &batchGradingService{
		submissions: deps.Submissions,
		assignments: deps.Assignments,
		rubrics:     deps.Rubrics,
		persister:   deps.Persister,
		engine:      deps.Engine,
		audit:       deps.Audit,
		events:      deps.Events,
		redis:       deps.Redis,
		validator:   deps.Validator,
		concurrency: concurrency,
		logger:      deps.Logger.With().Str("component", "batch_grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gradia-go-api/internal/service/batch_grading"),
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
}

type batchOutcome struct {
	submissionID uint
	err          error
}

func (s *batchGradingService) BatchGrade(ctx context.Context, req dto.BatchGradeRequest, actor AuditActor) (dto.BatchGradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.batch")
	span.SetAttributes(
		attribute.Int64("grading.assignment_id", int64(req.AssignmentID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.BatchGradeResponse{}, err
	}

	assignment, rubric, criteria, err := s.resolveScope(ctx, req.AssignmentID, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scope_resolution_failed")
		return dto.BatchGradeResponse{}, err
	}

	rubricInput, assignmentInput, err := BuildRubricInput(rubric, criteria, assignment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_input_failed")
		return dto.BatchGradeResponse{}, err
	}

	runID := s.newRunID()
	release, err := s.acquireLock(ctx, req.AssignmentID, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock_held")
		return dto.BatchGradeResponse{}, err
	}
	defer release()

	ungraded, err := s.submissions.ListUngraded(ctx, req.AssignmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ungraded_lookup_failed")
		return dto.BatchGradeResponse{}, err
	}

	if len(ungraded) == 0 {
		return dto.BatchGradeResponse{Errors: []dto.BatchGradeError{}}, nil
	}

	for _, submission := range ungraded {
		if err := s.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusGrading); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "status_update_failed")
			return dto.BatchGradeResponse{}, err
		}
	}

	// Shared input is read-only after this point; each worker copies it and
	// sets only its own StudentWork.
	baseInput := ai.GradeInput{
		Rubric:          rubricInput,
		Assignment:      assignmentInput,
		FeedbackTone:    req.FeedbackTone,
		TeacherGuidance: req.TeacherGuidance,
	}

	outcomes := make([]batchOutcome, len(ungraded))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, submission := range ungraded {
		i, submission := i, submission
		group.Go(func() error {
			outcomes[i] = s.gradeOne(groupCtx, submission, actor, baseInput, runID)
			return nil
		})
	}
	// Workers never return errors; failures live in their outcome slot.
	_ = group.Wait()

	response := dto.BatchGradeResponse{
		Total:      len(ungraded),
		BatchRunID: runID,
		Errors:     []dto.BatchGradeError{},
	}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			response.Failed++
			response.Errors = append(response.Errors, dto.BatchGradeError{
				SubmissionID: outcome.submissionID,
				Reason:       outcome.err.Error(),
			})
			continue
		}
		response.Graded++
	}

	observability.BatchGraded().WithLabelValues("graded").Add(float64(response.Graded))
	observability.BatchGraded().WithLabelValues("failed").Add(float64(response.Failed))

	span.SetAttributes(
		attribute.Int("grading.batch_total", response.Total),
		attribute.Int("grading.batch_graded", response.Graded),
		attribute.Int("grading.batch_failed", response.Failed),
	)

	s.logger.Info().
		Uint("assignment_id", req.AssignmentID).
		Str("batch_run_id", runID).
		Int("graded", response.Graded).
		Int("failed", response.Failed).
		Msg("batch grading finished")

	return response, nil
}

// gradeOne runs the strictly sequential per-submission pipeline: engine call,
// persist, audit, event. Any failure reverts the submission to the queue and
// is reported in the outcome, never up the call stack.
func (s *batchGradingService) gradeOne(ctx context.Context, submission models.Submission, actor AuditActor, baseInput ai.GradeInput, runID string) batchOutcome {
	input := baseInput
	input.StudentWork = submission.Content

	result, err := s.engine.Grade(ctx, input)
	if err != nil {
		s.revertStatus(ctx, submission.ID)
		return batchOutcome{submissionID: submission.ID, err: fmt.Errorf("engine: %w", err)}
	}

	extraMeta := map[string]interface{}{
		metadataKeyBatchGraded: true,
		metadataKeyBatchRunID:  runID,
	}
	if err := s.persister.PersistGradingResult(ctx, submission.ID, actor.ID, result, extraMeta); err != nil {
		s.revertStatus(ctx, submission.ID)
		return batchOutcome{submissionID: submission.ID, err: fmt.Errorf("persist: %w", err)}
	}

	s.recordAudit(ctx, submission, actor, result, runID)
	if s.events != nil {
		s.events.PublishGraded(ctx, GradedEvent{
			SubmissionID: submission.ID,
			AssignmentID: submission.AssignmentID,
			StudentID:    submission.StudentID,
			TotalScore:   result.TotalScore,
			MaxScore:     result.MaxScore,
			LetterGrade:  result.LetterGrade,
			BatchRunID:   runID,
			GradedAt:     s.now(),
		})
	}

	return batchOutcome{submissionID: submission.ID}
}

func (s *batchGradingService) resolveScope(ctx context.Context, assignmentID uint, actor AuditActor) (models.Assignment, models.Rubric, []models.RubricCriterion, error) {
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

// acquireLock serialises batch runs per assignment. Without redis the lock
// degrades to a no-op; two concurrent requests then race at the store level,
// which the full-replace persister tolerates.
func (s *batchGradingService) acquireLock(ctx context.Context, assignmentID uint, runID string) (func(), error) {
	if s.redis == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("gradia:batch:lock:%d", assignmentID)
	acquired, err := s.redis.SetNX(ctx, key, runID, batchLockTTL).Result()
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("batch lock unavailable, proceeding without it")
		return func() {}, nil
	}

	if !acquired {
		return nil, ErrBatchInProgress
	}

	return func() {
		if err := s.redis.Del(context.Background(), key).Err(); err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to release batch lock")
		}
	}, nil
}

func (s *batchGradingService) revertStatus(ctx context.Context, submissionID uint) {
	if err := s.submissions.UpdateStatus(ctx, submissionID, models.SubmissionStatusSubmitted); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to revert submission status")
	}
}

func (s *batchGradingService) recordAudit(ctx context.Context, submission models.Submission, actor AuditActor, result ai.GradingResult, runID string) {
	if s.audit == nil {
		return
	}

	userID := actor.ID
	if _, err := s.audit.Record(ctx, AuditEntry{
		EntityType: auditEntitySubmission,
		EntityID:   submission.ID,
		Action:     auditActionAIGrade,
		UserID:     &userID,
		Before: map[string]interface{}{
			"status": submission.Status,
		},
		After: map[string]interface{}{
			"status":       models.SubmissionStatusGraded,
			"total_score":  result.TotalScore,
			"max_score":    result.MaxScore,
			"letter_grade": result.LetterGrade,
			"batch_run_id": runID,
		},
		AIModel:  s.engine.Model(),
		AIPrompt: auditPromptGrade,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to record grading audit entry")
	}
}
