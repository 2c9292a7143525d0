package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/pkg/ai"
)

type batchFixture struct {
	submissions *fakeSubmissionRepo
	assignments *fakeAssignmentRepo
	rubrics     *fakeRubricRepo
	grading     *fakeGradingRepo
	engine      *fakeEngine
	audit       *fakeAuditRecorder
	events      *fakeEventPublisher
	redis       *miniredis.Miniredis
	service     *batchGradingService
}

func newBatchFixture(t *testing.T, submissions ...models.Submission) *batchFixture {
	t.Helper()

	f := &batchFixture{
		submissions: newFakeSubmissionRepo(submissions...),
		assignments: newFakeAssignmentRepo(sampleAssignment()),
		rubrics:     newFakeRubricRepo(sampleRubric()),
		grading:     &fakeGradingRepo{},
		engine:      &fakeEngine{},
		audit:       &fakeAuditRecorder{},
		events:      &fakeEventPublisher{},
		redis:       miniredis.RunT(t),
	}

	persister := NewGradingService(GradingServiceDeps{
		Submissions: f.submissions,
		Assignments: f.assignments,
		Rubrics:     f.rubrics,
		Grading:     f.grading,
		Engine:      f.engine,
		Validator:   validator.New(validator.WithRequiredStructEnabled()),
		Logger:      zerolog.Nop(),
	}).(*gradingService)
	persister.now = func() time.Time { return fixedNow }

	svc := NewBatchGradingService(BatchGradingServiceDeps{
		Submissions: f.submissions,
		Assignments: f.assignments,
		Rubrics:     f.rubrics,
		Persister:   persister,
		Engine:      f.engine,
		Audit:       f.audit,
		Events:      f.events,
		Redis:       redis.NewClient(&redis.Options{Addr: f.redis.Addr()}),
		Validator:   validator.New(validator.WithRequiredStructEnabled()),
		Concurrency: 2,
		Logger:      zerolog.Nop(),
	}).(*batchGradingService)
	svc.now = func() time.Time { return fixedNow }
	svc.newRunID = func() string { return "run-test-1" }
	f.service = svc
	return f
}

func batchSubmissions(n int) []models.Submission {
	submissions := make([]models.Submission, 0, n)
	for i := 1; i <= n; i++ {
		submissions = append(submissions, models.Submission{
			ID:           uint(i),
			AssignmentID: 3,
			StudentID:    uint(100 + i),
			Content:      fmt.Sprintf("essay %d", i),
			Status:       models.SubmissionStatusSubmitted,
			SubmittedAt:  fixedNow.Add(-time.Duration(n-i) * time.Minute),
		})
	}
	return submissions
}

func TestBatchGradeGradesEveryUngradedSubmission(t *testing.T) {
	f := newBatchFixture(t, batchSubmissions(3)...)
	actor := AuditActor{ID: 10, Role: models.RoleTeacher}

	resp, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{
		AssignmentID: 3,
		FeedbackTone: ai.ToneGrowthMindset,
	}, actor)
	require.NoError(t, err)

	require.Equal(t, 3, resp.Total)
	require.Equal(t, 3, resp.Graded)
	require.Equal(t, 0, resp.Failed)
	require.Equal(t, "run-test-1", resp.BatchRunID)
	require.Empty(t, resp.Errors)

	for id := uint(1); id <= 3; id++ {
		calls := f.grading.callsFor(id)
		require.Len(t, calls, 1, "submission %d", id)
		require.Equal(t, true, calls[0].Draft.AIMetadata["batchGraded"])
		require.Equal(t, "run-test-1", calls[0].Draft.AIMetadata["batchRunId"])
		require.Equal(t, []string{models.SubmissionStatusGrading}, f.submissions.statusHistory(id))
	}

	inputs := f.engine.recordedInputs()
	require.Len(t, inputs, 3)
	for _, input := range inputs {
		require.Equal(t, ai.ToneGrowthMindset, input.FeedbackTone)
		require.True(t, strings.HasPrefix(input.StudentWork, "essay "))
	}

	events := f.events.published()
	require.Len(t, events, 3)
	for _, event := range events {
		require.Equal(t, "run-test-1", event.BatchRunID)
	}

	require.Len(t, f.audit.recorded(), 3)
}

func TestBatchGradeSingleFailureDoesNotAbortBatch(t *testing.T) {
	f := newBatchFixture(t, batchSubmissions(5)...)
	f.engine.gradeFn = func(_ context.Context, input ai.GradeInput) (ai.GradingResult, error) {
		if input.StudentWork == "essay 2" || input.StudentWork == "essay 4" {
			return ai.GradingResult{}, errors.New("model timeout")
		}
		return sampleResult(), nil
	}

	resp, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 3}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)

	require.Equal(t, 5, resp.Total)
	require.Equal(t, 3, resp.Graded)
	require.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Errors, 2)

	failed := map[uint]bool{}
	for _, batchErr := range resp.Errors {
		failed[batchErr.SubmissionID] = true
		require.Contains(t, batchErr.Reason, "model timeout")
	}
	require.True(t, failed[2])
	require.True(t, failed[4])

	require.Equal(t, models.SubmissionStatusSubmitted, f.submissions.currentStatus(2))
	require.Equal(t, models.SubmissionStatusSubmitted, f.submissions.currentStatus(4))
	require.Empty(t, f.grading.callsFor(2))
	require.Empty(t, f.grading.callsFor(4))
	require.Len(t, f.grading.callsFor(1), 1)

	require.Len(t, f.audit.recorded(), 3)
	require.Len(t, f.events.published(), 3)
}

func TestBatchGradeNoUngradedSubmissions(t *testing.T) {
	graded := batchSubmissions(1)[0]
	graded.Status = models.SubmissionStatusGraded
	f := newBatchFixture(t, graded)

	resp, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 3}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)

	require.Zero(t, resp.Total)
	require.Zero(t, resp.Graded)
	require.Zero(t, resp.Failed)
	require.NotNil(t, resp.Errors)
	require.Empty(t, f.engine.recordedInputs())
}

func TestBatchGradeRejectsConcurrentRun(t *testing.T) {
	f := newBatchFixture(t, batchSubmissions(2)...)
	require.NoError(t, f.redis.Set("gradia:batch:lock:3", "other-run"))

	_, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 3}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrBatchInProgress)
	require.Empty(t, f.engine.recordedInputs())
}

func TestBatchGradeReleasesLock(t *testing.T) {
	f := newBatchFixture(t, batchSubmissions(2)...)

	_, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 3}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)

	require.False(t, f.redis.Exists("gradia:batch:lock:3"))
}

func TestBatchGradeWithoutRedisProceeds(t *testing.T) {
	f := newBatchFixture(t, batchSubmissions(2)...)
	f.service.redis = nil

	resp, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 3}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Graded)
}

func TestBatchGradeUnknownAssignment(t *testing.T) {
	f := newBatchFixture(t)

	_, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 404}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestBatchGradeForbiddenForOtherTeacher(t *testing.T) {
	f := newBatchFixture(t, batchSubmissions(1)...)

	_, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 3}, AuditActor{ID: 55, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrAssignmentForbidden)
}

func TestBatchGradeCorruptRubric(t *testing.T) {
	f := newBatchFixture(t, batchSubmissions(1)...)
	rubric := sampleRubric()
	rubric.Criteria[0].Descriptors = "{broken"
	f.rubrics.rubrics[rubric.ID] = rubric

	_, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{AssignmentID: 3}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrRubricDataCorrupt)
	require.Empty(t, f.submissions.statusHistory(1))
}

func TestBatchGradeValidatesRequest(t *testing.T) {
	f := newBatchFixture(t)

	_, err := f.service.BatchGrade(context.Background(), dto.BatchGradeRequest{}, AuditActor{ID: 10, Role: models.RoleTeacher})
	require.Error(t, err)
}
