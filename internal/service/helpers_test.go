package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/repository"
	"github.com/noah-isme/gradia-go-api/pkg/ai"
)

var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

type statusUpdate struct {
	ID     uint
	Status string
}

type fakeSubmissionRepo struct {
	mu            sync.Mutex
	submissions   map[uint]models.Submission
	nextID        uint
	statusUpdates []statusUpdate
	listErr       error
}

func newFakeSubmissionRepo(submissions ...models.Submission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: map[uint]models.Submission{}, nextID: 1}
	for _, submission := range submissions {
		repo.submissions[submission.ID] = submission
		if submission.ID >= repo.nextID {
			repo.nextID = submission.ID + 1
		}
	}
	return repo
}

func (r *fakeSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}

	allowed := map[uint]bool{}
	for _, id := range filter.AssignmentIDs {
		allowed[id] = true
	}

	var out []models.Submission
	for _, submission := range r.submissions {
		if len(allowed) > 0 && !allowed[submission.AssignmentID] {
			continue
		}
		if filter.AssignmentID != nil && submission.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		out = append(out, submission)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *fakeSubmissionRepo) ListUngraded(_ context.Context, assignmentID uint) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}

	var out []models.Submission
	for _, submission := range r.submissions {
		if submission.AssignmentID == assignmentID && submission.Status == models.SubmissionStatusSubmitted {
			out = append(out, submission)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *fakeSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission.ID = r.nextID
	r.nextID++
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) Update(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) UpdateStatus(_ context.Context, id uint, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.Status = status
	r.submissions[id] = submission
	r.statusUpdates = append(r.statusUpdates, statusUpdate{ID: id, Status: status})
	return nil
}

func (r *fakeSubmissionRepo) statusHistory(id uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var history []string
	for _, update := range r.statusUpdates {
		if update.ID == id {
			history = append(history, update.Status)
		}
	}
	return history
}

func (r *fakeSubmissionRepo) currentStatus(id uint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submissions[id].Status
}

type fakeAssignmentRepo struct {
	assignments map[uint]models.Assignment
}

func newFakeAssignmentRepo(assignments ...models.Assignment) *fakeAssignmentRepo {
	repo := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{}}
	for _, assignment := range assignments {
		repo.assignments[assignment.ID] = assignment
	}
	return repo
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id uint) (models.Assignment, error) {
	assignment, ok := r.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (r *fakeAssignmentRepo) ListIDsByTeacher(_ context.Context, teacherID uint) ([]uint, error) {
	ids := []uint{}
	for _, assignment := range r.assignments {
		if assignment.TeacherID == teacherID {
			ids = append(ids, assignment.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeAssignmentRepo) Create(_ context.Context, assignment *models.Assignment) error {
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *fakeAssignmentRepo) Update(_ context.Context, assignment *models.Assignment) error {
	r.assignments[assignment.ID] = *assignment
	return nil
}

type fakeRubricRepo struct {
	rubrics map[uint]models.Rubric
}

func newFakeRubricRepo(rubrics ...models.Rubric) *fakeRubricRepo {
	repo := &fakeRubricRepo{rubrics: map[uint]models.Rubric{}}
	for _, rubric := range rubrics {
		repo.rubrics[rubric.ID] = rubric
	}
	return repo
}

func (r *fakeRubricRepo) GetByID(_ context.Context, id uint) (models.Rubric, error) {
	rubric, ok := r.rubrics[id]
	if !ok {
		return models.Rubric{}, gorm.ErrRecordNotFound
	}
	return rubric, nil
}

func (r *fakeRubricRepo) ListCriteria(_ context.Context, rubricID uint) ([]models.RubricCriterion, error) {
	rubric, ok := r.rubrics[rubricID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rubric.Criteria, nil
}

func (r *fakeRubricRepo) Create(_ context.Context, rubric *models.Rubric) error {
	r.rubrics[rubric.ID] = *rubric
	return nil
}

type replaceCall struct {
	SubmissionID uint
	Draft        models.FeedbackDraft
	Scores       []models.CriterionScore
	Update       repository.SubmissionGradeUpdate
}

type fakeGradingRepo struct {
	mu    sync.Mutex
	calls []replaceCall
	err   error
}

func (r *fakeGradingRepo) ReplaceResult(_ context.Context, submissionID uint, draft models.FeedbackDraft, scores []models.CriterionScore, update repository.SubmissionGradeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	draft.SubmissionID = submissionID
	for i := range scores {
		scores[i].SubmissionID = submissionID
	}
	r.calls = append(r.calls, replaceCall{SubmissionID: submissionID, Draft: draft, Scores: scores, Update: update})
	return nil
}

func (r *fakeGradingRepo) GetDraft(_ context.Context, submissionID uint) (models.FeedbackDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].SubmissionID == submissionID {
			return r.calls[i].Draft, nil
		}
	}
	return models.FeedbackDraft{}, gorm.ErrRecordNotFound
}

func (r *fakeGradingRepo) ListScores(_ context.Context, submissionID uint) ([]models.CriterionScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].SubmissionID == submissionID {
			return r.calls[i].Scores, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeGradingRepo) callsFor(submissionID uint) []replaceCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []replaceCall
	for _, call := range r.calls {
		if call.SubmissionID == submissionID {
			out = append(out, call)
		}
	}
	return out
}

type fakeEngine struct {
	mu      sync.Mutex
	gradeFn func(ctx context.Context, input ai.GradeInput) (ai.GradingResult, error)
	inputs  []ai.GradeInput
}

func (e *fakeEngine) Grade(ctx context.Context, input ai.GradeInput) (ai.GradingResult, error) {
	e.mu.Lock()
	e.inputs = append(e.inputs, input)
	fn := e.gradeFn
	e.mu.Unlock()
	if fn == nil {
		return sampleResult(), nil
	}
	return fn(ctx, input)
}

func (e *fakeEngine) Model() string { return "fake-grader-1" }

func (e *fakeEngine) recordedInputs() []ai.GradeInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ai.GradeInput(nil), e.inputs...)
}

type fakeAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (f *fakeAuditRecorder) Record(_ context.Context, entry AuditEntry) (dto.AuditLogResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return dto.AuditLogResponse{}, f.err
	}
	f.entries = append(f.entries, entry)
	return dto.AuditLogResponse{}, nil
}

func (f *fakeAuditRecorder) recorded() []AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AuditEntry(nil), f.entries...)
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []GradedEvent
}

func (f *fakeEventPublisher) PublishGraded(_ context.Context, event GradedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEventPublisher) published() []GradedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GradedEvent(nil), f.events...)
}

func sampleRubric() models.Rubric {
	return models.Rubric{
		ID:        7,
		Title:     "Persuasive Essay Rubric",
		Levels:    `["Beginning","Developing","Proficient","Advanced"]`,
		TeacherID: 10,
		Criteria: []models.RubricCriterion{
			{
				ID:          1,
				RubricID:    7,
				Name:        "Thesis",
				Description: "Clarity and strength of the central claim",
				Weight:      2,
				Descriptors: `{"Beginning":"No clear claim","Advanced":"Precise, arguable claim"}`,
			},
			{
				ID:          2,
				RubricID:    7,
				Name:        "Evidence",
				Description: "Use of supporting evidence",
				Weight:      1,
				Descriptors: `{"Beginning":"No evidence","Advanced":"Well-integrated evidence"}`,
			},
		},
	}
}

func sampleAssignment() models.Assignment {
	rubricID := uint(7)
	return models.Assignment{
		ID:          3,
		Title:       "Persuasive Essay",
		Description: "Argue a position on school uniforms",
		Subject:     "English",
		GradeLevel:  "8",
		TeacherID:   10,
		RubricID:    &rubricID,
	}
}

func sampleResult() ai.GradingResult {
	return ai.GradingResult{
		CriterionScores: []ai.CriterionScoreResult{
			{CriterionID: 1, CriterionName: "Thesis", Level: "Proficient", Score: 44.4, MaxScore: 66.7, Justification: "The claim is clear but could be sharper."},
			{CriterionID: 2, CriterionName: "Evidence", Level: "Advanced", Score: 33.3, MaxScore: 33.3, Justification: "Evidence is well integrated."},
		},
		TotalScore:      77.7,
		MaxScore:        100,
		LetterGrade:     "C",
		OverallFeedback: "A solid argument that would benefit from a sharper thesis.",
		Strengths:       []string{"Strong evidence"},
		Improvements:    []string{"Sharpen the thesis"},
		NextSteps:       []string{"Revise the opening paragraph"},
		Misconceptions:  []string{"Confuses opinion with evidence"},
	}
}
