package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// GradedEvent is published after a grading result has been durably persisted.
// Delivery is best effort; grading never fails because the broker is down.
type GradedEvent struct {
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	TotalScore   float64   `json:"total_score"`
	MaxScore     float64   `json:"max_score"`
	LetterGrade  string    `json:"letter_grade"`
	BatchRunID   string    `json:"batch_run_id,omitempty"`
	GradedAt     time.Time `json:"graded_at"`
}

// EventPublisher announces grading outcomes to interested consumers.
type EventPublisher interface {
	PublishGraded(ctx context.Context, event GradedEvent)
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher constructs a publisher over an existing NATS
// connection. A nil connection yields a no-op publisher.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if subject == "" {
		subject = "gradia.submission.graded"
	}

	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishGraded(ctx context.Context, event GradedEvent) {
	if p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to encode graded event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish graded event")
	}
}
