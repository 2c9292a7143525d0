package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/repository"
)

// AuditActor represents the authenticated actor performing a grading action.
type AuditActor struct {
	ID   uint
	Role string
}

// AuditEntry captures the details required to persist one audit record.
type AuditEntry struct {
	EntityType string
	EntityID   uint
	Action     string
	UserID     *uint
	Before     map[string]interface{}
	After      map[string]interface{}
	AIModel    string
	AIPrompt   string
}

// AuditRecorder defines behaviour for appending audit records. The trail is
// append-only; nothing in the grading pipeline reads it back.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) (dto.AuditLogResponse, error)
}

// AuditService exposes methods to append and query the audit trail.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
}

type auditService struct {
	repo      repository.AuditLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuditService constructs the audit trail service.
func NewAuditService(repo repository.AuditLogRepository, validator *validator.Validate, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) (dto.AuditLogResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.AuditLogResponse{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return dto.AuditLogResponse{}, fmt.Errorf("entity type is required")
	}

	model := models.AuditLog{
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		UserID:     entry.UserID,
		Before:     sanitizeSnapshot(entry.Before),
		After:      sanitizeSnapshot(entry.After),
		AIModel:    entry.AIModel,
		AIPrompt:   entry.AIPrompt,
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist audit log")
		return dto.AuditLogResponse{}, err
	}

	return dto.NewAuditLogResponse(model), nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuditLogListResponse{}, err
	}

	filter := repository.AuditLogFilter{
		EntityType: strings.TrimSpace(req.EntityType),
		EntityID:   req.EntityID,
		Action:     strings.TrimSpace(req.Action),
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditLogListResponse{}, err
	}

	responses := make([]dto.AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditLogResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AuditLogListResponse{Items: responses, Pagination: pagination}, nil
}

func sanitizeSnapshot(snapshot map[string]interface{}) datatypes.JSONMap {
	if snapshot == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range snapshot {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
