package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gradia",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gradia",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of AI grading failures",
	}, []string{"model"})
)

// Feedback tones supported by the grading prompt.
const (
	ToneEncouraging   = "encouraging"
	ToneDirect        = "direct"
	ToneSocratic      = "socratic"
	ToneGrowthMindset = "growth_mindset"
)

var toneInstructions = map[string]string{
	ToneEncouraging:   "Use a warm, encouraging tone. Lead with what the student did well and frame areas for improvement as opportunities for growth.",
	ToneDirect:        "Use a clear, direct tone. State what the student demonstrated and what is missing, specifically and factually.",
	ToneSocratic:      "Use a Socratic tone that prompts reflection. Ask guiding questions that lead the student to identify their own strengths and gaps.",
	ToneGrowthMindset: "Use a growth-mindset tone that emphasizes effort, strategy, and learning from mistakes. Frame abilities as developable.",
}

// OpenAIConfig defines configuration options for the OpenAI grading engine.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIEngine implements GradingEngine against the OpenAI chat completion API.
type OpenAIEngine struct {
	client *openai.Client
	cfg    OpenAIConfig
	schema resultValidator
	tracer trace.Tracer
	logger zerolog.Logger
}

type resultValidator interface {
	Validate(v interface{}) error
}

// NewOpenAIEngine builds a new grading engine using the provided configuration.
func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	schema, err := compileGradingResultSchema()
	if err != nil {
		return nil, err
	}

	tracer := otel.Tracer("github.com/noah-isme/gradia-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIEngine{
		client: client,
		cfg:    cfg,
		schema: schema,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Model returns the configured model identifier.
func (e *OpenAIEngine) Model() string {
	return e.cfg.Model
}

// Grade sends the grading request to OpenAI and parses the structured judgment.
func (e *OpenAIEngine) Grade(parent context.Context, input GradeInput) (GradingResult, error) {
	ctx, span := e.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Int("rubric.criteria", len(input.Rubric.Criteria)),
	))
	defer span.End()

	system, err := buildSystemPrompt(input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradingResult{}, err
	}

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "Grade this student's work:\n\n" + input.StudentWork,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradingResult{}, fmt.Errorf("openai grade: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradingResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := e.parseGradingResponse(content)
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradingResult{}, err
	}

	span.SetAttributes(
		attribute.Float64("grading.total_score", result.TotalScore),
		attribute.String("grading.letter_grade", result.LetterGrade),
	)

	return result, nil
}

func buildSystemPrompt(input GradeInput) (string, error) {
	tone, ok := toneInstructions[input.FeedbackTone]
	if !ok {
		tone = toneInstructions[ToneEncouraging]
	}

	rubricJSON, err := json.Marshal(input.Rubric)
	if err != nil {
		return "", fmt.Errorf("marshal rubric input: %w", err)
	}

	assignmentJSON, err := json.Marshal(input.Assignment)
	if err != nil {
		return "", fmt.Errorf("marshal assignment input: %w", err)
	}

	builder := strings.Builder{}
	builder.WriteString("You are an expert K-12 teacher grading student work against a rubric, criterion by criterion. ")
	builder.WriteString("Your feedback is specific, referencing the student's actual words and ideas. You identify patterns that suggest common misconceptions.\n\n")
	builder.WriteString("FEEDBACK TONE:\n")
	builder.WriteString(tone)
	builder.WriteString("\n\nGRADING INSTRUCTIONS:\n")
	builder.WriteString("1. Evaluate every rubric criterion independently, selecting the proficiency level that best matches the work.\n")
	builder.WriteString("2. Score each criterion as the 0-based level index divided by (number of levels - 1), scaled by the criterion's weight share of 100.\n")
	builder.WriteString("3. Justify each criterion score with specific evidence from the student's work.\n")
	builder.WriteString("4. List overall strengths (2-4), improvements (2-4), next steps (2-3), and any detected misconceptions (0-3).\n")
	builder.WriteString("5. Assign a letter grade from the total percentage: A (90-100), B (80-89), C (70-79), D (60-69), F (below 60).\n")
	if input.TeacherGuidance != "" {
		builder.WriteString("\nTEACHER GUIDANCE:\n")
		builder.WriteString(input.TeacherGuidance)
		builder.WriteString("\n")
	}
	builder.WriteString("\nRUBRIC:\n")
	builder.Write(rubricJSON)
	builder.WriteString("\n\nASSIGNMENT:\n")
	builder.Write(assignmentJSON)
	builder.WriteString("\n\nRespond with a single JSON object containing criterionScores (criterionId, criterionName, level, score, maxScore, justification), totalScore, maxScore, letterGrade, overallFeedback, strengths, improvements, nextSteps, and misconceptions.")

	return builder.String(), nil
}

func (e *OpenAIEngine) parseGradingResponse(content string) (GradingResult, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return GradingResult{}, fmt.Errorf("parse grading json: %w", err)
	}

	if err := e.schema.Validate(raw); err != nil {
		return GradingResult{}, fmt.Errorf("grading json failed schema validation: %w", err)
	}

	var result GradingResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return GradingResult{}, fmt.Errorf("decode grading json: %w", err)
	}

	normalizeResult(&result)
	return result, nil
}

func normalizeResult(result *GradingResult) {
	for i := range result.CriterionScores {
		cs := &result.CriterionScores[i]
		if cs.Score < 0 {
			cs.Score = 0
		}
		if cs.MaxScore > 0 && cs.Score > cs.MaxScore {
			cs.Score = cs.MaxScore
		}
	}

	if result.TotalScore < 0 {
		result.TotalScore = 0
	}
	if result.MaxScore > 0 && result.TotalScore > result.MaxScore {
		result.TotalScore = result.MaxScore
	}

	result.LetterGrade = strings.ToUpper(strings.TrimSpace(result.LetterGrade))
}
