package ai

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hub",
		Subsystem: "ai",
		Name:      "text_evaluation_duration_seconds",
		Help:      "Duration of OpenAI text evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Subsystem: "ai",
		Name:      "text_evaluation_failures_total",
		Help:      "Number of OpenAI text evaluation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI text evaluator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIEvaluator grades plain submission text with the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

var _ evaluator.TextEvaluator = (*OpenAIEvaluator)(nil)

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 700
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIEvaluator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/ai-project-hub/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_evaluator").Logger(),
	}, nil
}

// EvaluateSubmissionText asks the model for a grade out of maxGrade with feedback.
func (e *OpenAIEvaluator) EvaluateSubmissionText(parent context.Context, text string, maxGrade float64) (evaluator.Result, error) {
	ctx, span := e.tracer.Start(parent, "openai.evaluate_submission", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: evaluatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(text, maxGrade),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return evaluator.Result{}, e.fail(span, classify(err), err)
	}

	if len(resp.Choices) == 0 {
		return evaluator.Result{}, e.fail(span, evaluator.KindBadResponse, fmt.Errorf("no choices returned from openai"))
	}

	result, err := parseEvaluationResponse(strings.TrimSpace(resp.Choices[0].Message.Content), maxGrade)
	if err != nil {
		return evaluator.Result{}, e.fail(span, evaluator.KindBadResponse, err)
	}

	return result, nil
}

func (e *OpenAIEvaluator) fail(span trace.Span, kind evaluator.ErrorKind, err error) error {
	aiFailures.WithLabelValues(e.cfg.Model).Inc()
	evalErr := &evaluator.Error{Kind: kind, Op: "openai_evaluate_submission", Err: err}
	span.RecordError(evalErr)
	span.SetStatus(codes.Error, string(kind))
	e.logger.Warn().Err(err).Str("kind", string(kind)).Msg("openai evaluation failed")
	return evalErr
}

func classify(err error) evaluator.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return evaluator.KindTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return evaluator.KindBadResponse
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return evaluator.KindBadResponse
	}
	return evaluator.KindConnectionFailed
}

func evaluatorSystemPrompt() string {
	return "You are a teaching assistant grading student project submissions. Respond with a JSON object containing " +
		"grade (number), summary, strengths (array of strings), areas_of_improvement (array of strings) and scores " +
		"with code_quality, functionality_correctness and documentation, each between 0 and 100."
}

func buildUserPrompt(text string, maxGrade float64) string {
	builder := strings.Builder{}
	builder.WriteString("# Grading scale\n")
	builder.WriteString(fmt.Sprintf("Grade from 0 to %.0f.\n", maxGrade))
	builder.WriteString("\n## Rubric\n")
	builder.WriteString("Code quality 35%, functionality 45%, documentation 20%.\n")
	builder.WriteString("\n## Submission\n")
	builder.WriteString(text)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseEvaluationResponse(content string, maxGrade float64) (evaluator.Result, error) {
	type payload struct {
		Grade              float64          `json:"grade"`
		Summary            string           `json:"summary"`
		Strengths          []string         `json:"strengths"`
		AreasOfImprovement []string         `json:"areas_of_improvement"`
		Scores             evaluator.Scores `json:"scores"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return evaluator.Result{}, fmt.Errorf("parse evaluation json: %w", err)
	}

	if maxGrade <= 0 {
		maxGrade = 100
	}
	if data.Grade < 0 {
		data.Grade = 0
	}
	if data.Grade > maxGrade {
		data.Grade = maxGrade
	}

	return evaluator.Result{
		OverallScore: data.Grade / maxGrade * 100,
		Scores:       data.Scores,
		Report: evaluator.Report{
			Summary:            strings.TrimSpace(data.Summary),
			Strengths:          data.Strengths,
			AreasOfImprovement: data.AreasOfImprovement,
		},
	}, nil
}
