package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	pathGenerateProject    = "/generate-project/"
	pathEvaluateProject    = "/evaluate-project/"
	pathEvaluateGithubRepo = "/evaluate-github-repo/"
	pathEvaluateSubmission = "/evaluate-submission/"

	archiveFileName = "submission.zip"
	maxErrorBody    = 512
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hub",
		Subsystem: "evaluator",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests to the AI evaluation backend",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"operation"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Subsystem: "evaluator",
		Name:      "request_failures_total",
		Help:      "Number of failed requests to the AI evaluation backend",
	}, []string{"operation", "kind"})
)

// Config defines how the client reaches the backend.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	Timeout        time.Duration
	Logger         zerolog.Logger
}

// Client talks to the AI evaluation backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// New builds a client. Connect timeout bounds dialing and TLS, Timeout bounds
// the whole exchange including model inference on the backend.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("evaluator base url is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		tracer: otel.Tracer("github.com/noah-isme/ai-project-hub/pkg/evaluator"),
		logger: cfg.Logger.With().Str("component", "evaluator_client").Logger(),
	}, nil
}

// GenerateProject drafts a project description for the given topics.
func (c *Client) GenerateProject(ctx context.Context, req ProjectRequest) (string, error) {
	const op = "generate_project"
	if req.Documents == nil {
		req.Documents = []Document{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode project request: %w", err)
	}

	var payload struct {
		ProjectDescription string `json:"project_description"`
		Error              string `json:"error"`
	}
	if err := c.do(ctx, op, pathGenerateProject, "application/json", bytes.NewReader(body), &payload); err != nil {
		return "", err
	}

	if payload.Error != "" {
		return "", c.fail(op, &Error{Kind: KindBadResponse, Op: op, Err: errors.New(payload.Error)})
	}
	description := strings.TrimSpace(payload.ProjectDescription)
	if description == "" {
		return "", c.fail(op, &Error{Kind: KindBadResponse, Op: op, Err: errors.New("empty project description")})
	}

	return description, nil
}

// EvaluateSubmissionText grades plain submission text against maxGrade. The
// returned overall score is expressed as a percentage of maxGrade.
func (c *Client) EvaluateSubmissionText(ctx context.Context, text string, maxGrade float64) (Result, error) {
	const op = "evaluate_submission"

	body, err := json.Marshal(map[string]interface{}{
		"text":      text,
		"max_grade": maxGrade,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode submission request: %w", err)
	}

	var payload struct {
		Grade    *float64 `json:"grade"`
		Feedback string   `json:"feedback"`
		Error    string   `json:"error"`
	}
	if err := c.do(ctx, op, pathEvaluateSubmission, "application/json", bytes.NewReader(body), &payload); err != nil {
		return Result{}, err
	}

	if payload.Error != "" {
		return Result{}, c.fail(op, &Error{Kind: KindBadResponse, Op: op, Err: errors.New(payload.Error)})
	}
	if payload.Grade == nil {
		return Result{}, c.fail(op, &Error{Kind: KindBadResponse, Op: op, Err: errors.New("response missing grade")})
	}

	score := *payload.Grade
	if maxGrade > 0 {
		score = score / maxGrade * 100
	}

	return Result{
		OverallScore: score,
		Report:       Report{Summary: strings.TrimSpace(payload.Feedback)},
	}, nil
}

// EvaluateProjectArchive uploads a zip of the submission with the grading criteria.
func (c *Client) EvaluateProjectArchive(ctx context.Context, archive []byte, criteria string) (Result, error) {
	const op = "evaluate_project"

	body, contentType, err := buildMultipart(map[string]string{"criteria": criteria}, archive)
	if err != nil {
		return Result{}, err
	}

	return c.evaluation(ctx, op, pathEvaluateProject, contentType, body)
}

// EvaluateGithubRepo asks the backend to clone and evaluate a repository.
func (c *Client) EvaluateGithubRepo(ctx context.Context, req GithubRepoRequest) (Result, error) {
	const op = "evaluate_github_repo"
	if strings.TrimSpace(req.RepoURL) == "" {
		return Result{}, fmt.Errorf("github url is required")
	}

	fields := map[string]string{
		"criteria":   req.Criteria,
		"github_url": req.RepoURL,
	}
	if req.AssignmentID != 0 {
		fields["assignment_id"] = strconv.FormatUint(uint64(req.AssignmentID), 10)
	}
	if req.UserID != 0 {
		fields["user_id"] = strconv.FormatUint(uint64(req.UserID), 10)
	}

	body, contentType, err := buildMultipart(fields, nil)
	if err != nil {
		return Result{}, err
	}

	return c.evaluation(ctx, op, pathEvaluateGithubRepo, contentType, body)
}

func (c *Client) evaluation(ctx context.Context, op, path, contentType string, body io.Reader) (Result, error) {
	var payload struct {
		Evaluation *Result `json:"evaluation"`
		Error      string  `json:"error"`
	}
	if err := c.do(ctx, op, path, contentType, body, &payload); err != nil {
		return Result{}, err
	}

	if payload.Error != "" {
		return Result{}, c.fail(op, &Error{Kind: KindBadResponse, Op: op, Err: errors.New(payload.Error)})
	}
	if payload.Evaluation == nil {
		return Result{}, c.fail(op, &Error{Kind: KindBadResponse, Op: op, Err: errors.New("response missing evaluation")})
	}

	return *payload.Evaluation, nil
}

func (c *Client) do(ctx context.Context, op, path, contentType string, body io.Reader, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "evaluator."+op, trace.WithAttributes(
		attribute.String("evaluator.path", path),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			span.SetStatus(codes.Error, "canceled")
			return fmt.Errorf("evaluator %s: %w", op, ctx.Err())
		}
		evalErr := &Error{Kind: classifyTransportError(err), Op: op, Err: err}
		span.RecordError(evalErr)
		span.SetStatus(codes.Error, string(evalErr.Kind))
		return c.fail(op, evalErr)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		evalErr := &Error{
			Kind:       KindBadResponse,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(snippet))),
		}
		span.RecordError(evalErr)
		span.SetStatus(codes.Error, "bad_status")
		return c.fail(op, evalErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		kind := KindBadResponse
		if isTimeout(err) {
			kind = KindTimeout
		}
		evalErr := &Error{Kind: kind, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		span.RecordError(evalErr)
		span.SetStatus(codes.Error, string(kind))
		return c.fail(op, evalErr)
	}

	return nil
}

func (c *Client) fail(op string, err *Error) error {
	requestFailures.WithLabelValues(op, string(err.Kind)).Inc()
	c.logger.Warn().Err(err).Str("operation", op).Str("kind", string(err.Kind)).Msg("evaluator request failed")
	return err
}

func classifyTransportError(err error) ErrorKind {
	if isTimeout(err) {
		return KindTimeout
	}
	return KindConnectionFailed
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func buildMultipart(fields map[string]string, archive []byte) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if archive != nil {
		part, err := writer.CreateFormFile("file", archiveFileName)
		if err != nil {
			return nil, "", fmt.Errorf("create archive part: %w", err)
		}
		if _, err := part.Write(archive); err != nil {
			return nil, "", fmt.Errorf("write archive part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}

	return buf, writer.FormDataContentType(), nil
}
