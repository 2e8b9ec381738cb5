package evaluator

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies evaluator failures.
type ErrorKind string

const (
	// KindConnectionFailed means the backend could not be reached.
	KindConnectionFailed ErrorKind = "connection_failed"
	// KindTimeout means the backend did not answer within the configured timeout.
	KindTimeout ErrorKind = "timeout"
	// KindBadResponse means the backend answered with an error status or an unreadable body.
	KindBadResponse ErrorKind = "bad_response"
)

// Error is returned by every Client operation that fails after the request was attempted.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("evaluator %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err is an evaluator error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var evalErr *Error
	if errors.As(err, &evalErr) {
		return evalErr.Kind == kind
	}
	return false
}

// Scores breaks the overall score down by rubric area.
type Scores struct {
	CodeQuality              float64 `json:"code_quality"`
	FunctionalityCorrectness float64 `json:"functionality_correctness"`
	Documentation            float64 `json:"documentation"`
}

// Report carries the narrative part of an evaluation.
type Report struct {
	Strengths          []string `json:"strengths"`
	AreasOfImprovement []string `json:"areas_of_improvement"`
	Summary            string   `json:"summary"`
}

// Result is the evaluation returned by the backend. It is never persisted.
type Result struct {
	OverallScore float64                `json:"overall_score"`
	Scores       Scores                 `json:"scores"`
	Report       Report                 `json:"report"`
	RepoStats    map[string]interface{} `json:"repo_stats,omitempty"`
}

// Document is a reference file attached to a project generation request.
// Content is plain text for txt documents and base64 for binary formats.
type Document struct {
	FileName string `json:"filename"`
	Content  string `json:"content"`
	Type     string `json:"type"`
}

// ProjectRequest asks the backend to draft a project description.
type ProjectRequest struct {
	Topics     string     `json:"topics"`
	Complexity string     `json:"complexity"`
	Documents  []Document `json:"documents"`
}

// GithubRepoRequest asks the backend to evaluate a public repository.
type GithubRepoRequest struct {
	RepoURL      string
	Criteria     string
	AssignmentID uint
	UserID       uint
}

// TextEvaluator grades plain submission text.
type TextEvaluator interface {
	EvaluateSubmissionText(ctx context.Context, text string, maxGrade float64) (Result, error)
}
