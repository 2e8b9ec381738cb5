package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// FileSource reads the bytes of a submitted file.
type FileSource interface {
	Fetch(ctx context.Context, file models.SubmissionFile) ([]byte, error)
}

type httpFileSource struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFileSource downloads submission files from their stored URL.
func NewHTTPFileSource(timeout time.Duration, maxBytes int64) FileSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpFileSource{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxBytes: maxBytes,
	}
}

func (s *httpFileSource) Fetch(ctx context.Context, file models.SubmissionFile) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.FileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build file request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, s.maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.maxBytes)
	}

	return data, nil
}
