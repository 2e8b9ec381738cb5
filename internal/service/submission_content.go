package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

// Evaluation paths chosen for a suggestion.
const (
	PathGithub  = "github"
	PathArchive = "archive"
	PathText    = "text"
)

const (
	archiveTextName    = "submission_text.txt"
	archiveNoFilesName = "no_files.txt"
	archiveNoFilesBody = "No files were submitted with this assignment."
)

var githubURLPattern = regexp.MustCompile(`(?i)https?://(www\.)?github\.com/[\w\-._~:/?#\[\]@!$&'()*+,;=]+`)

var stripPolicy = bluemonday.StrictPolicy()

// detectGithubURL returns the first GitHub URL found in the submission text.
func detectGithubURL(text string) string {
	match := githubURLPattern.FindString(text)
	if match == "" {
		return ""
	}
	return strings.TrimRight(match, ".,;:!?)]'")
}

// choosePath applies the routing precedence: GitHub URL, then files, then text.
// A submission without text or files still goes through the archive path so the
// evaluator is told that nothing was submitted.
func choosePath(submission models.Submission, githubURL string) string {
	switch {
	case githubURL != "":
		return PathGithub
	case len(submission.Files) > 0:
		return PathArchive
	case submission.HasText():
		return PathText
	default:
		return PathArchive
	}
}

func stripTags(value string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(value)))
}

func buildCriteria(activity models.Activity, course models.Course, github bool) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Assignment: %s\n", activity.Name))
	builder.WriteString(fmt.Sprintf("Description: %s\n", stripTags(activity.Intro)))
	builder.WriteString(fmt.Sprintf("Course: %s\n\n", course.FullName))

	if github {
		builder.WriteString("GitHub Repository Evaluation Criteria:\n")
	} else {
		builder.WriteString("Evaluation Criteria:\n")
	}
	builder.WriteString("- Code Quality and Structure (35 points)\n")
	builder.WriteString("- Functionality and Correctness (45 points)\n")
	builder.WriteString("- Documentation and Comments (20 points)\n")
	if github {
		builder.WriteString("- Repository Management (commit history, README, etc.)\n")
	}
	builder.WriteString("- Best Practices Implementation\n")

	return builder.String()
}

// buildSubmissionArchive zips the submission text and files. A file that
// cannot be fetched aborts the archive instead of being replaced by filler.
func buildSubmissionArchive(ctx context.Context, submission models.Submission, files FileSource) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	add := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", name, err)
		}
		_, err = w.Write(data)
		return err
	}

	if submission.HasText() {
		if err := add(archiveTextName, []byte(submission.OnlineText)); err != nil {
			return nil, err
		}
	}

	if len(submission.Files) == 0 {
		if err := add(archiveNoFilesName, []byte(archiveNoFilesBody)); err != nil {
			return nil, err
		}
	}

	used := map[string]int{archiveTextName: 1, archiveNoFilesName: 1}
	for _, file := range submission.Files {
		if files == nil {
			return nil, fmt.Errorf("%w: %s: no file source configured", ErrSubmissionFileUnavailable, file.FileName)
		}
		data, err := files.Fetch(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSubmissionFileUnavailable, file.FileName, err)
		}
		if err := add(uniqueArchiveName(used, file.FileName), data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	return buf.Bytes(), nil
}

func uniqueArchiveName(used map[string]int, name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "file"
	}

	count := used[name]
	used[name] = count + 1
	if count == 0 {
		return name
	}

	ext := path.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), count+1, ext)
}

// clampGrade bounds a suggested score to the 0..100 grading scale.
func clampGrade(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// suggestedFeedback renders the evaluator report as editable feedback text.
func suggestedFeedback(report evaluator.Report) string {
	builder := strings.Builder{}

	if summary := strings.TrimSpace(report.Summary); summary != "" {
		builder.WriteString(summary)
		builder.WriteString("\n\n")
	}

	if len(report.Strengths) > 0 {
		builder.WriteString("Strengths:\n")
		for _, strength := range report.Strengths {
			builder.WriteString("• " + strength + "\n")
		}
		builder.WriteString("\n")
	}

	if len(report.AreasOfImprovement) > 0 {
		builder.WriteString("Areas for Improvement:\n")
		for _, improvement := range report.AreasOfImprovement {
			builder.WriteString("• " + improvement + "\n")
		}
	}

	return strings.TrimSpace(builder.String())
}
