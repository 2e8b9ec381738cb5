package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

func TestDetectGithubURL(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"no links here":                      "",
		"see https://gitlab.com/a/b":         "",
		"https://github.com/sari/portfolio":  "https://github.com/sari/portfolio",
		"(https://www.github.com/a/b-c_d.e)": "https://www.github.com/a/b-c_d.e",
		"HTTP://GitHub.com/Sari/Repo!":       "HTTP://GitHub.com/Sari/Repo",
		"first https://github.com/one/repo then https://github.com/two/repo": "https://github.com/one/repo",
		"<a href=\"https://github.com/sari/site\">repo</a>":                    "https://github.com/sari/site",
	}

	for input, expected := range cases {
		require.Equal(t, expected, detectGithubURL(input), input)
	}
}

func TestChoosePath(t *testing.T) {
	withFiles := models.Submission{Files: []models.SubmissionFile{{FileName: "a.py"}}}
	textOnly := models.Submission{OnlineText: "essay"}
	both := models.Submission{OnlineText: "essay", Files: withFiles.Files}

	require.Equal(t, PathGithub, choosePath(both, "https://github.com/a/b"))
	require.Equal(t, PathArchive, choosePath(both, ""))
	require.Equal(t, PathArchive, choosePath(withFiles, ""))
	require.Equal(t, PathText, choosePath(textOnly, ""))
	require.Equal(t, PathArchive, choosePath(models.Submission{OnlineText: "   "}, ""))
}

func TestSuggestedFeedback(t *testing.T) {
	feedback := suggestedFeedback(evaluator.Report{
		Summary:            "Solid work overall.",
		Strengths:          []string{"Clear naming", "Good tests"},
		AreasOfImprovement: []string{"Add a README"},
	})

	expected := "Solid work overall.\n\n" +
		"Strengths:\n• Clear naming\n• Good tests\n\n" +
		"Areas for Improvement:\n• Add a README"
	require.Equal(t, expected, feedback)

	require.Equal(t, "Strengths:\n• Fast", suggestedFeedback(evaluator.Report{Strengths: []string{"Fast"}}))
	require.Empty(t, suggestedFeedback(evaluator.Report{}))
}

func TestClampGrade(t *testing.T) {
	require.Equal(t, 0.0, clampGrade(-3))
	require.Equal(t, 55.5, clampGrade(55.5))
	require.Equal(t, 100.0, clampGrade(140))
}

func TestBuildCriteriaForArchive(t *testing.T) {
	criteria := buildCriteria(
		models.Activity{Name: "Calculator", Intro: "<p>Build &amp; test a calculator</p>"},
		models.Course{FullName: "Intro to Python"},
		false,
	)

	require.Contains(t, criteria, "Assignment: Calculator\n")
	require.Contains(t, criteria, "Description: Build & test a calculator\n")
	require.Contains(t, criteria, "Course: Intro to Python\n")
	require.Contains(t, criteria, "Evaluation Criteria:\n")
	require.Contains(t, criteria, "- Code Quality and Structure (35 points)")
	require.Contains(t, criteria, "- Functionality and Correctness (45 points)")
	require.Contains(t, criteria, "- Documentation and Comments (20 points)")
	require.NotContains(t, criteria, "Repository Management")
}

func TestBuildSubmissionArchiveWithoutContent(t *testing.T) {
	data, err := buildSubmissionArchive(context.Background(), models.Submission{}, nil)
	require.NoError(t, err)

	contents := readArchive(t, data)
	require.Len(t, contents, 1)
	require.Equal(t, archiveNoFilesBody, contents[archiveNoFilesName])
}

func TestBuildSubmissionArchiveWithoutFileSource(t *testing.T) {
	_, err := buildSubmissionArchive(context.Background(), models.Submission{
		Files: []models.SubmissionFile{{FileName: "a.py", FileURL: "https://files.example.com/a.py"}},
	}, nil)
	require.ErrorIs(t, err, ErrSubmissionFileUnavailable)
}

func TestUniqueArchiveName(t *testing.T) {
	used := map[string]int{archiveTextName: 1}

	require.Equal(t, "main.py", uniqueArchiveName(used, "main.py"))
	require.Equal(t, "main_2.py", uniqueArchiveName(used, "main.py"))
	require.Equal(t, "submission_text_2.txt", uniqueArchiveName(used, "submission_text.txt"))
	require.Equal(t, "passwd", uniqueArchiveName(used, "../../etc/passwd"))
	require.Equal(t, "evil.exe", uniqueArchiveName(used, `C:\temp\evil.exe`))
	require.Equal(t, "file", uniqueArchiveName(used, "  "))
}
