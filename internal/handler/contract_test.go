package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

func compileContract(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func fetchJSON(t *testing.T, h hubHarness, path string, userID uint, role string) interface{} {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	req.Header.Set("X-Test-Role", role)

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestSubmissionDetailContract(t *testing.T) {
	h := setupHubApp(t)
	f := h.fixture
	schema := compileContract(t, "submission_detail.schema.json")

	payload := fetchJSON(t, h, fmt.Sprintf("/api/v2/evaluator/submissions/%d?activity_id=%d&student_id=%d", f.Submission.ID, f.Activity.ID, f.Student.ID), teacherID, "teacher")
	require.NoError(t, schema.Validate(payload))
}

func TestEvaluatorDashboardContract(t *testing.T) {
	h := setupHubApp(t)
	schema := compileContract(t, "evaluator_dashboard.schema.json")

	payload := fetchJSON(t, h, "/api/v2/evaluator/courses", teacherID, "teacher")
	require.NoError(t, schema.Validate(payload))
}
