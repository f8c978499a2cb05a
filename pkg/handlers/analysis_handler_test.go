package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/models"
)

func TestAnalysisHandler_Analyze(t *testing.T) {
	executor := &MockQueryExecutor{}
	analyzer := &MockAnalyzer{}
	router := chi.NewRouter()
	NewAnalysisHandler(executor, analyzer, nopLogger{}, nopMetrics{}).RegisterRoutes(router)

	result := &models.QueryResult{
		Columns: []string{"name", "cnt"},
		Rows:    []models.Row{{"name": "North America", "cnt": int64(3)}},
	}
	sql := "SELECT name, COUNT(*) AS cnt FROM regions GROUP BY name"
	executor.On("Execute", mock.Anything, sql, true).Return(result, nil)
	analyzer.On("Analyze", mock.Anything, result, "regions?", sql).Return(&models.AnalysisOutcome{
		Explanation: "One region.",
		Columns:     result.Columns,
		Rows:        result.Rows,
		Visualization: &models.VisualizationSpec{
			Type:   models.VisualizationPie,
			Config: models.VisualizationConfig{CategoryField: "name", ValueField: "cnt"},
		},
	})

	body, err := json.Marshal(AnalyzeRequest{Question: "regions?", SQL: sql})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(string(body))))

	assert.Equal(t, http.StatusOK, rec.Code)
	var outcome models.AnalysisOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&outcome))
	assert.Equal(t, "One region.", outcome.Explanation)
	assert.Equal(t, []string{"name", "cnt"}, outcome.Columns)
	require.NotNil(t, outcome.Visualization)
	assert.Equal(t, models.VisualizationPie, outcome.Visualization.Type)

	executor.AssertExpectations(t)
	analyzer.AssertExpectations(t)
}

func TestAnalysisHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		execErr  error
		expected int
		code     string
	}{
		{
			name:     "malformed body",
			body:     `{"sql":`,
			expected: http.StatusBadRequest,
			code:     errors.CodeInvalidRequest,
		},
		{
			name:     "empty sql",
			body:     `{"question":"x","sql":"  "}`,
			execErr:  errors.ErrEmptyQuery,
			expected: http.StatusBadRequest,
			code:     errors.CodeEmptyQuery,
		},
		{
			name:     "execution failure",
			body:     `{"question":"x","sql":"SELECT * FROM nope"}`,
			execErr:  errors.Wrap(stderrors.New("Catalog Error"), errors.CodeExecutionFailed, "query execution failed"),
			expected: http.StatusUnprocessableEntity,
			code:     errors.CodeExecutionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &MockQueryExecutor{}
			analyzer := &MockAnalyzer{}
			router := chi.NewRouter()
			NewAnalysisHandler(executor, analyzer, nopLogger{}, nopMetrics{}).RegisterRoutes(router)

			if tt.execErr != nil {
				executor.On("Execute", mock.Anything, mock.Anything, true).Return(nil, tt.execErr)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expected, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
			analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
