package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/inquire/pkg/cache"
	"github.com/TFMV/inquire/pkg/models"
)

func setupChatRouter() (*chi.Mux, *MockResolver, *MockQueryExecutor) {
	resolver := &MockResolver{}
	executor := &MockQueryExecutor{}
	r := chi.NewRouter()
	NewChatHandler(resolver, executor, nopLogger{}, nopMetrics{}).RegisterRoutes(r)
	return r, resolver, executor
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestChatHandler_Chat(t *testing.T) {
	router, resolver, _ := setupChatRouter()

	data := &models.QueryResult{
		Columns: []string{"category", "total_sales"},
		Rows:    []models.Row{{"category": "Hardware", "total_sales": 10.5}},
	}
	resolver.On("Resolve", mock.Anything, "sales by category").Return(&models.ResolutionOutcome{
		RequestID:   "req-1",
		Explanation: "Hardware leads.",
		SQL:         "SELECT 1",
		Provenance:  models.ProvenanceLLM,
		Data:        data,
		Visualization: &models.VisualizationSpec{
			Type:   models.VisualizationBar,
			Config: models.VisualizationConfig{XAxis: "category", YAxis: "total_sales", Title: "Categorical Analysis"},
		},
	})

	body := `{"messages":[{"role":"user","content":"hello"},{"role":"user","content":"sales by category"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeChat(t, rec)
	assert.Equal(t, "assistant", resp.Role)

	var content map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.Content), &content))
	assert.Equal(t, "Hardware leads.", content["explanation"])
	assert.Equal(t, "SELECT 1", content["sql"])
	assert.Equal(t, []interface{}{"category", "total_sales"}, content["data"].(map[string]interface{})["columns"])
	assert.Equal(t, "bar", content["visualization"].(map[string]interface{})["type"])
	resolver.AssertExpectations(t)
}

func TestChatHandler_ChatFailedOutcome(t *testing.T) {
	router, resolver, _ := setupChatRouter()
	resolver.On("Resolve", mock.Anything, "revenue").Return(&models.ResolutionOutcome{
		Explanation: "I couldn't execute that query. There might be an issue with the SQL syntax or the requested data.",
		SQL:         "SELECT SUM(total_amount) FROM orders",
		Error:       "Catalog Error: Table with name orders does not exist!",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"revenue"}]}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	var content map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(decodeChat(t, rec).Content), &content))
	assert.Equal(t, "Catalog Error: Table with name orders does not exist!", content["error"])
	assert.Nil(t, content["data"])
	assert.Nil(t, content["visualization"])
}

func TestChatHandler_ChatBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"messages":`},
		{"no messages", `{"messages":[]}`},
		{"blank question", `{"messages":[{"role":"user","content":"   "}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, resolver, _ := setupChatRouter()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusOK, rec.Code)
			resp := decodeChat(t, rec)
			assert.Equal(t, "assistant", resp.Role)
			assert.Equal(t, ChatErrorContent, resp.Content)
			resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		})
	}
}

func TestChatHandler_ClearCache(t *testing.T) {
	router, _, executor := setupChatRouter()
	executor.On("ClearCache", mock.Anything).Return(3)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/cache/clear", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ClearCacheResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ClearCacheResponse{Success: true, Message: "Query cache cleared", Evicted: 3}, resp)
}

func TestChatHandler_CacheStats(t *testing.T) {
	router, _, executor := setupChatRouter()
	executor.On("CacheStats").Return(cache.Stats{Hits: 4, Misses: 1, Size: 2, Capacity: 100})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats cache.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, uint64(4), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 100, stats.Capacity)
}

func TestChatHandler_Schema(t *testing.T) {
	router, _, executor := setupChatRouter()
	executor.On("GetSchema", mock.Anything).Return([]models.TableInfo{
		{Name: "regions", Columns: []models.ColumnInfo{{Name: "id", Type: "INTEGER"}}, RowCount: 7},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"regions","columns":[{"name":"id","type":"INTEGER"}],"rowCount":7}]`, rec.Body.String())
}
