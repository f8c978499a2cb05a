package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TFMV/inquire/pkg/llm"
	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/visualization"
)

const analysisPromptTemplate = `You are an expert data analyst. Analyze these SQL query results and provide insights.

User question: %s
SQL query: %s

Results:
Columns: %s
Sample rows: %s
Total rows: %d

Provide your analysis in JSON format with this structure:
{
  "explanation": "Your natural language explanation of the results",
  "visualization": {
    "type": "bar|line|pie",
    "config": {
      "xAxis": "column_name",
      "yAxis": "column_name",
      "categoryField": "column_name",
      "valueField": "column_name",
      "title": "Chart title"
    }
  }
}

Use xAxis and yAxis for bar and line charts, categoryField and valueField for pie charts.
Only include visualization if the data is appropriate for visualization.`

// analyzer implements Analyzer.
type analyzer struct {
	completer llm.Completer
	logger    Logger
	metrics   MetricsCollector
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(completer llm.Completer, logger Logger, metrics MetricsCollector) Analyzer {
	return &analyzer{
		completer: completer,
		logger:    logger,
		metrics:   metrics,
	}
}

type analysisResponse struct {
	Explanation   string                    `json:"explanation"`
	Visualization *models.VisualizationSpec `json:"visualization"`
}

// Analyze asks the completer for an explanation and chart. Unparseable output
// becomes the explanation; a failed call gets a templated summary. In both
// cases the chart comes from the visualization classifier.
func (a *analyzer) Analyze(ctx context.Context, result *models.QueryResult, question, sql string) *models.AnalysisOutcome {
	if result == nil {
		result = models.EmptyQueryResult()
	}
	outcome := &models.AnalysisOutcome{
		Columns: result.Columns,
		Rows:    result.Rows,
	}

	cols, _ := json.Marshal(result.Columns)
	sample, _ := json.Marshal(result.Head(summarySampleRows))
	text, err := a.completer.Complete(ctx, llm.Request{
		Prompt: fmt.Sprintf(analysisPromptTemplate, question, sql, cols, sample, result.RowCount()),
	})
	if err != nil {
		a.metrics.IncrementCounter("analysis_errors")
		a.logger.Warn("Result analysis failed", "error", err)
		outcome.Explanation = templateSummary(result, "Found %d results for your query.")
		outcome.Visualization = visualization.ClassifyResult(result)
		return outcome
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		a.logger.Debug("Analysis is not JSON, using it as text", "error", err)
		outcome.Explanation = strings.TrimSpace(text)
		outcome.Visualization = visualization.ClassifyResult(result)
		return outcome
	}

	outcome.Explanation = parsed.Explanation
	outcome.Visualization = parsed.Visualization
	return outcome
}

// stripFences removes a surrounding markdown code block, which completers
// often add around JSON.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
