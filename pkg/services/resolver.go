package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/fallback"
	"github.com/TFMV/inquire/pkg/llm"
	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/visualization"
)

// Explanations attached to outcomes that did not go the normal way.
const (
	ExplanationCompletionFailed = "I'm using a simplified analysis mode due to AI service limitations. Here are the results based on your query."
	ExplanationNotSQL           = "I'm using a simplified analysis mode. Here are the results based on your query."
	ExplanationRetried          = "I couldn't execute the initial query, so I'm using a simplified approach. Here are the results:"
	ExplanationFailed           = "I couldn't execute that query. There might be an issue with the SQL syntax or the requested data."
)

const (
	generationMaxTokens = 500
	summaryMaxTokens    = 300
	summarySampleRows   = 3
)

const generationSystemPrompt = `You are an expert SQL analyst. Your task is to convert natural language questions about business data into SQL queries.

The database has the following schema:
- customers (id, name, email, sgmt, created_at, region_id)
- orders (id, customer_id, order_date, status, total_amount)
- order_items (id, order_id, product_id, qty, unit_price)
- products (id, p_name, category, subcategory, price, cost)
- regions (id, name, country)

Some tables and columns have poor naming conventions. For example:
- The 'customers' table has a column 'sgmt' which means 'segment'
- The 'products' table has a column 'p_name' instead of 'name'
- The 'order_items' table has a column 'qty' instead of 'quantity'

Generate only the SQL query without any explanation or markdown formatting. Do not include ` + "```" + ` or sql tags. Make sure the query is valid DuckDB SQL.`

// Reasons a generation asks for the rule matcher.
const (
	reasonCompletionFailed = "completion failed"
	reasonNotSQL           = "completion output is not SQL"
)

// resolutionState is a step of the resolution pipeline.
type resolutionState int

const (
	stateGenerating resolutionState = iota
	stateExecuting
	stateClassifying
	stateDone
)

// String implements fmt.Stringer.
func (s resolutionState) String() string {
	switch s {
	case stateGenerating:
		return "generating"
	case stateExecuting:
		return "executing"
	case stateClassifying:
		return "classifying"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// resolver implements Resolver.
type resolver struct {
	completer  llm.Completer
	executor   QueryExecutor
	classifier *StatementClassifier
	logger     Logger
	metrics    MetricsCollector
}

// NewResolver creates a new resolver.
func NewResolver(completer llm.Completer, executor QueryExecutor, logger Logger, metrics MetricsCollector) Resolver {
	return &resolver{
		completer:  completer,
		executor:   executor,
		classifier: NewStatementClassifier(),
		logger:     logger,
		metrics:    metrics,
	}
}

// resolution carries one request through the pipeline.
type resolution struct {
	id       string
	question string
	state    resolutionState
	query    models.GeneratedQuery
	result   *models.QueryResult
	outcome  *models.ResolutionOutcome
}

// Resolve always returns an outcome. Generation problems are absorbed by the
// rule matcher; an execution failure that survives the single retry is
// reported inside the outcome.
func (r *resolver) Resolve(ctx context.Context, question string) *models.ResolutionOutcome {
	timer := r.metrics.StartTimer("resolution")
	defer timer.Stop()

	res := &resolution{
		id:       uuid.New().String(),
		question: question,
		state:    stateGenerating,
	}

	for res.state != stateDone {
		r.logger.Debug("Resolution step", "request_id", res.id, "state", res.state.String())
		switch res.state {
		case stateGenerating:
			r.generating(ctx, res)
		case stateExecuting:
			r.executing(ctx, res)
		case stateClassifying:
			r.classifying(ctx, res)
		}
	}

	if res.outcome.Failed() {
		r.metrics.IncrementCounter("resolution_failures")
	} else {
		r.metrics.IncrementCounter("resolutions", "provenance", string(res.query.Provenance))
	}
	return res.outcome
}

func (r *resolver) generating(ctx context.Context, res *resolution) {
	gen := r.generate(ctx, res.question)
	switch gen.Kind {
	case models.GenerationOK:
		res.query = models.GeneratedQuery{SQL: gen.SQL, Provenance: models.ProvenanceLLM}
	default:
		explanation := ExplanationNotSQL
		if gen.Reason == reasonCompletionFailed {
			explanation = ExplanationCompletionFailed
		}
		r.useFallback(res, explanation, gen.Reason)
	}
	res.state = stateExecuting
}

// generate asks the completer for SQL. It never fails; any problem yields a
// generation that needs the fallback.
func (r *resolver) generate(ctx context.Context, question string) models.Generation {
	text, err := r.completer.Complete(ctx, llm.Request{
		System:    generationSystemPrompt,
		Prompt:    question,
		MaxTokens: generationMaxTokens,
	})
	if err != nil {
		r.metrics.IncrementCounter("generation_errors")
		r.logger.Warn("SQL generation failed", "error", err)
		return models.NeedsFallback(reasonCompletionFailed)
	}

	sql, ok := r.classifier.CleanSQL(text)
	if !ok {
		r.logger.Warn("Generated text is not SQL", "text", text)
		return models.NeedsFallback(reasonNotSQL)
	}
	if r.classifier.IsDangerous(sql) {
		r.logger.Warn("Generated SQL modifies data or schema",
			"sql", sql,
			"statement_type", r.classifier.Classify(sql).String())
	}
	return models.GenerationOf(sql)
}

func (r *resolver) useFallback(res *resolution, explanation, reason string) {
	rule := fallback.MatchRule(res.question)
	r.metrics.IncrementCounter("fallback_used", "rule", rule.Name)
	r.logger.Info("Using fallback query",
		"request_id", res.id,
		"rule", rule.Name,
		"reason", reason)
	res.query = models.GeneratedQuery{
		SQL:         rule.SQL,
		Provenance:  models.ProvenanceFallback,
		Explanation: explanation,
	}
}

func (r *resolver) executing(ctx context.Context, res *resolution) {
	result, err := r.executor.Execute(ctx, res.query.SQL, true)
	if err == nil {
		res.result = result
		res.state = stateClassifying
		return
	}

	if res.query.Provenance == models.ProvenanceLLM {
		r.logger.Warn("Generated SQL failed, retrying with fallback",
			"request_id", res.id,
			"sql", res.query.SQL,
			"error", err)
		r.useFallback(res, ExplanationRetried, "execution failed")
		return
	}

	r.logger.Error("Query execution failed",
		"request_id", res.id,
		"sql", res.query.SQL,
		"error", err)
	res.outcome = &models.ResolutionOutcome{
		RequestID:   res.id,
		Explanation: ExplanationFailed,
		SQL:         res.query.SQL,
		Provenance:  res.query.Provenance,
		Error:       storeMessage(err),
	}
	res.state = stateDone
}

func (r *resolver) classifying(ctx context.Context, res *resolution) {
	explanation := res.query.Explanation
	if explanation == "" {
		explanation = r.summarize(ctx, res.question, res.query.SQL, res.result)
	}

	res.outcome = &models.ResolutionOutcome{
		RequestID:     res.id,
		Explanation:   explanation,
		SQL:           res.query.SQL,
		Provenance:    res.query.Provenance,
		Data:          res.result,
		Visualization: visualization.ClassifyResult(res.result),
	}
	res.state = stateDone
}

// summarize asks the completer to explain a result, falling back to a
// templated summary.
func (r *resolver) summarize(ctx context.Context, question, sql string, result *models.QueryResult) string {
	text, err := r.completer.Complete(ctx, llm.Request{
		Prompt:    summaryPrompt(question, sql, result),
		MaxTokens: summaryMaxTokens,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			r.metrics.IncrementCounter("summary_errors")
			r.logger.Warn("Result summary failed", "error", err)
		}
		return templateSummary(result, "Here are the results of your query. Found %d results.")
	}
	return strings.TrimSpace(text)
}

func summaryPrompt(question, sql string, result *models.QueryResult) string {
	cols, _ := json.Marshal(result.Columns)
	sample, _ := json.Marshal(result.Head(summarySampleRows))
	return fmt.Sprintf(`Analyze these SQL query results and provide a brief explanation:

User question: %s
SQL query: %s

Results:
Columns: %s
Sample rows: %s
Total rows: %d

Keep your explanation concise and focused on the data insights. Do not include any markdown formatting.`,
		question, sql, cols, sample, result.RowCount())
}

// templateSummary describes a result without the completer. manyFormat
// receives the row count.
func templateSummary(result *models.QueryResult, manyFormat string) string {
	switch {
	case result.RowCount() == 0:
		return "No data found for your query."
	case result.RowCount() == 1 && len(result.Columns) == 1:
		return fmt.Sprintf("The result is %s.", formatScalar(result.Rows[0][result.Columns[0]]))
	default:
		return fmt.Sprintf(manyFormat, result.RowCount())
	}
}

func formatScalar(v interface{}) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}

// storeMessage returns the innermost error text, which is what the store
// reported.
func storeMessage(err error) string {
	if root := errors.RootCause(err); root != nil {
		return root.Error()
	}
	return err.Error()
}
