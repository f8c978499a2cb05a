// Package models provides data structures used throughout the inquire pipeline.
package models

import (
	"fmt"
	"sort"
)

// Row is one result row keyed by column name.
type Row map[string]interface{}

// Field describes one column reported by a store.
type Field struct {
	Name     string `json:"name"`
	DataType string `json:"data_type,omitempty"`
}

// StoreResult is what a store hands back for a statement. A nil Fields slice
// means the store returned bare rows without column metadata.
type StoreResult struct {
	Fields []Field
	Rows   []Row
}

// QueryResult is the normalized tabular answer.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewQueryResult builds a validated result.
func NewQueryResult(columns []string, rows []Row) (*QueryResult, error) {
	r := &QueryResult{Columns: columns, Rows: rows}
	if r.Columns == nil {
		r.Columns = []string{}
	}
	if r.Rows == nil {
		r.Rows = []Row{}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// EmptyQueryResult returns a result with no columns and no rows.
func EmptyQueryResult() *QueryResult {
	return &QueryResult{Columns: []string{}, Rows: []Row{}}
}

// Validate checks that column names are unique and that every row carries
// exactly the declared columns.
func (r *QueryResult) Validate() error {
	seen := make(map[string]struct{}, len(r.Columns))
	for _, c := range r.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	for i, row := range r.Rows {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(r.Columns))
		}
		for _, c := range r.Columns {
			if _, ok := row[c]; !ok {
				return fmt.Errorf("row %d is missing column %q", i, c)
			}
		}
	}
	return nil
}

// RowCount returns the number of rows.
func (r *QueryResult) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Head returns at most n leading rows.
func (r *QueryResult) Head(n int) []Row {
	if r == nil {
		return nil
	}
	if n > len(r.Rows) {
		n = len(r.Rows)
	}
	return r.Rows[:n]
}

// FromStore normalizes the three shapes a store may hand back: fields plus
// rows, bare rows, or nothing at all.
func FromStore(res *StoreResult) (*QueryResult, error) {
	if res == nil {
		return EmptyQueryResult(), nil
	}
	if res.Fields != nil {
		cols := make([]string, len(res.Fields))
		for i, f := range res.Fields {
			cols[i] = f.Name
		}
		return NewQueryResult(cols, res.Rows)
	}
	if len(res.Rows) == 0 {
		return EmptyQueryResult(), nil
	}
	// Go maps carry no insertion order, so derived columns are sorted.
	cols := make([]string, 0, len(res.Rows[0]))
	for k := range res.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return NewQueryResult(cols, res.Rows)
}

// Provenance records where a query's SQL came from.
type Provenance string

const (
	ProvenanceLLM      Provenance = "llm"
	ProvenanceFallback Provenance = "fallback"
)

// GeneratedQuery is the SQL chosen for a question.
type GeneratedQuery struct {
	SQL         string     `json:"sql"`
	Provenance  Provenance `json:"provenance"`
	Explanation string     `json:"explanation,omitempty"`
}

// GenerationKind distinguishes usable generated SQL from a request to fall back.
type GenerationKind int

const (
	GenerationOK GenerationKind = iota
	GenerationNeedsFallback
)

// String implements fmt.Stringer.
func (k GenerationKind) String() string {
	switch k {
	case GenerationOK:
		return "ok"
	case GenerationNeedsFallback:
		return "needs_fallback"
	default:
		return "unknown"
	}
}

// Generation is the outcome of asking the completer for SQL.
type Generation struct {
	Kind   GenerationKind
	SQL    string
	Reason string
}

// GenerationOf returns a usable generation.
func GenerationOf(sql string) Generation {
	return Generation{Kind: GenerationOK, SQL: sql}
}

// NeedsFallback returns a generation that asks for the rule matcher.
func NeedsFallback(reason string) Generation {
	return Generation{Kind: GenerationNeedsFallback, Reason: reason}
}
