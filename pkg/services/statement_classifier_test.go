package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementClassifier_Classify(t *testing.T) {
	classifier := NewStatementClassifier()

	tests := []struct {
		name     string
		sql      string
		expected StatementType
	}{
		{"CREATE TABLE", "CREATE TABLE test (id INT)", StatementTypeDDL},
		{"DROP TABLE", "DROP TABLE test", StatementTypeDDL},
		{"ALTER lowercase", "alter table test add column name varchar", StatementTypeDDL},
		{"TRUNCATE", "TRUNCATE TABLE test", StatementTypeDDL},

		{"INSERT", "INSERT INTO test VALUES (1)", StatementTypeDML},
		{"UPDATE lowercase", "update test set id = 3", StatementTypeDML},
		{"DELETE", "DELETE FROM test WHERE id = 1", StatementTypeDML},

		{"SELECT", "SELECT * FROM test", StatementTypeDQL},
		{"WITH CTE", "WITH cte AS (SELECT * FROM test) SELECT * FROM cte", StatementTypeDQL},
		{"SELECT with whitespace", "  SELECT * FROM test  ", StatementTypeDQL},

		{"GRANT", "GRANT SELECT ON test TO analyst", StatementTypeDCL},
		{"REVOKE", "revoke select on test from analyst", StatementTypeDCL},

		{"Empty string", "", StatementTypeOther},
		{"Prose", "Here is your query", StatementTypeOther},
		{"Prefix only", "SELECTED items", StatementTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Classify(tt.sql))
		})
	}
}

func TestStatementClassifier_CleanSQL(t *testing.T) {
	classifier := NewStatementClassifier()

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", "SELECT 1", "SELECT 1", true},
		{"fenced", "```sql\nSELECT * FROM orders\n```", "SELECT * FROM orders", true},
		{"upper fence", "```SQL\nSELECT 1\n```", "SELECT 1", true},
		{"bare fence", "```\nWITH t AS (SELECT 1) SELECT * FROM t\n```", "WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"padded", "  \n select 1 \n", "select 1", true},
		{"ddl accepted", "DROP TABLE orders", "DROP TABLE orders", true},
		{"explanation", "I cannot answer that question.", "", false},
		{"leading prose", "Sure! SELECT 1", "", false},
		{"empty", "", "", false},
		{"fence only", "```sql\n```", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifier.CleanSQL(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatementClassifier_IsDangerous(t *testing.T) {
	classifier := NewStatementClassifier()

	assert.True(t, classifier.IsDangerous("DROP TABLE orders"))
	assert.True(t, classifier.IsDangerous("DELETE FROM orders"))
	assert.True(t, classifier.IsDangerous("UPDATE orders SET status = 'x' WHERE 1=1"))
	assert.False(t, classifier.IsDangerous("DELETE FROM orders WHERE id = 4"))
	assert.False(t, classifier.IsDangerous("SELECT * FROM orders"))

	assert.True(t, classifier.IsReadOnly("select 1"))
	assert.False(t, classifier.IsReadOnly("INSERT INTO t VALUES (1)"))
}

func TestStatementType_String(t *testing.T) {
	assert.Equal(t, "DQL", StatementTypeDQL.String())
	assert.Equal(t, "DDL", StatementTypeDDL.String())
	assert.Equal(t, "OTHER", StatementTypeOther.String())
}
