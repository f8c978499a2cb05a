package services

import (
	"regexp"
	"strings"
)

// StatementType represents the type of SQL statement.
type StatementType int

const (
	StatementTypeDQL   StatementType = iota // SELECT, WITH
	StatementTypeDML                        // INSERT, UPDATE, DELETE
	StatementTypeDDL                        // CREATE, ALTER, DROP, TRUNCATE
	StatementTypeDCL                        // GRANT, REVOKE
	StatementTypeOther                      // anything else
)

// String returns the string representation of the statement type.
func (st StatementType) String() string {
	switch st {
	case StatementTypeDQL:
		return "DQL"
	case StatementTypeDML:
		return "DML"
	case StatementTypeDDL:
		return "DDL"
	case StatementTypeDCL:
		return "DCL"
	default:
		return "OTHER"
	}
}

var (
	fencePattern    = regexp.MustCompile("(?i)```sql")
	sqlStartPattern = regexp.MustCompile(`(?i)^(SELECT|WITH|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|TRUNCATE|GRANT|REVOKE)`)
)

// StatementClassifier recognizes completer output that is SQL and flags
// statements that modify data or schema.
type StatementClassifier struct {
	typePatterns      map[StatementType]*regexp.Regexp
	dangerousPatterns []*regexp.Regexp
}

// NewStatementClassifier creates a classifier with the built-in patterns.
func NewStatementClassifier() *StatementClassifier {
	return &StatementClassifier{
		typePatterns: map[StatementType]*regexp.Regexp{
			StatementTypeDQL: regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`),
			StatementTypeDML: regexp.MustCompile(`(?i)^\s*(INSERT|UPDATE|DELETE)\b`),
			StatementTypeDDL: regexp.MustCompile(`(?i)^\s*(CREATE|ALTER|DROP|TRUNCATE)\b`),
			StatementTypeDCL: regexp.MustCompile(`(?i)^\s*(GRANT|REVOKE)\b`),
		},
		dangerousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)DROP\s+(DATABASE|SCHEMA|TABLE)`),
			regexp.MustCompile(`(?i)TRUNCATE\s+`),
			regexp.MustCompile(`(?i)DELETE\s+FROM\s+\w+\s*;?\s*$`),
			regexp.MustCompile(`(?i)DELETE\s+FROM\s+.*WHERE\s+1\s*=\s*1`),
			regexp.MustCompile(`(?i)UPDATE\s+.*SET\s+.*WHERE\s+1\s*=\s*1`),
		},
	}
}

// CleanSQL strips markdown code fences and surrounding whitespace from
// completer output. It reports false when the remainder does not start with
// a recognized SQL verb.
func (c *StatementClassifier) CleanSQL(text string) (string, bool) {
	cleaned := fencePattern.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if !sqlStartPattern.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// Classify returns the statement type.
func (c *StatementClassifier) Classify(sql string) StatementType {
	for _, st := range []StatementType{StatementTypeDQL, StatementTypeDML, StatementTypeDDL, StatementTypeDCL} {
		if c.typePatterns[st].MatchString(sql) {
			return st
		}
	}
	return StatementTypeOther
}

// IsReadOnly reports whether the statement only reads.
func (c *StatementClassifier) IsReadOnly(sql string) bool {
	return c.Classify(sql) == StatementTypeDQL
}

// IsDangerous reports whether the statement destroys data or schema.
func (c *StatementClassifier) IsDangerous(sql string) bool {
	for _, p := range c.dangerousPatterns {
		if p.MatchString(sql) {
			return true
		}
	}
	return false
}
