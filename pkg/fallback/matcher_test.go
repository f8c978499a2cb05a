package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRule(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"What are the total sales?", "total_sales"},
		{"How much REVENUE did we make", "total_sales"},
		{"Show me sales by category", "sales_by_category"},
		{"who is our best customer", "top_customers"},
		{"Top customers please", "top_customers"},
		{"monthly sales numbers", "sales_by_month"},
		{"Compare segments", "segment_comparison"},
		{"what are the best selling items", "product_performance"},
		{"product list", "product_performance"},
		{"sales per country", "regional_sales"},
		{"What is our profit?", "profit_margin"},
		{"latest orders", "recent_orders"},
		{"orders over time", "sales_trend"},
		{"how often do people buy", "order_frequency"},
		{"avg order value", "average_order_value"},
		{"category comparison", "category_comparison"},
		{"Tell me a joke", "default_recent_orders"},
		{"", "default_recent_orders"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchRule(tt.question).Name)
		})
	}
}

func TestMatchRule_FirstMatchWins(t *testing.T) {
	// "revenue by category" contains "revenue", which belongs to an earlier rule.
	assert.Equal(t, "total_sales", MatchRule("revenue by category").Name)
	// "compare segments for product lines" hits segment before product.
	assert.Equal(t, "segment_comparison", MatchRule("compare segments for product lines").Name)
	// "compare categories by product" hits product before category comparison.
	assert.Equal(t, "product_performance", MatchRule("compare categories by product").Name)
}

func TestMatch_TotalSalesTemplate(t *testing.T) {
	assert.Equal(t,
		"SELECT SUM(total_amount) as total_sales FROM orders WHERE status = 'Completed'",
		Match("What are the total sales?"))
}

func TestMatch_IsTotal(t *testing.T) {
	inputs := []string{"", "   ", "???", "SELECT * FROM users", "🙂", strings.Repeat("x", 10000)}
	for _, in := range inputs {
		sql := Match(in)
		assert.NotEmpty(t, sql)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(sql), "SELECT"))
	}
	assert.Equal(t, Default.SQL, Match("nothing relevant here"))
}

func TestMatch_Deterministic(t *testing.T) {
	for _, q := range []string{"total sales", "trend", "unmatched"} {
		assert.Equal(t, Match(q), Match(q))
	}
}

func TestRule_MultiWordTrigger(t *testing.T) {
	r := Rule{Name: "both", Triggers: []Trigger{{"alpha", "beta"}, {}}}
	assert.True(t, r.matches("alpha and beta"))
	assert.False(t, r.matches("alpha only"))
	assert.False(t, r.matches(""))
}

func TestRules_TemplatesUsePoorlyNamedColumns(t *testing.T) {
	byName := map[string]Rule{}
	for _, r := range Rules {
		byName[r.Name] = r
	}
	assert.Contains(t, byName["segment_comparison"].SQL, "c.sgmt")
	assert.Contains(t, byName["product_performance"].SQL, "p.p_name")
	assert.Contains(t, byName["sales_by_category"].SQL, "oi.qty")
	assert.Len(t, Rules, 13)
}
