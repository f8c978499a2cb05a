// Package fallback maps a question to one of a fixed set of SQL templates
// using ordered keyword rules. It never fails: a question that matches no
// rule gets the recent-orders query.
package fallback

import "strings"

// Trigger matches when every one of its substrings occurs in the question.
type Trigger []string

// Rule is a named SQL template selected by any of its triggers.
type Rule struct {
	Name     string
	Triggers []Trigger
	SQL      string
}

// matches reports whether q (already lower-cased) fires any trigger.
func (r Rule) matches(q string) bool {
	for _, t := range r.Triggers {
		if len(t) == 0 {
			continue
		}
		hit := true
		for _, s := range t {
			if !strings.Contains(q, s) {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

func anyOf(words ...string) []Trigger {
	ts := make([]Trigger, len(words))
	for i, w := range words {
		ts[i] = Trigger{w}
	}
	return ts
}

// Rules are evaluated in order; the first match wins.
var Rules = []Rule{
	{
		Name:     "total_sales",
		Triggers: anyOf("total sales", "revenue"),
		SQL:      `SELECT SUM(total_amount) as total_sales FROM orders WHERE status = 'Completed'`,
	},
	{
		Name:     "sales_by_category",
		Triggers: anyOf("sales by category", "revenue by category"),
		SQL: `SELECT
  p.category,
  SUM(oi.qty * oi.unit_price) as total_sales
FROM products p
JOIN order_items oi ON p.id = oi.product_id
JOIN orders o ON oi.order_id = o.id
WHERE o.status = 'Completed'
GROUP BY p.category
ORDER BY total_sales DESC`,
	},
	{
		Name:     "top_customers",
		Triggers: anyOf("top customer", "best customer"),
		SQL: `SELECT
  c.name,
  SUM(o.total_amount) as total_spent
FROM customers c
JOIN orders o ON c.id = o.customer_id
WHERE o.status = 'Completed'
GROUP BY c.name
ORDER BY total_spent DESC
LIMIT 10`,
	},
	{
		Name:     "sales_by_month",
		Triggers: anyOf("sales by month", "monthly sales"),
		SQL: `SELECT
  strftime(order_date, '%Y-%m') as month,
  SUM(total_amount) as monthly_sales
FROM orders
WHERE status = 'Completed'
GROUP BY strftime(order_date, '%Y-%m')
ORDER BY month`,
	},
	{
		Name:     "segment_comparison",
		Triggers: anyOf("segment", "compare segments"),
		SQL: `SELECT
  c.sgmt as segment,
  COUNT(DISTINCT c.id) as customer_count,
  COUNT(o.id) as order_count,
  SUM(o.total_amount) as total_sales,
  CASE
    WHEN COUNT(o.id) > 0
    THEN SUM(o.total_amount) / COUNT(o.id)
    ELSE 0
  END as avg_order_value
FROM customers c
LEFT JOIN orders o ON c.id = o.customer_id AND o.status = 'Completed'
GROUP BY c.sgmt
ORDER BY total_sales DESC`,
	},
	{
		Name:     "product_performance",
		Triggers: anyOf("product", "best selling"),
		SQL: `SELECT
  p.p_name as product_name,
  p.category,
  SUM(oi.qty) as quantity_sold,
  SUM(oi.qty * oi.unit_price) as total_sales
FROM products p
JOIN order_items oi ON p.id = oi.product_id
JOIN orders o ON oi.order_id = o.id
WHERE o.status = 'Completed'
GROUP BY p.id, p.p_name, p.category
ORDER BY quantity_sold DESC
LIMIT 10`,
	},
	{
		Name:     "regional_sales",
		Triggers: anyOf("region", "country"),
		SQL: `SELECT
  r.name as region,
  r.country,
  COUNT(DISTINCT c.id) as customer_count,
  SUM(o.total_amount) as total_sales
FROM regions r
LEFT JOIN customers c ON r.id = c.region_id
LEFT JOIN orders o ON c.id = o.customer_id AND o.status = 'Completed'
GROUP BY r.id, r.name, r.country
ORDER BY total_sales DESC`,
	},
	{
		Name:     "profit_margin",
		Triggers: anyOf("profit", "margin"),
		SQL: `SELECT
  p.p_name as product_name,
  p.category,
  p.price,
  p.cost,
  (p.price - p.cost) as profit_per_unit,
  ((p.price - p.cost) / NULLIF(p.price, 0) * 100) as margin_percentage
FROM products p
ORDER BY margin_percentage DESC`,
	},
	{
		Name:     "recent_orders",
		Triggers: anyOf("recent", "latest"),
		SQL: `SELECT
  o.id as order_id,
  c.name as customer,
  o.order_date,
  o.status,
  o.total_amount
FROM orders o
JOIN customers c ON o.customer_id = c.id
ORDER BY o.order_date DESC
LIMIT 10`,
	},
	{
		Name:     "sales_trend",
		Triggers: anyOf("trend", "over time"),
		SQL: `SELECT
  strftime(order_date, '%Y-%m') as month,
  SUM(total_amount) as monthly_sales,
  COUNT(id) as order_count
FROM orders
WHERE status = 'Completed'
GROUP BY strftime(order_date, '%Y-%m')
ORDER BY month`,
	},
	{
		Name:     "order_frequency",
		Triggers: anyOf("frequency", "how often"),
		SQL: `SELECT
  c.name as customer,
  COUNT(o.id) as order_count,
  MIN(o.order_date) as first_order,
  MAX(o.order_date) as last_order,
  date_diff('day', MIN(o.order_date), MAX(o.order_date)) / COUNT(o.id) as avg_days_between_orders
FROM customers c
JOIN orders o ON c.id = o.customer_id
WHERE o.status = 'Completed'
GROUP BY c.id, c.name
HAVING COUNT(o.id) > 1
ORDER BY order_count DESC
LIMIT 10`,
	},
	{
		Name:     "average_order_value",
		Triggers: anyOf("average order", "avg order"),
		SQL: `SELECT
  AVG(total_amount) as avg_order_value,
  MIN(total_amount) as min_order_value,
  MAX(total_amount) as max_order_value
FROM orders
WHERE status = 'Completed'`,
	},
	{
		Name:     "category_comparison",
		Triggers: anyOf("compare categories", "category comparison"),
		SQL: `SELECT
  p.category,
  COUNT(DISTINCT p.id) as product_count,
  COUNT(DISTINCT oi.order_id) as order_count,
  SUM(oi.qty) as total_quantity_sold,
  SUM(oi.qty * oi.unit_price) as total_sales,
  AVG(p.price) as avg_price,
  AVG(p.price - p.cost) as avg_profit_per_unit
FROM products p
LEFT JOIN order_items oi ON p.id = oi.product_id
LEFT JOIN orders o ON oi.order_id = o.id AND o.status = 'Completed'
GROUP BY p.category
ORDER BY total_sales DESC`,
	},
}

// Default is used when no rule matches.
var Default = Rule{
	Name: "default_recent_orders",
	SQL: `SELECT
  o.id as order_id,
  c.name as customer,
  o.order_date,
  o.total_amount
FROM orders o
JOIN customers c ON o.customer_id = c.id
ORDER BY o.order_date DESC
LIMIT 10`,
}

// MatchRule returns the first rule matching question, or Default.
func MatchRule(question string) Rule {
	q := strings.ToLower(question)
	for _, r := range Rules {
		if r.matches(q) {
			return r
		}
	}
	return Default
}

// Match returns the SQL for the first rule matching question.
func Match(question string) string {
	return MatchRule(question).SQL
}
