package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Table is a generic result set.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// RunTable executes q and captures every row. Byte slices are returned as
// strings. There is no timeout beyond ctx.
func RunTable(ctx context.Context, db Querier, q Query) (*Table, error) {
	rows, err := db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %s: reading columns: %w", q.Name, err)
	}

	t := &Table{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query %s: scanning row: %w", q.Name, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Name, err)
	}
	return t, nil
}

// MetricsSummary is the stat pair of the matching metrics section.
type MetricsSummary struct {
	TotalCandidates  int64   `json:"totalCandidates"`
	ConfirmedMatches int64   `json:"confirmedMatches"`
	AvgSimilarity    float64 `json:"avgSimilarity"`
	Empty            bool    `json:"empty"`
}

// LoadMetrics reads the latest matching metrics. An empty relation yields a
// summary with Empty set.
func LoadMetrics(ctx context.Context, db Querier) (*MetricsSummary, error) {
	q := MatchingMetricsQuery()
	rows, err := db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		return &MetricsSummary{Empty: true}, nil
	}

	var avg sql.NullFloat64
	var s MetricsSummary
	if err := rows.Scan(&s.TotalCandidates, &s.ConfirmedMatches, &avg); err != nil {
		return nil, fmt.Errorf("query %s: scanning row: %w", q.Name, err)
	}
	s.AvgSimilarity = avg.Float64
	return &s, nil
}

// TrendPoint is one retailer's market share in one week.
type TrendPoint struct {
	Week        string  `json:"week"`
	Retailer    string  `json:"retailer"`
	MarketShare float64 `json:"marketShare"`
}

// TrendSeries is the chart data of the trends section.
type TrendSeries struct {
	Points []TrendPoint `json:"points"`
}

// Empty reports whether the series has no points.
func (s *TrendSeries) Empty() bool {
	return s == nil || len(s.Points) == 0
}

// Weeks returns the distinct weeks in first-seen order.
func (s *TrendSeries) Weeks() []string {
	var weeks []string
	seen := map[string]bool{}
	for _, p := range s.Points {
		if !seen[p.Week] {
			seen[p.Week] = true
			weeks = append(weeks, p.Week)
		}
	}
	return weeks
}

// LoadTrend reads the market trend series for the filters.
func LoadTrend(ctx context.Context, db Querier, f Filters) (*TrendSeries, error) {
	q := MarketTrendsQuery(f)
	rows, err := db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Name, err)
	}
	defer rows.Close()

	series := &TrendSeries{Points: []TrendPoint{}}
	for rows.Next() {
		var week any
		var p TrendPoint
		var share sql.NullFloat64
		if err := rows.Scan(&week, &p.Retailer, &share); err != nil {
			return nil, fmt.Errorf("query %s: scanning row: %w", q.Name, err)
		}
		p.Week = formatWeek(week)
		p.MarketShare = share.Float64
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Name, err)
	}
	return series, nil
}

// formatWeek renders a DATE column the same way for every driver.
func formatWeek(v any) string {
	switch w := v.(type) {
	case time.Time:
		return w.Format(time.DateOnly)
	case []byte:
		return string(w)
	case string:
		return w
	case int64:
		return strconv.FormatInt(w, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(w)
	}
}
