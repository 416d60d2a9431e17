package warehouse

import (
	"errors"
	"fmt"
	"strings"
)

// MaxRowLimit caps the row limit of every table query.
const MaxRowLimit = 1000

// Query names, used in logs and metrics.
const (
	QueryMatchingMetrics  = "matching_metrics"
	QueryCandidateMatches = "candidate_matches"
	QueryFinalMatches     = "final_matches"
	QueryPriceComparison  = "price_comparison"
	QueryMarketTrends     = "market_trends"
)

// Filters are the user-adjustable inputs of the analytics sections. Every
// filter is bound as a query parameter.
type Filters struct {
	MinScore  float64  `json:"minScore"`
	Retailers []string `json:"retailers,omitempty"`
	Limit     int      `json:"limit"`
}

// Validate reports every out-of-range filter.
func (f Filters) Validate() error {
	var errs []error
	if f.MinScore < 0 || f.MinScore > 1 {
		errs = append(errs, fmt.Errorf("min score must be between 0 and 1, got %g", f.MinScore))
	}
	if f.Limit < 1 || f.Limit > MaxRowLimit {
		errs = append(errs, fmt.Errorf("row limit must be 1-%d, got %d", MaxRowLimit, f.Limit))
	}
	for i, r := range f.Retailers {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Errorf("retailer %d is empty", i))
		}
	}
	return errors.Join(errs...)
}

// Query is a parameterized read statement. SQL uses ? placeholders only.
type Query struct {
	Name string
	SQL  string
	Args []any
}

// retailerClause returns " AND column IN (?, ...)" and its arguments, or
// nothing when no retailer is selected.
func retailerClause(column string, retailers []string) (string, []any) {
	if len(retailers) == 0 {
		return "", nil
	}
	marks := make([]string, len(retailers))
	args := make([]any, len(retailers))
	for i, r := range retailers {
		marks[i] = "?"
		args[i] = r
	}
	return fmt.Sprintf(" AND %s IN (%s)", column, strings.Join(marks, ", ")), args
}

// MatchingMetricsQuery reads the latest matching run summary.
func MatchingMetricsQuery() Query {
	return Query{
		Name: QueryMatchingMetrics,
		SQL: `SELECT TOTAL_CANDIDATES, CONFIRMED_MATCHES, AVG_SIMILARITY
FROM MATCHING_METRICS
ORDER BY RUN_AT DESC
LIMIT 1`,
	}
}

// CandidateMatchesQuery reads scored candidate pairs at or above the minimum
// score, joined with both canonical product tables.
func CandidateMatchesQuery(f Filters) Query {
	return Query{
		Name: QueryCandidateMatches,
		SQL: `SELECT a.NAME AS ABT_PRODUCT, b.NAME AS BUY_PRODUCT, a.PRICE AS ABT_PRICE, b.PRICE AS BUY_PRICE, s.SIMILARITY_SCORE
FROM SIMILARITY_SCORES s
JOIN ABT_PRODUCTS_CANONICAL a ON a.PRODUCT_ID = s.ABT_PRODUCT_ID
JOIN BUY_PRODUCTS_CANONICAL b ON b.PRODUCT_ID = s.BUY_PRODUCT_ID
WHERE s.SIMILARITY_SCORE >= ?
ORDER BY s.SIMILARITY_SCORE DESC
LIMIT ?`,
		Args: []any{f.MinScore, f.Limit},
	}
}

// FinalMatchesQuery reads confirmed matches at or above the minimum score.
func FinalMatchesQuery(f Filters) Query {
	return Query{
		Name: QueryFinalMatches,
		SQL: `SELECT PRODUCT_NAME, ABT_PRODUCT_ID, BUY_PRODUCT_ID, SIMILARITY_SCORE, MATCHED_AT
FROM FINAL_PRODUCT_MATCHES
WHERE SIMILARITY_SCORE >= ?
ORDER BY SIMILARITY_SCORE DESC
LIMIT ?`,
		Args: []any{f.MinScore, f.Limit},
	}
}

// PriceComparisonQuery reads the price comparison, optionally restricted to
// products where one of the selected retailers is cheaper.
func PriceComparisonQuery(f Filters) Query {
	clause, args := retailerClause("CHEAPER_RETAILER", f.Retailers)
	return Query{
		Name: QueryPriceComparison,
		SQL: `SELECT PRODUCT_NAME, ABT_PRICE, BUY_PRICE, PRICE_DIFFERENCE, CHEAPER_RETAILER
FROM PRICE_COMPARISON
WHERE 1 = 1` + clause + `
ORDER BY ABS(PRICE_DIFFERENCE) DESC
LIMIT ?`,
		Args: append(args, f.Limit),
	}
}

// MarketTrendsQuery reads weekly market share per retailer from the
// semantic view. The limit keeps the most recent rows, returned oldest
// week first for charting.
func MarketTrendsQuery(f Filters) Query {
	clause, args := retailerClause("RETAILER", f.Retailers)
	return Query{
		Name: QueryMarketTrends,
		SQL: `SELECT WEEK, RETAILER, MARKET_SHARE
FROM (
	SELECT WEEK, RETAILER, MARKET_SHARE
	FROM MARKET_INTELLIGENCE_SV
	WHERE 1 = 1` + clause + `
	ORDER BY WEEK DESC, RETAILER
	LIMIT ?
) latest
ORDER BY WEEK, RETAILER`,
		Args: append(args, f.Limit),
	}
}
