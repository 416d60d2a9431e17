package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soyeahso/agentdash/internal/hooks"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/metrics"
	"github.com/soyeahso/agentdash/internal/warehouse"
)

// NoDataMessage is shown in place of an empty section.
const NoDataMessage = "No data yet. Run the actions above to populate this section."

// Section kinds.
const (
	KindStats = "stats"
	KindTable = "table"
	KindChart = "chart"
)

// Stat is one labelled figure.
type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Note  string `json:"note,omitempty"`
}

// TableView is a formatted result set.
type TableView struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Section is one rendered read path of the analytics area.
type Section struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Kind    string     `json:"kind"`
	Empty   bool       `json:"empty"`
	Message string     `json:"message,omitempty"`
	Stats   []Stat     `json:"stats,omitempty"`
	Table   *TableView `json:"table,omitempty"`
	Chart   *Chart     `json:"-"`
}

// Analytics is one full render pass.
type Analytics struct {
	Filters  warehouse.Filters `json:"filters"`
	Sections []Section         `json:"sections"`
}

// Section returns the section with the given id.
func (a *Analytics) Section(id string) (Section, bool) {
	for _, s := range a.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// ActionResult is the user-visible outcome of a procedure action.
type ActionResult struct {
	Action  string `json:"action"`
	Label   string `json:"label,omitempty"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithHooks emits action_completed and action_failed.
func WithHooks(hm *hooks.Manager) RendererOption {
	return func(r *Renderer) {
		r.hooks = hm
	}
}

// WithMetrics records query and procedure metrics.
func WithMetrics(m *metrics.Metrics) RendererOption {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// Renderer runs the analytical reads and actions against one warehouse
// handle. Every pass is independent; nothing is cached.
type Renderer struct {
	db      warehouse.Querier
	exec    warehouse.Execer
	hooks   *hooks.Manager
	metrics *metrics.Metrics
	log     *logging.Logger
}

// NewRenderer creates a renderer. *warehouse.DB serves as both db and exec.
func NewRenderer(db warehouse.Querier, exec warehouse.Execer, log *logging.Logger, opts ...RendererOption) *Renderer {
	r := &Renderer{
		db:   db,
		exec: exec,
		log:  log.Sub("analytics"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ping checks the warehouse when the read handle supports it.
func (r *Renderer) Ping(ctx context.Context) error {
	if p, ok := r.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Build runs the five read paths in order. Query errors propagate.
func (r *Renderer) Build(ctx context.Context, f warehouse.Filters) (*Analytics, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filters: %w", err)
	}

	a := &Analytics{Filters: f}

	metricsSection, err := r.metricsSection(ctx)
	if err != nil {
		return nil, err
	}
	a.Sections = append(a.Sections, metricsSection)

	tables := []struct {
		id, title string
		query     warehouse.Query
	}{
		{"candidates", "Candidate matches", warehouse.CandidateMatchesQuery(f)},
		{"final_matches", "Final product matches", warehouse.FinalMatchesQuery(f)},
		{"price_comparison", "Price comparison", warehouse.PriceComparisonQuery(f)},
	}
	for _, t := range tables {
		s, err := r.tableSection(ctx, t.id, t.title, t.query)
		if err != nil {
			return nil, err
		}
		a.Sections = append(a.Sections, s)
	}

	trends, err := r.trendSection(ctx, f)
	if err != nil {
		return nil, err
	}
	a.Sections = append(a.Sections, trends)

	return a, nil
}

func (r *Renderer) observe(name string, start time.Time, err error) {
	r.metrics.ObserveQuery(name, time.Since(start), err)
	if err != nil {
		r.log.Error().Err(err).Str("query", name).Msg("analytical query failed")
		return
	}
	r.log.Debug().Str("query", name).Dur("duration", time.Since(start)).Msg("analytical query")
}

func (r *Renderer) metricsSection(ctx context.Context) (Section, error) {
	start := time.Now()
	summary, err := warehouse.LoadMetrics(ctx, r.db)
	r.observe(warehouse.QueryMatchingMetrics, start, err)
	if err != nil {
		return Section{}, err
	}

	s := Section{ID: "metrics", Title: "Matching metrics", Kind: KindStats}
	if summary.Empty {
		s.Empty = true
		s.Message = NoDataMessage
		return s, nil
	}
	s.Stats = []Stat{
		{
			Label: "Confirmed matches",
			Value: humanize.Comma(summary.ConfirmedMatches),
			Note:  fmt.Sprintf("of %s candidates scored", humanize.Comma(summary.TotalCandidates)),
		},
		{
			Label: "Average similarity",
			Value: fmt.Sprintf("%.2f", summary.AvgSimilarity),
		},
	}
	return s, nil
}

func (r *Renderer) tableSection(ctx context.Context, id, title string, q warehouse.Query) (Section, error) {
	start := time.Now()
	t, err := warehouse.RunTable(ctx, r.db, q)
	r.observe(q.Name, start, err)
	if err != nil {
		return Section{}, err
	}

	s := Section{ID: id, Title: title, Kind: KindTable}
	if t.Empty() {
		s.Empty = true
		s.Message = NoDataMessage
		return s, nil
	}

	view := &TableView{Columns: make([]string, len(t.Columns))}
	for i, c := range t.Columns {
		view.Columns[i] = columnTitle(c)
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(t.Columns[i], v)
		}
		view.Rows = append(view.Rows, cells)
	}
	s.Table = view
	return s, nil
}

func (r *Renderer) trendSection(ctx context.Context, f warehouse.Filters) (Section, error) {
	start := time.Now()
	series, err := warehouse.LoadTrend(ctx, r.db, f)
	r.observe(warehouse.QueryMarketTrends, start, err)
	if err != nil {
		return Section{}, err
	}

	s := Section{ID: "trends", Title: "Market share trend", Kind: KindChart}
	if series.Empty() {
		s.Empty = true
		s.Message = NoDataMessage
		return s, nil
	}
	s.Chart = buildChart(series)
	return s, nil
}

// RunAction calls the procedure behind action once. Any failure, including
// a panic in the driver, becomes a failure message; nothing is retried and
// the caller goes on to render the page.
func (r *Renderer) RunAction(ctx context.Context, action string) (res ActionResult) {
	p, ok := warehouse.LookupProcedure(action)
	if !ok {
		return ActionResult{Action: action, Message: fmt.Sprintf("Unknown action %q", action)}
	}

	res = ActionResult{Action: action, Label: p.Label}
	defer func() {
		if rec := recover(); rec != nil {
			res.OK = false
			res.Message = fmt.Sprintf("%s failed: %v", p.Label, rec)
			r.log.Error().Interface("panic", rec).Str("procedure", p.Name).Msg("procedure panicked")
			r.hooks.EmitAsync(ctx, hooks.EventActionFailed, actionData(p, res.Message))
		}
	}()

	start := time.Now()
	if err := warehouse.Call(ctx, r.exec, p, r.metrics); err != nil {
		res.Message = err.Error()
		r.log.Warn().Err(err).Str("procedure", p.Name).Msg("procedure failed")
		r.hooks.EmitAsync(ctx, hooks.EventActionFailed, actionData(p, res.Message))
		return res
	}

	res.OK = true
	res.Message = p.Label + " completed"
	r.log.Info().Str("procedure", p.Name).Dur("duration", time.Since(start)).Msg("procedure completed")
	r.hooks.EmitAsync(ctx, hooks.EventActionCompleted, actionData(p, res.Message))
	return res
}

func actionData(p warehouse.Procedure, message string) map[string]any {
	return map[string]any{
		"action":    p.Action,
		"procedure": p.Name,
		"message":   message,
	}
}
