package warehouse

import (
	"context"
	"fmt"

	"github.com/soyeahso/agentdash/internal/metrics"
)

// Stored procedures triggered by the dashboard actions.
const (
	ProcProductMatching   = "RUN_PRODUCT_MATCHING_AGENT"
	ProcPriceOptimization = "RUN_PRICE_OPTIMIZATION"
	ProcMarketRefresh     = "REFRESH_MARKET_INTELLIGENCE"
)

// Procedure is a zero-argument stored procedure and the purpose label shown
// to the user.
type Procedure struct {
	Action string `json:"action"`
	Name   string `json:"name"`
	Label  string `json:"label"`
}

// Procedures lists the dashboard actions in display order.
var Procedures = []Procedure{
	{Action: "product_matching", Name: ProcProductMatching, Label: "Product matching"},
	{Action: "price_optimization", Name: ProcPriceOptimization, Label: "Price optimization"},
	{Action: "market_refresh", Name: ProcMarketRefresh, Label: "Market intelligence refresh"},
}

// LookupProcedure finds a procedure by action key.
func LookupProcedure(action string) (Procedure, bool) {
	for _, p := range Procedures {
		if p.Action == action {
			return p, true
		}
	}
	return Procedure{}, false
}

// ProcedureError wraps a failed procedure call.
type ProcedureError struct {
	Procedure Procedure
	Err       error
}

func (e *ProcedureError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Procedure.Label, e.Err)
}

func (e *ProcedureError) Unwrap() error {
	return e.Err
}

// Statement returns the CALL statement for the procedure.
func (p Procedure) Statement() string {
	return "CALL " + p.Name + "()"
}

// Call runs the procedure once. Failures are returned as *ProcedureError
// and never retried.
func Call(ctx context.Context, db Execer, p Procedure, m *metrics.Metrics) error {
	_, err := db.ExecContext(ctx, p.Statement())
	m.ObserveProcedure(p.Name, err)
	if err != nil {
		return &ProcedureError{Procedure: p, Err: err}
	}
	return nil
}
