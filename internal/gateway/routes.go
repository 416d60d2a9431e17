package gateway

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/soyeahso/agentdash/internal/agent"
	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/soyeahso/agentdash/internal/snowapi"
	"github.com/soyeahso/agentdash/internal/warehouse"
)

// agentCallTimeout bounds an RPC agent run on top of the client timeout.
const agentCallTimeout = 5 * time.Minute

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /{$}", s.requireAuth(s.handlePage))
	mux.HandleFunc("POST /run", s.requireAuth(s.handleRun))
	mux.HandleFunc("POST /actions/{action}", s.requireAuth(s.handleAction))

	mux.HandleFunc("GET /api/agents", s.requireAuth(s.handleAPIAgents))
	mux.HandleFunc("POST /api/agents/{name}/run", s.requireAuth(s.handleAPIRun))
	mux.HandleFunc("GET /api/analytics", s.requireAuth(s.handleAPIAnalytics))
	mux.HandleFunc("POST /api/actions/{action}", s.requireAuth(s.handleAPIAction))

	mux.HandleFunc("GET /ws/run", s.requireAuth(s.handleWebSocket))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.requireAuth(s.metrics.Handler().ServeHTTP))
	}

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// Handle registers an RPC method handler.
func (s *Server) Handle(method string, handler RequestHandler) {
	s.handlers[method] = handler
}

// Methods returns the registered RPC method names, sorted.
func (s *Server) Methods() []string {
	methods := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("agents.list", s.rpcAgentsList)
	s.Handle("agents.run", s.rpcAgentsRun)
	s.Handle("actions.run", s.rpcActionsRun)
}

// Built-in RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	health := HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Namespace: s.dash.Namespace(),
		Clients:   s.clients.count(),
		UptimeMs:  s.Uptime().Milliseconds(),
	}
	if renderer := s.dash.Analytics(); renderer != nil {
		health.Warehouse = "ok"
		if err := renderer.Ping(rc.Context); err != nil {
			health.Status = "degraded"
			health.Warehouse = err.Error()
		}
	}
	rc.Respond(health)
}

func (s *Server) rpcAgentsList(rc *RequestContext) {
	agents, err := s.dash.Agents().List(rc.Context)
	if err != nil {
		rc.RespondErr(err)
		return
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	labels := make([]string, 0, len(agents))
	for _, a := range agents {
		if name, err := a.DisplayName(); err == nil {
			labels = append(labels, name)
		}
	}
	rc.Respond(map[string]any{
		"namespace": s.dash.Namespace(),
		"agents":    agents,
		"labels":    labels,
	})
}

type agentsRunParams struct {
	Agent  string `json:"agent"` // display name; empty selects the first agent
	Prompt string `json:"prompt"`
}

// rpcAgentsRun streams an agent run as run.delta and run.event events and
// responds with the full text once the stream is done.
func (s *Server) rpcAgentsRun(rc *RequestContext) {
	var p agentsRunParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Prompt == "" {
		rc.RespondError("invalid_params", "prompt is required")
		return
	}

	ctx, cancel := context.WithTimeout(rc.Context, agentCallTimeout)
	defer cancel()

	svc := s.dash.Agents()
	agents, err := svc.List(ctx)
	if err != nil {
		rc.RespondErr(err)
		return
	}
	selected, err := agent.Select(agents, p.Agent)
	if err != nil {
		rc.RespondErr(err)
		return
	}

	start := time.Now()
	text, err := svc.Stream(ctx, selected, p.Prompt, func(ev snowapi.StreamEvent) {
		switch ev.Type {
		case snowapi.EventDelta:
			rc.Event(EventRunDelta, map[string]any{"text": ev.Text})
		case snowapi.EventOther:
			rc.Event(EventRunEvent, map[string]any{"event": ev.Event, "data": ev.Data})
		}
	})
	if err != nil {
		rc.RespondErr(err)
		return
	}

	label, _ := selected.DisplayName()
	rc.Respond(map[string]any{
		"agent":      selected.Name,
		"label":      label,
		"text":       text,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

type actionsRunParams struct {
	Action string `json:"action"`
}

func (s *Server) rpcActionsRun(rc *RequestContext) {
	var p actionsRunParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if _, ok := warehouse.LookupProcedure(p.Action); !ok {
		rc.RespondError("not_found", "unknown action: "+p.Action)
		return
	}
	renderer := s.dash.Analytics()
	if renderer == nil {
		rc.RespondError("unavailable", "analytics disabled")
		return
	}
	rc.Respond(renderer.RunAction(rc.Context, p.Action))
}
