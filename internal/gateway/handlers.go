package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/soyeahso/agentdash/internal/agent"
	"github.com/soyeahso/agentdash/internal/dashboard"
	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/soyeahso/agentdash/internal/snowapi"
	"github.com/soyeahso/agentdash/internal/warehouse"
)

// maxFormBytes bounds form and JSON request bodies.
const maxFormBytes = 64 * 1024

// HealthResponse is returned by health endpoints. The public HTTP endpoint
// only populates Status; the authenticated RPC handler populates all fields.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Clients   int    `json:"clients,omitempty"`
	UptimeMs  int64  `json:"uptimeMs,omitempty"`
	Warehouse string `json:"warehouse,omitempty"`
}

// handleHealth returns the server health status. Only status is exposed
// publicly; detailed info is available via the authenticated RPC health method.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// handlePage renders the dashboard for GET /.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	filters, err := s.parseFilters(r.URL.Query())
	if err != nil {
		s.renderError(w, http.StatusBadRequest, err)
		return
	}
	s.renderPage(w, r, dashboard.Request{
		Agent:   r.URL.Query().Get("agent"),
		Filters: filters,
	})
}

// handleRun invokes the selected agent from the prompt form.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, err)
		return
	}
	s.renderPage(w, r, dashboard.Request{
		Agent:  r.PostForm.Get("agent"),
		Prompt: r.PostForm.Get("prompt"),
		Run:    true,
	})
}

// handleAction runs one procedure and renders the page with its result,
// keeping the agent and filters the form carried.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if s.dash.Analytics() == nil {
		s.renderError(w, http.StatusNotFound, errors.New("analytics disabled"))
		return
	}
	action := r.PathValue("action")
	if _, ok := warehouse.LookupProcedure(action); !ok {
		s.renderError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", action))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, err)
		return
	}
	filters, err := s.parseFilters(r.PostForm)
	if err != nil {
		s.renderError(w, http.StatusBadRequest, err)
		return
	}
	s.renderPage(w, r, dashboard.Request{
		Agent:   r.PostForm.Get("agent"),
		Action:  action,
		Filters: filters,
	})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, req dashboard.Request) {
	page, err := s.dash.Page(r.Context(), req)
	if err != nil {
		s.renderError(w, statusForError(err), err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.Render(&buf, page); err != nil {
		s.log.Error().Err(err).Msg("rendering page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, status int, err error) {
	s.log.Warn().Err(err).Int("status", status).Msg("page pass failed")

	var buf bytes.Buffer
	if rerr := dashboard.RenderError(&buf, dashboard.ErrorPage{
		Title:   http.StatusText(status),
		Status:  status,
		Message: err.Error(),
	}); rerr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// parseFilters overlays minScore, retailers and limit onto the configured
// filters. It returns nil when none is present.
func (s *Server) parseFilters(q url.Values) (*warehouse.Filters, error) {
	if !q.Has("minScore") && !q.Has("retailers") && !q.Has("limit") {
		return nil, nil
	}
	f := s.dash.DefaultFilters()

	if v := q.Get("minScore"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid minScore %q", v)
		}
		f.MinScore = score
	}
	if q.Has("retailers") {
		f.Retailers = nil
		for _, r := range strings.Split(q.Get("retailers"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				f.Retailers = append(f.Retailers, r)
			}
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = limit
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// agentsResponse is the body of GET /api/agents.
type agentsResponse struct {
	Namespace string         `json:"namespace"`
	Agents    []domain.Agent `json:"agents"`
}

func (s *Server) handleAPIAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.dash.Agents().List(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	writeJSON(w, http.StatusOK, agentsResponse{Namespace: s.dash.Namespace(), Agents: agents})
}

type runParams struct {
	Prompt string `json:"prompt"`
}

// handleAPIRun invokes an agent by name and relays the platform response
// unchanged.
func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	var p runParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return
	}
	if p.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	res, err := s.dash.Agents().Invoke(r.Context(), domain.Agent{Name: r.PathValue("name")}, p.Prompt)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	contentType := res.Response.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Agent-Duration-Ms", strconv.FormatInt(res.Duration.Milliseconds(), 10))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Response.Body)
}

func (s *Server) handleAPIAnalytics(w http.ResponseWriter, r *http.Request) {
	renderer := s.dash.Analytics()
	if renderer == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "analytics disabled"})
		return
	}
	f, err := s.parseFilters(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if f == nil {
		defaults := s.dash.DefaultFilters()
		f = &defaults
	}
	a, err := renderer.Build(r.Context(), *f)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAPIAction(w http.ResponseWriter, r *http.Request) {
	renderer := s.dash.Analytics()
	if renderer == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "analytics disabled"})
		return
	}
	action := r.PathValue("action")
	if _, ok := warehouse.LookupProcedure(action); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action: " + action})
		return
	}
	res := renderer.RunAction(r.Context(), action)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// statusForError maps a failed pass to an HTTP status.
func statusForError(err error) int {
	var apiErr *snowapi.APIError
	switch {
	case errors.Is(err, agent.ErrAgentNotFound), errors.Is(err, agent.ErrNoAgents):
		return http.StatusNotFound
	case errors.Is(err, snowapi.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr), errors.Is(err, domain.ErrMissingField):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	var apiErr *snowapi.APIError
	if errors.As(err, &apiErr) {
		body["upstreamStatus"] = apiErr.StatusCode
	}
	writeJSON(w, statusForError(err), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RequestHandler processes an incoming RPC request frame from a client.
type RequestHandler func(ctx *RequestContext)

// RequestContext carries everything a handler needs.
type RequestContext struct {
	Client  *Client
	Frame   Frame
	Server  *Server
	Context context.Context
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response.
func (rc *RequestContext) RespondError(code, message string) {
	rc.Client.RespondError(rc.Frame.ID, ErrorShape{
		Code:    code,
		Message: message,
	})
}

// RespondErr maps err onto an error response.
func (rc *RequestContext) RespondErr(err error) {
	code := "internal"
	switch statusForError(err) {
	case http.StatusNotFound:
		code = "not_found"
	case http.StatusGatewayTimeout:
		code = "timeout"
	case http.StatusBadGateway:
		code = "upstream_error"
	}
	rc.RespondError(code, err.Error())
}

// Params unmarshals the request params into the given target.
func (rc *RequestContext) Params(target any) error {
	if rc.Frame.Params == nil {
		return nil
	}
	return json.Unmarshal(rc.Frame.Params, target)
}

// Event pushes an event tagged with this request's ID.
func (rc *RequestContext) Event(event string, payload map[string]any) {
	payload["requestId"] = rc.Frame.ID
	if err := rc.Client.SendEvent(event, payload, rc.Server.eventSeq.Add(1)); err != nil {
		rc.Server.log.Debug().Err(err).Str("event", event).Msg("failed to send event")
	}
}
