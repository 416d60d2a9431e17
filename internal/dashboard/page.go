// Package dashboard builds the single dashboard page: the agent list, the
// prompt form with the raw agent response and the analytics sections.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/agentdash/internal/agent"
	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/version"
	"github.com/soyeahso/agentdash/internal/warehouse"
)

// Options are the fixed page settings.
type Options struct {
	Title         string
	DefaultPrompt string
	Database      string
	Schema        string
	Filters       warehouse.Filters
}

// Request is one user interaction. Every field is optional; the zero value
// renders the page with the first agent selected.
type Request struct {
	Agent   string             // display name of the chosen agent
	Prompt  string             // empty uses the default prompt
	Run     bool               // invoke the selected agent with Prompt
	Action  string             // procedure action to run before the reads
	Filters *warehouse.Filters // nil uses the configured filters
}

// AgentOption is one entry of the selection list.
type AgentOption struct {
	Label     string
	Name      string
	Comment   string
	Owner     string
	CreatedOn string
	Selected  bool
}

// Page is the view model of one render pass.
type Page struct {
	Title       string
	Namespace   string
	Agents      []AgentOption
	Selected    *domain.Agent
	Label       string
	EmptyState  string
	Prompt      string
	Run         *agent.RunResult
	Action      *ActionResult
	Analytics   *Analytics
	Filters     warehouse.Filters
	Procedures  []warehouse.Procedure
	Version     string
	GeneratedAt time.Time
}

// ResponseText returns the raw agent response, if any.
func (p *Page) ResponseText() string {
	if p.Run == nil {
		return ""
	}
	return p.Run.Response.Text()
}

// Dashboard evaluates the page top to bottom for each request.
type Dashboard struct {
	agents    *agent.Service
	analytics *Renderer
	opts      Options
	log       *logging.Logger
}

// New creates a dashboard. analytics may be nil to hide the analytics area.
func New(agents *agent.Service, analytics *Renderer, opts Options, log *logging.Logger) *Dashboard {
	return &Dashboard{
		agents:    agents,
		analytics: analytics,
		opts:      opts,
		log:       log.Sub("dashboard"),
	}
}

// Namespace returns DATABASE.SCHEMA.
func (d *Dashboard) Namespace() string {
	return d.opts.Database + "." + d.opts.Schema
}

// DefaultFilters returns the configured analytics filters.
func (d *Dashboard) DefaultFilters() warehouse.Filters {
	return d.opts.Filters
}

// Agents returns the agent service.
func (d *Dashboard) Agents() *agent.Service {
	return d.agents
}

// Analytics returns the renderer, or nil when analytics are disabled.
func (d *Dashboard) Analytics() *Renderer {
	return d.analytics
}

// Page runs one pass: action, list, select, invoke, analytics. Procedure
// failures are reported on the page; every other error is returned.
func (d *Dashboard) Page(ctx context.Context, req Request) (*Page, error) {
	filters := d.opts.Filters
	if req.Filters != nil {
		filters = *req.Filters
	}

	p := &Page{
		Title:       d.opts.Title,
		Namespace:   d.Namespace(),
		Prompt:      req.Prompt,
		Filters:     filters,
		Version:     version.Version,
		GeneratedAt: time.Now(),
	}
	if p.Prompt == "" {
		p.Prompt = d.opts.DefaultPrompt
	}

	if req.Action != "" && d.analytics != nil {
		res := d.analytics.RunAction(ctx, req.Action)
		p.Action = &res
	}

	agents, err := d.agents.List(ctx)
	if err != nil {
		return nil, err
	}

	if len(agents) == 0 {
		p.EmptyState = fmt.Sprintf("No agents registered in %s", p.Namespace)
	} else {
		selected, err := agent.Select(agents, req.Agent)
		if err != nil {
			return nil, err
		}
		label, _ := selected.DisplayName()
		p.Selected = &selected
		p.Label = label

		for _, a := range agents {
			name, _ := a.DisplayName()
			p.Agents = append(p.Agents, AgentOption{
				Label:     name,
				Name:      a.Name,
				Comment:   a.Comment,
				Owner:     a.Owner,
				CreatedOn: a.CreatedOn,
				Selected:  a.Name == selected.Name && name == label,
			})
		}
		markFirstSelected(p.Agents)

		if req.Run {
			res, err := d.agents.Invoke(ctx, selected, p.Prompt)
			if err != nil {
				return nil, err
			}
			p.Run = res
		}
	}

	if d.analytics != nil {
		p.Procedures = warehouse.Procedures
		p.Analytics, err = d.analytics.Build(ctx, filters)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// markFirstSelected keeps only the first selected option when records
// share both name and label.
func markFirstSelected(opts []AgentOption) {
	seen := false
	for i := range opts {
		if opts[i].Selected {
			if seen {
				opts[i].Selected = false
			}
			seen = true
		}
	}
}
