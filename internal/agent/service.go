// Package agent lists the agents of a namespace, resolves a user's choice
// to an agent record and invokes it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/soyeahso/agentdash/internal/hooks"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/snowapi"
)

var (
	// ErrNoAgents is returned when selecting from an empty listing.
	ErrNoAgents = errors.New("no agents available")
	// ErrAgentNotFound is returned when no agent carries the chosen label.
	ErrAgentNotFound = errors.New("agent not found")
)

// API is the platform surface the service needs. *snowapi.Client
// satisfies it.
type API interface {
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	RunAgent(ctx context.Context, name, prompt string) (*domain.RunResponse, error)
	StreamAgent(ctx context.Context, name, prompt string) (<-chan snowapi.StreamEvent, error)
}

// StreamCallback is called for each event of a streamed run, in order.
type StreamCallback func(ev snowapi.StreamEvent)

// RunResult is the outcome of a whole-response invocation.
type RunResult struct {
	Agent       domain.Agent        `json:"agent"`
	DisplayName string              `json:"displayName"`
	Prompt      string              `json:"prompt"`
	Response    *domain.RunResponse `json:"-"`
	Duration    time.Duration       `json:"duration"`
}

// Service wires the lister, selector and invoker to one API handle.
type Service struct {
	api   API
	hooks *hooks.Manager
	log   *logging.Logger
}

// NewService creates a service. hooks may be nil.
func NewService(api API, hm *hooks.Manager, log *logging.Logger) *Service {
	return &Service{
		api:   api,
		hooks: hm,
		log:   log.Sub("agent"),
	}
}

// List fetches the current agents. Nothing is cached between calls.
func (s *Service) List(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.api.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	return agents, nil
}

// Labels returns the display name of every agent in order. It fails with a
// *domain.MissingFieldError on the first agent without one.
func Labels(agents []domain.Agent) ([]string, error) {
	labels := make([]string, 0, len(agents))
	for _, a := range agents {
		name, err := a.DisplayName()
		if err != nil {
			return nil, err
		}
		labels = append(labels, name)
	}
	return labels, nil
}

// Select returns the first agent whose display name equals label. An empty
// label selects the first agent.
func Select(agents []domain.Agent, label string) (domain.Agent, error) {
	if len(agents) == 0 {
		return domain.Agent{}, ErrNoAgents
	}

	labels, err := Labels(agents)
	if err != nil {
		return domain.Agent{}, err
	}
	if label == "" {
		return agents[0], nil
	}
	for i, l := range labels {
		if l == label {
			return agents[i], nil
		}
	}
	return domain.Agent{}, fmt.Errorf("%w: %q", ErrAgentNotFound, label)
}

// Invoke sends prompt to the agent and returns the raw response.
func (s *Service) Invoke(ctx context.Context, a domain.Agent, prompt string) (*RunResult, error) {
	start := time.Now()
	label, _ := a.DisplayName()

	s.log.Info().Str("agent", a.QualifiedName()).Str("label", label).Msg("invoking agent")

	resp, err := s.api.RunAgent(ctx, a.Name, prompt)
	s.emitRun(ctx, a, "whole", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("running agent %s: %w", a.Name, err)
	}

	return &RunResult{
		Agent:       a,
		DisplayName: label,
		Prompt:      prompt,
		Response:    resp,
		Duration:    time.Since(start),
	}, nil
}

// Stream sends prompt to the agent and forwards each event to cb. It
// returns the concatenated text once the stream is done, or the message of
// an error event as an error.
func (s *Service) Stream(ctx context.Context, a domain.Agent, prompt string, cb StreamCallback) (string, error) {
	start := time.Now()

	events, err := s.api.StreamAgent(ctx, a.Name, prompt)
	if err != nil {
		s.emitRun(ctx, a, "stream", time.Since(start), err)
		return "", fmt.Errorf("running agent %s: %w", a.Name, err)
	}

	var text string
	var streamErr error
	for ev := range events {
		if cb != nil {
			cb(ev)
		}
		switch ev.Type {
		case snowapi.EventDone:
			text = ev.Text
		case snowapi.EventError:
			streamErr = fmt.Errorf("agent %s: %s", a.Name, ev.Text)
		}
	}

	s.emitRun(ctx, a, "stream", time.Since(start), streamErr)
	return text, streamErr
}

func (s *Service) emitRun(ctx context.Context, a domain.Agent, mode string, d time.Duration, err error) {
	data := map[string]any{
		"agent":      a.Name,
		"mode":       mode,
		"durationMs": d.Milliseconds(),
		"ok":         err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
		s.log.Warn().Err(err).Str("agent", a.QualifiedName()).Msg("agent run failed")
	}
	s.hooks.EmitAsync(ctx, hooks.EventAgentRun, data)
}
