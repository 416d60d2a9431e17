// Package snowapi is a client for the agents REST API of the data platform.
package snowapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/metrics"
)

// DefaultTimeout bounds every agents API call.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when an API call exceeds the configured timeout.
// It wraps context.DeadlineExceeded.
var ErrTimeout = fmt.Errorf("agents API timeout: %w", context.DeadlineExceeded)

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}

// Config locates the agents collection.
type Config struct {
	BaseURL  string
	Database string
	Schema   string
	Timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records API call counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client talks to the agents endpoints of one database/schema pair.
type Client struct {
	cfg     Config
	http    *http.Client
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a client. A nil httpClient falls back to http.DefaultClient;
// authorization is expected to be applied by its transport (see NewHTTPClient).
func New(cfg Config, httpClient *http.Client, log *logging.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:  cfg,
		http: httpClient,
		log:  log.Sub("snowapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AgentsPath returns the listing endpoint path.
func (c *Client) AgentsPath() string {
	return fmt.Sprintf("/api/v2/databases/%s/schemas/%s/agents",
		url.PathEscape(c.cfg.Database), url.PathEscape(c.cfg.Schema))
}

// RunPath returns the run endpoint path for the named agent.
func (c *Client) RunPath(name string) string {
	return c.AgentsPath() + "/" + url.PathEscape(name) + ":run"
}

// ListAgents fetches the agents registered in the configured namespace.
func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+c.AgentsPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveAPICall("list_agents", "error", time.Since(start))
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	c.metrics.ObserveAPICall("list_agents", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	agents, err := ParseAgentList(body)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int("count", len(agents)).Dur("duration", time.Since(start)).Msg("listed agents")
	return agents, nil
}

// ParseAgentList extracts the "data" array from a listing body. Malformed
// JSON is an error; a body whose "data" is absent, null or not an array
// yields an empty list.
func ParseAgentList(body []byte) ([]domain.Agent, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []domain.Agent{}, nil
		}
		return nil, fmt.Errorf("failed to parse agent list: %w", err)
	}

	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || data[0] != '[' {
		return []domain.Agent{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse agent list: %w", err)
	}
	agents := make([]domain.Agent, 0, len(raw))
	for i, item := range raw {
		var a domain.Agent
		if err := json.Unmarshal(item, &a); err != nil {
			return nil, fmt.Errorf("failed to parse agent %d: %w", i, err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// RunAgent posts a prompt to the named agent and returns the whole response
// body unparsed.
func (c *Client) RunAgent(ctx context.Context, name, prompt string) (*domain.RunResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.postRun(ctx, name, prompt)
	if err != nil {
		c.metrics.ObserveAPICall("run_agent", "error", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	c.metrics.ObserveAPICall("run_agent", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.Info().
		Str("agent", name).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("agent run completed")

	return &domain.RunResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// StreamAgent posts a prompt and consumes the response as server-sent
// events. The request and status check happen before it returns; events are
// delivered on the channel, which is closed after a done or error event.
func (c *Client) StreamAgent(ctx context.Context, name, prompt string) (<-chan StreamEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)

	start := time.Now()
	resp, err := c.postRun(ctx, name, prompt)
	if err != nil {
		cancel()
		c.metrics.ObserveAPICall("stream_agent", "error", time.Since(start))
		return nil, err
	}
	c.metrics.ObserveAPICall("stream_agent", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	events := make(chan StreamEvent)
	go func() {
		defer cancel()
		defer resp.Body.Close()
		defer close(events)
		c.consumeStream(ctx, resp.Body, events)
	}()
	return events, nil
}

func (c *Client) postRun(ctx context.Context, name, prompt string) (*http.Response, error) {
	payload, err := domain.NewRunRequest(prompt).Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.RunPath(name), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	c.log.Debug().Str("agent", name).Int("prompt_len", len(prompt)).Msg("running agent")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	return resp, nil
}

func (c *Client) consumeStream(ctx context.Context, r io.Reader, events chan<- StreamEvent) {
	send := func(ev StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := newEventReader(r)
	var full strings.Builder
	for reader.Next() {
		ev := reader.Event()
		switch ev.Event {
		case "response.text.delta":
			var delta struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(ev.Data), &delta); err != nil || delta.Text == "" {
				continue
			}
			full.WriteString(delta.Text)
			if !send(StreamEvent{Type: EventDelta, Event: ev.Event, Data: ev.Data, Text: delta.Text}) {
				return
			}
		case "error":
			var apiErr struct {
				Message string `json:"message"`
			}
			msg := ev.Data
			if err := json.Unmarshal([]byte(ev.Data), &apiErr); err == nil && apiErr.Message != "" {
				msg = apiErr.Message
			}
			send(StreamEvent{Type: EventError, Event: ev.Event, Data: ev.Data, Text: msg})
			return
		case "done":
			send(StreamEvent{Type: EventDone, Event: ev.Event, Text: full.String()})
			return
		default:
			if !send(StreamEvent{Type: EventOther, Event: ev.Event, Data: ev.Data}) {
				return
			}
		}
	}

	if err := reader.Err(); err != nil {
		send(StreamEvent{Type: EventError, Text: c.transportError(ctx, err).Error()})
		return
	}
	send(StreamEvent{Type: EventDone, Text: full.String()})
}

// transportError maps a deadline expiry onto ErrTimeout.
func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		c.log.Warn().Dur("timeout", c.cfg.Timeout).Msg("agents API call timed out")
		return fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Timeout)
	}
	return fmt.Errorf("request failed: %w", err)
}
