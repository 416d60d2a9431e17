package snowapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingBody = `{"data":[
	{"name":"PRODUCT_MATCHER","profile":{"display_name":"Product Matcher"},"comment":"matches products","database_name":"RETAIL_DB","schema_name":"ABT_BUY","owner":"ANALYST","created_on":"2025-06-01T10:00:00Z"},
	{"name":"PRICE_ADVISOR","profile":{"display_name":"Price Advisor"},"database_name":"RETAIL_DB","schema_name":"ABT_BUY"}
]}`

func testClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(Config{
		BaseURL:  ts.URL,
		Database: "RETAIL_DB",
		Schema:   "ABT_BUY",
		Timeout:  2 * time.Second,
	}, ts.Client(), logging.New(nil, "silent"), opts...)
}

func TestPaths(t *testing.T) {
	c := New(Config{BaseURL: "https://acct.example.com/", Database: "RETAIL_DB", Schema: "ABT_BUY"}, nil, logging.New(nil, "silent"))
	assert.Equal(t, "/api/v2/databases/RETAIL_DB/schemas/ABT_BUY/agents", c.AgentsPath())
	assert.Equal(t, "/api/v2/databases/RETAIL_DB/schemas/ABT_BUY/agents/PRICE_ADVISOR:run", c.RunPath("PRICE_ADVISOR"))
	assert.Equal(t, "/api/v2/databases/RETAIL_DB/schemas/ABT_BUY/agents/my%20agent:run", c.RunPath("my agent"))
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
}

func TestListAgents(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/databases/RETAIL_DB/schemas/ABT_BUY/agents", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, listingBody)
	})

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)

	assert.Equal(t, "PRODUCT_MATCHER", agents[0].Name)
	name, err := agents[0].DisplayName()
	require.NoError(t, err)
	assert.Equal(t, "Product Matcher", name)
	assert.Equal(t, "ANALYST", agents[0].Owner)
	assert.Equal(t, "2025-06-01T10:00:00Z", agents[0].CreatedOn)
}

func TestListAgentsAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"bad token"}`)
	})

	_, err := c.ListAgents(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "bad token")
}

func TestListAgentsTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(ts.Close)

	c := New(Config{BaseURL: ts.URL, Database: "DB", Schema: "S", Timeout: 50 * time.Millisecond},
		ts.Client(), logging.New(nil, "silent"))

	_, err := c.ListAgents(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListAgentsMalformedJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": [`)
	})

	_, err := c.ListAgents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse agent list")
}

func TestParseAgentList(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"empty data", `{"data": []}`, 0, false},
		{"missing data", `{"content": "x"}`, 0, false},
		{"null data", `{"data": null}`, 0, false},
		{"data not array", `{"data": {"name": "A"}}`, 0, false},
		{"top level array", `[]`, 0, false},
		{"two agents", listingBody, 2, false},
		{"malformed", `{"data": [}`, 0, true},
		{"bad element", `{"data": [1]}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents, err := ParseAgentList([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, agents)
			assert.Len(t, agents, tt.want)
		})
	}
}

func TestRunAgent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/databases/RETAIL_DB/schemas/ABT_BUY/agents/PRICE_ADVISOR:run", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t,
			`{"messages":[{"role":"user","content":[{"type":"text","text":"Show price comparisons"}]}]}`,
			string(body))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: response.text.delta\ndata: {\"text\":\"Abt is cheaper\"}\n\n")
	})

	resp, err := c.RunAgent(context.Background(), "PRICE_ADVISOR", "Show price comparisons")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.ContentType)
	assert.Contains(t, resp.Text(), "Abt is cheaper")
}

func TestRunAgentServerError(t *testing.T) {
	m := metrics.NewMetrics()
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent crashed", http.StatusInternalServerError)
	}, WithMetrics(m))

	_, err := c.RunAgent(context.Background(), "PRICE_ADVISOR", "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICallsTotal.WithLabelValues("run_agent", "500")))
}

func TestStreamAgent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keepalive\n\n")
		_, _ = io.WriteString(w, "event: response.status\ndata: {\"status\":\"planning\"}\n\n")
		_, _ = io.WriteString(w, "event: response.text.delta\ndata: {\"text\":\"Abt \"}\n\n")
		_, _ = io.WriteString(w, "event: response.text.delta\ndata: {\"text\":\"wins\"}\n\n")
		_, _ = io.WriteString(w, "event: done\ndata: [DONE]\n\n")
	})

	events, err := c.StreamAgent(context.Background(), "PRICE_ADVISOR", "Show price comparisons")
	require.NoError(t, err)

	var got []StreamEvent
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 4)
	assert.Equal(t, EventOther, got[0].Type)
	assert.Equal(t, "response.status", got[0].Event)
	assert.Equal(t, EventDelta, got[1].Type)
	assert.Equal(t, "Abt ", got[1].Text)
	assert.Equal(t, "wins", got[2].Text)
	assert.Equal(t, EventDone, got[3].Type)
	assert.Equal(t, "Abt wins", got[3].Text)
}

func TestStreamAgentErrorEvent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "event: error\ndata: {\"message\":\"warehouse suspended\"}\n\n")
		_, _ = io.WriteString(w, "event: response.text.delta\ndata: {\"text\":\"never\"}\n\n")
	})

	events, err := c.StreamAgent(context.Background(), "PRICE_ADVISOR", "hi")
	require.NoError(t, err)

	var got []StreamEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, EventError, got[0].Type)
	assert.Equal(t, "warehouse suspended", got[0].Text)
}

func TestStreamAgentEndsWithoutDone(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "event: response.text.delta\ndata: {\"text\":\"partial\"}")
	})

	events, err := c.StreamAgent(context.Background(), "PRICE_ADVISOR", "hi")
	require.NoError(t, err)

	var last StreamEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, EventDone, last.Type)
	assert.Equal(t, "partial", last.Text)
}

func TestStreamAgentStatusError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such agent", http.StatusNotFound)
	})

	events, err := c.StreamAgent(context.Background(), "MISSING", "hi")
	assert.Nil(t, events)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestRunRequestMatchesDomainEncoding(t *testing.T) {
	body, err := domain.NewRunRequest(`<b>&</b>`).Encode()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"text":"<b>&</b>"`)
}
