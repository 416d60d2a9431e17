package cli

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/agentdash/internal/dashboard"
	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sseBody = "event: response.text.delta\ndata: {\"text\":\"Abt is \"}\n\n" +
	"event: response.text.delta\ndata: {\"text\":\"cheaper\"}\n\n" +
	"event: done\ndata: [DONE]\n\n"

func fakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-pat", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/agents"):
			io.WriteString(w, `{"data":[
				{"name":"PRODUCT_MATCHER","profile":{"display_name":"Product Matcher"},"owner":"ANALYST"},
				{"name":"PRICE_ADVISOR","profile":{"display_name":"Price Advisor"}}
			]}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/PRICE_ADVISOR:run"):
			w.Header().Set("Content-Type", "text/event-stream")
			io.WriteString(w, sseBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeConfig(t *testing.T, accountURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGENTDASH_HOME", dir)
	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`platform:
  accountUrl: %q
  auth:
    token: test-pat
warehouse:
  driver: sqlite
  seedFixtures: true
logging:
  level: silent
`, accountURL)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAgentsList(t *testing.T) {
	cfg := writeConfig(t, fakePlatform(t).URL)

	out, err := run(t, "--config", cfg, "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "DISPLAY NAME")
	assert.Contains(t, out, "Product Matcher")
	assert.Contains(t, out, "PRICE_ADVISOR")
	assert.Contains(t, out, "ANALYST")
}

func TestAgentsRun(t *testing.T) {
	cfg := writeConfig(t, fakePlatform(t).URL)

	out, err := run(t, "--config", cfg, "agents", "run", "Price Advisor", "Which", "is", "cheaper?")
	require.NoError(t, err)
	assert.Equal(t, sseBody, out)
}

func TestAgentsRunStream(t *testing.T) {
	cfg := writeConfig(t, fakePlatform(t).URL)

	out, err := run(t, "--config", cfg, "agents", "run", "--stream", "Price Advisor", "compare")
	require.NoError(t, err)
	assert.Equal(t, "Abt is cheaper\n", out)
}

func TestAgentsRunUnknownAgent(t *testing.T) {
	cfg := writeConfig(t, fakePlatform(t).URL)

	_, err := run(t, "--config", cfg, "agents", "run", "Nobody", "hi")
	assert.ErrorContains(t, err, "agent not found")
}

func TestAgentsRequiresAccountURL(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := run(t, "--config", cfg, "agents", "list")
	assert.ErrorContains(t, err, "platform.accountUrl is not configured")
}

func TestAnalyticsShow(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, "--config", cfg, "analytics", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "== Matching metrics ==")
	assert.Contains(t, out, "Confirmed matches: 4")
	assert.Contains(t, out, "== Price comparison ==")
	assert.Contains(t, out, "== Market share trend ==")

	out, err = run(t, "--config", cfg, "analytics", "show", "--section", "final_matches", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "== Final product matches ==")
	assert.NotContains(t, out, "Matching metrics")

	_, err = run(t, "--config", cfg, "analytics", "show", "--section", "bogus")
	assert.ErrorContains(t, err, `unknown section "bogus"`)
}

func TestAnalyticsRun(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, "--config", cfg, "analytics", "run", "price_optimization")
	require.NoError(t, err)
	assert.Equal(t, "Price optimization completed\n", out)

	_, err = run(t, "--config", cfg, "analytics", "run", "vacuum")
	assert.ErrorContains(t, err, "unknown action")
}

func TestConfigSetGetUnset(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := run(t, "--config", cfg, "config", "set", "dashboard.port", "9000")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "config", "get", "dashboard.port")
	require.NoError(t, err)
	assert.Equal(t, "9000\n", out)

	out, err = run(t, "--config", cfg, "config", "get", "platform.auth")
	require.NoError(t, err)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "test-pat")

	out, err = run(t, "--config", cfg, "config", "get", "--reveal", "platform.auth.token")
	require.NoError(t, err)
	assert.Equal(t, "test-pat\n", out)

	_, err = run(t, "--config", cfg, "config", "unset", "dashboard.port")
	require.NoError(t, err)
	_, err = run(t, "--config", cfg, "config", "get", "dashboard.port")
	assert.ErrorContains(t, err, "not found")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("FALSE"))
	assert.Equal(t, 8501, parseValue("8501"))
	assert.Equal(t, 0.85, parseValue("0.85"))
	assert.Equal(t, "1", fmt.Sprint(parseValue("1")))
	assert.Equal(t, "RETAIL_DB", parseValue("RETAIL_DB"))
}

func TestMaskSecrets(t *testing.T) {
	in := map[string]any{
		"mode":         "oauth",
		"clientSecret": "shh",
		"token":        "${SNOWFLAKE_PAT}",
	}
	got := maskSecrets("auth", in).(map[string]any)
	assert.Equal(t, "oauth", got["mode"])
	assert.Equal(t, "********", got["clientSecret"])
	assert.Equal(t, "${SNOWFLAKE_PAT}", got["token"])
}

func TestPrintAgents(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	agents := []domain.Agent{
		{Name: "PRICE_ADVISOR", Profile: &domain.Profile{DisplayName: "Price Advisor"}, CreatedOn: "2025-06-01T10:00:00Z"},
		{Name: "NAMELESS"},
	}

	var buf bytes.Buffer
	require.NoError(t, printAgents(&buf, agents, now))
	out := buf.String()
	assert.Contains(t, out, "2 days ago")
	assert.Contains(t, out, "missing field")
	assert.Contains(t, out, "NAMELESS")
}

func TestPrintSectionEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSection(&buf, dashboard.Section{
		Title:   "Candidate matches",
		Kind:    dashboard.KindTable,
		Empty:   true,
		Message: dashboard.NoDataMessage,
	}))
	assert.Equal(t, "== Candidate matches ==\n"+dashboard.NoDataMessage+"\n", buf.String())
}

func TestStatusChecksWarehouse(t *testing.T) {
	cfg := writeConfig(t, "https://acct.example.com")

	out, err := run(t, "--config", cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform:  https://acct.example.com")
	assert.Contains(t, out, "Warehouse: driver=sqlite :memory: reachable via sqlite")
}

func TestStatusSkipsUnconfiguredSnowflake(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTDASH_HOME", dir)
	path := filepath.Join(dir, "config.yaml")
	cfg := `logging:
  level: silent
hooks:
  serverStart:
    - command: "true"
  actionFailed:
    - command: "true"
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	out, err := run(t, "--config", path, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Warehouse: driver=snowflake (dsn not set) (not checked)")
	assert.Contains(t, out, "Hooks:     2 command(s) server_start=1 action_failed=1")
}
