package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soyeahso/agentdash/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandHandler_ReceivesPayload(t *testing.T) {
	out := filepath.Join(t.TempDir(), "payload.json")
	h := CommandHandler(config.HookEntry{Command: `cat > "` + out + `"; echo "$AGENTDASH_EVENT" >> "` + out + `"`})

	err := h(context.Background(), Payload{Event: EventAgentRun, Data: map[string]any{"agent": "PRICE_ADVISOR"}})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"agent":"PRICE_ADVISOR"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), EventAgentRun))
}

func TestCommandHandler_Failure(t *testing.T) {
	h := CommandHandler(config.HookEntry{Command: "echo nope >&2; exit 3"})
	err := h(context.Background(), Payload{Event: EventServerStop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCommandHandler_Timeout(t *testing.T) {
	h := CommandHandler(config.HookEntry{Command: "sleep 5", Timeout: 50})
	err := h(context.Background(), Payload{Event: EventServerStop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRegisterCommands(t *testing.T) {
	m := testManager()
	n := m.RegisterCommands(config.HooksConfig{
		ServerStart:  []config.HookEntry{{Command: "true"}, {Command: ""}},
		ActionFailed: []config.HookEntry{{Command: "true"}},
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, m.Count(EventServerStart))
	assert.Equal(t, 1, m.Count(EventActionFailed))
	assert.Equal(t, 0, m.Count(EventAgentRun))
}
