package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/soyeahso/agentdash/internal/config"
)

// DefaultCommandTimeout bounds a shell hook without its own timeout.
const DefaultCommandTimeout = 10 * time.Second

// CommandHandler returns a Handler that runs command through sh -c with the
// JSON payload on stdin. The event name is exported as AGENTDASH_EVENT.
func CommandHandler(entry config.HookEntry) Handler {
	timeout := DefaultCommandTimeout
	if entry.Timeout > 0 {
		timeout = time.Duration(entry.Timeout) * time.Millisecond
	}

	return func(ctx context.Context, p Payload) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		input, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding hook payload: %w", err)
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", entry.Command)
		cmd.Stdin = bytes.NewReader(input)
		cmd.Env = append(cmd.Environ(), "AGENTDASH_EVENT="+p.Event)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		cmd.WaitDelay = time.Second

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("hook %q timed out after %s", entry.Command, timeout)
			}
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("hook %q: %w: %s", entry.Command, err, msg)
			}
			return fmt.Errorf("hook %q: %w", entry.Command, err)
		}
		return nil
	}
}

// RegisterCommands registers every configured shell hook. Each entry is
// named "command:<event>:<index>".
func (m *Manager) RegisterCommands(cfg config.HooksConfig) int {
	lists := map[string][]config.HookEntry{
		EventServerStart:     cfg.ServerStart,
		EventServerStop:      cfg.ServerStop,
		EventAgentRun:        cfg.AgentRun,
		EventActionCompleted: cfg.ActionCompleted,
		EventActionFailed:    cfg.ActionFailed,
	}

	n := 0
	for _, event := range AllEvents {
		for i, entry := range lists[event] {
			if entry.Command == "" {
				continue
			}
			m.On(event, fmt.Sprintf("command:%s:%d", event, i), CommandHandler(entry))
			n++
		}
	}
	return n
}
