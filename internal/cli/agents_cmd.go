package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/soyeahso/agentdash/internal/agent"
	"github.com/soyeahso/agentdash/internal/domain"
	"github.com/soyeahso/agentdash/internal/snowapi"
	"github.com/spf13/cobra"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List and run the agents of the configured schema",
	}

	cmd.AddCommand(newAgentsListCmd())
	cmd.AddCommand(newAgentsRunCmd())
	return cmd
}

func newAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, appOptions{platform: true})
			if err != nil {
				return err
			}
			defer a.Close()

			agents, err := a.agents.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(agents) == 0 {
				fmt.Fprintf(out, "No agents registered in %s.%s\n", cfg.Platform.Database, cfg.Platform.Schema)
				return nil
			}
			return printAgents(out, agents, time.Now())
		},
	}
}

func printAgents(out io.Writer, agents []domain.Agent, now time.Time) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISPLAY NAME\tNAME\tOWNER\tCREATED")
	for _, a := range agents {
		label, err := a.DisplayName()
		if err != nil {
			label = "(" + err.Error() + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, a.Name, dash(a.Owner), createdAgo(a.CreatedOn, now))
	}
	return tw.Flush()
}

func createdAgo(createdOn string, now time.Time) string {
	if createdOn == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, createdOn)
	if err != nil {
		return createdOn
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newAgentsRunCmd() *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "run <display name> <prompt...>",
		Short: "Send a prompt to an agent and print its response",
		Long: "Send a prompt to the agent with the given display name. The raw response " +
			"is printed as received; --stream prints text deltas as they arrive.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, appOptions{platform: true})
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := strings.Join(args[1:], " ")
			return runAgent(ctx, cmd.OutOrStdout(), a.agents, args[0], prompt, stream)
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "consume the response as an event stream")
	return cmd
}

func runAgent(ctx context.Context, out io.Writer, svc *agent.Service, label, prompt string, stream bool) error {
	agents, err := svc.List(ctx)
	if err != nil {
		return err
	}
	selected, err := agent.Select(agents, label)
	if err != nil {
		return err
	}

	if !stream {
		res, err := svc.Invoke(ctx, selected, prompt)
		if err != nil {
			return err
		}
		_, err = out.Write(res.Response.Body)
		if err == nil && !strings.HasSuffix(res.Response.Text(), "\n") {
			_, err = fmt.Fprintln(out)
		}
		return err
	}

	_, err = svc.Stream(ctx, selected, prompt, func(ev snowapi.StreamEvent) {
		if ev.Type == snowapi.EventDelta {
			fmt.Fprint(out, ev.Text)
		}
	})
	fmt.Fprintln(out)
	return err
}
