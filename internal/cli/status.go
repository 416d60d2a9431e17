package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/agentdash/internal/config"
	"github.com/soyeahso/agentdash/internal/hooks"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/version"
	"github.com/soyeahso/agentdash/internal/warehouse"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show agentdash status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "agentdash %s (commit %s)\n\n", version.Version, version.Short(version.Commit))

			fmt.Fprintf(out, "Config:    %s\n", paths.Config)
			fmt.Fprintf(out, "Data:      %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:      %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:    error loading: %v\n", err)
				return nil
			}

			account := cfg.Platform.AccountURL
			if account == "" {
				account = "(not configured)"
			}
			fmt.Fprintf(out, "Platform:  %s namespace=%s.%s auth=%s timeout=%s\n",
				account, cfg.Platform.Database, cfg.Platform.Schema, cfg.Platform.Auth.Mode, cfg.Platform.Timeout())

			warehouseTarget := cfg.Warehouse.DSN
			switch {
			case cfg.Warehouse.Driver == "sqlite" && warehouseTarget == "":
				warehouseTarget = ":memory:"
			case cfg.Warehouse.Driver == "snowflake" && warehouseTarget != "":
				warehouseTarget = "(dsn set)"
			case warehouseTarget == "":
				warehouseTarget = "(dsn not set)"
			}
			fmt.Fprintf(out, "Warehouse: driver=%s %s %s\n", cfg.Warehouse.Driver, warehouseTarget,
				checkWarehouse(cmd.Context(), cfg.Warehouse))

			if cfg.Analytics.Enabled {
				retailers := "all"
				if len(cfg.Analytics.Retailers) > 0 {
					retailers = strings.Join(cfg.Analytics.Retailers, ",")
				}
				fmt.Fprintf(out, "Analytics: minScore=%.2f rows=%d retailers=%s\n",
					cfg.Analytics.MinScore, cfg.Analytics.RowLimit, retailers)
			} else {
				fmt.Fprintln(out, "Analytics: disabled")
			}

			fmt.Fprintf(out, "Dashboard: port=%d bind=%s auth=%s tls=%v\n",
				cfg.Dashboard.Port, cfg.Dashboard.Bind, cfg.Dashboard.Auth.Mode, cfg.Dashboard.TLS.Enabled)

			hm := hooks.NewManager(logging.New(nil, "silent"))
			if n := hm.RegisterCommands(cfg.Hooks); n > 0 {
				var events []string
				for _, event := range hm.Events() {
					events = append(events, fmt.Sprintf("%s=%d", event, hm.Count(event)))
				}
				fmt.Fprintf(out, "Hooks:     %d command(s) %s\n", n, strings.Join(events, " "))
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			return nil
		},
	}

	return cmd
}

// warehouseCheckTimeout bounds the connectivity check of the status command.
const warehouseCheckTimeout = 10 * time.Second

// checkWarehouse opens the configured warehouse and pings it.
func checkWarehouse(ctx context.Context, cfg config.WarehouseConfig) string {
	if cfg.Driver == warehouse.DriverSnowflake && cfg.DSN == "" {
		return "(not checked)"
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, warehouseCheckTimeout)
	defer cancel()

	db, err := warehouse.Open(ctx, cfg, logging.New(nil, "silent"))
	if err != nil {
		return "unreachable: " + err.Error()
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return "unreachable: " + err.Error()
	}
	return "reachable via " + db.Driver()
}
