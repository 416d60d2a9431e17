package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/soyeahso/agentdash/internal/config"
	"github.com/soyeahso/agentdash/internal/gateway"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port  int
		bind  string
		local bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(cfg *config.Config) {
				if port != 0 {
					cfg.Dashboard.Port = port
				}
				if bind != "" {
					cfg.Dashboard.Bind = bind
				}
				if local {
					cfg.Warehouse.Driver = "sqlite"
					cfg.Warehouse.SeedFixtures = true
					if cfg.Warehouse.DSN == "" {
						cfg.Warehouse.DSN = paths.LocalWarehouse()
					}
				}
			})
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, appOptions{platform: true, warehouse: true, metrics: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.renderer == nil {
				a.log.Info().Msg("analytics disabled")
			}

			srv := gateway.New(cfg.Dashboard, a.dash, a.log,
				gateway.WithHooks(a.hooks),
				gateway.WithMetrics(a.metrics),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override dashboard port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")
	cmd.Flags().BoolVar(&local, "local", false, "use the local sqlite warehouse seeded with sample data")

	return cmd
}
