package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/agentdash/internal/agent"
	"github.com/soyeahso/agentdash/internal/config"
	"github.com/soyeahso/agentdash/internal/dashboard"
	"github.com/soyeahso/agentdash/internal/hooks"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/metrics"
	"github.com/soyeahso/agentdash/internal/snowapi"
	"github.com/soyeahso/agentdash/internal/warehouse"
)

// app holds the collaborators shared by the commands. Every handle is
// created once here and passed down explicitly.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	hooks    *hooks.Manager
	metrics  *metrics.Metrics
	agents   *agent.Service
	db       *warehouse.DB
	renderer *dashboard.Renderer
	dash     *dashboard.Dashboard
}

// appOptions select which collaborators a command needs.
type appOptions struct {
	platform  bool // agents API client
	warehouse bool // analytics and procedures
	metrics   bool
}

// loadConfig reads and validates the config file. apply runs before
// validation so flag overrides are checked too.
func loadConfig(apply func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if apply != nil {
		apply(&cfg)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// newApp wires the collaborators for cfg.
func newApp(ctx context.Context, cfg config.Config, opts appOptions) (*app, error) {
	appLog, err := logging.NewWithOptions(logging.Options{
		Level:        cfg.Logging.Level,
		ConsoleStyle: cfg.Logging.ConsoleStyle,
		File:         cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: appLog, hooks: hooks.NewManager(appLog)}
	if n := a.hooks.RegisterCommands(cfg.Hooks); n > 0 {
		appLog.Info().Int("hooks", n).Msg("command hooks registered")
	}
	if opts.metrics {
		a.metrics = metrics.NewMetrics()
	}

	if opts.platform {
		api, err := newPlatformClient(ctx, cfg.Platform, appLog, a.metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.agents = agent.NewService(api, a.hooks, appLog)
	}

	if opts.warehouse && cfg.Analytics.Enabled {
		a.db, err = warehouse.Open(ctx, cfg.Warehouse, appLog)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.renderer = dashboard.NewRenderer(a.db, a.db, appLog,
			dashboard.WithHooks(a.hooks),
			dashboard.WithMetrics(a.metrics),
		)
	}

	if a.agents != nil {
		a.dash = dashboard.New(a.agents, a.renderer, dashboard.Options{
			Title:         cfg.Dashboard.Title,
			DefaultPrompt: cfg.Dashboard.DefaultPrompt,
			Database:      cfg.Platform.Database,
			Schema:        cfg.Platform.Schema,
			Filters:       defaultFilters(cfg.Analytics),
		}, appLog)
	}
	return a, nil
}

func newPlatformClient(ctx context.Context, p config.PlatformConfig, log *logging.Logger, m *metrics.Metrics) (*snowapi.Client, error) {
	if p.AccountURL == "" {
		return nil, errors.New("platform.accountUrl is not configured (set it or AGENTDASH_ACCOUNT_URL)")
	}
	httpClient, err := snowapi.NewHTTPClient(ctx, snowapi.AuthConfig{
		Mode:         p.Auth.Mode,
		Token:        p.Auth.Token,
		TokenType:    p.Auth.TokenType,
		ClientID:     p.Auth.ClientID,
		ClientSecret: p.Auth.ClientSecret,
		TokenURL:     p.Auth.TokenURL,
		Scopes:       p.Auth.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("platform auth: %w", err)
	}
	return snowapi.New(snowapi.Config{
		BaseURL:  p.AccountURL,
		Database: p.Database,
		Schema:   p.Schema,
		Timeout:  p.Timeout(),
	}, httpClient, log, snowapi.WithMetrics(m)), nil
}

func defaultFilters(a config.AnalyticsConfig) warehouse.Filters {
	return warehouse.Filters{
		MinScore:  a.MinScore,
		Retailers: a.Retailers,
		Limit:     a.RowLimit,
	}
}

// Close releases the warehouse and the log file.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing warehouse")
		}
	}
	a.log.Close()
}
