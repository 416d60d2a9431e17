package config

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Platform validation
	if cfg.Platform.AccountURL != "" {
		u, err := url.Parse(cfg.Platform.AccountURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "platform.accountUrl",
				Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Platform.AccountURL),
			})
		}
	}
	if cfg.Platform.Database == "" {
		issues = append(issues, ValidationIssue{Path: "platform.database", Message: "database is required"})
	}
	if cfg.Platform.Schema == "" {
		issues = append(issues, ValidationIssue{Path: "platform.schema", Message: "schema is required"})
	}
	if cfg.Platform.TimeoutMs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "platform.timeoutMs",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Platform.TimeoutMs),
		})
	}

	validPlatformAuth := []string{"token", "oauth"}
	if cfg.Platform.Auth.Mode != "" && !slices.Contains(validPlatformAuth, cfg.Platform.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "platform.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validPlatformAuth, cfg.Platform.Auth.Mode),
		})
	}
	if cfg.Platform.Auth.Mode == "oauth" {
		if cfg.Platform.Auth.ClientID == "" {
			issues = append(issues, ValidationIssue{Path: "platform.auth.clientId", Message: "required when auth mode is oauth"})
		}
		if cfg.Platform.Auth.TokenURL == "" {
			issues = append(issues, ValidationIssue{Path: "platform.auth.tokenUrl", Message: "required when auth mode is oauth"})
		}
	}

	// Warehouse validation
	validDrivers := []string{"snowflake", "sqlite"}
	if cfg.Warehouse.Driver != "" && !slices.Contains(validDrivers, cfg.Warehouse.Driver) {
		issues = append(issues, ValidationIssue{
			Path:    "warehouse.driver",
			Message: fmt.Sprintf("must be one of %v, got %q", validDrivers, cfg.Warehouse.Driver),
		})
	}
	if cfg.Warehouse.SeedFixtures && cfg.Warehouse.Driver != "sqlite" {
		issues = append(issues, ValidationIssue{
			Path:    "warehouse.seedFixtures",
			Message: "fixtures can only be seeded into the sqlite driver",
		})
	}

	// Analytics validation
	if cfg.Analytics.MinScore < 0 || cfg.Analytics.MinScore > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "analytics.minScore",
			Message: fmt.Sprintf("must be between 0 and 1, got %g", cfg.Analytics.MinScore),
		})
	}
	if cfg.Analytics.RowLimit < 0 || cfg.Analytics.RowLimit > 1000 {
		issues = append(issues, ValidationIssue{
			Path:    "analytics.rowLimit",
			Message: fmt.Sprintf("must be 0-1000, got %d", cfg.Analytics.RowLimit),
		})
	}

	// Dashboard validation
	if cfg.Dashboard.Port < 0 || cfg.Dashboard.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "dashboard.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Dashboard.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Dashboard.Bind != "" && !slices.Contains(validBinds, cfg.Dashboard.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "dashboard.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Dashboard.Bind),
		})
	}

	validAuthModes := []string{"none", "token", "password"}
	if cfg.Dashboard.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Dashboard.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "dashboard.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Dashboard.Auth.Mode),
		})
	}
	if cfg.Dashboard.Auth.Mode == "none" && cfg.Dashboard.Bind != "" && cfg.Dashboard.Bind != "loopback" {
		issues = append(issues, ValidationIssue{
			Path:    "dashboard.auth.mode",
			Message: "auth must be enabled when binding beyond loopback",
		})
	}
	if cfg.Dashboard.TLS.Enabled && (cfg.Dashboard.TLS.CertPath == "" || cfg.Dashboard.TLS.KeyPath == "") {
		issues = append(issues, ValidationIssue{
			Path:    "dashboard.tls",
			Message: "certPath and keyPath are required when TLS is enabled",
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Hooks validation
	hookLists := map[string][]HookEntry{
		"hooks.serverStart":     cfg.Hooks.ServerStart,
		"hooks.serverStop":      cfg.Hooks.ServerStop,
		"hooks.agentRun":        cfg.Hooks.AgentRun,
		"hooks.actionCompleted": cfg.Hooks.ActionCompleted,
		"hooks.actionFailed":    cfg.Hooks.ActionFailed,
	}
	for _, path := range slices.Sorted(maps.Keys(hookLists)) {
		for i, h := range hookLists[path] {
			if h.Command == "" {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("%s[%d].command", path, i),
					Message: "command is required",
				})
			}
		}
	}

	return issues
}
