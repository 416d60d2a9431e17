package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens and secrets can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Platform.Auth.Token = expandEnvVars(cfg.Platform.Auth.Token)
	cfg.Platform.Auth.ClientSecret = expandEnvVars(cfg.Platform.Auth.ClientSecret)
	cfg.Warehouse.DSN = expandEnvVars(cfg.Warehouse.DSN)
	cfg.Dashboard.Auth.Token = expandEnvVars(cfg.Dashboard.Auth.Token)
	cfg.Dashboard.Auth.Password = expandEnvVars(cfg.Dashboard.Auth.Password)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Platform.Database == "" {
		cfg.Platform.Database = DefaultDatabase
	}
	if cfg.Platform.Schema == "" {
		cfg.Platform.Schema = DefaultSchema
	}
	if cfg.Platform.TimeoutMs == 0 {
		cfg.Platform.TimeoutMs = DefaultTimeoutMs
	}
	if cfg.Platform.Auth.Mode == "" {
		cfg.Platform.Auth.Mode = "token"
	}
	if cfg.Platform.Auth.TokenType == "" {
		cfg.Platform.Auth.TokenType = DefaultTokenType
	}
	if cfg.Warehouse.Driver == "" {
		cfg.Warehouse.Driver = "snowflake"
	}
	if cfg.Analytics.MinScore == 0 {
		cfg.Analytics.MinScore = DefaultMinScore
	}
	if cfg.Analytics.RowLimit == 0 {
		cfg.Analytics.RowLimit = DefaultRowLimit
	}
	if cfg.Dashboard.Title == "" {
		cfg.Dashboard.Title = DefaultTitle
	}
	if cfg.Dashboard.DefaultPrompt == "" {
		cfg.Dashboard.DefaultPrompt = DefaultPrompt
	}
	if cfg.Dashboard.Port == 0 {
		cfg.Dashboard.Port = DefaultPort
	}
	if cfg.Dashboard.Bind == "" {
		cfg.Dashboard.Bind = "loopback"
	}
	if cfg.Dashboard.Auth.Mode == "" {
		cfg.Dashboard.Auth.Mode = "none"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads AGENTDASH_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTDASH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.Port = port
		}
	}
	if v := os.Getenv("AGENTDASH_BIND"); v != "" {
		cfg.Dashboard.Bind = v
	}
	if v := os.Getenv("AGENTDASH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AGENTDASH_ACCOUNT_URL"); v != "" {
		cfg.Platform.AccountURL = v
	}
	if v := os.Getenv("AGENTDASH_DATABASE"); v != "" {
		cfg.Platform.Database = v
	}
	if v := os.Getenv("AGENTDASH_SCHEMA"); v != "" {
		cfg.Platform.Schema = v
	}
	if v := os.Getenv("AGENTDASH_TOKEN"); v != "" {
		cfg.Platform.Auth.Token = v
	}
	if v := os.Getenv("AGENTDASH_WAREHOUSE_DSN"); v != "" {
		cfg.Warehouse.DSN = v
	}
}
