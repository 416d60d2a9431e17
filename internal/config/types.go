package config

// Config is the root configuration for agentdash.
type Config struct {
	Platform  PlatformConfig  `yaml:"platform,omitempty"`
	Warehouse WarehouseConfig `yaml:"warehouse,omitempty"`
	Analytics AnalyticsConfig `yaml:"analytics,omitempty"`
	Dashboard DashboardConfig `yaml:"dashboard,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Hooks     HooksConfig     `yaml:"hooks,omitempty"`
}

// PlatformConfig locates the agents REST API and the namespace agents live in.
type PlatformConfig struct {
	AccountURL string       `yaml:"accountUrl,omitempty"` // https://<account>.snowflakecomputing.com
	Database   string       `yaml:"database,omitempty"`
	Schema     string       `yaml:"schema,omitempty"`
	TimeoutMs  int          `yaml:"timeoutMs,omitempty"`
	Auth       PlatformAuth `yaml:"auth,omitempty"`
}

// PlatformAuth configures how API requests are authorized.
type PlatformAuth struct {
	Mode         string   `yaml:"mode,omitempty"` // "token" | "oauth"
	Token        string   `yaml:"token,omitempty"`
	TokenType    string   `yaml:"tokenType,omitempty"` // PROGRAMMATIC_ACCESS_TOKEN | KEYPAIR_JWT | OAUTH
	ClientID     string   `yaml:"clientId,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	TokenURL     string   `yaml:"tokenUrl,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// WarehouseConfig selects the SQL driver used for analytics and procedures.
type WarehouseConfig struct {
	Driver       string `yaml:"driver,omitempty"` // "snowflake" | "sqlite"
	DSN          string `yaml:"dsn,omitempty"`
	SeedFixtures bool   `yaml:"seedFixtures,omitempty"` // sqlite only
}

// AnalyticsConfig holds the default filters of the analytics sections.
type AnalyticsConfig struct {
	Enabled   bool     `yaml:"enabled,omitempty"`
	MinScore  float64  `yaml:"minScore,omitempty"`
	RowLimit  int      `yaml:"rowLimit,omitempty"`
	Retailers []string `yaml:"retailers,omitempty"`
}

// DashboardConfig controls the HTTP server that renders the page.
type DashboardConfig struct {
	Title          string        `yaml:"title,omitempty"`
	DefaultPrompt  string        `yaml:"defaultPrompt,omitempty"`
	Port           int           `yaml:"port,omitempty"`
	Bind           string        `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string        `yaml:"customBindHost,omitempty"`
	Auth           DashboardAuth `yaml:"auth,omitempty"`
	TLS            DashboardTLS  `yaml:"tls,omitempty"`
	AllowedOrigins []string      `yaml:"allowedOrigins,omitempty"`
}

// DashboardAuth configures access to the dashboard.
type DashboardAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "none" | "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// DashboardTLS configures TLS for the dashboard listener.
type DashboardTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// HooksConfig defines shell commands run on lifecycle events.
type HooksConfig struct {
	ServerStart     []HookEntry `yaml:"serverStart,omitempty"`
	ServerStop      []HookEntry `yaml:"serverStop,omitempty"`
	AgentRun        []HookEntry `yaml:"agentRun,omitempty"`
	ActionCompleted []HookEntry `yaml:"actionCompleted,omitempty"`
	ActionFailed    []HookEntry `yaml:"actionFailed,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
