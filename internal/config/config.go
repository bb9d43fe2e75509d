package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRejectReason is substituted whenever configuration supplies an
// empty reject reason; a rejection must always carry a human-readable one.
const DefaultRejectReason = "join request rejected"

// Config represents the application configuration. Unknown YAML keys are
// ignored by the decoder; only the fields below take effect.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Policy    PolicyConfig    `yaml:"policy"`
	CodeStore CodeStoreConfig `yaml:"codestore"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Notify    NotifyConfig    `yaml:"notify"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP listener settings for event intake and the
// code-store API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GatewayConfig contains the bot gateway callback settings.
type GatewayConfig struct {
	Platform       string `yaml:"platform"` // "onebot"
	APIURL         string `yaml:"api_url"`
	AccessToken    string `yaml:"access_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PolicyConfig contains the join-request decision rules.
type PolicyConfig struct {
	AcceptKeywords           []string `yaml:"accept_keywords"`
	RejectKeywords           []string `yaml:"reject_keywords"`
	AutoAccept               bool     `yaml:"auto_accept"`
	AutoReject               bool     `yaml:"auto_reject"`
	RejectReason             string   `yaml:"reject_reason"`
	DelaySeconds             int      `yaml:"delay_seconds"`
	UseVerificationCode      bool     `yaml:"use_verification_code"`
	PriorityVerificationCode bool     `yaml:"priority_verification_code"`
}

// CodeStoreConfig selects the verification-code backend.
type CodeStoreConfig struct {
	Backend        string `yaml:"backend"` // "postgres", "redis", "remote" or "memory"
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ServiceSecret  string `yaml:"service_secret"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NotifyConfig contains moderator notification settings.
type NotifyConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	ModeratorEmail string `yaml:"moderator_email"`
	OnDefer        bool   `yaml:"on_defer"`
}

// AdminConfig contains the provisioning API settings. SecretHash is a
// bcrypt hash of the shared admin secret, never the secret itself.
type AdminConfig struct {
	SecretHash string `yaml:"secret_hash"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `yaml:"format"` // "json" or "text"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// SchedulerConfig contains cron schedule settings.
type SchedulerConfig struct {
	DeleteExpiredCodes string   `yaml:"delete_expired_codes"`
	ReportCodeStats    string   `yaml:"report_code_stats"`
	StatGroups         []string `yaml:"stat_groups"`
}

// Load reads configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables.
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	if val := os.Getenv("GATEWAY_API_URL"); val != "" {
		c.Gateway.APIURL = val
	}
	if val := os.Getenv("GATEWAY_ACCESS_TOKEN"); val != "" {
		c.Gateway.AccessToken = val
	}

	if val := os.Getenv("CODESTORE_ENDPOINT"); val != "" {
		c.CodeStore.Endpoint = val
	}
	if val := os.Getenv("CODESTORE_SERVICE_SECRET"); val != "" {
		c.CodeStore.ServiceSecret = val
	}

	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notify.SendGridAPIKey = val
	}

	if val := os.Getenv("ADMIN_SECRET_HASH"); val != "" {
		c.Admin.SecretHash = val
	}

	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

// Validate checks the configuration and fills safe defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Gateway.Platform == "" {
		c.Gateway.Platform = "onebot"
	}
	if c.Gateway.Platform != "onebot" {
		return fmt.Errorf("unsupported gateway platform: %s", c.Gateway.Platform)
	}
	if c.Gateway.APIURL == "" {
		return fmt.Errorf("gateway api_url is required")
	}
	if c.Gateway.TimeoutSeconds <= 0 {
		c.Gateway.TimeoutSeconds = 10
	}

	if c.Policy.AutoAccept && c.Policy.AutoReject {
		// Contradictory intent; auto_accept takes precedence at decision
		// time, flag it here so the operator notices.
		fmt.Fprintln(os.Stderr, "warning: auto_accept and auto_reject are both enabled; auto_accept wins")
	}
	if strings.TrimSpace(c.Policy.RejectReason) == "" {
		c.Policy.RejectReason = DefaultRejectReason
	}
	if c.Policy.DelaySeconds < 0 {
		return fmt.Errorf("delay_seconds must not be negative: %d", c.Policy.DelaySeconds)
	}

	switch c.CodeStore.Backend {
	case "":
		c.CodeStore.Backend = "memory"
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for the postgres code store")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required for the postgres code store")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required for the postgres code store")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis code store")
		}
	case "remote":
		if c.CodeStore.Endpoint == "" {
			return fmt.Errorf("codestore endpoint is required for the remote code store")
		}
		if c.CodeStore.ServiceSecret == "" {
			return fmt.Errorf("codestore service_secret is required for the remote code store")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported codestore backend: %s", c.CodeStore.Backend)
	}
	if c.CodeStore.TimeoutSeconds <= 0 {
		c.CodeStore.TimeoutSeconds = 5
	}

	if c.Notify.OnDefer {
		if c.Notify.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid_api_key is required when notify.on_defer is enabled")
		}
		if c.Notify.ModeratorEmail == "" {
			return fmt.Errorf("moderator_email is required when notify.on_defer is enabled")
		}
		if c.Notify.FromEmail == "" {
			return fmt.Errorf("from_email is required when notify.on_defer is enabled")
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Scheduler.DeleteExpiredCodes == "" {
		c.Scheduler.DeleteExpiredCodes = "0 0 4 * * *" // 4 AM UTC
	}
	if c.Scheduler.ReportCodeStats == "" {
		c.Scheduler.ReportCodeStats = "0 0 8 * * *" // 8 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string.
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
