package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// MinSessionKeyLength is the minimum length of a session signing key in bytes.
const MinSessionKeyLength = 32

// Config holds the configuration for the evoting server and its dependencies.
type Config struct {
	// Listen is the address the server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the public base URL of the server, used in receipt emails.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Session holds the session cookie configuration.
	Session *SessionConfig `yaml:"session" mapstructure:"session"`
	// Auth holds the credential store configuration.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// BootstrapAdmin is an optional admin account seeded at startup.
	BootstrapAdmin *BootstrapAdminConfig `yaml:"bootstrap_admin" mapstructure:"bootstrap_admin"`
	// Uploads holds the candidate symbol upload configuration.
	Uploads *UploadsConfig `yaml:"uploads" mapstructure:"uploads"`
	// Cache holds the cache engine configuration (sessions and results).
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Email holds the vote receipt email configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
	// Gravatar holds the configuration for Gravatar profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Type is the database driver, either "sqlite" or "postgres".
	Type DatabaseType `yaml:"type" mapstructure:"type"`
	// Path is the path to the sqlite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DSN is the postgres connection string.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// SessionConfig holds the session configuration.
type SessionConfig struct {
	// Keys are the keys used to sign session cookies.
	// The first key signs new cookies, all keys are accepted when verifying,
	// so a key can be rotated by prepending a new one.
	Keys []string `yaml:"keys" mapstructure:"keys"`
	// MaxAge is the maximum age of a session in seconds.
	MaxAge int `yaml:"max_age" mapstructure:"max_age"`
	// SecureCookie marks the session cookie as https only.
	SecureCookie bool `yaml:"secure_cookie" mapstructure:"secure_cookie"`
	// CookieName is the name of the session cookie.
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`
}

// AuthConfig holds the credential store configuration.
type AuthConfig struct {
	// BcryptCost is the bcrypt cost used for new password hashes.
	BcryptCost int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// BootstrapAdminConfig describes an admin account that is created or promoted at startup.
type BootstrapAdminConfig struct {
	Identifier string `yaml:"identifier" mapstructure:"identifier"`
	Name       string `yaml:"name" mapstructure:"name"`
	Email      string `yaml:"email" mapstructure:"email"`
	Password   string `yaml:"password" mapstructure:"password"`
}

// UploadsConfig holds the candidate symbol upload configuration.
type UploadsConfig struct {
	// Dir is the directory uploaded symbols are stored in and served from.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// MaxWidth is the maximum width of a stored symbol, larger images are scaled down.
	MaxWidth int `yaml:"max_width" mapstructure:"max_width"`
	// MaxHeight is the maximum height of a stored symbol, larger images are scaled down.
	MaxHeight int `yaml:"max_height" mapstructure:"max_height"`
	// MaxBytes is the maximum size of an uploaded file.
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
	// MaxDiskUsagePercent refuses uploads when the volume holding Dir is fuller than this.
	// 0 disables the check.
	MaxDiskUsagePercent float64 `yaml:"max_disk_usage_percent" mapstructure:"max_disk_usage_percent"`
	// CleanupSchedule is the cron schedule of the orphaned symbol cleanup job.
	CleanupSchedule string `yaml:"cleanup_schedule" mapstructure:"cleanup_schedule"`
	// OrphanGrace is the minimum age in hours of an unreferenced file before it is removed.
	OrphanGrace int `yaml:"orphan_grace" mapstructure:"orphan_grace"`
}

// CacheConfig holds the configuration for the cache engine.
type CacheConfig struct {
	// Type is the type of cache engine to use.
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the redis server.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// ResultsTTL is the lifetime of cached results in seconds.
	ResultsTTL int `yaml:"results_ttl" mapstructure:"results_ttl"`
}

// EmailConfig holds the email notification configuration.
type EmailConfig struct {
	// Enabled indicates whether vote receipts are sent.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SMTPHost is the SMTP server host.
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	// SMTPPort is the SMTP server port.
	SMTPPort int `yaml:"smtp_port" mapstructure:"smtp_port"`
	// Username is the SMTP username.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the SMTP password.
	Password string `yaml:"password" mapstructure:"password"`
	// FromEmail is the sender address.
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	// FromName is the sender display name.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// UseTLS enables STARTTLS.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`
	// UseSSL enables implicit TLS.
	UseSSL bool `yaml:"use_ssl" mapstructure:"use_ssl"`
	// InsecureSkipVerify skips certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	Rating       string `yaml:"rating" mapstructure:"rating"`
	Size         int    `yaml:"size" mapstructure:"size"`
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// A missing default file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the given file (or the default locations)
// and the EVOTING_ environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	bindNestedEnv(v)

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("EVOTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.evoting")
		v.AddConfigPath("/etc/evoting")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3000")
	v.SetDefault("server_url", "http://localhost:3000")

	v.SetDefault("database.type", DatabaseTypeSQLite)
	v.SetDefault("database.path", "./data/evoting.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("session.keys", []string{})
	v.SetDefault("session.max_age", 28800) // 8 hours
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("session.cookie_name", "evoting_session")

	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("bootstrap_admin.identifier", "")
	v.SetDefault("bootstrap_admin.name", "Administrator")
	v.SetDefault("bootstrap_admin.email", "")
	v.SetDefault("bootstrap_admin.password", "")

	v.SetDefault("uploads.dir", "./data/uploads")
	v.SetDefault("uploads.max_width", 512)
	v.SetDefault("uploads.max_height", 512)
	v.SetDefault("uploads.max_bytes", 5<<20)
	v.SetDefault("uploads.max_disk_usage_percent", 95)
	v.SetDefault("uploads.cleanup_schedule", "0 3 * * *") // Every day at 03:00
	v.SetDefault("uploads.orphan_grace", 24)

	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.results_ttl", 30)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.from_name", "eVoting")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("email.insecure_skip_verify", false)

	v.SetDefault("gravatar.enabled", false)
	v.SetDefault("gravatar.default_image", "identicon")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 80)
}

// bindNestedEnv binds env variables that viper can't discover on its own.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("session.keys", "EVOTING_SESSION_KEYS")
	v.MustBindEnv("bootstrap_admin.password", "EVOTING_BOOTSTRAP_ADMIN_PASSWORD")
	v.MustBindEnv("database.dsn", "EVOTING_DATABASE_DSN")
	v.MustBindEnv("email.password", "EVOTING_EMAIL_PASSWORD")
}

func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing evoting config")
	}

	if c.Database == nil {
		return fmt.Errorf("missing database config")
	}
	switch c.Database.Type {
	case DatabaseTypeSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case DatabaseTypePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}

	if c.Session == nil || len(c.Session.Keys) == 0 {
		return fmt.Errorf("at least one session key is required (see 'evoting generate-session-key')")
	}
	for i, key := range c.Session.Keys {
		if len(key) < MinSessionKeyLength {
			return fmt.Errorf("session key %d is too short, need at least %d bytes", i, MinSessionKeyLength)
		}
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be greater than 0")
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{BcryptCost: 10}
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}

	if c.BootstrapAdmin != nil && c.BootstrapAdmin.Identifier != "" {
		if c.BootstrapAdmin.Password == "" {
			return fmt.Errorf("bootstrap admin password is required when a bootstrap admin identifier is set")
		}
		if c.BootstrapAdmin.Email == "" {
			return fmt.Errorf("bootstrap admin email is required when a bootstrap admin identifier is set")
		}
	}

	if c.Uploads == nil {
		return fmt.Errorf("missing uploads config")
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads dir is required")
	}
	if c.Uploads.MaxWidth <= 0 || c.Uploads.MaxHeight <= 0 {
		return fmt.Errorf("uploads max width and height must be greater than 0")
	}
	if c.Uploads.MaxDiskUsagePercent < 0 || c.Uploads.MaxDiskUsagePercent > 100 {
		return fmt.Errorf("uploads max disk usage percent must be between 0 and 100")
	}
	if c.Uploads.CleanupSchedule != "" && len(strings.Fields(c.Uploads.CleanupSchedule)) != 5 {
		return fmt.Errorf("uploads cleanup schedule must be a valid cron expression with 5 fields (minute hour day month weekday)")
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is enabled")
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{
			Type:       CacheTypeMemory,
			ResultsTTL: 30,
		}
	}

	if c.Email != nil && c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required when email is enabled") //nolint:staticcheck
		}
		if c.Email.FromEmail == "" {
			return fmt.Errorf("from email is required when email is enabled")
		}
	}

	return nil
}

func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = urlSanitize(c.Listen)
	c.ServerURL = urlSanitize(c.ServerURL)

	if c.Session != nil {
		keys := make([]string, 0, len(c.Session.Keys))
		for _, key := range c.Session.Keys {
			// EVOTING_SESSION_KEYS is a single string, allow a comma separated list.
			for _, k := range strings.Split(key, ",") {
				if k = strings.TrimSpace(k); k != "" {
					keys = append(keys, k)
				}
			}
		}
		c.Session.Keys = keys
	}

	if c.BootstrapAdmin != nil {
		c.BootstrapAdmin.Identifier = strings.TrimSpace(c.BootstrapAdmin.Identifier)
		c.BootstrapAdmin.Email = strings.TrimSpace(c.BootstrapAdmin.Email)
	}
}

func urlSanitize(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

// SessionKeyBytes returns the configured session keys as byte slices, current key first.
func (c *SessionConfig) SessionKeyBytes() [][]byte {
	keys := make([][]byte, 0, len(c.Keys))
	for _, k := range c.Keys {
		keys = append(keys, []byte(k))
	}
	return keys
}
