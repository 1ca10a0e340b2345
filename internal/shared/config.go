package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
	Sync        SyncConfig        `toml:"sync"`
	Snapshot    SnapshotConfig    `toml:"snapshot"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains the Google OAuth client used for YouTube Data API calls.
type YouTubeConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenPath    string `toml:"token_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// SyncConfig tunes the batch pipeline and quota budget.
type SyncConfig struct {
	BatchSize           int      `toml:"batch_size"`
	PollInterval        Duration `toml:"poll_interval"`
	QuotaPauseThreshold int      `toml:"quota_pause_threshold"`
	DailyQuotaLimit     int      `toml:"daily_quota_limit"`
	RequestsPerSecond   float64  `toml:"requests_per_second"`
}

// SnapshotConfig selects where pre-sync snapshots are written.
type SnapshotConfig struct {
	Provider string       `toml:"provider"` // local, s3, webdav
	Dir      string       `toml:"dir"`
	S3       S3Config     `toml:"s3"`
	WebDAV   WebDAVConfig `toml:"webdav"`
}

// S3Config contains S3-compatible bucket settings.
type S3Config struct {
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	Bucket          string `toml:"bucket"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Prefix          string `toml:"prefix"`
}

// WebDAVConfig contains WebDAV share settings.
type WebDAVConfig struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Dir      string `toml:"dir"`
}

// Duration is a [time.Duration] that decodes from TOML strings like "3s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Validate checks values the sync engine depends on.
func (c *Config) Validate() error {
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("%w: sync.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Sync.DailyQuotaLimit <= 0 {
		return fmt.Errorf("%w: sync.daily_quota_limit must be positive", ErrInvalidConfig)
	}
	if c.Sync.QuotaPauseThreshold < 0 || c.Sync.QuotaPauseThreshold > c.Sync.DailyQuotaLimit {
		return fmt.Errorf("%w: sync.quota_pause_threshold must be between 0 and daily_quota_limit", ErrInvalidConfig)
	}
	if c.Sync.PollInterval.Duration <= 0 {
		return fmt.Errorf("%w: sync.poll_interval must be positive", ErrInvalidConfig)
	}

	switch c.Snapshot.Provider {
	case "local", "":
	case "s3":
		if c.Snapshot.S3.Bucket == "" {
			return fmt.Errorf("%w: snapshot.s3.bucket is required", ErrInvalidConfig)
		}
	case "webdav":
		if c.Snapshot.WebDAV.URL == "" {
			return fmt.Errorf("%w: snapshot.webdav.url is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown snapshot provider %q", ErrInvalidConfig, c.Snapshot.Provider)
	}

	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
