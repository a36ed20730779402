// Package config provides the runtime configuration for PersonalVault.
// Values come from built-in defaults, an optional YAML file and
// PERSONALVAULT_* environment variables, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/manav03panchal/personalvault/internal/validate"
)

// AppName is the application name used for XDG directories.
const AppName = "personalvault"

// RuntimeConfig holds every tunable value.
type RuntimeConfig struct {
	// File is the path the config was loaded from, if any.
	File string `yaml:"-"`

	Sync    SyncConfig    `yaml:"sync"`
	Session SessionConfig `yaml:"session"`
	Remote  RemoteConfig  `yaml:"remote"`
	Google  GoogleConfig  `yaml:"google"`
	Backend BackendConfig `yaml:"backend"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Storage StorageConfig `yaml:"storage"`
}

// SyncConfig tunes the debounce coordinator and preload.
type SyncConfig struct {
	// DebounceWindow is the quiet period after the last change before a
	// domain is written to the remote store.
	// Default: 1.5s
	DebounceWindow time.Duration `yaml:"debounce_window" default:"1500ms" validate:"gte=0"`

	// DomainWindows overrides DebounceWindow per domain (e.g. habits: 500ms).
	DomainWindows map[string]time.Duration `yaml:"domain_windows"`

	// PreloadDelay is how long the preload orchestrator waits after the
	// session becomes valid before fanning out remote refreshes.
	// Default: 1s
	PreloadDelay time.Duration `yaml:"preload_delay" default:"1s" validate:"gte=0"`

	// RefreshInterval is how often the daemon pulls every domain.
	// Default: 15m
	RefreshInterval time.Duration `yaml:"refresh_interval" default:"15m" validate:"gte=0"`

	// PendingRetryInterval is how often the daemon retries domains whose
	// last flush did not reach the remote store.
	// Default: 5m
	PendingRetryInterval time.Duration `yaml:"pending_retry_interval" default:"5m" validate:"gte=0"`
}

// SessionConfig tunes token handling.
type SessionConfig struct {
	// TokenLifetime is added to the issue time to compute expiry.
	// Default: 1h
	TokenLifetime time.Duration `yaml:"token_lifetime" default:"1h" validate:"gt=0"`

	// RefreshMargin triggers a silent refresh this long before expiry.
	// Default: 5m
	RefreshMargin time.Duration `yaml:"refresh_margin" default:"5m" validate:"gte=0"`

	// SignInTimeout bounds the interactive browser sign-in.
	// Default: 5m
	SignInTimeout time.Duration `yaml:"sign_in_timeout" default:"5m" validate:"gt=0"`
}

// RemoteConfig selects and configures the remote object store.
type RemoteConfig struct {
	// Type is one of drive, webdav, s3, localfs.
	Type string `yaml:"type" default:"drive" validate:"oneof=drive webdav s3 localfs"`

	// FolderName is the application folder holding the domain files.
	FolderName string `yaml:"folder_name" default:"PersonalVault" validate:"required,max=100"`

	// RequestTimeout bounds a single remote call.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s" validate:"gt=0"`

	Breaker BreakerConfig `yaml:"breaker"`
	WebDAV  WebDAVConfig  `yaml:"webdav"`
	S3      S3Config      `yaml:"s3"`
	LocalFS LocalFSConfig `yaml:"localfs"`
}

// BreakerConfig decides when repeated remote failures surface a notice.
type BreakerConfig struct {
	MinRequests  uint32        `yaml:"min_requests" default:"3"`
	FailureRatio float64       `yaml:"failure_ratio" default:"0.6" validate:"gt=0,lte=1"`
	Interval     time.Duration `yaml:"interval" default:"1m"`
	Timeout      time.Duration `yaml:"timeout" default:"30s"`
}

// WebDAVConfig configures the WebDAV backend.
type WebDAVConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// S3Config configures the S3-compatible backend.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region" default:"us-east-1"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// LocalFSConfig configures the directory backend.
type LocalFSConfig struct {
	Path string `yaml:"path"`
}

// GoogleConfig holds the OAuth client used for Drive sign-in.
type GoogleConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

// BackendConfig configures the chat/coach/tracking service.
type BackendConfig struct {
	// BaseURL of the service. Empty disables the assistant commands.
	BaseURL string `yaml:"base_url" default:"http://localhost:8000"`

	// UserID identifies the user to the service; defaults to the session email.
	UserID string `yaml:"user_id"`

	// Timeout is the per-request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" default:"30s"`

	// RetryDelays are the waits before each attempt.
	// Default: [0s, 2s, 5s]
	RetryDelays []time.Duration `yaml:"retry_delays"`
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	// StartupWait is how long `daemon start` waits before checking status.
	// Default: 500ms
	StartupWait time.Duration `yaml:"startup_wait" default:"500ms"`

	// KillTimeout is the timeout for graceful shutdown before force kill.
	// Default: 5s
	KillTimeout time.Duration `yaml:"kill_timeout" default:"5s"`

	// HealthAddr is where /health and /metrics are served. Empty disables it.
	HealthAddr string `yaml:"health_addr" default:"127.0.0.1:7878"`
}

// StorageConfig holds local cache configuration.
type StorageConfig struct {
	// Path overrides the cache directory.
	Path string `yaml:"path"`

	// MinFreeSpace is the minimum free space required for writes.
	// Default: 10MB
	MinFreeSpace uint64 `yaml:"min_free_space" default:"10485760"`

	// MinFreeSpaceWarning is the threshold for a low-space warning.
	// Default: 50MB
	MinFreeSpaceWarning uint64 `yaml:"min_free_space_warning" default:"52428800"`
}

// DefaultScopes are requested when the config names none.
var DefaultScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/drive.file",
}

// DefaultRuntimeConfig returns the built-in configuration.
func DefaultRuntimeConfig() *RuntimeConfig {
	c := &RuntimeConfig{}
	c.applyDefaults()
	return c
}

func (c *RuntimeConfig) applyDefaults() {
	// Only zero-valued fields are filled, so this is safe after a file load.
	_ = defaults.Set(c)
	if len(c.Google.Scopes) == 0 {
		c.Google.Scopes = append([]string(nil), DefaultScopes...)
	}
	if len(c.Backend.RetryDelays) == 0 {
		c.Backend.RetryDelays = []time.Duration{0, 2 * time.Second, 5 * time.Second}
	}
	if c.Remote.LocalFS.Path == "" {
		c.Remote.LocalFS.Path = filepath.Join(xdg.DataHome, AppName, "remote")
	}
}

// DefaultPath returns the config file location under XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load builds a config from defaults, the YAML file at path (skipped when it
// does not exist) and the environment, then validates it.
func Load(path string) (*RuntimeConfig, error) {
	c := &RuntimeConfig{}
	if err := c.loadFile(path); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.loadFromEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *RuntimeConfig) loadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read config file failed")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s failed", path)
	}
	c.File = path
	return nil
}

// Save writes the config as YAML to path.
func (c *RuntimeConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create config directory failed")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "write config file failed")
	}
	c.File = path
	return nil
}

// Validate checks field rules and the settings required by the selected
// remote backend.
func (c *RuntimeConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Remote.Type {
	case "webdav":
		if c.Remote.WebDAV.URL == "" {
			return errors.New("remote.webdav.url is required for the webdav backend")
		}
	case "s3":
		if c.Remote.S3.Bucket == "" {
			return errors.New("remote.s3.bucket is required for the s3 backend")
		}
	case "localfs":
		if c.Remote.LocalFS.Path == "" {
			return errors.New("remote.localfs.path is required for the localfs backend")
		}
	}
	return nil
}

// Global holds the process-wide configuration. Commands replace it after
// loading the config file.
var Global = initGlobal()

func initGlobal() *RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	cfg.loadFromEnv()
	return cfg
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// loadFromEnv applies PERSONALVAULT_* overrides.
func (c *RuntimeConfig) loadFromEnv() {
	envDuration("PERSONALVAULT_DEBOUNCE_WINDOW", &c.Sync.DebounceWindow)
	envDuration("PERSONALVAULT_PRELOAD_DELAY", &c.Sync.PreloadDelay)
	envDuration("PERSONALVAULT_REFRESH_INTERVAL", &c.Sync.RefreshInterval)
	envDuration("PERSONALVAULT_TOKEN_LIFETIME", &c.Session.TokenLifetime)
	envDuration("PERSONALVAULT_REQUEST_TIMEOUT", &c.Remote.RequestTimeout)
	envDuration("PERSONALVAULT_DAEMON_STARTUP_WAIT", &c.Daemon.StartupWait)
	envDuration("PERSONALVAULT_DAEMON_KILL_TIMEOUT", &c.Daemon.KillTimeout)

	envString("PERSONALVAULT_REMOTE", &c.Remote.Type)
	envString("PERSONALVAULT_REMOTE_FOLDER", &c.Remote.FolderName)
	envString("PERSONALVAULT_LOCALFS_PATH", &c.Remote.LocalFS.Path)
	envString("PERSONALVAULT_WEBDAV_URL", &c.Remote.WebDAV.URL)
	envString("PERSONALVAULT_WEBDAV_USER", &c.Remote.WebDAV.User)
	envString("PERSONALVAULT_WEBDAV_PASSWORD", &c.Remote.WebDAV.Password)
	envString("PERSONALVAULT_S3_BUCKET", &c.Remote.S3.Bucket)
	envString("PERSONALVAULT_S3_REGION", &c.Remote.S3.Region)
	envString("PERSONALVAULT_S3_ENDPOINT", &c.Remote.S3.Endpoint)
	envString("PERSONALVAULT_GOOGLE_CLIENT_ID", &c.Google.ClientID)
	envString("PERSONALVAULT_GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	envString("PERSONALVAULT_BACKEND_URL", &c.Backend.BaseURL)
	envString("PERSONALVAULT_BACKEND_USER", &c.Backend.UserID)
	envString("PERSONALVAULT_HEALTH_ADDR", &c.Daemon.HealthAddr)
	envString("PERSONALVAULT_CACHE_PATH", &c.Storage.Path)

	if v := os.Getenv("PERSONALVAULT_MIN_FREE_SPACE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Storage.MinFreeSpace = n
		}
	}
}

// ReloadFromEnv reloads configuration from environment variables.
func (c *RuntimeConfig) ReloadFromEnv() {
	c.loadFromEnv()
}

// Reset resets the configuration to defaults.
func (c *RuntimeConfig) Reset() {
	*c = *DefaultRuntimeConfig()
}
