package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/argument/internal/export"
	"github.com/starford/argument/internal/inbox"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Share modes.
const (
	ShareModeDir    = "dir"
	ShareModeWebDAV = "webdav"
	ShareModeS3     = "s3"
)

// Clipboard modes.
const (
	ClipboardModeMemory = "memory"
	ClipboardModeSystem = "system"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Inbox     InboxConfig       `yaml:"inbox"`
	Export    ExportConfig      `yaml:"export"`
	Share     ShareConfig       `yaml:"share"`
	Clipboard ClipboardConfig   `yaml:"clipboard"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.SQLite, &c.Inbox, &c.Export, &c.Share, &c.Clipboard, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel      slog.Level `yaml:"log_level"`
	LogFile       string     `yaml:"log_file"`
	LogMaxSizeMB  int        `yaml:"log_max_size_mb"`
	LogMaxBackups int        `yaml:"log_max_backups"`
	HTTP          HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogMaxSizeMB, validation.Min(0)),
		validation.Field(&c.LogMaxBackups, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port               int     `yaml:"port"`
	RateLimitRPS       float64 `yaml:"rate_limit_rps"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	CORSAllowedOrigins string  `yaml:"cors_allowed_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Origins splits the comma-separated CORS origin list.
func (c *HTTPConfig) Origins() []string {
	if strings.TrimSpace(c.CORSAllowedOrigins) == "" {
		return nil
	}
	return strings.Split(c.CORSAllowedOrigins, ",")
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.RateLimitRPS, validation.Min(0.0)),
		validation.Field(&c.RateLimitBurst, validation.Min(0)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// InboxConfig configures the watched import directory.
type InboxConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	SweepSchedule string `yaml:"sweep_schedule"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// ExportConfig tunes the export encoder.
type ExportConfig struct {
	Quality float64 `yaml:"quality"`
	WebP    bool    `yaml:"webp"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	if c.Quality == 0 {
		c.Quality = export.DefaultQuality
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Quality, validation.Min(0.01), validation.Max(1.0)),
	)
}

// ShareConfig selects and configures the share destination.
type ShareConfig struct {
	Mode   string      `yaml:"mode"`
	Dir    ShareDir    `yaml:"dir"`
	WebDAV ShareWebDAV `yaml:"webdav"`
	S3     ShareS3     `yaml:"s3"`
}

// ShareDir writes shared files to a local directory.
type ShareDir struct {
	Path string `yaml:"path"`
}

// ShareWebDAV uploads shared files to a WebDAV collection.
type ShareWebDAV struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Root     string `yaml:"root"`
}

// ShareS3 puts shared files into an S3-compatible bucket.
type ShareS3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Validate validates the share configuration.
func (c *ShareConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = ShareModeDir
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(ShareModeDir, ShareModeWebDAV, ShareModeS3)),
	); err != nil {
		return fmt.Errorf("share: %w", err)
	}
	var err error
	switch c.Mode {
	case ShareModeDir:
		err = validation.ValidateStruct(&c.Dir,
			validation.Field(&c.Dir.Path, validation.Required),
		)
	case ShareModeWebDAV:
		err = validation.ValidateStruct(&c.WebDAV,
			validation.Field(&c.WebDAV.URL, validation.Required, is.URL),
		)
	case ShareModeS3:
		err = validation.ValidateStruct(&c.S3,
			validation.Field(&c.S3.Bucket, validation.Required),
			validation.Field(&c.S3.Region, validation.Required),
			validation.Field(&c.S3.Endpoint, is.URL),
			validation.Field(&c.S3.SecretKey, validation.When(c.S3.AccessKey != "", validation.Required)),
		)
	}
	if err != nil {
		return fmt.Errorf("share.%s: %w", c.Mode, err)
	}
	return nil
}

// ClipboardConfig selects the clipboard sink.
type ClipboardConfig struct {
	Mode string `yaml:"mode"`
}

// Validate validates the clipboard configuration.
func (c *ClipboardConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = ClipboardModeMemory
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(ClipboardModeMemory, ClipboardModeSystem)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:      slog.LevelInfo,
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
			HTTP: HTTPConfig{
				Port:           8080,
				RateLimitRPS:   50,
				RateLimitBurst: 20,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./argument.db",
		},
		Inbox: InboxConfig{
			Enabled:       true,
			Path:          "./inbox",
			SweepSchedule: inbox.DefaultSweepSchedule,
		},
		Export: ExportConfig{
			Quality: export.DefaultQuality,
			WebP:    true,
		},
		Share: ShareConfig{
			Mode: ShareModeDir,
			Dir:  ShareDir{Path: "./shared"},
		},
		Clipboard: ClipboardConfig{
			Mode: ClipboardModeMemory,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
