package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig  `yaml:"app" toml:"app"`
	Vault     VaultConfig        `yaml:"vault" toml:"vault"`
	SQLite    SQLiteConfig       `yaml:"sqlite" toml:"sqlite"`
	Auth      AuthConfig         `yaml:"auth" toml:"auth"`
	Scheduler SchedulerConfig    `yaml:"scheduler" toml:"scheduler"`
	Settings  SettingsFileConfig `yaml:"settings" toml:"settings"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig points at the Markdown vault. Exclude holds doublestar
// patterns, relative to the vault root, for paths the tool never touches.
type VaultConfig struct {
	Path    string   `yaml:"path" toml:"path"`
	Exclude []string `yaml:"exclude" toml:"exclude"`
}

func validGlob(value any) error {
	p, _ := value.(string)
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid pattern %q", p)
	}
	return nil
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Exclude, validation.Each(validation.Required, validation.By(validGlob))),
	)
}

// SQLiteConfig holds the metadata index location.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SchedulerConfig rate-limits automatic MOC refreshes.
type SchedulerConfig struct {
	// Debounce drops triggers closer together than this.
	Debounce time.Duration `yaml:"debounce" toml:"debounce"`
	// MinSpacing is the least time between two successful refreshes.
	MinSpacing time.Duration `yaml:"min_spacing" toml:"min_spacing"`
}

// Validate validates the scheduler configuration.
func (c *SchedulerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.MinSpacing, validation.Min(time.Duration(0))),
	)
}

// SettingsFileConfig locates the persisted journal settings. The file is
// YAML unless its name ends in .toml. An empty path keeps settings in
// memory only.
type SettingsFileConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
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
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:    "./vault",
			Exclude: []string{".obsidian/**", ".trash/**", ".git/**"},
		},
		SQLite: SQLiteConfig{
			Path: "./leanjournal.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Scheduler: SchedulerConfig{
			Debounce:   5 * time.Second,
			MinSpacing: time.Minute,
		},
		Settings: SettingsFileConfig{
			Path: "./settings.yaml",
		},
	}
}
