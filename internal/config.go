package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/export"
	"github.com/starford/marginalia/internal/listview"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`

	Annotations AnnotationsConfig `yaml:"annotations"`
	Export      ExportConfig      `yaml:"export"`
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
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Annotations.Validate(); err != nil {
		return err
	}
	return c.Export.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
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

// VaultConfig holds the path to the Org vault directory and the file
// extensions treated as documents.
type VaultConfig struct {
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extensions, validation.Each(validation.Required)),
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

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// AnnotationsConfig holds defaults for annotation commands.
type AnnotationsConfig struct {
	// Kinds limits listing, editing and deleting to these kinds; empty
	// means every kind.
	Kinds []string `yaml:"kinds"`
	// DefaultKind is inserted when a command names no kind.
	DefaultKind  string `yaml:"default_kind"`
	MaxTextWidth int    `yaml:"max_text_width"`
}

var kindRule = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	_, err := annotation.ParseKind(s)
	return err
})

// Validate validates the annotations configuration.
func (c *AnnotationsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kinds, validation.Each(validation.Required, kindRule)),
		validation.Field(&c.DefaultKind, kindRule),
		validation.Field(&c.MaxTextWidth, validation.Min(0)),
	)
}

// ParsedKinds returns Kinds as annotation kinds.
func (c *AnnotationsConfig) ParsedKinds() []annotation.Kind {
	kinds, err := annotation.ParseKinds(c.Kinds)
	if err != nil {
		return annotation.AllKinds
	}
	return kinds
}

// Default returns DefaultKind, falling back to note.
func (c *AnnotationsConfig) Default() annotation.Kind {
	k, err := annotation.ParseKind(c.DefaultKind)
	if err != nil {
		return annotation.KindNote
	}
	return k
}

// ListOptions returns the aggregate view layout.
func (c *AnnotationsConfig) ListOptions() listview.Options {
	return listview.Options{MaxTextWidth: c.MaxTextWidth}
}

// ExportConfig configures the built-in export formatters.
type ExportConfig struct {
	export.Config `yaml:",inline"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(&c.Config,
		validation.Field(&c.Backends, validation.Each(
			validation.In(export.BackendHTML, export.BackendLaTeX, export.BackendODT),
		)),
	)
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
			Path:       "./vault",
			Extensions: []string{".org"},
		},
		SQLite: SQLiteConfig{
			Path: "./marginalia.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Annotations: AnnotationsConfig{
			DefaultKind:  annotation.KindNote.String(),
			MaxTextWidth: listview.DefaultMaxTextWidth,
		},
	}
}
