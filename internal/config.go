package internal

import (
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app" toml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace" toml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth" toml:"auth"`
	Defaults  DefaultsConfig    `yaml:"defaults" toml:"defaults"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Defaults.Validate()
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

// WorkspaceConfig locates the board documents.
type WorkspaceConfig struct {
	Path string `yaml:"path" toml:"path"`
	// Pattern is a doublestar glob, relative to Path, selecting document files.
	Pattern string `yaml:"pattern" toml:"pattern"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	if c.Pattern == "" {
		c.Pattern = storage.DefaultPattern
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Pattern, validation.By(func(any) error {
			if !doublestar.ValidatePattern(c.Pattern) {
				return fmt.Errorf("invalid glob %q", c.Pattern)
			}
			return nil
		})),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
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

// DefaultsConfig holds the values used for new documents, boards and notes.
type DefaultsConfig struct {
	StartupBoards []string          `yaml:"startup_boards" toml:"startup_boards"`
	BoardTitle    string            `yaml:"board_title" toml:"board_title"`
	BoardStyle    map[string]string `yaml:"board_style" toml:"board_style"`
	NoteTitle     string            `yaml:"note_title" toml:"note_title"`
	NoteContent   string            `yaml:"note_content" toml:"note_content"`
}

// Validate validates the defaults.
func (c *DefaultsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StartupBoards, validation.Each(validation.Required)),
	)
}

// Template converts the defaults for the engine.
func (c *DefaultsConfig) Template() kanban.Template {
	return kanban.Template{
		StartupBoards: append([]string(nil), c.StartupBoards...),
		BoardTitle:    c.BoardTitle,
		BoardStyle:    kanban.Style(c.BoardStyle).Clone(),
		NoteTitle:     c.NoteTitle,
		NoteContent:   c.NoteContent,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	t := kanban.DefaultTemplate()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path:    "./boards",
			Pattern: storage.DefaultPattern,
		},
		SQLite: SQLiteConfig{
			Path: "./kanboard.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Defaults: DefaultsConfig{
			StartupBoards: t.StartupBoards,
			BoardTitle:    t.BoardTitle,
			BoardStyle:    t.BoardStyle,
			NoteTitle:     t.NoteTitle,
			NoteContent:   t.NoteContent,
		},
	}
}
