package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/typedmdx/pkg/collection"
	"github.com/starford/typedmdx/pkg/schema"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var collectionName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig  `yaml:"app"`
	Content     ContentConfig      `yaml:"content"`
	Auth        AuthConfig         `yaml:"auth"`
	Metrics     MetricsConfig      `yaml:"metrics"`
	Watch       WatchConfig        `yaml:"watch"`
	Collections []CollectionConfig `yaml:"collections"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Collections))
	for i := range c.Collections {
		cc := &c.Collections[i]
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
		if seen[cc.Name] {
			return fmt.Errorf("collections[%d]: duplicate name %q", i, cc.Name)
		}
		seen[cc.Name] = true
	}
	return nil
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

// ContentConfig points at the content root all collection folders are
// relative to.
type ContentConfig struct {
	Root        string `yaml:"root"`
	Extension   string `yaml:"extension"`
	Concurrency int    `yaml:"concurrency"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	if c.Extension == "" {
		c.Extension = collection.DefaultExtension
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Extension, validation.Match(regexp.MustCompile(`^\.[^./\\]+$`))),
		validation.Field(&c.Concurrency, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): the API is open, suitable for local dev.
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

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the metrics configuration.
func (c *MetricsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required,
			validation.Match(regexp.MustCompile(`^/`)))),
	)
}

// WatchConfig controls live change notifications.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CollectionConfig declares one collection under the content root.
type CollectionConfig struct {
	Name      string      `yaml:"name"`
	Folder    string      `yaml:"folder"`
	Strict    *bool       `yaml:"strict"`
	Extension string      `yaml:"extension"`
	Ignore    []string    `yaml:"ignore"`
	Shape     schema.Decl `yaml:"shape"`
}

// Validate validates the collection declaration, including every nested
// field of its shape.
func (c *CollectionConfig) Validate() error {
	if c.Folder == "" {
		c.Folder = c.Name
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.Match(collectionName)),
		validation.Field(&c.Folder, validation.Required),
	); err != nil {
		return err
	}
	if c.Shape.Type != schema.KindObject.String() {
		return fmt.Errorf("shape: type must be %q", schema.KindObject)
	}
	_, err := c.Shape.Build()
	return err
}

// IsStrict reports whether unknown frontmatter keys are rejected.
// Collections are strict unless declared otherwise.
func (c *CollectionConfig) IsStrict() bool {
	return c.Strict == nil || *c.Strict
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
		Content: ContentConfig{
			Root:      "./content",
			Extension: collection.DefaultExtension,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}
