package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/dock/internal/auth"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/relations"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Store StoreConfig       `yaml:"store"`
	Vault VaultConfig       `yaml:"vault"`
	Auth  AuthConfig        `yaml:"auth"`
	Views ViewsConfig       `yaml:"views"`
	MCP   MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Views.Validate(); err != nil {
		return err
	}
	return c.MCP.Validate()
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
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required)),
	)
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// Validate validates the store configuration. Only the selected driver's
// section is checked.
func (c *StoreConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(DriverSQLite, DriverMongo, DriverPostgres)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case DriverMongo:
		return c.Mongo.Validate()
	case DriverPostgres:
		return c.Postgres.Validate()
	default:
		return c.SQLite.Validate()
	}
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

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Validate validates the MongoDB configuration.
func (c *MongoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required),
		validation.Field(&c.Database, validation.Required),
	)
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// Validate validates the PostgreSQL configuration.
func (c *PostgresConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required),
	)
}

// VaultConfig holds the optional Markdown vault imported at startup.
// An empty Path disables the import.
type VaultConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Enabled reports whether a vault is configured.
func (c *VaultConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request acts as UserID, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "jwt": Bearer JWTs verified against the keys at JWKSURL; the subject is the user.
type AuthConfig struct {
	Mode     string `yaml:"mode"`
	Token    string `yaml:"token"`
	UserID   string `yaml:"user_id"`
	JWKSURL  string `yaml:"jwks_url"`
	Audience string `yaml:"audience"`
	Issuer   string `yaml:"issuer"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if c.UserID == "" {
		c.UserID = auth.DefaultLocalUser
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
		validation.Field(&c.JWKSURL, is.URL),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	if c.Mode == AuthModeJWT && c.JWKSURL == "" {
		return fmt.Errorf("auth: mode is %q but jwks_url is empty", AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode != AuthModeDisabled
}

// ViewsConfig tunes the derived views.
type ViewsConfig struct {
	MarketLabels   []string `yaml:"market_labels"`
	ReservedTitles []string `yaml:"reserved_titles"`
	ReservedPaths  []string `yaml:"reserved_paths"`
	RelatedLimit   int      `yaml:"related_limit"`
}

// Validate validates the views configuration.
func (c *ViewsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MarketLabels, validation.Each(validation.Required)),
		validation.Field(&c.RelatedLimit, validation.Min(0)),
	)
}

// ViewConfig converts the section for the service, falling back to the
// built-in defaults for unset fields.
func (c *ViewsConfig) ViewConfig() dock.ViewConfig {
	v := dock.DefaultViewConfig()
	if len(c.MarketLabels) > 0 {
		v.MarketLabels = c.MarketLabels
	}
	if c.ReservedTitles != nil {
		v.Reserved.Titles = c.ReservedTitles
	}
	v.Reserved.Paths = c.ReservedPaths
	if c.RelatedLimit > 0 {
		v.RelatedLimit = c.RelatedLimit
	}
	return v
}

// MCPConfig holds the MCP server configuration.
type MCPConfig struct {
	UserID string `yaml:"user_id"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	if c.UserID == "" {
		c.UserID = auth.DefaultLocalUser
	}
	return nil
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
		Store: StoreConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{
				Path: "./dock.db",
			},
			Mongo: MongoConfig{
				Database: "dock",
			},
		},
		Auth: AuthConfig{
			Mode:   AuthModeDisabled,
			UserID: auth.DefaultLocalUser,
		},
		Views: ViewsConfig{
			MarketLabels:   relations.DefaultMarketLabels,
			ReservedTitles: docs.DefaultReservedTitles,
			RelatedLimit:   relations.DefaultRelatedLimit,
		},
		MCP: MCPConfig{
			UserID: auth.DefaultLocalUser,
		},
	}
}
