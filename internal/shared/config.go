package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration.
//
// Values come from the embedded defaults, then an optional TOML file, then the process environment.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Log         LogConfig         `toml:"log"`
}

// ServerConfig contains HTTP server and frontend settings.
type ServerConfig struct {
	Host          string `toml:"host" env:"HOST"`
	Port          int    `toml:"port" env:"PORT"`
	Environment   string `toml:"environment" env:"APP_ENV"`
	FrontendURL   string `toml:"frontend_url" env:"FRONTEND_URL"`
	PostLoginPath string `toml:"post_login_path" env:"POST_LOGIN_PATH"`
	LogoutPath    string `toml:"logout_path" env:"LOGOUT_PATH"`
}

// CredentialsConfig contains upstream provider credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify application credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string   `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string   `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
	Scopes       []string `toml:"scopes" env:"SPOTIFY_SCOPES" envSeparator:" "`
	AuthURL      string   `toml:"auth_url" env:"SPOTIFY_AUTH_URL"`
	TokenURL     string   `toml:"token_url" env:"SPOTIFY_TOKEN_URL"`
	APIURL       string   `toml:"api_url" env:"SPOTIFY_API_URL"`
}

// SessionConfig controls cookie lifetimes and the authorization state check.
type SessionConfig struct {
	Required    []string      `toml:"required" env:"SESSION_REQUIRED" envSeparator:","`
	RefreshTTL  time.Duration `toml:"refresh_ttl" env:"SESSION_REFRESH_TTL"`
	VerifyState bool          `toml:"verify_state" env:"SESSION_VERIFY_STATE"`
	StateSecret string        `toml:"state_secret" env:"STATE_SECRET"`
	StateTTL    time.Duration `toml:"state_ttl" env:"STATE_TTL"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
}

// UpstreamConfig throttles outbound calls to the provider.
type UpstreamConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second" env:"UPSTREAM_RPS"`
	Burst             int     `toml:"burst" env:"UPSTREAM_BURST"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
}

// Read layers configuration sources without validating the result; callers run [Config.Validate]
// when credentials are required.
//
// envFiles are loaded into the process environment first (defaults to ".env"; missing files are ignored),
// then path is decoded over the embedded defaults when it exists, and finally environment variables
// are applied on top.
func Read(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, f, err)
		}
	}

	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return config, nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first missing or malformed setting.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	switch {
	case sp.ClientID == "":
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	case sp.ClientSecret == "":
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	case sp.RedirectURI == "":
		return fmt.Errorf("%w: spotify redirect_uri is required", ErrInvalidConfig)
	}

	for name, raw := range map[string]string{
		"server.frontend_url":          c.Server.FrontendURL,
		"credentials.spotify.auth_url":  sp.AuthURL,
		"credentials.spotify.token_url": sp.TokenURL,
		"credentials.spotify.api_url":   sp.APIURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalidConfig, name, raw)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Session.RefreshTTL <= 0 {
		return fmt.Errorf("%w: session.refresh_ttl must be positive", ErrInvalidConfig)
	}
	if c.Session.StateTTL <= 0 {
		return fmt.Errorf("%w: session.state_ttl must be positive", ErrInvalidConfig)
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: upstream.requests_per_second must not be negative", ErrInvalidConfig)
	}

	return nil
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// FrontendPath joins p onto the frontend base URL.
func (c *Config) FrontendPath(p string) string {
	base := strings.TrimRight(c.Server.FrontendURL, "/")
	if p == "" || p == "/" {
		return base + "/"
	}
	return base + "/" + strings.TrimLeft(p, "/")
}
