package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Version  int            `toml:"version"`
	Reddit   RedditConfig   `toml:"reddit"`
	X        XConfig        `toml:"x"`
	Scraping ScrapingConfig `toml:"scraping"`
	Search   SearchConfig   `toml:"search"`
}

// RedditConfig configures the Reddit collection paths.
type RedditConfig struct {
	Username    string `toml:"username"`
	CookiesFile string `toml:"cookies_file"`
	// Formal API client credentials (script app).
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Password     string `toml:"password"`
}

// XConfig configures the X collection paths.
type XConfig struct {
	CookiesFile string `toml:"cookies_file"`
	// Formal v2 API client credentials (OAuth2 PKCE app).
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ScrapingConfig holds the collection safety bounds.
type ScrapingConfig struct {
	Headless bool `toml:"headless"`
	MaxPages int  `toml:"max_pages"`
	// PageDelayMS spaces out consecutive page fetches.
	PageDelayMS int `toml:"page_delay_ms"`
}

// SearchConfig holds the fuzzy search defaults.
type SearchConfig struct {
	FuzzyThreshold int  `toml:"fuzzy_threshold"`
	MatchAll       bool `toml:"match_all"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		X: XConfig{
			RedirectURI: "http://localhost:8001/callback",
		},
		Scraping: ScrapingConfig{
			Headless:    true,
			MaxPages:    50,
			PageDelayMS: 500,
		},
		Search: SearchConfig{
			FuzzyThreshold: 2,
			MatchAll:       true,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "stash4me"), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CookieStorePath returns the path for a platform's captured-cookie store.
func CookieStorePath(platform string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, platform+"_cookies.json"), nil
}

// TokenFilePath returns the path for a platform's OAuth token file.
func TokenFilePath(platform string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, platform+"_tokens.json"), nil
}

// Load reads config from disk, falling back to defaults when no file exists,
// then applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets environment variables override file values; env is how the
// MCP host usually passes credentials.
func (c *Config) applyEnv() {
	setString(&c.Reddit.Username, "REDDIT_USERNAME")
	setString(&c.Reddit.CookiesFile, "REDDIT_COOKIES_FILE")
	setString(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	setString(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	setString(&c.Reddit.Password, "REDDIT_PASSWORD")

	setString(&c.X.CookiesFile, "X_COOKIES_FILE")
	setString(&c.X.ClientID, "X_CLIENT_ID")
	setString(&c.X.ClientSecret, "X_CLIENT_SECRET")
	setString(&c.X.RedirectURI, "X_REDIRECT_URI")

	if v := os.Getenv("STASH4ME_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Scraping.Headless = b
		}
	}
	if v := os.Getenv("STASH4ME_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scraping.MaxPages = n
		}
	}
}

func setString(dst *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*dst = v
	}
}

// Save writes config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
