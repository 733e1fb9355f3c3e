// Package config loads the server's runtime configuration.
//
// Values are layered: built-in defaults, then an optional TOML file, then a
// .env file (never overriding variables already set), then the process
// environment. The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/stevemurr/friends-server/log"
)

// Config is the server configuration.
type Config struct {
	Host           string   `toml:"host" validate:"required"`
	Port           int      `toml:"port" validate:"min=1,max=65535"`
	StoreBackend   string   `toml:"store_backend" validate:"oneof=json sqlite memory"`
	DataFile       string   `toml:"data_file" validate:"required_unless=StoreBackend memory"`
	AllowedOrigins []string `toml:"allowed_origins" validate:"min=1,dive,required"`
	MaxUploadMB    int64    `toml:"max_upload_mb" validate:"min=1,max=1024"`
	Verbose        bool     `toml:"verbose"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           4000,
		StoreBackend:   "json",
		AllowedOrigins: []string{"*"},
		MaxUploadMB:    50,
	}
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Load builds the configuration. configPath may be empty to skip the TOML
// file; dotenvPath may point at a file that does not exist.
func Load(configPath, dotenvPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	LoadDotenvIfPresent(dotenvPath)

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.DataFile == "" {
		cfg.DataFile = defaultDataFile(cfg.StoreBackend)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultDataFile(backend string) string {
	switch backend {
	case "sqlite":
		return filepath.Join("data", "data.db")
	case "memory":
		return ""
	default:
		return filepath.Join("data", "data.json")
	}
}

func (c *Config) loadFile(path string) error {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(content, c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			log.Errorf("%s", derr.String())
			return fmt.Errorf("failed to parse config file at line %d, column %d: %w", row, col, err)
		}
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	log.Debugf("Configuration file path: %s", path)
	return nil
}

func (c *Config) applyEnv() error {
	if v := env("HOST"); v != "" {
		c.Host = v
	}
	if v := env("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v := env("STORE_BACKEND"); v != "" {
		c.StoreBackend = v
	}
	if v := env("DATA_FILE"); v != "" {
		c.DataFile = v
	}
	if v := env("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
	if v := env("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	if v := env("VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VERBOSE: %w", err)
		}
		c.Verbose = b
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
