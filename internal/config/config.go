// Package config loads launcher settings from defaults, an optional YAML
// file named by CONFIG_FILE, and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
)

// TLS holds certificate paths; an empty Cert disables TLS
type TLS struct {
	Cert string `yaml:"cert"` // path to this service's certificate
	Key  string `yaml:"key"`  // path to this service's private key
	CA   string `yaml:"ca"`   // path to the CA certificate
}

// Enabled reports whether a certificate was configured
func (t TLS) Enabled() bool {
	return t.Cert != ""
}

// Monitor holds configuration of the monitor launcher
type Monitor struct {
	Device       string        `yaml:"device"` // "<device>@<host:port>"
	PollInterval time.Duration `yaml:"poll_interval"`
	PollTimeout  time.Duration `yaml:"poll_timeout"` // deadline of one Poll round trip
	RepoType     string        `yaml:"repo_type"` // "memory" | "sqlite"
	DBPath       string        `yaml:"db_path"`   // SQLite database file path (used when RepoType=sqlite)
	Retention    time.Duration `yaml:"retention"`
	TLS          TLS           `yaml:"tls"`
}

// Server holds configuration of the device server
type Server struct {
	Port      string  `yaml:"port"`
	Host      string  `yaml:"host"` // name devices are opened under
	Channels  int     `yaml:"channels"`
	BaseValue float64 `yaml:"base_value"`
	Variation float64 `yaml:"variation"`
	TLS       TLS     `yaml:"tls"`
}

// DefaultMonitor returns the monitor defaults
func DefaultMonitor() Monitor {
	return Monitor{
		Device:       "Analog0@localhost:50051",
		PollInterval: 100 * time.Millisecond,
		PollTimeout:  5 * time.Second,
		RepoType:     "memory",
		DBPath:       "./analog.db",
		Retention:    24 * time.Hour,
	}
}

// DefaultServer returns the device server defaults
func DefaultServer() Server {
	return Server{
		Port:      "50051",
		Host:      "localhost",
		Channels:  8,
		BaseValue: 2.5,
		Variation: 0.5,
	}
}

// LoadMonitor reads monitor configuration
func LoadMonitor() (Monitor, error) {
	cfg := DefaultMonitor()
	if err := loadFile(&cfg); err != nil {
		return cfg, err
	}

	env := envReader{}
	env.str("DEVICE", &cfg.Device)
	env.duration("POLL_INTERVAL", &cfg.PollInterval)
	env.duration("POLL_TIMEOUT", &cfg.PollTimeout)
	env.str("REPO_TYPE", &cfg.RepoType)
	env.str("DB_PATH", &cfg.DBPath)
	env.duration("RETENTION", &cfg.Retention)
	env.tls(&cfg.TLS)
	if env.err != nil {
		return cfg, env.err
	}

	switch cfg.RepoType {
	case "memory", "sqlite":
	default:
		return cfg, fmt.Errorf("unknown repo type %q", cfg.RepoType)
	}
	return cfg, nil
}

// LoadServer reads device server configuration
func LoadServer() (Server, error) {
	cfg := DefaultServer()
	if err := loadFile(&cfg); err != nil {
		return cfg, err
	}

	env := envReader{}
	env.str("PORT", &cfg.Port)
	env.str("DEVICE_HOST", &cfg.Host)
	env.integer("CHANNELS", &cfg.Channels)
	env.float("BASE_VALUE", &cfg.BaseValue)
	env.float("VARIATION", &cfg.Variation)
	env.tls(&cfg.TLS)
	if env.err != nil {
		return cfg, env.err
	}

	if cfg.Channels < 0 || cfg.Channels > domain.MaxChannels {
		return cfg, fmt.Errorf("channels must be between 0 and %d, got %d", domain.MaxChannels, cfg.Channels)
	}
	return cfg, nil
}

func loadFile(out any) error {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// envReader applies set environment variables and keeps the first parse error
type envReader struct {
	err error
}

func (e *envReader) str(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" || e.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}

func (e *envReader) integer(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" || e.err != nil {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = f
}

func (e *envReader) tls(dst *TLS) {
	e.str("TLS_CERT", &dst.Cert)
	e.str("TLS_KEY", &dst.Key)
	e.str("TLS_CA", &dst.CA)
}
