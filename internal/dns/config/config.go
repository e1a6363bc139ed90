package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the UDP port the DNS server will bind to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// ZoneDir is the directory where zone files are located.
	ZoneDir string `koanf:"zone_dir" validate:"required"`

	// Upstream is the IPv4 address of the forwarder. Port 53 is used unless one is given.
	Upstream string `koanf:"upstream" validate:"required,upstream_addr"`

	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"gt=0"`

	// Forward sends queries for names outside every zone to Upstream.
	Forward bool `koanf:"forward"`

	// StrictQType answers NOTIMP for anything but A instead of answering as if A was asked.
	StrictQType bool `koanf:"strict_qtype"`

	CacheSize int `koanf:"cache_size" validate:"required,gte=1"`

	// CacheFile is the bbolt file the forwarded-answer cache is persisted to.
	CacheFile string `koanf:"cache_file" validate:"required"`

	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`

	// Workers bounds the number of packets handled concurrently.
	Workers int64 `koanf:"workers" validate:"gte=1"`

	// MetricsAddr is the host:port of the Prometheus endpoint. Empty disables it.
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,hostname_port"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings for the DNS service.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:             "prod",
	LogLevel:        "info",
	Port:            53,
	ZoneDir:         "/etc/zonefwd/zones/",
	Upstream:        "1.1.1.1",
	UpstreamTimeout: 2 * time.Second,
	Forward:         true,
	StrictQType:     false,
	CacheSize:       1000,
	CacheFile:       "/var/lib/zonefwd/cache.db",
	SweepInterval:   10 * time.Second,
	Workers:         256,
	MetricsAddr:     "",
}

// validUpstream accepts an IPv4 address, optionally followed by ":port".
func validUpstream(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip := addr
	if strings.Contains(addr, ":") {
		host, port, err := net.SplitHostPort(addr)
		if err != nil || host == "" || port == "" {
			return false
		}
		portNum, err := strconv.ParseUint(port, 10, 16)
		if err != nil || portNum == 0 {
			return false
		}
		ip = host
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.To4() != nil
}

// envLoader is a function that loads environment variables with the prefix "DNS_".
// It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DNS_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "upstream_addr" tag with the provided validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("upstream_addr", validUpstream)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// ListenAddr is the UDP address the server binds to.
func (c *AppConfig) ListenAddr() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}
