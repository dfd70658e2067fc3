package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/calliperhq/calliper/internal/util"
)

const (
	DefaultPort = 18632
	DefaultHost = "localhost"

	// Fixed-window defaults, deliberately conservative for a small API.
	DefaultRateLimitMaxRequests = 10
	DefaultRateLimitWindow      = time.Minute
	DefaultSweepInterval        = 5 * time.Minute

	DefaultMaxBodySize   = 1 << 20 // 1 MiB
	DefaultMaxHeaderSize = 32 << 10

	// check-email is a juicy enumeration target so it gets a tighter body cap
	DefaultCheckEmailMaxBodySize = 1 << 10
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestLogging:  true,
		},
		Security: SecurityConfig{
			RateLimits: ServerRateLimits{
				GlobalRequestsPerMinute: 0, // disabled unless configured
				BurstSize:               50,
				MaxRequests:             DefaultRateLimitMaxRequests,
				Window:                  DefaultRateLimitWindow,
				HealthRequestsPerMinute: 120,
				SweepInterval:           DefaultSweepInterval,
				TrustProxyHeaders:       false,
			},
			RequestLimits: ServerRequestLimits{
				MaxBodySize:   DefaultMaxBodySize,
				MaxHeaderSize: DefaultMaxHeaderSize,
			},
			CheckEmail: EndpointSecurityOver{
				MaxRequests: DefaultRateLimitMaxRequests,
				Window:      DefaultRateLimitWindow,
				MaxBodySize: DefaultCheckEmailMaxBodySize,
			},
		},
		Storage: StorageConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Address: "localhost:6379",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			Theme: "default",
		},
	}
}

// Load loads configuration from file and environment variables. The onChange
// callback fires when the config file is rewritten on disk.
func Load(onChange func()) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("CALLIPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, check if we have CALLIPER_CONFIG_FILE env var
		if configFile := os.Getenv("CALLIPER_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := hydrate(config); err != nil {
		return nil, err
	}

	if onChange != nil {
		viper.OnConfigChange(func(e fsnotify.Event) {
			if e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				onChange()
			}
		})
		viper.WatchConfig()
	}

	config.Filename = viper.ConfigFileUsed()
	return config, nil
}

// Reload re-reads the config file into a fresh Config. Used by the hot-reload
// callback once viper has signalled a change.
func Reload() (*Config, error) {
	config := DefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := hydrate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// hydrate derives parsed fields and applies per-endpoint fallbacks
func hydrate(config *Config) error {
	parsed, err := util.ParseTrustedCIDRs(config.Security.RateLimits.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("invalid trusted_proxy_cidrs: %w", err)
	}
	config.Security.RateLimits.TrustedProxyCIDRsParsed = parsed

	ce := &config.Security.CheckEmail
	if ce.MaxRequests <= 0 {
		ce.MaxRequests = config.Security.RateLimits.MaxRequests
	}
	if ce.Window <= 0 {
		ce.Window = config.Security.RateLimits.Window
	}
	if ce.MaxBodySize <= 0 {
		ce.MaxBodySize = config.Security.RequestLimits.MaxBodySize
	}

	return nil
}
