package config

import (
	"fmt"
	"net"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Filename string         `yaml:"-"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestLogging  bool          `yaml:"request_logging"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig groups the request-admission settings
type SecurityConfig struct {
	RateLimits    ServerRateLimits     `yaml:"rate_limits"`
	RequestLimits ServerRequestLimits  `yaml:"request_limits"`
	CheckEmail    EndpointSecurityOver `yaml:"check_email"`
}

// ServerRateLimits defines rate limiting configuration
type ServerRateLimits struct {
	TrustedProxyCIDRs       []string      `yaml:"trusted_proxy_cidrs"`
	TrustedProxyCIDRsParsed []*net.IPNet  `yaml:"-"` // to avoid parsing every time
	GlobalRequestsPerMinute int           `yaml:"global_requests_per_minute"`
	BurstSize               int           `yaml:"burst_size"`
	MaxRequests             int           `yaml:"max_requests"`
	Window                  time.Duration `yaml:"window"`
	HealthRequestsPerMinute int           `yaml:"health_requests_per_minute"`
	SweepInterval           time.Duration `yaml:"sweep_interval"`
	TrustProxyHeaders       bool          `yaml:"trust_proxy_headers"`
}

// ServerRequestLimits defines request size and validation limits
type ServerRequestLimits struct {
	MaxBodySize   int64 `yaml:"max_body_size"`
	MaxHeaderSize int64 `yaml:"max_header_size"`
}

// EndpointSecurityOver carries stricter per-endpoint overrides. Zero values
// fall back to the global limits.
type EndpointSecurityOver struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
	MaxBodySize int64         `yaml:"max_body_size"`
}

// StorageConfig selects the backing stores for limiter state, scores and
// profiles. Backend is "memory" or "redis".
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis backend
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Theme      string `yaml:"theme"`
	LogDir     string `yaml:"log_dir"`
	FileOutput bool   `yaml:"file_output"`
}
