// Package config handles configuration for the gateway: defaults, JSON
// overlay, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds runtime settings for the gateway.
//
// OpenEndpoints are Ant-style globs ("/api/auth/**") served without a
// token. Routes maps a path prefix to the upstream base URL; the longest
// matching prefix wins.
type Config struct {
	EndpointAddr        string
	AuthServiceURL      string
	AuthTransport       string
	AuthServiceGRPCAddr string
	ValidateTimeout     time.Duration
	OpenEndpoints       []string
	UserIDHeader        string
	UsernameHeader      string
	RolesHeader         string
	Routes              map[string]string
	RateLimitRPS        float64
	RateLimitBurst      int
	LogFormat           string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.AuthServiceURL = "http://localhost:8081"
	c.AuthTransport = TransportHTTP
	c.AuthServiceGRPCAddr = "localhost:50051"
	c.ValidateTimeout = 3 * time.Second
	c.OpenEndpoints = []string{"/api/auth/**"}
	c.UserIDHeader = "X-User-Id"
	c.UsernameHeader = "X-Username"
	c.RolesHeader = "X-User-Roles"
	c.Routes = map[string]string{
		"/api/auth":  "http://localhost:8081",
		"/api/vault": "http://localhost:8081",
	}
	c.RateLimitRPS = 0
	c.RateLimitBurst = 20
	c.LogFormat = "json"
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	switch c.AuthTransport {
	case TransportHTTP:
		if _, err := parseBaseURL(c.AuthServiceURL); err != nil {
			return fmt.Errorf("auth_service_url: %w", err)
		}
	case TransportGRPC:
		if c.AuthServiceGRPCAddr == "" {
			return errors.New("auth_service_grpc_addr is required for grpc transport")
		}
	default:
		return fmt.Errorf("unknown auth transport %q", c.AuthTransport)
	}

	if c.ValidateTimeout <= 0 {
		return errors.New("validate timeout must be positive")
	}
	if c.UserIDHeader == "" || c.UsernameHeader == "" {
		return errors.New("identity header names must not be empty")
	}
	if strings.EqualFold(c.UserIDHeader, c.UsernameHeader) {
		return errors.New("user id and username headers must differ")
	}
	for prefix, upstream := range c.Routes {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("route %q must start with /", prefix)
		}
		if _, err := parseBaseURL(upstream); err != nil {
			return fmt.Errorf("route %q: %w", prefix, err)
		}
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return u, nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
