package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/passvault/internal/flagx"
	"github.com/dmitrijs2005/passvault/internal/timex"
)

// JsonConfig is the on-disk form of Config.
type JsonConfig struct {
	EndpointAddr        string            `json:"endpoint_addr"`
	AuthServiceURL      string            `json:"auth_service_url"`
	AuthTransport       string            `json:"auth_transport"`
	AuthServiceGRPCAddr string            `json:"auth_service_grpc_addr"`
	ValidateTimeout     timex.Duration    `json:"validate_timeout"`
	OpenEndpoints       []string          `json:"open_endpoints"`
	UserIDHeader        string            `json:"user_id_header"`
	UsernameHeader      string            `json:"username_header"`
	RolesHeader         string            `json:"roles_header"`
	Routes              map[string]string `json:"routes"`
	RateLimitRPS        *float64          `json:"rate_limit_rps"`
	RateLimitBurst      int               `json:"rate_limit_burst"`
	LogFormat           string            `json:"log_format"`
}

// parseJson overlays the file named by -c/-config onto config. Keys missing
// from the file keep their current values. An unreadable or invalid file
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.AuthServiceURL, c.AuthServiceURL)
	setString(&config.AuthTransport, c.AuthTransport)
	setString(&config.AuthServiceGRPCAddr, c.AuthServiceGRPCAddr)
	setString(&config.UserIDHeader, c.UserIDHeader)
	setString(&config.UsernameHeader, c.UsernameHeader)
	setString(&config.RolesHeader, c.RolesHeader)
	setString(&config.LogFormat, c.LogFormat)

	if c.ValidateTimeout.Duration > 0 {
		config.ValidateTimeout = c.ValidateTimeout.Duration
	}
	// an explicit empty list closes every endpoint
	if c.OpenEndpoints != nil {
		config.OpenEndpoints = c.OpenEndpoints
	}
	if c.Routes != nil {
		config.Routes = c.Routes
	}
	if c.RateLimitRPS != nil {
		config.RateLimitRPS = *c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
