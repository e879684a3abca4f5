package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	base := Config{
		EndpointAddrHTTP:             ":8081",
		EndpointAddrGRPC:             ":50051",
		AccessTokenValidityDuration:  90 * time.Second,
		RefreshTokenValidityDuration: time.Hour,
		LogFormat:                    "json",
	}

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-h", "127.0.0.1:8088", "-d", "db", "-s", "secret",
			"-t", "1", "-r", "3", "-k", "0123456789abcdef0123456789abcdef", "-l", "zap",
		}, expected: &Config{
			EndpointAddrHTTP:             "127.0.0.1:8088",
			EndpointAddrGRPC:             "127.0.0.1:9090",
			DatabaseDSN:                  "db",
			SecretKey:                    "secret",
			AccessTokenValidityDuration:  1 * time.Minute,
			RefreshTokenValidityDuration: 3 * time.Minute,
			EncryptionKey:                "0123456789abcdef0123456789abcdef",
			LogFormat:                    "zap",
		}},
		{name: "no flags keeps sub-minute durations", args: []string{"cmd"}, expected: &base},
		{name: "foreign flags ignored", args: []string{"cmd", "-x", "1", "-config", "f.json"}, expected: &base},
		{name: "bad int panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := base

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(&config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(&config) })
			assert.Empty(t, cmp.Diff(tt.expected, &config))
		})
	}
}
