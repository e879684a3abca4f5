package server

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_FailsFastOnBadKeyMaterial(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "missing encryption key", mutate: func(c *config.Config) { c.EncryptionKey = "" }, want: "encryption key is required"},
		{name: "short encryption key", mutate: func(c *config.Config) { c.EncryptionKey = "short" }, want: "exactly 32 bytes"},
		{name: "missing signing secret", mutate: func(c *config.Config) { c.SecretKey = "" }, want: "secret key"},
		{name: "unknown log format", mutate: func(c *config.Config) { c.LogFormat = "xml" }, want: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &config.Config{}
			c.LoadDefaults()
			c.EncryptionKey = "0123456789abcdef0123456789abcdef"
			// unreachable; the checks above must fail before any connection attempt
			c.DatabaseDSN = "postgres://invalid:1/none?connect_timeout=1"
			tt.mutate(c)

			app, err := NewApp(context.Background(), c)
			require.Error(t, err)
			assert.Nil(t, app)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
