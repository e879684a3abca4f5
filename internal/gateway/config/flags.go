package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/passvault/internal/flagx"
)

// parseFlags populates selected gateway Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   listen address (e.g., ":8080")
//	-u string   auth service base URL
//	-g string   auth service gRPC address
//	-m string   auth transport (http, grpc)
//	-o list     open endpoint globs, comma separated
//	-t int      validate timeout, milliseconds
//	-l string   log format (json, text, zap)
func parseFlags(config *Config) {
	parseFlagArgs(config, os.Args[1:])
}

func parseFlagArgs(config *Config, osArgs []string) {
	args := flagx.FilterArgs(osArgs, []string{"-a", "-u", "-g", "-m", "-o", "-t", "-l"})

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "listen address and port")
	fs.StringVar(&config.AuthServiceURL, "u", config.AuthServiceURL, "auth service base URL")
	fs.StringVar(&config.AuthServiceGRPCAddr, "g", config.AuthServiceGRPCAddr, "auth service gRPC address")
	fs.StringVar(&config.AuthTransport, "m", config.AuthTransport, "auth transport (http or grpc)")

	open := flagx.StringList(config.OpenEndpoints)
	fs.Var(&open, "o", "open endpoint globs")

	timeout := fs.Int("t", int(config.ValidateTimeout.Milliseconds()), "validate timeout (in milliseconds)")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			config.OpenEndpoints = open
		case "t":
			config.ValidateTimeout = time.Duration(*timeout) * time.Millisecond
		}
	})
}
