package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/omnidesk/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-f string     snapshot directory of the in-memory store
//	-s string     JWT HMAC secret key
//	-r string     Redis address for write events
//	-t duration   shutdown timeout (e.g., "10s")
//	-l string     log level
//
// Args are first filtered to only the flags recognized here using
// flagx.FilterArgs, so -c and -config may share the same argv.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, "a", "d", "f", "s", "r", "t", "l")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "in-memory store snapshot directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.DurationVar(&config.ShutdownTimeout, "t", config.ShutdownTimeout, "shutdown timeout")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
