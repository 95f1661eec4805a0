package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags applies the short command-line flags. Unknown arguments are
// filtered out first so the same argv can carry flags for other consumers.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP server endpoint address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "Database DSN")
	fs.StringVar(&config.SecretKey, "k", config.SecretKey, "JWT secret key")

	tokenTTL := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "Access token validity (minutes)")
	urlTTL := fs.Int("x", int(config.ArchiveURLValidityDuration/time.Minute), "Archive download URL validity (minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "Log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "Log format (text|json)")

	allowed := []string{"-a", "-d", "-k", "-t", "-x", "-u", "-p", "-b", "-r", "-e", "-l", "-f"}
	if err := fs.Parse(filterArgs(args, allowed...)); err != nil {
		return err
	}

	// Duration flags only override when given explicitly, so sub-minute
	// values from earlier layers survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*tokenTTL) * time.Minute
		case "x":
			config.ArchiveURLValidityDuration = time.Duration(*urlTTL) * time.Minute
		}
	})
	return nil
}
