package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "QSOLOG"

// EnvConfig mirrors the settings that can come from QSOLOG_* variables.
// Keys map to variables by upper-casing and prefixing, so http_addr is
// read from QSOLOG_HTTP_ADDR.
type EnvConfig struct {
	EndpointAddrHTTP            string        `mapstructure:"http_addr"`
	DatabaseDSN                 string        `mapstructure:"database_dsn"`
	SecretKey                   string        `mapstructure:"secret_key"`
	AccessTokenValidityDuration time.Duration `mapstructure:"access_token_ttl"`
	S3RootUser                  string        `mapstructure:"s3_user"`
	S3RootPassword              string        `mapstructure:"s3_password"`
	S3Bucket                    string        `mapstructure:"s3_bucket"`
	S3Region                    string        `mapstructure:"s3_region"`
	S3BaseEndpoint              string        `mapstructure:"s3_endpoint"`
	ArchiveURLValidityDuration  time.Duration `mapstructure:"archive_url_ttl"`
	HamQTHBaseURL               string        `mapstructure:"hamqth_url"`
	HamQTHUser                  string        `mapstructure:"hamqth_user"`
	HamQTHPassword              string        `mapstructure:"hamqth_password"`
	LogLevel                    string        `mapstructure:"log_level"`
	LogFormat                   string        `mapstructure:"log_format"`
	DefaultPageSize             int           `mapstructure:"default_page_size"`
	MaxPageSize                 int           `mapstructure:"max_page_size"`
	RequestTimeout              time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout             time.Duration `mapstructure:"shutdown_timeout"`
}

var envKeys = []string{
	"http_addr", "database_dsn", "secret_key", "access_token_ttl",
	"s3_user", "s3_password", "s3_bucket", "s3_region", "s3_endpoint", "archive_url_ttl",
	"hamqth_url", "hamqth_user", "hamqth_password",
	"log_level", "log_format",
	"default_page_size", "max_page_size",
	"request_timeout", "shutdown_timeout",
}

func newEnvViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface keys to Unmarshal.
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	return v, nil
}

// parseEnv overlays QSOLOG_* variables onto config. Empty variables count
// as unset.
func parseEnv(config *Config) error {
	v, err := newEnvViper()
	if err != nil {
		return err
	}

	c := &EnvConfig{}
	if err := v.Unmarshal(c); err != nil {
		return err
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.ArchiveURLValidityDuration, c.ArchiveURLValidityDuration)
	setString(&config.HamQTHBaseURL, c.HamQTHBaseURL)
	setString(&config.HamQTHUser, c.HamQTHUser)
	setString(&config.HamQTHPassword, c.HamQTHPassword)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setInt(&config.DefaultPageSize, c.DefaultPageSize)
	setInt(&config.MaxPageSize, c.MaxPageSize)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	return nil
}
