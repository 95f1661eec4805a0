package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JsonConfig is the on-disk shape of the configuration file. Only fields
// present with a non-zero value override the current settings.
type JsonConfig struct {
	EndpointAddrHTTP            string   `json:"endpoint_addr_http"`
	DatabaseDSN                 string   `json:"database_dsn"`
	SecretKey                   string   `json:"secret_key"`
	AccessTokenValidityDuration Duration `json:"access_token_validity_duration"`
	S3RootUser                  string   `json:"s3_root_user"`
	S3RootPassword              string   `json:"s3_root_password"`
	S3Bucket                    string   `json:"s3_bucket"`
	S3Region                    string   `json:"s3_region"`
	S3BaseEndpoint              string   `json:"s3_base_endpoint"`
	ArchiveURLValidityDuration  Duration `json:"archive_url_validity_duration"`
	HamQTHBaseURL               string   `json:"hamqth_base_url"`
	HamQTHUser                  string   `json:"hamqth_user"`
	HamQTHPassword              string   `json:"hamqth_password"`
	LogLevel                    string   `json:"log_level"`
	LogFormat                   string   `json:"log_format"`
	DefaultPageSize             int      `json:"default_page_size"`
	MaxPageSize                 int      `json:"max_page_size"`
	RequestTimeout              Duration `json:"request_timeout"`
	ShutdownTimeout             Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := configPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.ArchiveURLValidityDuration, c.ArchiveURLValidityDuration.Duration)
	setString(&config.HamQTHBaseURL, c.HamQTHBaseURL)
	setString(&config.HamQTHUser, c.HamQTHUser)
	setString(&config.HamQTHPassword, c.HamQTHPassword)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setInt(&config.DefaultPageSize, c.DefaultPageSize)
	setInt(&config.MaxPageSize, c.MaxPageSize)
	setDuration(&config.RequestTimeout, c.RequestTimeout.Duration)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout.Duration)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
