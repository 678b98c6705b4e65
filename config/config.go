package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the configuration for the profilebridge server.
type Config struct {
	LogLevel           string `hcl:"log_level,optional"`
	LogFormat          string `hcl:"log_format,optional"`
	LogFile            string `hcl:"log_file,optional"`
	LogRotateMegabytes int    `hcl:"log_rotate_megabytes,optional"`
	LogRotateMaxFiles  int    `hcl:"log_rotate_max_files,optional"`

	Listener   *ListenerBlock   `hcl:"listener,block"`
	AWS        *AWSBlock        `hcl:"aws,block"`
	Auth       *AuthBlock       `hcl:"auth,block"`
	Federation *FederationBlock `hcl:"federation,block"`
	Rules      []RuleBlock      `hcl:"rule,block"`
}

// ListenerBlock configures the local API listener.
type ListenerBlock struct {
	Address string `hcl:"address,optional"`

	// AllowRemote permits binding to a non-loopback address. Off by default:
	// the bridge serves a browser extension on the same machine.
	AllowRemote bool `hcl:"allow_remote,optional"`
}

// AWSBlock points the bridge at the user's AWS configuration files.
type AWSBlock struct {
	Dir             string `hcl:"dir,optional"`              // defaults to ~/.aws
	CredentialsFile string `hcl:"credentials_file,optional"` // defaults to <dir>/credentials
	ConfigFile      string `hcl:"config_file,optional"`      // defaults to <dir>/config
	SSOCacheDir     string `hcl:"sso_cache_dir,optional"`    // defaults to <dir>/sso/cache
}

// AuthBlock configures API token storage and failure rate limiting.
type AuthBlock struct {
	TokenFile         string `hcl:"token_file,optional"` // defaults to <aws dir>/profile_bridge_config.json
	MaxFailedAttempts int    `hcl:"max_failed_attempts,optional"`
	WindowSeconds     int    `hcl:"window_seconds,optional"`
}

// FederationBlock configures console sign-in URL generation.
type FederationBlock struct {
	Endpoint        string `hcl:"endpoint,optional"`
	Issuer          string `hcl:"issuer,optional"`
	SessionDuration int    `hcl:"session_duration_seconds,optional"`
}

// RuleBlock adds a custom profile classification rule, evaluated before the
// built-in keyword rules.
type RuleBlock struct {
	Keyword string `hcl:"keyword,label"`
	Color   string `hcl:"color,optional"`
	Icon    string `hcl:"icon,optional"`
}

const (
	DefaultListenAddress   = "127.0.0.1:10999"
	DefaultMaxFailed       = 10
	DefaultWindowSeconds   = 60
	DefaultSessionDuration = 12 * time.Hour
)

// LoadConfig reads an HCL configuration file. A missing path yields the
// default configuration rather than an error.
func LoadConfig(configFile string) (*Config, error) {
	var config Config

	if configFile != "" {
		if err := hclsimple.DecodeFile(configFile, nil, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "default"
	}
	if c.LogRotateMegabytes == 0 {
		c.LogRotateMegabytes = 10
	}
	if c.LogRotateMaxFiles == 0 {
		c.LogRotateMaxFiles = 5
	}

	if c.Listener == nil {
		c.Listener = &ListenerBlock{}
	}
	if c.Listener.Address == "" {
		c.Listener.Address = DefaultListenAddress
	}

	if c.AWS == nil {
		c.AWS = &AWSBlock{}
	}
	if c.AWS.Dir == "" {
		c.AWS.Dir = defaultAWSDir()
	}
	if c.AWS.CredentialsFile == "" {
		c.AWS.CredentialsFile = filepath.Join(c.AWS.Dir, "credentials")
	}
	if c.AWS.ConfigFile == "" {
		c.AWS.ConfigFile = filepath.Join(c.AWS.Dir, "config")
	}
	if c.AWS.SSOCacheDir == "" {
		c.AWS.SSOCacheDir = filepath.Join(c.AWS.Dir, "sso", "cache")
	}

	if c.Auth == nil {
		c.Auth = &AuthBlock{}
	}
	if c.Auth.TokenFile == "" {
		c.Auth.TokenFile = filepath.Join(c.AWS.Dir, "profile_bridge_config.json")
	}
	if c.Auth.MaxFailedAttempts == 0 {
		c.Auth.MaxFailedAttempts = DefaultMaxFailed
	}
	if c.Auth.WindowSeconds == 0 {
		c.Auth.WindowSeconds = DefaultWindowSeconds
	}

	if c.Federation == nil {
		c.Federation = &FederationBlock{}
	}
	if c.Federation.Endpoint == "" {
		c.Federation.Endpoint = "https://signin.aws.amazon.com/federation"
	}
	if c.Federation.Issuer == "" {
		c.Federation.Issuer = "profilebridge"
	}
	if c.Federation.SessionDuration == 0 {
		c.Federation.SessionDuration = int(DefaultSessionDuration.Seconds())
	}
}

func defaultAWSDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aws"
	}
	return filepath.Join(home, ".aws")
}
