package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultListenAddress, cfg.Listener.Address)
	assert.False(t, cfg.Listener.AllowRemote)
	assert.Equal(t, filepath.Join(cfg.AWS.Dir, "credentials"), cfg.AWS.CredentialsFile)
	assert.Equal(t, filepath.Join(cfg.AWS.Dir, "config"), cfg.AWS.ConfigFile)
	assert.Equal(t, filepath.Join(cfg.AWS.Dir, "sso", "cache"), cfg.AWS.SSOCacheDir)
	assert.Equal(t, DefaultMaxFailed, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, DefaultWindowSeconds, cfg.Auth.WindowSeconds)
	assert.Equal(t, "https://signin.aws.amazon.com/federation", cfg.Federation.Endpoint)
	assert.Equal(t, int(DefaultSessionDuration.Seconds()), cfg.Federation.SessionDuration)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profilebridge.hcl")
	content := `
log_level = "debug"
log_file  = "/tmp/profilebridge.log"

listener {
  address      = "127.0.0.1:7777"
  allow_remote = false
}

aws {
  dir = "/home/user/.aws"
}

auth {
  max_failed_attempts = 5
  window_seconds      = 30
}

federation {
  issuer                   = "mycompany"
  session_duration_seconds = 3600
}

rule "sandbox" {
  color = "orange"
  icon  = "pet"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:7777", cfg.Listener.Address)
	assert.Equal(t, "/home/user/.aws", cfg.AWS.Dir)
	assert.Equal(t, filepath.Join("/home/user/.aws", "credentials"), cfg.AWS.CredentialsFile)
	assert.Equal(t, 5, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 30, cfg.Auth.WindowSeconds)
	assert.Equal(t, "mycompany", cfg.Federation.Issuer)
	assert.Equal(t, 3600, cfg.Federation.SessionDuration)

	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "sandbox", cfg.Rules[0].Keyword)
	assert.Equal(t, "orange", cfg.Rules[0].Color)
	assert.Equal(t, "pet", cfg.Rules[0].Icon)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte("listener {"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
