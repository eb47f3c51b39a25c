package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 5*time.Second, cfg.SMTPConnectTimeout)
	require.Equal(t, "noreply@mailcheck.local", cfg.MailFrom)
	require.Equal(t, 3, cfg.SentinelThresholdHosts)
	require.Equal(t, 600*time.Second, cfg.VerifySoftTimeLimit)
	require.Equal(t, 660*time.Second, cfg.VerifyHardTimeLimit)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte(`
smtp:
  connect_timeout: 10s
  mail_from: bounce@acme.com
dns:
  timeout: 8s
`)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.SMTPConnectTimeout)
	require.Equal(t, "bounce@acme.com", cfg.MailFrom)
	require.Equal(t, 8*time.Second, cfg.DNSTimeout)
	require.Equal(t, 5*time.Second, cfg.SMTPReadTimeout) // untouched default
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("smtp: [this, is, not, a, map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
