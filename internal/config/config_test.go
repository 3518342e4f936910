package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := writeConfig(t, "jwt_secret: s3cret\ndatabase_url: postgres://localhost/taller\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres://localhost/taller", cfg.DatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.Alerts.ScanInterval)
	assert.Equal(t, 24*time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, 168*time.Hour, cfg.Alerts.Inactivity)
	assert.Equal(t, SchedulerTicker, cfg.Alerts.Scheduler)
	assert.Equal(t, "taller.eventos", cfg.Rabbit.Exchange)
	assert.Equal(t, 5*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
}

func TestLoadReadsNestedKeys(t *testing.T) {
	dir := writeConfig(t, `
jwt_secret: s3cret
alerts:
  scan_interval: 5m
  cooldown: 12h
  scheduler: temporal
  fallback_usuario_id: admin-1
temporal:
  host_port: temporal:7233
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.ScanInterval)
	assert.Equal(t, 12*time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, SchedulerTemporal, cfg.Alerts.Scheduler)
	assert.Equal(t, "admin-1", cfg.Alerts.FallbackUsuarioID)
	assert.Equal(t, "temporal:7233", cfg.Temporal.HostPort)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := writeConfig(t, "jwt_secret: s3cret\n")
	t.Setenv("TALLER_SERVER_PORT", "9090")
	t.Setenv("TALLER_ALERTS_COOLDOWN", "2h")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.Alerts.Cooldown)
}

func TestLoadRequiresSecret(t *testing.T) {
	dir := writeConfig(t, "server_port: \"8080\"\n")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestLoadRejectsUnknownScheduler(t *testing.T) {
	dir := writeConfig(t, "jwt_secret: s3cret\nalerts:\n  scheduler: cron\n")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "alerts.scheduler")
}
