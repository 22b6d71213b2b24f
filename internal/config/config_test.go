package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) {
	t.Helper()
	viper.Reset()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { require.NoError(t, os.Chdir(origDir)) })
	require.NoError(t, os.WriteFile("config.yml", []byte(contents), 0o644))
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	writeConfigFile(t, `
billing:
  amount: 29900
`)

	cfg, err := LoadConfig(".env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 15, cfg.App.ReadTimeout)
	assert.Equal(t, 15, cfg.App.WriteTimeout)
	assert.Equal(t, "member", cfg.Billing.Tag)
	assert.Equal(t, 30, cfg.Billing.DurationDays)
	assert.Equal(t, int64(29900), cfg.Billing.Amount)
	assert.Equal(t, 30*time.Second, cfg.ReconcilerInterval())
	assert.Equal(t, 24*time.Hour, cfg.ReconcilerMaxPendingAge())
}

func TestLoadConfigRequiresBillingAmount(t *testing.T) {
	writeConfigFile(t, `
app:
  port: "9090"
`)

	_, err := LoadConfig(".env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing.amount")
}

func TestLoadConfigRejectsNegativeBillingAmount(t *testing.T) {
	writeConfigFile(t, `
billing:
  amount: -100
`)

	_, err := LoadConfig(".env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing.amount")
}

func TestLoadConfigReadsConfiguredValues(t *testing.T) {
	writeConfigFile(t, `
app:
  port: "9191"
  readTimeout: 5
billing:
  amount: 49900
  durationDays: 90
  tag: "patron"
reconciler:
  intervalSeconds: 10
  maxPendingAgeHours: 6
`)

	cfg, err := LoadConfig(".env")
	require.NoError(t, err)

	assert.Equal(t, "9191", cfg.App.Port)
	assert.Equal(t, 5, cfg.App.ReadTimeout)
	assert.Equal(t, int64(49900), cfg.Billing.Amount)
	assert.Equal(t, 90, cfg.Billing.DurationDays)
	assert.Equal(t, "patron", cfg.Billing.Tag)
	assert.Equal(t, 10*time.Second, cfg.ReconcilerInterval())
	assert.Equal(t, 6*time.Hour, cfg.ReconcilerMaxPendingAge())
}
