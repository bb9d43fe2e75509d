package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
server:
  host: 127.0.0.1
  port: 8080
gateway:
  api_url: http://localhost:5700
`

func TestLoad(t *testing.T) {
	t.Run("MinimalWithDefaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, minimalConfig))
		require.NoError(t, err)

		assert.Equal(t, "onebot", cfg.Gateway.Platform)
		assert.Equal(t, 10, cfg.Gateway.TimeoutSeconds)
		assert.Equal(t, "memory", cfg.CodeStore.Backend)
		assert.Equal(t, 5, cfg.CodeStore.TimeoutSeconds)
		assert.Equal(t, DefaultRejectReason, cfg.Policy.RejectReason)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "text", cfg.Log.Format)
		assert.NotEmpty(t, cfg.Scheduler.DeleteExpiredCodes)
		assert.Equal(t, "127.0.0.1:8080", cfg.GetServerAddress())
	})

	t.Run("BlankRejectReasonGetsDefault", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, minimalConfig+`
policy:
  reject_reason: "   "
`))
		require.NoError(t, err)
		assert.Equal(t, DefaultRejectReason, cfg.Policy.RejectReason)
	})

	t.Run("NegativeDelayRejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, minimalConfig+`
policy:
  delay_seconds: -5
`))
		assert.Error(t, err)
	})

	t.Run("MissingGatewayURLRejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
server:
  port: 8080
`))
		assert.Error(t, err)
	})

	t.Run("BadPortRejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
server:
  port: 99999
gateway:
  api_url: http://localhost:5700
`))
		assert.Error(t, err)
	})

	t.Run("UnknownBackendRejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, minimalConfig+`
codestore:
  backend: etcd
`))
		assert.Error(t, err)
	})

	t.Run("RemoteBackendNeedsEndpointAndSecret", func(t *testing.T) {
		_, err := Load(writeConfig(t, minimalConfig+`
codestore:
  backend: remote
`))
		assert.Error(t, err)

		cfg, err := Load(writeConfig(t, minimalConfig+`
codestore:
  backend: remote
  endpoint: http://codestore:8080/api/v1/codes/redeem
  service_secret: shared
`))
		require.NoError(t, err)
		assert.Equal(t, "remote", cfg.CodeStore.Backend)
	})

	t.Run("PostgresBackendNeedsDatabase", func(t *testing.T) {
		_, err := Load(writeConfig(t, minimalConfig+`
codestore:
  backend: postgres
`))
		assert.Error(t, err)
	})

	t.Run("NotifyOnDeferNeedsAddresses", func(t *testing.T) {
		_, err := Load(writeConfig(t, minimalConfig+`
notify:
  on_defer: true
`))
		assert.Error(t, err)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("GATEWAY_ACCESS_TOKEN", "from-env")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load(writeConfig(t, minimalConfig))
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Gateway.AccessToken)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestGetDatabaseConnectionString(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "pw", Database: "codes", SSLMode: "disable",
	}}
	assert.Equal(t, "postgres://app:pw@db:5432/codes?sslmode=disable", cfg.GetDatabaseConnectionString())
}
