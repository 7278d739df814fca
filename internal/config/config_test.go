package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "http://localhost:8545", cfg.Chain.RPCURL)
	assert.Equal(t, DefaultDSCAddress, cfg.Contracts.DSC)
	assert.Equal(t, DefaultEngineAddress, cfg.Contracts.Engine)
	assert.Equal(t, "none", cfg.KeyManager.Type)
	assert.Equal(t, "transit", cfg.KeyManager.Vault.TransitPath)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: "9090"
log:
  level: debug
key_manager:
  type: local
auth:
  api_key: k
  api_secret: s
cors:
  allowed_origins: ["https://app.example"]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("BLOCKCHAIN_RPC_URL", "http://node:8545")
	t.Setenv("DSC_ADDRESS", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://node:8545", cfg.Chain.RPCURL)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", cfg.Contracts.DSC)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORS.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg := base
	cfg.Chain.RPCURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.Contracts.WETH = "0x123"
	assert.ErrorContains(t, cfg.Validate(), "contracts.weth")

	cfg = base
	cfg.KeyManager.Type = "hsm"
	assert.ErrorContains(t, cfg.Validate(), "unknown key_manager.type")

	cfg = base
	cfg.KeyManager.Type = "vault"
	assert.ErrorContains(t, cfg.Validate(), "requires auth.api_key")
	cfg.Auth.APIKey = "k"
	assert.NoError(t, cfg.Validate())
}
