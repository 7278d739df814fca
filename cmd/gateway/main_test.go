package main

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xueqianLu/dscgateway/internal/config"
	"github.com/xueqianLu/dscgateway/internal/signer"
)

func TestRunReturnsDialError(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Chain.RPCURL = "ftp://nowhere"
	cfg.Telemetry.OTLPEndpoint = ""
	log, _ := test.NewNullLogger()

	err = run(cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to ftp://nowhere")
}

func TestNewKeyManager(t *testing.T) {
	log, _ := test.NewNullLogger()

	km, err := newKeyManager(config.KeyManagerConfig{Type: "none"}, log)
	require.NoError(t, err)
	assert.Nil(t, km)

	km, err = newKeyManager(config.KeyManagerConfig{
		Type:  "local",
		Local: config.LocalConfig{KeyDir: t.TempDir(), Password: "pw"},
	}, log)
	require.NoError(t, err)
	require.IsType(t, &signer.LocalKeyManager{}, km)
	assert.Empty(t, km.GetAccounts())
}
