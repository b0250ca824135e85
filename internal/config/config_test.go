package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashguard/go-odin-auth/internal/config"
)

func TestParseNetwork(t *testing.T) {
	for _, valid := range []string{"prd", "testing", "development"} {
		n, err := config.ParseNetwork(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(n))
	}

	_, err := config.ParseNetwork("mainnet")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownNetwork)
}

func TestNetworkCanisterIDs(t *testing.T) {
	assert.Equal(t, "g7qkb-iiaaa-aaaar-qb3za-cai", config.NetworkPrd.CkSignerCanisterID())
	assert.Equal(t, "ho2u6-qaaaa-aaaar-qb34q-cai", config.NetworkTesting.CkSignerCanisterID())
	assert.Equal(t, "ho2u6-qaaaa-aaaar-qb34q-cai", config.NetworkDevelopment.CkSignerCanisterID())

	// SIWB 与 ledger 不随网络变化
	assert.Equal(t, "bcxqa-kqaaa-aaaak-qotba-cai", config.NetworkTesting.SiwbCanisterID())
	assert.Equal(t, "mxzaz-hqaaa-aaaar-qaada-cai", config.NetworkPrd.CkBTCLedgerID())
}

func TestNetworkCacheSuffix(t *testing.T) {
	assert.Equal(t, "", config.NetworkPrd.CacheSuffix())
	assert.Equal(t, "_testing", config.NetworkTesting.CacheSuffix())
	assert.Equal(t, "_development", config.NetworkDevelopment.CacheSuffix())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "prd", cfg.Network)
	assert.Equal(t, "https://ic0.app", cfg.ICHost)
	assert.Equal(t, "https://api.odin.fun/v1", cfg.OdinAPIURL)
	assert.True(t, cfg.CacheSessions)
	assert.Equal(t, 5, cfg.MaxWorkers)
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
network = "testing"
odin_api_url = "http://localhost:8080/v1"
max_workers = 2
cache_sessions = false
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "testing", cfg.Network)
	assert.Equal(t, "http://localhost:8080/v1", cfg.OdinAPIURL)
	assert.Equal(t, 2, cfg.MaxWorkers)
	assert.False(t, cfg.CacheSessions)
	// 未覆盖的字段保持默认
	assert.Equal(t, "https://ic0.app", cfg.ICHost)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ODIN_NETWORK", "development")
	t.Setenv("ODIN_WALLET_PEM", "/secrets/wallet.pem")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Network)
	assert.Equal(t, "/secrets/wallet.pem", cfg.WalletPEMPath)
}

func TestLoadRejectsBadNetwork(t *testing.T) {
	t.Setenv("ODIN_NETWORK", "nonsense")
	_, err := config.Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownNetwork)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.toml")
	require.Error(t, err)
}
