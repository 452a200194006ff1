package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataxfi/datax-go/internal/networks"
)

func TestEmbeddedDefaultsResolve(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	r, err := networks.NewRegistry(cfg.Config)
	require.NoError(t, err)
	assert.Len(t, r.Networks(), 7)

	polygon, err := r.Resolve("0x89")
	require.NoError(t, err)
	assert.Equal(t, "polygon", polygon.Name)
	router, err := polygon.Contract(networks.StakeRouter)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf2E1cf99b69C7c1152EF273217Adb62F5dAe3886"), router)
	assert.Equal(t, "1.1", polygon.Gas.FeeMultiplier.String())
	assert.Equal(t, "0.5", polygon.MaxTradeFraction.String())

	_, err = r.Resolve("56")
	require.NoError(t, err)
	_, err = r.Resolve("10")
	assert.Error(t, err)
}

func TestUserFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`
networks:
  polygon:
    trading:
      maxTradeFraction: "0.25"
      infiniteApproval: true
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datax.yaml"), body, 0o600))

	cfg, err := Load([]string{dir})
	require.NoError(t, err)
	r, err := networks.NewRegistry(cfg.Config)
	require.NoError(t, err)

	polygon, err := r.Resolve("137")
	require.NoError(t, err)
	assert.Equal(t, "0.25", polygon.MaxTradeFraction.String())
	assert.True(t, polygon.InfiniteApproval)
	// untouched keys keep their defaults
	_, err = polygon.Contract(networks.OceanToken)
	assert.NoError(t, err)
}

func TestInfuraKeyFromEnvironment(t *testing.T) {
	t.Setenv("DATAX_INFURA_KEY", "abc123")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "https://rinkeby.infura.io/v3/abc123", cfg.Networks["rinkeby"].RPCs[0].URL)
	assert.Equal(t, "https://polygon-mainnet.infura.io/v3/abc123", cfg.Networks["polygon"].RPCs[0].URL)
	// networks without a slug keep their rpc
	assert.Equal(t, "https://bsc-dataseed.binance.org", cfg.Networks["bsc"].RPCs[0].URL)
}

func TestInjectInfuraKeyRejectsEmpty(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Error(t, cfg.InjectInfuraKey("  "))
}
