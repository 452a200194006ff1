package networks

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataxfi/datax-go/internal/dataxerr"
)

func testConfig() Config {
	off := false
	margin := uint64(30)
	return Config{
		Networks: map[string]NetworkConfig{
			"polygon": {
				ChainID: 137,
				RPCs:    []RPC{{Name: "main", URL: "https://polygon-rpc.com"}, {Name: "dup", URL: "https://polygon-rpc.com"}},
				Contracts: Contracts{
					OceanToken:  "282d8efce846a88b159800bd4130ad77443fa1a1",
					StakeRouter: "0xf2E1cf99b69C7c1152EF273217Adb62F5dAe3886",
				},
			},
			"Mainnet": {
				ChainIDHex: "0x1",
				RPCs:       []RPC{{Name: "a", URL: "https://a"}, {Name: "b", URL: "https://b"}},
				Gas: GasConfig{
					DefaultGasLimit:     500_000,
					MarginPercent:       &margin,
					FeeMultiplier:       "1.5",
					EstimateFallback:    &off,
					ConfirmationTimeout: time.Minute,
				},
				Trading: Trading{MaxTradeFraction: "0.25", InfiniteApproval: true},
			},
		},
	}
}

func TestResolveByDecimalAndHex(t *testing.T) {
	r, err := NewRegistry(testConfig())
	require.NoError(t, err)

	a, err := r.Resolve("137")
	require.NoError(t, err)
	b, err := r.Resolve("0x89")
	require.NoError(t, err)
	assert.Equal(t, a.ChainID, b.ChainID)
	assert.Equal(t, "polygon", a.Name)
	assert.Equal(t, "0x89", a.ChainIDHex)
	assert.Equal(t, "https://polygonscan.com", a.Explorer)
	assert.Len(t, a.RPCs(), 1)

	m, err := r.ResolveName("MAINNET")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.ChainID)
}

func TestResolveUnknownChain(t *testing.T) {
	r, err := NewRegistry(testConfig())
	require.NoError(t, err)

	_, err = r.Resolve("9999")
	require.Error(t, err)
	kind, ok := dataxerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, dataxerr.ConfigResolutionFailed, kind)

	_, err = r.Resolve("not-a-chain")
	assert.True(t, dataxerr.HasKind(err, dataxerr.ConfigResolutionFailed))
}

func TestGasPolicyDefaults(t *testing.T) {
	r, err := NewRegistry(testConfig())
	require.NoError(t, err)

	p, err := r.ResolveChainID(137)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), p.Gas.DefaultGasLimit)
	assert.Equal(t, uint64(20), p.Gas.MarginPercent)
	assert.True(t, p.Gas.EstimateFallback)
	assert.Equal(t, "1", p.Gas.FeeMultiplier.String())
	assert.Equal(t, "0.5", p.MaxTradeFraction.String())
	assert.False(t, p.InfiniteApproval)

	m, err := r.ResolveChainID(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), m.Gas.DefaultGasLimit)
	assert.Equal(t, uint64(30), m.Gas.MarginPercent)
	assert.False(t, m.Gas.EstimateFallback)
	assert.Equal(t, "1.5", m.Gas.FeeMultiplier.String())
	assert.Equal(t, time.Minute, m.Gas.ConfirmationTimeout)
	assert.Equal(t, "0.25", m.MaxTradeFraction.String())
	assert.True(t, m.InfiniteApproval)
}

func TestZeroMarginIsKept(t *testing.T) {
	cfg := testConfig()
	zero := uint64(0)
	polygon := cfg.Networks["polygon"]
	polygon.Gas.MarginPercent = &zero
	cfg.Networks["polygon"] = polygon

	r, err := NewRegistry(cfg)
	require.NoError(t, err)
	p, err := r.ResolveChainID(137)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.Gas.MarginPercent)

	// a margin left unset still takes the default
	var unset GasConfig
	policy, err := applyGasDefaults(unset)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), policy.MarginPercent)
}

func TestContractLookup(t *testing.T) {
	r, err := NewRegistry(testConfig())
	require.NoError(t, err)
	p, err := r.Resolve("137")
	require.NoError(t, err)

	addr, err := p.Contract(OceanToken)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x282d8efCe846A88B159800bd4130ad77443Fa1A1"), addr)

	_, err = p.Contract(SwapAdapter)
	assert.True(t, dataxerr.HasKind(err, dataxerr.ConfigResolutionFailed))

	adapter := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	q := p.WithContract(SwapAdapter, adapter)
	got, err := q.Contract(SwapAdapter)
	require.NoError(t, err)
	assert.Equal(t, adapter, got)

	// the registry copy is untouched
	again, err := r.Resolve("137")
	require.NoError(t, err)
	_, err = again.Contract(SwapAdapter)
	assert.Error(t, err)
}

func TestRPCSelection(t *testing.T) {
	r, err := NewRegistry(testConfig())
	require.NoError(t, err)
	m, err := r.ResolveChainID(1)
	require.NoError(t, err)

	rpc, err := m.RPC("B")
	require.NoError(t, err)
	assert.Equal(t, "https://b", rpc.URL)

	rpc, err = m.RPC("missing")
	require.NoError(t, err)
	assert.Equal(t, "https://a", rpc.URL)
}

func TestValidationIsEager(t *testing.T) {
	cases := map[string]NetworkConfig{
		"no chain id":    {RPCs: []RPC{{URL: "https://x"}}},
		"no rpc":         {ChainID: 5},
		"hex mismatch":   {ChainID: 5, ChainIDHex: "0x6", RPCs: []RPC{{URL: "https://x"}}},
		"bad address":    {ChainID: 5, RPCs: []RPC{{URL: "https://x"}}, Contracts: Contracts{StakeRouter: "0x123"}},
		"bad multiplier": {ChainID: 5, RPCs: []RPC{{URL: "https://x"}}, Gas: GasConfig{FeeMultiplier: "-1"}},
		"bad fraction":   {ChainID: 5, RPCs: []RPC{{URL: "https://x"}}, Trading: Trading{MaxTradeFraction: "1.5"}},
	}
	for name, nc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(Config{Networks: map[string]NetworkConfig{"goerli": nc}})
			require.Error(t, err)
			assert.True(t, dataxerr.HasKind(err, dataxerr.ConfigResolutionFailed))
		})
	}

	_, err := NewRegistry(Config{})
	assert.Error(t, err)
}

func TestNetworksSorted(t *testing.T) {
	r, err := NewRegistry(testConfig())
	require.NoError(t, err)
	list := r.Networks()
	require.Len(t, list, 2)
	assert.Equal(t, uint64(1), list[0].ChainID)
	assert.Equal(t, uint64(137), list[1].ChainID)
}
