package datax_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataxfi/datax-go"
	"github.com/dataxfi/datax-go/internal/chains"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/testutil/fakechain"
)

var (
	oceanAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	wethAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	adapterAddr = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	routerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func TestNewBuildsConfiguredComponents(t *testing.T) {
	chain := fakechain.New(fakechain.DevChainID)
	ocean := chain.DeployToken(oceanAddr, "OCEAN", 18)
	weth := chain.DeployToken(wethAddr, "WETH", 18)
	chain.DeployStakeRouter(routerAddr, chain.DeployAdapter(adapterAddr, weth))

	net := fakechain.Network(t, networks.Contracts{
		OceanToken:  oceanAddr.Hex(),
		StakeRouter: routerAddr.Hex(),
		SwapAdapter: adapterAddr.Hex(),
		WETH:        wethAddr.Hex(),
	})
	c, err := datax.New(chains.New(chain, net))
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Ocean)
	require.NotNil(t, c.Trade)
	require.NotNil(t, c.Stake)
	assert.Equal(t, routerAddr, c.Stake.Address())
	assert.Equal(t, uint64(fakechain.DevChainID), c.Network().ChainID)

	holder := chain.NewSender(t)
	ocean.Mint(holder.From, big.NewInt(2_500_000_000_000_000_000))
	bal, err := c.Ocean.GetBalance(context.Background(), oceanAddr, holder.From)
	require.NoError(t, err)
	assert.Equal(t, "2.5", bal.String())
}

func TestNewLeavesUnconfiguredComponentsNil(t *testing.T) {
	chain := fakechain.New(fakechain.DevChainID)
	net := fakechain.Network(t, networks.Contracts{OceanToken: oceanAddr.Hex()})

	c, err := datax.New(chains.New(chain, net))
	require.NoError(t, err)
	assert.NotNil(t, c.Ocean)
	assert.Nil(t, c.Trade)
	assert.Nil(t, c.Stake)

	_, err = datax.New(chains.New(chain, net), datax.WithRequired(networks.SwapAdapter))
	assert.True(t, datax.HasKind(err, datax.ConfigResolutionFailed))
}

func TestDialUnknownChain(t *testing.T) {
	cfg := datax.Config{Networks: map[string]networks.NetworkConfig{
		"development": {
			ChainID: fakechain.DevChainID,
			RPCs:    []networks.RPC{{Name: "local", URL: "http://127.0.0.1:8545"}},
		},
	}}
	_, err := datax.Dial(context.Background(), cfg, "0x89")
	assert.True(t, datax.HasKind(err, datax.ConfigResolutionFailed))

	_, err = datax.Dial(context.Background(), datax.Config{}, "1")
	assert.True(t, datax.HasKind(err, datax.ConfigResolutionFailed))
}
