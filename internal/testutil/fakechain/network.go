package fakechain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dataxfi/datax-go/internal/networks"
)

// DevChainID is the chain id fake networks are resolved for.
const DevChainID = 8996

// Network resolves a development network with the given contracts and a fast
// poll interval.
func Network(t testing.TB, contracts networks.Contracts) networks.Network {
	t.Helper()
	r, err := networks.NewRegistry(networks.Config{
		Networks: map[string]networks.NetworkConfig{
			"development": {
				ChainID:   DevChainID,
				RPCs:      []networks.RPC{{Name: "local", URL: "http://127.0.0.1:8545"}},
				Contracts: contracts,
				Gas: networks.GasConfig{
					ConfirmationTimeout: 5 * time.Second,
					PollInterval:        5 * time.Millisecond,
				},
			},
		},
	})
	require.NoError(t, err)
	n, err := r.ResolveChainID(DevChainID)
	require.NoError(t, err)
	return n
}
