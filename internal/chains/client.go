// Package chains builds the client context shared by every SDK component:
// a node backend bound to one resolved network.
package chains

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
)

// Client pairs a node backend with the network it was resolved for.
type Client struct {
	Backend Backend
	Network networks.Network

	close func()
}

// New wraps an existing backend. The caller owns the backend's lifetime.
func New(backend Backend, network networks.Network) *Client {
	return &Client{Backend: backend, Network: network, close: func() {}}
}

// Dial connects to the network's preferred RPC, checks that the node serves the
// configured chain and starts the header cache.
func Dial(ctx context.Context, network networks.Network, preferredRPC string) (*Client, error) {
	rpc, err := network.RPC(preferredRPC)
	if err != nil {
		return nil, err
	}

	eclient, err := ethclient.DialContext(ctx, rpc.URL)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ConfigResolutionFailed, "connect to %s rpc %q", network.Name, rpc.Name)
	}

	got, err := eclient.ChainID(ctx)
	if err != nil {
		eclient.Close()
		return nil, dataxerr.Wrap(err, dataxerr.ConfigResolutionFailed, "read chain id from %s", network.Name)
	}
	if got.Uint64() != network.ChainID {
		eclient.Close()
		return nil, dataxerr.New(dataxerr.ConfigResolutionFailed,
			"rpc %q serves chain %s, expected %d", rpc.Name, got.String(), network.ChainID)
	}

	cached := NewHeaderCache(eclient, constants.HeaderMaxAgeMilliseconds*time.Millisecond)
	if _, err := cached.Refresh(ctx); err != nil {
		eclient.Close()
		return nil, dataxerr.Wrap(err, dataxerr.ConfigResolutionFailed, "prime header cache for %s", network.Name)
	}
	// the header refresher lives until Close, not until ctx is done
	loopCtx, cancel := context.WithCancel(context.Background())
	go cached.Run(loopCtx, constants.HeaderRefreshMilliseconds*time.Millisecond)

	log.Info("connected to network", "network", network.Name, "chainId", network.ChainID, "rpc", rpc.Name)

	return &Client{
		Backend: cached,
		Network: network,
		close: func() {
			cancel()
			eclient.Close()
		},
	}, nil
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).SetUint64(c.Network.ChainID)
}

func (c *Client) Close() {
	if c != nil && c.close != nil {
		c.close()
	}
}
