// Package datax is a client SDK for the DataX and Ocean Protocol contracts:
// weighted datatoken pools, the DataX stake router and its swap adapter.
//
// A Client is bound to one network. Amounts are decimal token units
// everywhere; each is scaled by the decimals of the token it denominates right
// before a contract call. State-changing operations check the sender's
// balance, approve exactly what they spend and check the pool's max tradeable
// amount before anything is submitted.
package datax

import (
	"context"

	"github.com/dataxfi/datax-go/internal/chains"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/pool"
	"github.com/dataxfi/datax-go/internal/preflight"
	"github.com/dataxfi/datax-go/internal/quote"
	"github.com/dataxfi/datax-go/internal/stake"
	"github.com/dataxfi/datax-go/internal/tokens"
	"github.com/dataxfi/datax-go/internal/trade"
	"github.com/dataxfi/datax-go/internal/txn"
)

type (
	Error        = dataxerr.Error
	Kind         = dataxerr.Kind
	Config       = networks.Config
	Network      = networks.Network
	StakeInfo    = stake.Info
	Claim        = stake.Claim
	QuoteResult  = quote.Result
	TradeOptions = trade.Options
)

const (
	InsufficientBalance    = dataxerr.InsufficientBalance
	ApprovalFailed         = dataxerr.ApprovalFailed
	ExceedsMaxTradeable    = dataxerr.ExceedsMaxTradeable
	GasEstimationFailed    = dataxerr.GasEstimationFailed
	TransactionFailed      = dataxerr.TransactionFailed
	QuoteUnavailable       = dataxerr.QuoteUnavailable
	ConfigResolutionFailed = dataxerr.ConfigResolutionFailed
	InvalidArgument        = dataxerr.InvalidArgument
	ChainReadFailed        = dataxerr.ChainReadFailed
)

// HasKind reports whether err is, or wraps, an SDK error of kind k.
func HasKind(err error, k Kind) bool { return dataxerr.HasKind(err, k) }

// Client composes the SDK components for one network. A component whose
// contract the network does not configure is nil.
type Client struct {
	Chain    *chains.Client
	Tokens   *tokens.Registry
	Executor *txn.Executor
	Flow     *preflight.Flow

	Ocean *pool.Ocean
	Trade *trade.Trade
	Stake *stake.Router

	service *chains.Service
}

type options struct {
	store    *tokens.Store
	required []networks.ContractName
}

type Option func(*options)

// WithTokenStore persists token metadata across runs.
func WithTokenStore(s *tokens.Store) Option {
	return func(o *options) { o.store = s }
}

// WithRequired makes New fail when any of names is not configured, instead of
// leaving the matching component nil.
func WithRequired(names ...networks.ContractName) Option {
	return func(o *options) { o.required = append(o.required, names...) }
}

func configured(n networks.Network, name networks.ContractName) bool {
	_, err := n.Contract(name)
	return err == nil
}

// New builds every component chain's network supports.
func New(chain *chains.Client, opts ...Option) (*Client, error) {
	if chain == nil {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "chain client is required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	net := chain.Network
	for _, name := range o.required {
		if _, err := net.Contract(name); err != nil {
			return nil, err
		}
	}

	c := &Client{Chain: chain}
	c.Executor = txn.NewExecutor(chain.Backend, net)
	c.Tokens = tokens.NewRegistry(chain.Backend, c.Executor, net, o.store)
	c.Flow = preflight.NewFlow(c.Tokens, c.Executor)

	var err error
	if configured(net, networks.OceanToken) {
		if c.Ocean, err = pool.NewOcean(net, chain.Backend, c.Tokens, c.Flow); err != nil {
			return nil, err
		}
	}
	if configured(net, networks.SwapAdapter) {
		if c.Trade, err = trade.New(net, chain.Backend, c.Tokens, c.Flow); err != nil {
			return nil, err
		}
	}
	// the router needs pool wrappers for its max checks
	if configured(net, networks.StakeRouter) && c.Ocean != nil {
		var route stake.AmountsQuoter
		if c.Trade != nil {
			route = c.Trade
		}
		if c.Stake, err = stake.New(net, chain.Backend, c.Tokens, c.Flow, c.Executor, c.Ocean, route); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Dial resolves chainID (decimal or hex) in cfg, connects to the network's
// preferred RPC and builds a Client. Close releases the connection.
func Dial(ctx context.Context, cfg Config, chainID string, opts ...Option) (*Client, error) {
	registry, err := networks.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	service := chains.NewService(registry)
	chain, err := service.ClientFor(ctx, chainID)
	if err != nil {
		return nil, err
	}
	c, err := New(chain, opts...)
	if err != nil {
		service.Close()
		return nil, err
	}
	c.service = service
	return c, nil
}

func (c *Client) Network() Network { return c.Chain.Network }

// Close releases a Client made by Dial. It is a no-op for one made by New.
func (c *Client) Close() {
	if c.service != nil {
		c.service.Close()
	}
}
