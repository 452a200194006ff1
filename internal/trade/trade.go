// Package trade quotes and submits swaps through the DataX swap adapter, a
// Uniswap-V2-style router.
package trade

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/bindings"
	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/preflight"
	"github.com/dataxfi/datax-go/internal/tokens"
	"github.com/dataxfi/datax-go/internal/txn"
	"github.com/dataxfi/datax-go/internal/units"
)

// Options are the optional swap parameters.
type Options struct {
	// To receives the output; the sender when zero.
	To common.Address
	// Deadline defaults to twenty minutes from now.
	Deadline time.Time
	// MaxIn bounds the amount of path[0] the swap may spend, e.g. the
	// max-tradeable amount of a pool the route trades against. The adapter
	// exposes no reserves, so without it the bound is not checked.
	MaxIn preflight.MaxFunc
}

type Trade struct {
	adapter *bindings.SwapAdapter
	tokens  *tokens.Registry
	scaler  *units.Scaler
	flow    *preflight.Flow
	now     func() time.Time
}

// New binds the swap adapter configured for network.
func New(network networks.Network, caller bind.ContractCaller, registry *tokens.Registry, flow *preflight.Flow) (*Trade, error) {
	addr, err := network.Contract(networks.SwapAdapter)
	if err != nil {
		return nil, err
	}
	adapter, err := bindings.NewSwapAdapter(addr, caller)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ConfigResolutionFailed, "bind swap adapter %s", addr.Hex())
	}
	return &Trade{
		adapter: adapter,
		tokens:  registry,
		scaler:  units.NewScaler(registry),
		flow:    flow,
		now:     time.Now,
	}, nil
}

func (t *Trade) Address() common.Address { return t.adapter.Address() }

func (t *Trade) WETH(ctx context.Context) (common.Address, error) {
	addr, err := t.adapter.WETH(ctx)
	if err != nil {
		return common.Address{}, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "WETH")
	}
	return addr, nil
}

func route(path []common.Address) (units.Path, error) {
	if len(path) < 2 {
		return units.Path{}, dataxerr.New(dataxerr.InvalidArgument, "swap path needs at least two tokens, got %d", len(path))
	}
	return units.Path{Tokens: path}, nil
}

// scaleAll converts each amount of the route by the decimals of its own token.
func (t *Trade) scaleAll(ctx context.Context, name string, path []common.Address, raw []*big.Int) ([]decimal.Decimal, error) {
	if len(raw) != len(path) {
		return nil, dataxerr.New(dataxerr.QuoteUnavailable, "%s: got %d amounts for a path of %d", name, len(raw), len(path))
	}
	out := make([]decimal.Decimal, len(raw))
	for i, v := range raw {
		dec, err := t.tokens.Decimals(ctx, path[i])
		if err != nil {
			return nil, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "%s: decimals of %s", name, path[i].Hex())
		}
		out[i] = units.FromBaseUnits(v, dec)
	}
	return out, nil
}

// GetAmountsOut quotes every hop of path for selling amountIn of path[0].
func (t *Trade) GetAmountsOut(ctx context.Context, amountIn decimal.Decimal, path []common.Address) ([]decimal.Decimal, error) {
	p, err := route(path)
	if err != nil {
		return nil, err
	}
	in, err := t.scaler.ToBase(ctx, p, amountIn, units.RolePathFirst)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "getAmountsOut: scale input")
	}
	raw, err := t.adapter.GetAmountsOut(ctx, in, path)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "getAmountsOut")
	}
	return t.scaleAll(ctx, "getAmountsOut", path, raw)
}

// GetAmountsIn quotes every hop of path for buying amountOut of the last token.
func (t *Trade) GetAmountsIn(ctx context.Context, amountOut decimal.Decimal, path []common.Address) ([]decimal.Decimal, error) {
	p, err := route(path)
	if err != nil {
		return nil, err
	}
	out, err := t.scaler.ToBase(ctx, p, amountOut, units.RolePathLast)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "getAmountsIn: scale input")
	}
	raw, err := t.adapter.GetAmountsIn(ctx, out, path)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "getAmountsIn")
	}
	return t.scaleAll(ctx, "getAmountsIn", path, raw)
}

// swapSpec describes one of the six entry points. first and second are the
// leading amounts in ABI order, each with the role that scales it. spend is
// what leaves the sender's wallet; for the native coin it is also the value.
type swapSpec struct {
	method     string
	ethIn      bool
	first      decimal.Decimal
	firstRole  units.Role
	second     decimal.Decimal
	secondRole units.Role
	hasSecond  bool
	spend      decimal.Decimal
}

func (t *Trade) swap(ctx context.Context, sender *bind.TransactOpts, path []common.Address, opts Options, s swapSpec) (*types.Receipt, error) {
	p, err := route(path)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "%s: sender is required", s.method)
	}

	args := bindings.SwapArgs{Path: path, To: opts.To}
	if args.To == (common.Address{}) {
		args.To = sender.From
	}
	deadline := opts.Deadline
	if deadline.IsZero() {
		deadline = t.now().Add(constants.DefaultSwapDeadlineSeconds * time.Second)
	}
	args.Deadline = big.NewInt(deadline.Unix())

	if args.First, err = t.scaler.ToBase(ctx, p, s.first, s.firstRole); err != nil {
		return nil, err
	}
	if s.hasSecond {
		if args.Second, err = t.scaler.ToBase(ctx, p, s.second, s.secondRole); err != nil {
			return nil, err
		}
	}
	data, err := t.adapter.PackSwap(s.method, args)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack %s", s.method)
	}

	call := txn.Call{To: t.adapter.Address(), Data: data, Method: s.method}
	chk := preflight.Check{
		Token:   path[0],
		Owner:   sender.From,
		Spender: t.adapter.Address(),
		Amount:  s.spend,
		Max:     opts.MaxIn,
	}
	if s.ethIn {
		if call.Value, err = t.scaler.ToBase(ctx, p, s.spend, units.RolePathFirst); err != nil {
			return nil, err
		}
		chk.Token = common.HexToAddress(constants.NativeAddr)
		chk.SkipAllowance = true
	}
	return t.flow.Submit(ctx, chk, call, sender)
}

// SwapExactETHForTokens sells exactly amountIn of the native coin along path,
// which starts at WETH.
func (t *Trade) SwapExactETHForTokens(ctx context.Context, sender *bind.TransactOpts, amountIn, amountOutMin decimal.Decimal, path []common.Address, opts Options) (*types.Receipt, error) {
	return t.swap(ctx, sender, path, opts, swapSpec{
		method:    "swapExactETHForTokens",
		ethIn:     true,
		first:     amountOutMin,
		firstRole: units.RolePathLast,
		spend:     amountIn,
	})
}

// SwapETHForExactTokens buys exactly amountOut, sending at most amountInMax of
// the native coin. The adapter refunds what it does not use.
func (t *Trade) SwapETHForExactTokens(ctx context.Context, sender *bind.TransactOpts, amountOut, amountInMax decimal.Decimal, path []common.Address, opts Options) (*types.Receipt, error) {
	return t.swap(ctx, sender, path, opts, swapSpec{
		method:    "swapETHForExactTokens",
		ethIn:     true,
		first:     amountOut,
		firstRole: units.RolePathLast,
		spend:     amountInMax,
	})
}

func (t *Trade) SwapExactTokensForETH(ctx context.Context, sender *bind.TransactOpts, amountIn, amountOutMin decimal.Decimal, path []common.Address, opts Options) (*types.Receipt, error) {
	return t.swap(ctx, sender, path, opts, swapSpec{
		method:     "swapExactTokensForETH",
		first:      amountIn,
		firstRole:  units.RolePathFirst,
		second:     amountOutMin,
		secondRole: units.RolePathLast,
		hasSecond:  true,
		spend:      amountIn,
	})
}

func (t *Trade) SwapTokensForExactETH(ctx context.Context, sender *bind.TransactOpts, amountOut, amountInMax decimal.Decimal, path []common.Address, opts Options) (*types.Receipt, error) {
	return t.swap(ctx, sender, path, opts, swapSpec{
		method:     "swapTokensForExactETH",
		first:      amountOut,
		firstRole:  units.RolePathLast,
		second:     amountInMax,
		secondRole: units.RolePathFirst,
		hasSecond:  true,
		spend:      amountInMax,
	})
}

// SwapExactTokensForTokens sells exactly amountIn of path[0] for at least
// amountOutMin of the last token.
func (t *Trade) SwapExactTokensForTokens(ctx context.Context, sender *bind.TransactOpts, amountIn, amountOutMin decimal.Decimal, path []common.Address, opts Options) (*types.Receipt, error) {
	return t.swap(ctx, sender, path, opts, swapSpec{
		method:     "swapExactTokensForTokens",
		first:      amountIn,
		firstRole:  units.RolePathFirst,
		second:     amountOutMin,
		secondRole: units.RolePathLast,
		hasSecond:  true,
		spend:      amountIn,
	})
}

func (t *Trade) SwapTokensForExactTokens(ctx context.Context, sender *bind.TransactOpts, amountOut, amountInMax decimal.Decimal, path []common.Address, opts Options) (*types.Receipt, error) {
	return t.swap(ctx, sender, path, opts, swapSpec{
		method:     "swapTokensForExactTokens",
		first:      amountOut,
		firstRole:  units.RolePathLast,
		second:     amountInMax,
		secondRole: units.RolePathFirst,
		hasSecond:  true,
		spend:      amountInMax,
	})
}
