// Package stake drives the DataX stake router: staking any token into a
// datatoken pool through a swap path, unstaking into any token, the router's
// compound quotes and referrer fee accounting.
package stake

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/bindings"
	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/pool"
	"github.com/dataxfi/datax-go/internal/preflight"
	"github.com/dataxfi/datax-go/internal/quote"
	"github.com/dataxfi/datax-go/internal/tokens"
	"github.com/dataxfi/datax-go/internal/txn"
	"github.com/dataxfi/datax-go/internal/units"
)

// Info describes one router operation in token units.
//
//	Meta  = [pool, to, referrer, adapter]
//	Uints = [amountOut|minAmountOut, refFeeRate, amountIn|maxAmountIn]
//	Path  = token route; for a stake it ends at the pool's base token, for an
//	        unstake it starts there.
//
// A zero Meta[1] sends the output to the sender.
type Info struct {
	Meta  [4]common.Address
	Uints [3]decimal.Decimal
	Path  []common.Address
}

func (i Info) Pool() common.Address     { return i.Meta[0] }
func (i Info) To() common.Address       { return i.Meta[1] }
func (i Info) Referrer() common.Address { return i.Meta[2] }

// layout is the role of each Uints slot.
type layout [3]units.Role

var (
	// shares out, fee rate, amount of path[0] in
	stakeLayout   = layout{units.RolePoolShares, units.RoleRate, units.RolePathFirst}
	// amount of path[last] out, fee rate, shares in
	unstakeLayout = layout{units.RolePathLast, units.RoleRate, units.RolePoolShares}
)

func (i Info) route() (units.Path, error) {
	if i.Pool() == (common.Address{}) {
		return units.Path{}, dataxerr.New(dataxerr.InvalidArgument, "stake info has no pool")
	}
	p := units.Path{Tokens: i.Path, Pool: i.Pool()}
	if err := p.Validate(); err != nil {
		return units.Path{}, err
	}
	return p, nil
}

// encode scales every slot by its role.
func (i Info) encode(ctx context.Context, scaler *units.Scaler, l layout) (bindings.StakeInfo, error) {
	p, err := i.route()
	if err != nil {
		return bindings.StakeInfo{}, err
	}
	out := bindings.StakeInfo{Meta: i.Meta, Path: i.Path}
	for n, v := range i.Uints {
		if out.Uints[n], err = scaler.ToBase(ctx, p, v, l[n]); err != nil {
			return bindings.StakeInfo{}, dataxerr.Wrap(err, dataxerr.InvalidArgument, "stake info uints[%d] (%s)", n, l[n])
		}
	}
	return out, nil
}

// Pools hands out pool wrappers. *pool.Ocean implements it.
type Pools interface {
	Pool(addr common.Address) (*pool.Pool, error)
}

// AmountsQuoter prices a multi-hop route. *trade.Trade implements it.
type AmountsQuoter interface {
	GetAmountsOut(ctx context.Context, amountIn decimal.Decimal, path []common.Address) ([]decimal.Decimal, error)
}

// Claim is the result of ClaimRefFees.
type Claim struct {
	Amount decimal.Decimal
	// Receipt is nil when nothing was claimed.
	Receipt *types.Receipt
}

type Router struct {
	router    *bindings.StakeRouter
	tokens    *tokens.Registry
	quotes    *quote.Calculator
	flow      *preflight.Flow
	submitter txn.Submitter
	pools     Pools
	route     AmountsQuoter
}

// New binds the stake router configured for network. route prices multi-hop
// stake paths for the max check and may be nil when every path is one token.
func New(network networks.Network, caller bind.ContractCaller, registry *tokens.Registry, flow *preflight.Flow,
	submitter txn.Submitter, pools Pools, route AmountsQuoter) (*Router, error) {
	addr, err := network.Contract(networks.StakeRouter)
	if err != nil {
		return nil, err
	}
	b, err := bindings.NewStakeRouter(addr, caller)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ConfigResolutionFailed, "bind stake router %s", addr.Hex())
	}
	return &Router{
		router:    b,
		tokens:    registry,
		quotes:    quote.NewCalculator(units.NewScaler(registry)),
		flow:      flow,
		submitter: submitter,
		pools:     pools,
		route:     route,
	}, nil
}

func (r *Router) Address() common.Address { return r.router.Address() }

type feeCall func(ctx context.Context, info bindings.StakeInfo) (bindings.FeeSplit, error)

// calc runs one of the router's compound quotes. amountRole unscales the main
// result; feeRole is the pool base token the fees are charged in.
func (r *Router) calc(ctx context.Context, name string, info Info, l layout, amountRole, feeRole units.Role, fn feeCall) (quote.Result, error) {
	p, err := info.route()
	if err != nil {
		return quote.Result{}, err
	}
	inputs := make([]quote.Input, len(info.Uints))
	for n, v := range info.Uints {
		inputs[n] = quote.Input{Value: v, Role: l[n]}
	}
	return r.quotes.Quote(ctx, quote.Request{
		Name:   name,
		Path:   p,
		Inputs: inputs,
		Outputs: []quote.Output{
			{Index: 0, Role: amountRole},
			{Index: 1, Role: feeRole},
			{Index: 2, Role: feeRole},
		},
		Call: func(ctx context.Context, args []*big.Int) ([]*big.Int, error) {
			res, err := fn(ctx, bindings.StakeInfo{
				Meta:  info.Meta,
				Uints: [3]*big.Int{args[0], args[1], args[2]},
				Path:  info.Path,
			})
			if err != nil {
				return nil, err
			}
			return []*big.Int{res.Amount, res.DataxFee, res.RefFee}, nil
		},
	})
}

// CalcPoolOutGivenTokenIn quotes the shares minted for staking Uints[2] of
// Path[0]. Fees are in the pool's base token, Path[last].
func (r *Router) CalcPoolOutGivenTokenIn(ctx context.Context, info Info) (quote.Result, error) {
	return r.calc(ctx, "calcPoolOutGivenTokenIn", info, stakeLayout,
		units.RolePoolShares, units.RolePathLast, r.router.CalcPoolOutGivenTokenIn)
}

// CalcPoolInGivenTokenOut quotes the shares burned to receive Uints[0] of
// Path[last]. Fees are in the pool's base token, Path[0].
func (r *Router) CalcPoolInGivenTokenOut(ctx context.Context, info Info) (quote.Result, error) {
	return r.calc(ctx, "calcPoolInGivenTokenOut", info, unstakeLayout,
		units.RolePoolShares, units.RolePathFirst, r.router.CalcPoolInGivenTokenOut)
}

// CalcTokenOutGivenPoolIn quotes the Path[last] received for burning Uints[2] shares.
func (r *Router) CalcTokenOutGivenPoolIn(ctx context.Context, info Info) (quote.Result, error) {
	return r.calc(ctx, "calcTokenOutGivenPoolIn", info, unstakeLayout,
		units.RolePathLast, units.RolePathFirst, r.router.CalcTokenOutGivenPoolIn)
}

// CalcFees splits baseAmount of baseToken into the protocol fee, the referrer
// fee at refFeeRate and what remains, which is returned as Amount.
func (r *Router) CalcFees(ctx context.Context, baseToken common.Address, baseAmount decimal.Decimal, feeType string, refFeeRate decimal.Decimal) (quote.Result, error) {
	res, err := r.quotes.Quote(ctx, quote.Request{
		Name: "calcFees",
		Path: units.Path{Tokens: []common.Address{baseToken}},
		Inputs: []quote.Input{
			{Value: baseAmount, Role: units.RolePathFirst},
			{Value: refFeeRate, Role: units.RoleRate},
		},
		Outputs: []quote.Output{
			{Index: 0, Role: units.RolePathFirst},
			{Index: 1, Role: units.RolePathFirst},
		},
		Call: func(ctx context.Context, args []*big.Int) ([]*big.Int, error) {
			dataxFee, refFee, err := r.router.CalcFees(ctx, args[0], feeType, args[1])
			if err != nil {
				return nil, err
			}
			return []*big.Int{dataxFee, refFee}, nil
		},
	})
	if err != nil {
		return quote.Result{}, err
	}
	// the two outputs arrive in the first two slots
	return quote.Result{
		Amount:      baseAmount.Sub(res.Amount).Sub(res.ProtocolFee),
		ProtocolFee: res.Amount,
		ReferrerFee: res.ProtocolFee,
	}, nil
}

// AccruedRefFees is the amount of token referrer can claim.
func (r *Router) AccruedRefFees(ctx context.Context, referrer, token common.Address) (decimal.Decimal, error) {
	v, err := r.router.ReferralFees(ctx, referrer, token)
	if err != nil {
		return decimal.Zero, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "referralFees(%s, %s)", referrer.Hex(), token.Hex())
	}
	dec, err := r.tokens.Decimals(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return units.FromBaseUnits(v, dec), nil
}

// ClaimRefFees withdraws the sender's accrued referrer fees in token. With
// nothing accrued it returns a zero Claim without sending a transaction.
func (r *Router) ClaimRefFees(ctx context.Context, token common.Address, sender *bind.TransactOpts) (Claim, error) {
	if sender == nil {
		return Claim{}, dataxerr.New(dataxerr.InvalidArgument, "claimRefFees: sender is required")
	}
	amount, err := r.AccruedRefFees(ctx, sender.From, token)
	if err != nil {
		return Claim{}, err
	}
	if amount.IsZero() {
		log.Info("no referrer fees to claim", "referrer", sender.From.Hex(), "token", token.Hex())
		return Claim{Amount: decimal.Zero}, nil
	}
	data, err := r.router.PackClaimRefFees(token)
	if err != nil {
		return Claim{}, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack claimRefFees")
	}
	receipt, err := r.submitter.Execute(ctx, txn.Call{To: r.Address(), Data: data, Method: "claimRefFees"}, sender)
	if err != nil {
		return Claim{Amount: decimal.Zero, Receipt: receipt}, err
	}
	log.Info("referrer fees claimed", "referrer", sender.From.Hex(), "token", token.Hex(),
		"amount", amount.String(), "hash", receipt.TxHash.Hex())
	return Claim{Amount: amount, Receipt: receipt}, nil
}

type opSpec struct {
	method  string
	layout  layout
	unstake bool
	ethIn   bool
}

func (r *Router) submit(ctx context.Context, info Info, sender *bind.TransactOpts, op opSpec) (*types.Receipt, error) {
	if sender == nil {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "%s: sender is required", op.method)
	}
	p, err := info.route()
	if err != nil {
		return nil, err
	}
	if info.To() == (common.Address{}) {
		info.Meta[1] = sender.From
	}
	pl, err := r.pools.Pool(info.Pool())
	if err != nil {
		return nil, err
	}

	encoded, err := info.encode(ctx, r.quotes.Scaler(), op.layout)
	if err != nil {
		return nil, err
	}
	data, err := r.router.PackStake(op.method, encoded)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack %s", op.method)
	}
	call := txn.Call{To: r.Address(), Data: data, Method: op.method}

	chk := preflight.Check{Owner: sender.From, Spender: r.Address()}
	if op.unstake {
		base := p.First()
		chk.Token = info.Pool()
		chk.Amount = info.Uints[2]
		chk.Max = func(ctx context.Context) (decimal.Decimal, error) {
			return pl.MaxUnstakeShares(ctx, base)
		}
		return r.flow.Submit(ctx, chk, call, sender)
	}

	base := p.Last()
	chk.Token = p.First()
	chk.Amount = info.Uints[2]
	chk.Max = func(ctx context.Context) (decimal.Decimal, error) {
		return pl.MaxTradeable(ctx, base)
	}
	if len(info.Path) > 1 {
		if r.route == nil {
			return nil, dataxerr.New(dataxerr.ConfigResolutionFailed, "%s: a %d-token path needs a swap adapter", op.method, len(info.Path))
		}
		chk.Measure = func(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
			amounts, err := r.route.GetAmountsOut(ctx, amount, info.Path)
			if err != nil {
				return decimal.Zero, err
			}
			return amounts[len(amounts)-1], nil
		}
	}
	if op.ethIn {
		chk.Token = common.HexToAddress(constants.NativeAddr)
		chk.SkipAllowance = true
		call.Value = encoded.Uints[2]
	}
	return r.flow.Submit(ctx, chk, call, sender)
}

// StakeETHInDTPool stakes Uints[2] of the native coin. Path starts at the
// wrapped native token and ends at the pool's base token.
func (r *Router) StakeETHInDTPool(ctx context.Context, info Info, sender *bind.TransactOpts) (*types.Receipt, error) {
	return r.submit(ctx, info, sender, opSpec{method: "stakeETHInDTPool", layout: stakeLayout, ethIn: true})
}

// StakeTokenInDTPool stakes Uints[2] of Path[0], swapped along Path into the
// pool's base token, for at least Uints[0] shares.
func (r *Router) StakeTokenInDTPool(ctx context.Context, info Info, sender *bind.TransactOpts) (*types.Receipt, error) {
	return r.submit(ctx, info, sender, opSpec{method: "stakeTokenInDTPool", layout: stakeLayout})
}

// UnstakeETHFromDTPool burns Uints[2] shares for at least Uints[0] of the
// native coin.
func (r *Router) UnstakeETHFromDTPool(ctx context.Context, info Info, sender *bind.TransactOpts) (*types.Receipt, error) {
	return r.submit(ctx, info, sender, opSpec{method: "unstakeETHFromDTPool", layout: unstakeLayout, unstake: true})
}

func (r *Router) UnstakeTokenFromDTPool(ctx context.Context, info Info, sender *bind.TransactOpts) (*types.Receipt, error) {
	return r.submit(ctx, info, sender, opSpec{method: "unstakeTokenFromDTPool", layout: unstakeLayout, unstake: true})
}
