// Package pool wraps a weighted datatoken pool: reads and math quotes in token
// units, and swaps, joins and exits through the pre-flight flow.
package pool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/bindings"
	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/preflight"
	"github.com/dataxfi/datax-go/internal/quote"
	"github.com/dataxfi/datax-go/internal/tokens"
	"github.com/dataxfi/datax-go/internal/txn"
	"github.com/dataxfi/datax-go/internal/units"
)

type Pool struct {
	address  common.Address
	binding  *bindings.Pool
	tokens   *tokens.Registry
	quotes   *quote.Calculator
	flow     *preflight.Flow
	fraction decimal.Decimal
}

// New binds the pool at address. fraction is the share of a reserve a single
// operation may move.
func New(address common.Address, caller bind.ContractCaller, registry *tokens.Registry, flow *preflight.Flow, fraction decimal.Decimal) (*Pool, error) {
	b, err := bindings.NewPool(address, caller)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ConfigResolutionFailed, "bind pool %s", address.Hex())
	}
	return &Pool{
		address:  address,
		binding:  b,
		tokens:   registry,
		quotes:   quote.NewCalculator(units.NewScaler(registry)),
		flow:     flow,
		fraction: fraction,
	}, nil
}

func (p *Pool) Address() common.Address { return p.address }

func (p *Pool) MaxTradeFraction() decimal.Decimal { return p.fraction }

func readErr(err error, what string, args ...any) error {
	return dataxerr.Wrap(err, dataxerr.ChainReadFailed, what, args...)
}

func rate(v *big.Int) decimal.Decimal {
	return units.FromBaseUnits(v, constants.RateDecimals)
}

func (p *Pool) ReserveBase(ctx context.Context, token common.Address) (*big.Int, error) {
	v, err := p.binding.GetBalance(ctx, token)
	if err != nil {
		return nil, readErr(err, "reserve of %s in pool %s", token.Hex(), p.address.Hex())
	}
	return v, nil
}

// Reserve is the pool's balance of token.
func (p *Pool) Reserve(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	v, err := p.ReserveBase(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	dec, err := p.tokens.Decimals(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return units.FromBaseUnits(v, dec), nil
}

// SwapFee is the pool's fee as a fraction, e.g. 0.001 for 0.1%.
func (p *Pool) SwapFee(ctx context.Context) (decimal.Decimal, error) {
	v, err := p.binding.GetSwapFee(ctx)
	if err != nil {
		return decimal.Zero, readErr(err, "swap fee of %s", p.address.Hex())
	}
	return rate(v), nil
}

// SpotPrice is the price of one unit of out in units of in, fee included.
func (p *Pool) SpotPrice(ctx context.Context, in, out common.Address) (decimal.Decimal, error) {
	v, err := p.binding.GetSpotPrice(ctx, in, out)
	if err != nil {
		return decimal.Zero, readErr(err, "spot price")
	}
	return p.humanPrice(ctx, v, in, out)
}

func (p *Pool) SpotPriceSansFee(ctx context.Context, in, out common.Address) (decimal.Decimal, error) {
	v, err := p.binding.GetSpotPriceSansFee(ctx, in, out)
	if err != nil {
		return decimal.Zero, readErr(err, "spot price sans fee")
	}
	return p.humanPrice(ctx, v, in, out)
}

// The pool prices base units against base units; tokens with different
// decimals need the difference shifted back in.
func (p *Pool) humanPrice(ctx context.Context, raw *big.Int, in, out common.Address) (decimal.Decimal, error) {
	shift, err := p.decimalShift(ctx, in, out)
	if err != nil {
		return decimal.Zero, err
	}
	return rate(raw).Shift(shift), nil
}

func (p *Pool) decimalShift(ctx context.Context, in, out common.Address) (int32, error) {
	decIn, err := p.tokens.Decimals(ctx, in)
	if err != nil {
		return 0, err
	}
	decOut, err := p.tokens.Decimals(ctx, out)
	if err != nil {
		return 0, err
	}
	return int32(decOut) - int32(decIn), nil
}

func (p *Pool) maxPriceBase(ctx context.Context, maxPrice decimal.Decimal, in, out common.Address) (*big.Int, error) {
	if maxPrice.Sign() <= 0 {
		return units.MaxUint256(), nil
	}
	shift, err := p.decimalShift(ctx, in, out)
	if err != nil {
		return nil, err
	}
	return units.ToBaseUnits(maxPrice.Shift(-shift), constants.RateDecimals)
}

func (p *Pool) NormalizedWeight(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	v, err := p.binding.GetNormalizedWeight(ctx, token)
	if err != nil {
		return decimal.Zero, readErr(err, "normalized weight of %s", token.Hex())
	}
	return rate(v), nil
}

func (p *Pool) DenormalizedWeight(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	v, err := p.binding.GetDenormalizedWeight(ctx, token)
	if err != nil {
		return decimal.Zero, readErr(err, "denormalized weight of %s", token.Hex())
	}
	return rate(v), nil
}

func (p *Pool) TotalDenormalizedWeight(ctx context.Context) (decimal.Decimal, error) {
	v, err := p.binding.GetTotalDenormalizedWeight(ctx)
	if err != nil {
		return decimal.Zero, readErr(err, "total denormalized weight")
	}
	return rate(v), nil
}

// TotalSupply is the number of pool shares outstanding.
func (p *Pool) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	v, err := p.binding.TotalSupply(ctx)
	if err != nil {
		return decimal.Zero, readErr(err, "pool share supply")
	}
	return units.FromBaseUnits(v, constants.PoolShareDecimals), nil
}

func (p *Pool) SharesBalance(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	v, err := p.binding.BalanceOf(ctx, account)
	if err != nil {
		return decimal.Zero, readErr(err, "pool shares of %s", account.Hex())
	}
	return units.FromBaseUnits(v, constants.PoolShareDecimals), nil
}

func (p *Pool) CurrentTokens(ctx context.Context) ([]common.Address, error) {
	v, err := p.binding.GetCurrentTokens(ctx)
	if err != nil {
		return nil, readErr(err, "current tokens")
	}
	return v, nil
}

func (p *Pool) FinalTokens(ctx context.Context) ([]common.Address, error) {
	v, err := p.binding.GetFinalTokens(ctx)
	if err != nil {
		return nil, readErr(err, "final tokens")
	}
	return v, nil
}

func (p *Pool) IsFinalized(ctx context.Context) (bool, error) {
	v, err := p.binding.IsFinalized(ctx)
	if err != nil {
		return false, readErr(err, "isFinalized")
	}
	return v, nil
}

func (p *Pool) IsBound(ctx context.Context, token common.Address) (bool, error) {
	v, err := p.binding.IsBound(ctx, token)
	if err != nil {
		return false, readErr(err, "isBound %s", token.Hex())
	}
	return v, nil
}

func (p *Pool) NumTokens(ctx context.Context) (int, error) {
	v, err := p.binding.GetNumTokens(ctx)
	if err != nil {
		return 0, readErr(err, "number of tokens")
	}
	return int(v.Int64()), nil
}

func (p *Pool) Controller(ctx context.Context) (common.Address, error) {
	v, err := p.binding.GetController(ctx)
	if err != nil {
		return common.Address{}, readErr(err, "controller")
	}
	return v, nil
}

// pairState is the raw on-chain state a swap quote needs.
type pairState struct {
	balanceIn, weightIn, balanceOut, weightOut, fee *big.Int
}

func (p *Pool) pairState(ctx context.Context, in, out common.Address) (pairState, error) {
	var s pairState
	var err error
	if s.balanceIn, err = p.binding.GetBalance(ctx, in); err != nil {
		return s, errorsFor("getBalance", in, err)
	}
	if s.weightIn, err = p.binding.GetDenormalizedWeight(ctx, in); err != nil {
		return s, errorsFor("getDenormalizedWeight", in, err)
	}
	if s.balanceOut, err = p.binding.GetBalance(ctx, out); err != nil {
		return s, errorsFor("getBalance", out, err)
	}
	if s.weightOut, err = p.binding.GetDenormalizedWeight(ctx, out); err != nil {
		return s, errorsFor("getDenormalizedWeight", out, err)
	}
	if s.fee, err = p.binding.GetSwapFee(ctx); err != nil {
		return s, errorsFor("getSwapFee", common.Address{}, err)
	}
	return s, nil
}

// singleState is the raw state a join or exit quote needs.
type singleState struct {
	balance, weight, supply, totalWeight, fee *big.Int
}

func (p *Pool) singleState(ctx context.Context, token common.Address) (singleState, error) {
	var s singleState
	var err error
	if s.balance, err = p.binding.GetBalance(ctx, token); err != nil {
		return s, errorsFor("getBalance", token, err)
	}
	if s.weight, err = p.binding.GetDenormalizedWeight(ctx, token); err != nil {
		return s, errorsFor("getDenormalizedWeight", token, err)
	}
	if s.supply, err = p.binding.TotalSupply(ctx); err != nil {
		return s, errorsFor("totalSupply", common.Address{}, err)
	}
	if s.totalWeight, err = p.binding.GetTotalDenormalizedWeight(ctx); err != nil {
		return s, errorsFor("getTotalDenormalizedWeight", common.Address{}, err)
	}
	if s.fee, err = p.binding.GetSwapFee(ctx); err != nil {
		return s, errorsFor("getSwapFee", common.Address{}, err)
	}
	return s, nil
}

func errorsFor(method string, token common.Address, err error) error {
	if token == (common.Address{}) {
		return readErr(err, "%s", method)
	}
	return readErr(err, "%s(%s)", method, token.Hex())
}

// CalcOutGivenIn quotes the amount of out received for amountIn of in.
func (p *Pool) CalcOutGivenIn(ctx context.Context, in, out common.Address, amountIn decimal.Decimal) (decimal.Decimal, error) {
	return p.quotes.Single(ctx, quote.Request{
		Name:    "calcOutGivenIn",
		Path:    units.NewPath(p.address, in, out),
		Inputs:  []quote.Input{{Value: amountIn, Role: units.RolePathFirst}},
		Outputs: []quote.Output{{Index: 0, Role: units.RolePathLast}},
		Call: func(ctx context.Context, args []*big.Int) ([]*big.Int, error) {
			s, err := p.pairState(ctx, in, out)
			if err != nil {
				return nil, err
			}
			v, err := p.binding.Calc(ctx, "calcOutGivenIn", bindings.WeightedMathArgs{
				BalanceA: s.balanceIn, WeightA: s.weightIn,
				BalanceB: s.balanceOut, WeightB: s.weightOut,
				Amount: args[0], SwapFee: s.fee,
			})
			return []*big.Int{v}, err
		},
	})
}

// CalcInGivenOut quotes the amount of in needed to receive amountOut of out.
// Asking for the whole reserve or more is unanswerable.
func (p *Pool) CalcInGivenOut(ctx context.Context, in, out common.Address, amountOut decimal.Decimal) (decimal.Decimal, error) {
	return p.quotes.Single(ctx, quote.Request{
		Name:    "calcInGivenOut",
		Path:    units.NewPath(p.address, in, out),
		Inputs:  []quote.Input{{Value: amountOut, Role: units.RolePathLast}},
		Outputs: []quote.Output{{Index: 0, Role: units.RolePathFirst}},
		Call: func(ctx context.Context, args []*big.Int) ([]*big.Int, error) {
			s, err := p.pairState(ctx, in, out)
			if err != nil {
				return nil, err
			}
			if args[0].Cmp(s.balanceOut) >= 0 {
				return nil, dataxerr.New(dataxerr.QuoteUnavailable, "amount out %s is not below the reserve %s", args[0], s.balanceOut)
			}
			v, err := p.binding.Calc(ctx, "calcInGivenOut", bindings.WeightedMathArgs{
				BalanceA: s.balanceIn, WeightA: s.weightIn,
				BalanceB: s.balanceOut, WeightB: s.weightOut,
				Amount: args[0], SwapFee: s.fee,
			})
			return []*big.Int{v}, err
		},
	})
}

func (p *Pool) calcSingle(ctx context.Context, method string, token common.Address, amount decimal.Decimal, inRole, outRole units.Role) (decimal.Decimal, error) {
	return p.quotes.Single(ctx, quote.Request{
		Name:    method,
		Path:    units.NewPath(p.address, token),
		Inputs:  []quote.Input{{Value: amount, Role: inRole}},
		Outputs: []quote.Output{{Index: 0, Role: outRole}},
		Call: func(ctx context.Context, args []*big.Int) ([]*big.Int, error) {
			s, err := p.singleState(ctx, token)
			if err != nil {
				return nil, err
			}
			v, err := p.binding.Calc(ctx, method, bindings.WeightedMathArgs{
				BalanceA: s.balance, WeightA: s.weight,
				BalanceB: s.supply, WeightB: s.totalWeight,
				Amount: args[0], SwapFee: s.fee,
			})
			return []*big.Int{v}, err
		},
	})
}

// CalcPoolOutGivenSingleIn quotes the shares minted for depositing amountIn of token.
func (p *Pool) CalcPoolOutGivenSingleIn(ctx context.Context, token common.Address, amountIn decimal.Decimal) (decimal.Decimal, error) {
	return p.calcSingle(ctx, "calcPoolOutGivenSingleIn", token, amountIn, units.RolePathFirst, units.RolePoolShares)
}

// CalcSingleInGivenPoolOut quotes the token deposit needed to mint sharesOut.
func (p *Pool) CalcSingleInGivenPoolOut(ctx context.Context, token common.Address, sharesOut decimal.Decimal) (decimal.Decimal, error) {
	return p.calcSingle(ctx, "calcSingleInGivenPoolOut", token, sharesOut, units.RolePoolShares, units.RolePathFirst)
}

// CalcSingleOutGivenPoolIn quotes the token withdrawn for burning sharesIn.
func (p *Pool) CalcSingleOutGivenPoolIn(ctx context.Context, token common.Address, sharesIn decimal.Decimal) (decimal.Decimal, error) {
	return p.calcSingle(ctx, "calcSingleOutGivenPoolIn", token, sharesIn, units.RolePoolShares, units.RolePathFirst)
}

// CalcPoolInGivenSingleOut quotes the shares burned to withdraw amountOut of token.
func (p *Pool) CalcPoolInGivenSingleOut(ctx context.Context, token common.Address, amountOut decimal.Decimal) (decimal.Decimal, error) {
	return p.calcSingle(ctx, "calcPoolInGivenSingleOut", token, amountOut, units.RolePathFirst, units.RolePoolShares)
}

// MaxTradeable is reserve × fraction of token.
func (p *Pool) MaxTradeable(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	r, err := p.Reserve(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return r.Mul(p.fraction), nil
}

// MaxUnstakeShares is the number of shares whose exit withdraws the max
// tradeable amount of token.
func (p *Pool) MaxUnstakeShares(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	top, err := p.MaxTradeable(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcPoolInGivenSingleOut(ctx, token, top)
}

// Bound is the max-tradeable check for token, usable as a swap's MaxIn.
func (p *Pool) Bound(token common.Address) preflight.MaxFunc { return p.maxOf(token) }

func (p *Pool) maxOf(token common.Address) preflight.MaxFunc {
	return func(ctx context.Context) (decimal.Decimal, error) {
		return p.MaxTradeable(ctx, token)
	}
}

func owner(sender *bind.TransactOpts) common.Address {
	if sender == nil {
		return common.Address{}
	}
	return sender.From
}

func (p *Pool) base(ctx context.Context, token common.Address, v decimal.Decimal) (*big.Int, error) {
	dec, err := p.tokens.Decimals(ctx, token)
	if err != nil {
		return nil, err
	}
	return units.ToBaseUnits(v, dec)
}

// SwapExactAmountIn sells exactly amountIn of in for at least minAmountOut of
// out. A zero maxPrice means no price limit.
func (p *Pool) SwapExactAmountIn(ctx context.Context, sender *bind.TransactOpts, in common.Address, amountIn decimal.Decimal, out common.Address, minAmountOut, maxPrice decimal.Decimal) (*types.Receipt, error) {
	amountInBase, err := p.base(ctx, in, amountIn)
	if err != nil {
		return nil, err
	}
	minOutBase, err := p.base(ctx, out, minAmountOut)
	if err != nil {
		return nil, err
	}
	priceBase, err := p.maxPriceBase(ctx, maxPrice, in, out)
	if err != nil {
		return nil, err
	}
	data, err := p.binding.PackSwapExactAmountIn(in, amountInBase, out, minOutBase, priceBase)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack swapExactAmountIn")
	}
	return p.flow.Submit(ctx, preflight.Check{
		Token:   in,
		Owner:   owner(sender),
		Spender: p.address,
		Amount:  amountIn,
		Max:     p.maxOf(in),
	}, txn.Call{To: p.address, Data: data, Method: "swapExactAmountIn"}, sender)
}

// SwapExactAmountOut buys exactly amountOut of out for at most maxAmountIn of in.
func (p *Pool) SwapExactAmountOut(ctx context.Context, sender *bind.TransactOpts, in common.Address, maxAmountIn decimal.Decimal, out common.Address, amountOut, maxPrice decimal.Decimal) (*types.Receipt, error) {
	maxInBase, err := p.base(ctx, in, maxAmountIn)
	if err != nil {
		return nil, err
	}
	outBase, err := p.base(ctx, out, amountOut)
	if err != nil {
		return nil, err
	}
	priceBase, err := p.maxPriceBase(ctx, maxPrice, in, out)
	if err != nil {
		return nil, err
	}
	data, err := p.binding.PackSwapExactAmountOut(in, maxInBase, out, outBase, priceBase)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack swapExactAmountOut")
	}
	return p.flow.Submit(ctx, preflight.Check{
		Token:     in,
		Owner:     owner(sender),
		Spender:   p.address,
		Amount:    maxAmountIn,
		MaxAmount: &amountOut,
		Max:       p.maxOf(out),
	}, txn.Call{To: p.address, Data: data, Method: "swapExactAmountOut"}, sender)
}

// JoinswapExternAmountIn stakes amountIn of token for at least minSharesOut.
func (p *Pool) JoinswapExternAmountIn(ctx context.Context, sender *bind.TransactOpts, token common.Address, amountIn, minSharesOut decimal.Decimal) (*types.Receipt, error) {
	inBase, err := p.base(ctx, token, amountIn)
	if err != nil {
		return nil, err
	}
	minShares, err := units.ToBaseUnits(minSharesOut, constants.PoolShareDecimals)
	if err != nil {
		return nil, err
	}
	data, err := p.binding.PackJoinswapExternAmountIn(token, inBase, minShares)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack joinswapExternAmountIn")
	}
	return p.flow.Submit(ctx, preflight.Check{
		Token:   token,
		Owner:   owner(sender),
		Spender: p.address,
		Amount:  amountIn,
		Max:     p.maxOf(token),
	}, txn.Call{To: p.address, Data: data, Method: "joinswapExternAmountIn"}, sender)
}

// ExitswapPoolAmountIn burns sharesIn for at least minAmountOut of token. The
// pool burns its own shares, so no approval is involved.
func (p *Pool) ExitswapPoolAmountIn(ctx context.Context, sender *bind.TransactOpts, token common.Address, sharesIn, minAmountOut decimal.Decimal) (*types.Receipt, error) {
	sharesBase, err := units.ToBaseUnits(sharesIn, constants.PoolShareDecimals)
	if err != nil {
		return nil, err
	}
	minOut, err := p.base(ctx, token, minAmountOut)
	if err != nil {
		return nil, err
	}
	data, err := p.binding.PackExitswapPoolAmountIn(token, sharesBase, minOut)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack exitswapPoolAmountIn")
	}
	return p.flow.Submit(ctx, preflight.Check{
		Token:         p.address,
		Owner:         owner(sender),
		Amount:        sharesIn,
		SkipAllowance: true,
		Max: func(ctx context.Context) (decimal.Decimal, error) {
			return p.MaxUnstakeShares(ctx, token)
		},
	}, txn.Call{To: p.address, Data: data, Method: "exitswapPoolAmountIn"}, sender)
}
