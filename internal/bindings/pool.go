package bindings

import (
	"context"
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Pool binds a weighted datatoken pool. Balances and amounts are raw token
// units; weights, fees and prices are 1e18 fixed-point.
type Pool struct {
	c *contract
}

func NewPool(address common.Address, caller bind.ContractCaller) (*Pool, error) {
	c, err := newContract(PoolMetaData, address, caller)
	if err != nil {
		return nil, err
	}
	return &Pool{c: c}, nil
}

func (p *Pool) Address() common.Address { return p.c.address }

func (p *Pool) GetBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	return p.c.callBig(ctx, "getBalance", token)
}

func (p *Pool) GetSwapFee(ctx context.Context) (*big.Int, error) {
	return p.c.callBig(ctx, "getSwapFee")
}

func (p *Pool) GetSpotPrice(ctx context.Context, tokenIn, tokenOut common.Address) (*big.Int, error) {
	return p.c.callBig(ctx, "getSpotPrice", tokenIn, tokenOut)
}

func (p *Pool) GetSpotPriceSansFee(ctx context.Context, tokenIn, tokenOut common.Address) (*big.Int, error) {
	return p.c.callBig(ctx, "getSpotPriceSansFee", tokenIn, tokenOut)
}

func (p *Pool) GetNormalizedWeight(ctx context.Context, token common.Address) (*big.Int, error) {
	return p.c.callBig(ctx, "getNormalizedWeight", token)
}

func (p *Pool) GetDenormalizedWeight(ctx context.Context, token common.Address) (*big.Int, error) {
	return p.c.callBig(ctx, "getDenormalizedWeight", token)
}

func (p *Pool) GetTotalDenormalizedWeight(ctx context.Context) (*big.Int, error) {
	return p.c.callBig(ctx, "getTotalDenormalizedWeight")
}

func (p *Pool) TotalSupply(ctx context.Context) (*big.Int, error) {
	return p.c.callBig(ctx, "totalSupply")
}

func (p *Pool) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return p.c.callBig(ctx, "balanceOf", account)
}

func (p *Pool) GetCurrentTokens(ctx context.Context) ([]common.Address, error) {
	return p.c.callAddresses(ctx, "getCurrentTokens")
}

func (p *Pool) GetFinalTokens(ctx context.Context) ([]common.Address, error) {
	return p.c.callAddresses(ctx, "getFinalTokens")
}

func (p *Pool) IsFinalized(ctx context.Context) (bool, error) {
	return p.c.callBool(ctx, "isFinalized")
}

func (p *Pool) IsBound(ctx context.Context, token common.Address) (bool, error) {
	return p.c.callBool(ctx, "isBound", token)
}

func (p *Pool) GetNumTokens(ctx context.Context) (*big.Int, error) {
	return p.c.callBig(ctx, "getNumTokens")
}

func (p *Pool) GetController(ctx context.Context) (common.Address, error) {
	return p.c.callAddress(ctx, "getController")
}

// WeightedMathArgs are the six inputs shared by every pool math function.
// The meaning of the A/B balance and weight slots depends on the function.
type WeightedMathArgs struct {
	BalanceA *big.Int
	WeightA  *big.Int
	BalanceB *big.Int
	WeightB  *big.Int
	Amount   *big.Int
	SwapFee  *big.Int
}

// Calc runs one of the pool math functions, e.g. "calcOutGivenIn".
func (p *Pool) Calc(ctx context.Context, method string, a WeightedMathArgs) (*big.Int, error) {
	return p.c.callBig(ctx, method, a.BalanceA, a.WeightA, a.BalanceB, a.WeightB, a.Amount, a.SwapFee)
}

func (p *Pool) PackSwapExactAmountIn(tokenIn common.Address, amountIn *big.Int, tokenOut common.Address, minAmountOut, maxPrice *big.Int) ([]byte, error) {
	return p.c.pack("swapExactAmountIn", tokenIn, amountIn, tokenOut, minAmountOut, maxPrice)
}

func (p *Pool) PackSwapExactAmountOut(tokenIn common.Address, maxAmountIn *big.Int, tokenOut common.Address, amountOut, maxPrice *big.Int) ([]byte, error) {
	return p.c.pack("swapExactAmountOut", tokenIn, maxAmountIn, tokenOut, amountOut, maxPrice)
}

func (p *Pool) PackJoinswapExternAmountIn(tokenIn common.Address, amountIn, minPoolAmountOut *big.Int) ([]byte, error) {
	return p.c.pack("joinswapExternAmountIn", tokenIn, amountIn, minPoolAmountOut)
}

func (p *Pool) PackExitswapPoolAmountIn(tokenOut common.Address, poolAmountIn, minAmountOut *big.Int) ([]byte, error) {
	return p.c.pack("exitswapPoolAmountIn", tokenOut, poolAmountIn, minAmountOut)
}

// PoolJoin is a decoded LOG_JOIN event. Raw.Address is the pool.
type PoolJoin struct {
	Caller        common.Address
	TokenIn       common.Address
	TokenAmountIn *big.Int
	Raw           types.Log
}

// poolEvents decodes pool logs regardless of which pool emitted them.
var poolEvents = sync.OnceValues(func() (*contract, error) {
	return newContract(PoolMetaData, common.Address{}, nil)
})

// JoinsByCallerQuery selects LOG_JOIN events emitted for any of callers by
// any pool between fromBlock and toBlock. A nil bound is open.
func JoinsByCallerQuery(callers []common.Address, fromBlock, toBlock *big.Int) (ethereum.FilterQuery, error) {
	c, err := poolEvents()
	if err != nil {
		return ethereum.FilterQuery{}, err
	}
	id, err := c.eventID("LOG_JOIN")
	if err != nil {
		return ethereum.FilterQuery{}, err
	}
	rule := make([]interface{}, len(callers))
	for i, a := range callers {
		rule[i] = a
	}
	topics, err := abi.MakeTopics([]interface{}{id}, rule)
	if err != nil {
		return ethereum.FilterQuery{}, errors.Wrap(err, "LOG_JOIN topics")
	}
	return ethereum.FilterQuery{FromBlock: fromBlock, ToBlock: toBlock, Topics: topics}, nil
}

func ParsePoolJoin(l types.Log) (*PoolJoin, error) {
	c, err := poolEvents()
	if err != nil {
		return nil, err
	}
	ev := new(PoolJoin)
	if err := c.unpackLog(ev, "LOG_JOIN", l); err != nil {
		return nil, err
	}
	ev.Raw = l
	return ev, nil
}
