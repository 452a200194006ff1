package fakechain

import (
	"math"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dataxfi/datax-go/internal/bindings"
)

type hop struct{ from, to common.Address }

// Adapter is a Uniswap-V2-style router with fixed per-hop rates. A rate is
// how many whole units of the next token one whole unit of the previous buys.
type Adapter struct {
	Address common.Address
	WETH    *Token

	chain  *Chain
	tokens map[common.Address]*Token
	rates  map[hop]float64

	// LastDeadline is the deadline of the most recent swap.
	LastDeadline *big.Int
}

// DeployAdapter registers an adapter at addr that wraps native coin as weth.
func (c *Chain) DeployAdapter(addr common.Address, weth *Token) *Adapter {
	a := &Adapter{
		Address: addr,
		WETH:    weth,
		chain:   c,
		tokens:  map[common.Address]*Token{weth.Address: weth},
		rates:   map[hop]float64{},
	}
	meta := bindings.SwapAdapterMetaData
	c.Handle(addr, meta, "WETH", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{weth.Address}, nil
	})
	c.Handle(addr, meta, "getAmountsOut", func(_ Tx, args []interface{}) ([]interface{}, error) {
		amounts, err := a.amountsOut(args[0].(*big.Int), args[1].([]common.Address))
		return []interface{}{amounts}, err
	})
	c.Handle(addr, meta, "getAmountsIn", func(_ Tx, args []interface{}) ([]interface{}, error) {
		amounts, err := a.amountsIn(args[0].(*big.Int), args[1].([]common.Address))
		return []interface{}{amounts}, err
	})

	// exact in: amounts forward from the first argument
	c.Handle(addr, meta, "swapExactETHForTokens", func(tx Tx, args []interface{}) ([]interface{}, error) {
		return a.swap(tx, tx.Value, args[0].(*big.Int), args[1].([]common.Address), args[2].(common.Address), args[3].(*big.Int), true, false)
	})
	c.Handle(addr, meta, "swapExactTokensForETH", func(tx Tx, args []interface{}) ([]interface{}, error) {
		return a.swap(tx, args[0].(*big.Int), args[1].(*big.Int), args[2].([]common.Address), args[3].(common.Address), args[4].(*big.Int), true, true)
	})
	c.Handle(addr, meta, "swapExactTokensForTokens", func(tx Tx, args []interface{}) ([]interface{}, error) {
		return a.swap(tx, args[0].(*big.Int), args[1].(*big.Int), args[2].([]common.Address), args[3].(common.Address), args[4].(*big.Int), true, false)
	})
	// exact out: amounts backward from the first argument
	c.Handle(addr, meta, "swapETHForExactTokens", func(tx Tx, args []interface{}) ([]interface{}, error) {
		return a.swap(tx, args[0].(*big.Int), tx.Value, args[1].([]common.Address), args[2].(common.Address), args[3].(*big.Int), false, false)
	})
	c.Handle(addr, meta, "swapTokensForExactETH", func(tx Tx, args []interface{}) ([]interface{}, error) {
		return a.swap(tx, args[0].(*big.Int), args[1].(*big.Int), args[2].([]common.Address), args[3].(common.Address), args[4].(*big.Int), false, true)
	})
	c.Handle(addr, meta, "swapTokensForExactTokens", func(tx Tx, args []interface{}) ([]interface{}, error) {
		return a.swap(tx, args[0].(*big.Int), args[1].(*big.Int), args[2].([]common.Address), args[3].(common.Address), args[4].(*big.Int), false, false)
	})
	return a
}

// SetRate prices one whole from in whole units of to, and the reverse hop at 1/rate.
func (a *Adapter) SetRate(from, to *Token, rate float64) {
	a.tokens[from.Address] = from
	a.tokens[to.Address] = to
	a.rates[hop{from.Address, to.Address}] = rate
	a.rates[hop{to.Address, from.Address}] = 1 / rate
}

func (a *Adapter) step(from, to common.Address, amount *big.Int, forward bool) (*big.Int, error) {
	tf, tt := a.tokens[from], a.tokens[to]
	rate, ok := a.rates[hop{from, to}]
	if tf == nil || tt == nil || !ok {
		return nil, errors.New("UniswapV2Library: INVALID_PATH")
	}
	if forward {
		return toI(rescale(toF(amount)*rate, tf.Decimals, tt.Decimals)), nil
	}
	return toI(math.Ceil(rescale(toF(amount)/rate, tt.Decimals, tf.Decimals))), nil
}

// rescale moves v from one decimals base to another. Dividing by an exact
// power of ten keeps whole amounts whole.
func rescale(v float64, from, to uint8) float64 {
	d := int(to) - int(from)
	if d >= 0 {
		return v * math.Pow10(d)
	}
	return v / math.Pow10(-d)
}

func (a *Adapter) amountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, errors.New("UniswapV2Library: INVALID_PATH")
	}
	out := make([]*big.Int, len(path))
	out[0] = new(big.Int).Set(amountIn)
	for i := 1; i < len(path); i++ {
		v, err := a.step(path[i-1], path[i], out[i-1], true)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (a *Adapter) amountsIn(amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, errors.New("UniswapV2Library: INVALID_PATH")
	}
	out := make([]*big.Int, len(path))
	out[len(path)-1] = new(big.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		v, err := a.step(path[i-1], path[i], out[i], false)
		if err != nil {
			return nil, err
		}
		out[i-1] = v
	}
	return out, nil
}

// swap settles a route. With exactIn, first is the input amount and limit the
// minimum output; otherwise first is the output amount and limit the maximum input.
func (a *Adapter) swap(tx Tx, first, limit *big.Int, path []common.Address, to common.Address, deadline *big.Int, exactIn, ethOut bool) ([]interface{}, error) {
	if deadline.Sign() <= 0 {
		return nil, errors.New("UniswapV2Router: EXPIRED")
	}
	var amounts []*big.Int
	var err error
	if exactIn {
		if amounts, err = a.amountsOut(first, path); err != nil {
			return nil, err
		}
		if amounts[len(amounts)-1].Cmp(limit) < 0 {
			return nil, errors.New("UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT")
		}
	} else {
		if amounts, err = a.amountsIn(first, path); err != nil {
			return nil, err
		}
		if amounts[0].Cmp(limit) > 0 {
			return nil, errors.New("UniswapV2Router: EXCESSIVE_INPUT_AMOUNT")
		}
	}
	in, out := a.tokens[path[0]], a.tokens[path[len(path)-1]]
	ethIn := tx.Value != nil && tx.Value.Sign() > 0
	if ethIn {
		if in != a.WETH {
			return nil, errors.New("UniswapV2Router: INVALID_PATH")
		}
		if tx.Value.Cmp(amounts[0]) < 0 {
			return nil, errors.New("UniswapV2Router: EXCESSIVE_INPUT_AMOUNT")
		}
	} else if err := in.TransferFrom(a.Address, tx.From, a.Address, amounts[0], tx.DryRun); err != nil {
		return nil, err
	}
	if tx.DryRun {
		return []interface{}{amounts}, nil
	}
	a.LastDeadline = new(big.Int).Set(deadline)
	if ethOut {
		a.chain.creditLocked(to, amounts[len(amounts)-1])
	} else {
		out.Mint(to, amounts[len(amounts)-1])
	}
	return []interface{}{amounts}, nil
}
