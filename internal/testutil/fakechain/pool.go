package fakechain

import (
	"math"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dataxfi/datax-go/internal/bindings"
)

var one18 = new(big.Float).SetFloat64(1e18)

// Pool is a weighted two-or-more token pool whose math is evaluated in float64.
// Its share token lives at the pool address.
type Pool struct {
	*Token
	Tokens     []*Token
	weights    map[common.Address]*big.Int
	SwapFee    *big.Int
	Controller common.Address
}

// DeployPool registers a finalized pool at addr. weights are denormalized
// 1e18-scaled weights in the same order as tokens; the pool must already hold
// its reserves (Mint to addr).
func (c *Chain) DeployPool(addr common.Address, tokens []*Token, weights []*big.Int, swapFee *big.Int, initialShares *big.Int, lp common.Address) *Pool {
	p := &Pool{
		Token:   c.DeployToken(addr, "DTPOOL", 18),
		Tokens:  tokens,
		weights: map[common.Address]*big.Int{},
		SwapFee: swapFee,
	}
	for i, t := range tokens {
		p.weights[t.Address] = weights[i]
	}
	p.Mint(lp, initialShares)

	meta := bindings.PoolMetaData
	c.Handle(addr, meta, "getBalance", func(_ Tx, args []interface{}) ([]interface{}, error) {
		t, err := p.token(args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		return []interface{}{t.BalanceOf(addr)}, nil
	})
	c.Handle(addr, meta, "getSwapFee", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{p.SwapFee}, nil
	})
	c.Handle(addr, meta, "getDenormalizedWeight", func(_ Tx, args []interface{}) ([]interface{}, error) {
		if _, err := p.token(args[0].(common.Address)); err != nil {
			return nil, err
		}
		return []interface{}{p.weights[args[0].(common.Address)]}, nil
	})
	c.Handle(addr, meta, "getTotalDenormalizedWeight", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{p.totalWeight()}, nil
	})
	c.Handle(addr, meta, "getNormalizedWeight", func(_ Tx, args []interface{}) ([]interface{}, error) {
		w := p.weights[args[0].(common.Address)]
		if w == nil {
			return nil, errors.New("ERR_NOT_BOUND")
		}
		n := new(big.Int).Mul(w, big.NewInt(1e18))
		return []interface{}{n.Div(n, p.totalWeight())}, nil
	})
	tokenList := func(Tx, []interface{}) ([]interface{}, error) {
		out := make([]common.Address, len(p.Tokens))
		for i, t := range p.Tokens {
			out[i] = t.Address
		}
		return []interface{}{out}, nil
	}
	c.Handle(addr, meta, "getCurrentTokens", tokenList)
	c.Handle(addr, meta, "getFinalTokens", tokenList)
	c.Handle(addr, meta, "isFinalized", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{true}, nil
	})
	c.Handle(addr, meta, "isBound", func(_ Tx, args []interface{}) ([]interface{}, error) {
		_, ok := p.weights[args[0].(common.Address)]
		return []interface{}{ok}, nil
	})
	c.Handle(addr, meta, "getNumTokens", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(int64(len(p.Tokens)))}, nil
	})
	c.Handle(addr, meta, "getController", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{p.Controller}, nil
	})
	spot := func(withFee bool) Handler {
		return func(_ Tx, args []interface{}) ([]interface{}, error) {
			in, out := args[0].(common.Address), args[1].(common.Address)
			ti, err := p.token(in)
			if err != nil {
				return nil, err
			}
			to, err := p.token(out)
			if err != nil {
				return nil, err
			}
			fee := 0.0
			if withFee {
				fee = toF(p.SwapFee) / 1e18
			}
			price := (toF(ti.BalanceOf(addr)) / toF(p.weights[in])) /
				(toF(to.BalanceOf(addr)) / toF(p.weights[out])) / (1 - fee)
			return []interface{}{toI(price * 1e18)}, nil
		}
	}
	c.Handle(addr, meta, "getSpotPrice", spot(true))
	c.Handle(addr, meta, "getSpotPriceSansFee", spot(false))

	for name, fn := range map[string]func(a, b, c, d, e, f float64) float64{
		"calcOutGivenIn":           CalcOutGivenIn,
		"calcInGivenOut":           CalcInGivenOut,
		"calcPoolOutGivenSingleIn": CalcPoolOutGivenSingleIn,
		"calcSingleInGivenPoolOut": CalcSingleInGivenPoolOut,
		"calcSingleOutGivenPoolIn": CalcSingleOutGivenPoolIn,
		"calcPoolInGivenSingleOut": CalcPoolInGivenSingleOut,
	} {
		fn := fn
		c.Handle(addr, meta, name, func(_ Tx, args []interface{}) ([]interface{}, error) {
			v := make([]float64, 6)
			for i := range v {
				v[i] = toF(args[i].(*big.Int))
			}
			v[5] /= 1e18
			r := fn(v[0], v[1], v[2], v[3], v[4], v[5])
			if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
				return nil, errors.New("ERR_MATH_APPROX")
			}
			return []interface{}{toI(r)}, nil
		})
	}

	c.Handle(addr, meta, "swapExactAmountIn", func(tx Tx, args []interface{}) ([]interface{}, error) {
		in, amountIn := args[0].(common.Address), args[1].(*big.Int)
		out, minOut := args[2].(common.Address), args[3].(*big.Int)
		ti, to, err := p.pair(in, out)
		if err != nil {
			return nil, err
		}
		amountOut := toI(CalcOutGivenIn(toF(ti.BalanceOf(addr)), toF(p.weights[in]),
			toF(to.BalanceOf(addr)), toF(p.weights[out]), toF(amountIn), toF(p.SwapFee)/1e18))
		if amountOut.Cmp(minOut) < 0 {
			return nil, errors.New("ERR_LIMIT_OUT")
		}
		if err := ti.TransferFrom(addr, tx.From, addr, amountIn, tx.DryRun); err != nil {
			return nil, err
		}
		if !tx.DryRun {
			to.Move(addr, tx.From, amountOut)
		}
		return []interface{}{amountOut, big.NewInt(0)}, nil
	})
	c.Handle(addr, meta, "swapExactAmountOut", func(tx Tx, args []interface{}) ([]interface{}, error) {
		in, maxIn := args[0].(common.Address), args[1].(*big.Int)
		out, amountOut := args[2].(common.Address), args[3].(*big.Int)
		ti, to, err := p.pair(in, out)
		if err != nil {
			return nil, err
		}
		amountIn := toI(math.Ceil(CalcInGivenOut(toF(ti.BalanceOf(addr)), toF(p.weights[in]),
			toF(to.BalanceOf(addr)), toF(p.weights[out]), toF(amountOut), toF(p.SwapFee)/1e18)))
		if amountIn.Cmp(maxIn) > 0 {
			return nil, errors.New("ERR_LIMIT_IN")
		}
		if err := ti.TransferFrom(addr, tx.From, addr, amountIn, tx.DryRun); err != nil {
			return nil, err
		}
		if !tx.DryRun {
			to.Move(addr, tx.From, amountOut)
		}
		return []interface{}{amountIn, big.NewInt(0)}, nil
	})
	c.Handle(addr, meta, "joinswapExternAmountIn", func(tx Tx, args []interface{}) ([]interface{}, error) {
		in, amountIn, minShares := args[0].(common.Address), args[1].(*big.Int), args[2].(*big.Int)
		ti, err := p.token(in)
		if err != nil {
			return nil, err
		}
		shares := toI(CalcPoolOutGivenSingleIn(toF(ti.BalanceOf(addr)), toF(p.weights[in]),
			toF(p.TotalSupply()), toF(p.totalWeight()), toF(amountIn), toF(p.SwapFee)/1e18))
		if shares.Cmp(minShares) < 0 {
			return nil, errors.New("ERR_LIMIT_OUT")
		}
		if err := ti.TransferFrom(addr, tx.From, addr, amountIn, tx.DryRun); err != nil {
			return nil, err
		}
		if !tx.DryRun {
			p.Mint(tx.From, shares)
			c.emitLocked(joinLog(addr, tx.From, in, amountIn))
		}
		return []interface{}{shares}, nil
	})
	c.Handle(addr, meta, "exitswapPoolAmountIn", func(tx Tx, args []interface{}) ([]interface{}, error) {
		out, sharesIn, minOut := args[0].(common.Address), args[1].(*big.Int), args[2].(*big.Int)
		to, err := p.token(out)
		if err != nil {
			return nil, err
		}
		if p.BalanceOf(tx.From).Cmp(sharesIn) < 0 {
			return nil, errors.New("ERR_INSUFFICIENT_BAL")
		}
		amountOut := toI(CalcSingleOutGivenPoolIn(toF(to.BalanceOf(addr)), toF(p.weights[out]),
			toF(p.TotalSupply()), toF(p.totalWeight()), toF(sharesIn), toF(p.SwapFee)/1e18))
		if amountOut.Cmp(minOut) < 0 {
			return nil, errors.New("ERR_LIMIT_OUT")
		}
		if !tx.DryRun {
			p.Burn(tx.From, sharesIn)
			to.Move(addr, tx.From, amountOut)
		}
		return []interface{}{amountOut}, nil
	})
	return p
}

var joinEventID = crypto.Keccak256Hash([]byte("LOG_JOIN(address,address,uint256)"))

func joinLog(pool, caller, tokenIn common.Address, amountIn *big.Int) types.Log {
	return types.Log{
		Address: pool,
		Topics:  []common.Hash{joinEventID, common.BytesToHash(caller.Bytes()), common.BytesToHash(tokenIn.Bytes())},
		Data:    common.LeftPadBytes(amountIn.Bytes(), 32),
	}
}

func (p *Pool) token(addr common.Address) (*Token, error) {
	for _, t := range p.Tokens {
		if t.Address == addr {
			return t, nil
		}
	}
	return nil, errors.New("ERR_NOT_BOUND")
}

func (p *Pool) pair(in, out common.Address) (*Token, *Token, error) {
	ti, err := p.token(in)
	if err != nil {
		return nil, nil, err
	}
	to, err := p.token(out)
	if err != nil {
		return nil, nil, err
	}
	return ti, to, nil
}

func (p *Pool) totalWeight() *big.Int {
	sum := new(big.Int)
	for _, w := range p.weights {
		sum.Add(sum, w)
	}
	return sum
}

// Burn destroys shares held by owner.
func (t *Token) Burn(owner common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[owner] = new(big.Int).Sub(t.balanceLocked(owner), amount)
}

func CalcOutGivenIn(balIn, wIn, balOut, wOut, amountIn, fee float64) float64 {
	adjusted := amountIn * (1 - fee)
	y := balIn / (balIn + adjusted)
	return balOut * (1 - math.Pow(y, wIn/wOut))
}

func CalcInGivenOut(balIn, wIn, balOut, wOut, amountOut, fee float64) float64 {
	y := balOut / (balOut - amountOut)
	return balIn * (math.Pow(y, wOut/wIn) - 1) / (1 - fee)
}

func CalcPoolOutGivenSingleIn(balIn, wIn, supply, totalW, amountIn, fee float64) float64 {
	norm := wIn / totalW
	afterFee := amountIn * (1 - (1-norm)*fee)
	ratio := (balIn + afterFee) / balIn
	return math.Pow(ratio, norm)*supply - supply
}

func CalcSingleInGivenPoolOut(balIn, wIn, supply, totalW, poolOut, fee float64) float64 {
	norm := wIn / totalW
	ratio := math.Pow((supply+poolOut)/supply, 1/norm)
	afterFee := ratio*balIn - balIn
	return afterFee / (1 - (1-norm)*fee)
}

func CalcSingleOutGivenPoolIn(balOut, wOut, supply, totalW, poolIn, fee float64) float64 {
	norm := wOut / totalW
	ratio := math.Pow((supply-poolIn)/supply, 1/norm)
	beforeFee := balOut - ratio*balOut
	return beforeFee * (1 - (1-norm)*fee)
}

func CalcPoolInGivenSingleOut(balOut, wOut, supply, totalW, amountOut, fee float64) float64 {
	norm := wOut / totalW
	beforeFee := amountOut / (1 - (1-norm)*fee)
	ratio := math.Pow((balOut-beforeFee)/balOut, norm)
	return supply - ratio*supply
}

func toF(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func toI(f float64) *big.Int {
	i, _ := new(big.Float).SetFloat64(math.Floor(f)).Int(nil)
	return i
}

// E18 returns n * 10^18 as a base-unit amount.
func E18(n float64) *big.Int {
	v, _ := new(big.Float).Mul(big.NewFloat(n), one18).Int(nil)
	return v
}
