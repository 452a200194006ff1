package fakechain

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dataxfi/datax-go/internal/bindings"
)

// StakeRouter stakes into and unstakes from registered pools, converting
// through an Adapter when the path has more than one token. Fees are taken in
// the pool's base token: DataxFee (1e18 scale) plus the referrer rate passed in
// uints[1].
type StakeRouter struct {
	Address  common.Address
	DataxFee *big.Int

	chain   *Chain
	adapter *Adapter
	pools   map[common.Address]*Pool
	refFees map[common.Address]map[common.Address]*big.Int

	ClaimCalls int
}

type stakeTuple struct {
	Meta  [4]common.Address
	Uints [3]*big.Int
	Path  []common.Address
}

func decodeStake(arg interface{}) (info stakeTuple, err error) {
	defer func() {
		// ConvertType panics on a shape mismatch
		if r := recover(); r != nil {
			err = errors.Newf("unexpected stake info %T: %v", arg, r)
		}
	}()
	return *abi.ConvertType(arg, new(stakeTuple)).(*stakeTuple), nil
}

// DeployStakeRouter registers a router at addr. adapter may be nil when every
// path is a single token.
func (c *Chain) DeployStakeRouter(addr common.Address, adapter *Adapter) *StakeRouter {
	r := &StakeRouter{
		Address:  addr,
		DataxFee: E18(0.001),
		chain:    c,
		adapter:  adapter,
		pools:    map[common.Address]*Pool{},
		refFees:  map[common.Address]map[common.Address]*big.Int{},
	}
	meta := bindings.StakeRouterMetaData

	stake := func(eth bool) Handler {
		return func(tx Tx, args []interface{}) ([]interface{}, error) {
			info, err := decodeStake(args[0])
			if err != nil {
				return nil, err
			}
			shares, _, _, err := r.stake(tx, info, eth, true)
			return []interface{}{shares}, err
		}
	}
	unstake := func(eth bool) Handler {
		return func(tx Tx, args []interface{}) ([]interface{}, error) {
			info, err := decodeStake(args[0])
			if err != nil {
				return nil, err
			}
			out, _, _, err := r.unstake(tx, info, eth, true)
			return []interface{}{out}, err
		}
	}
	c.Handle(addr, meta, "stakeTokenInDTPool", stake(false))
	c.Handle(addr, meta, "stakeETHInDTPool", stake(true))
	c.Handle(addr, meta, "unstakeTokenFromDTPool", unstake(false))
	c.Handle(addr, meta, "unstakeETHFromDTPool", unstake(true))

	c.Handle(addr, meta, "calcPoolOutGivenTokenIn", func(tx Tx, args []interface{}) ([]interface{}, error) {
		info, err := decodeStake(args[0])
		if err != nil {
			return nil, err
		}
		shares, dataxFee, refFee, err := r.stake(Tx{From: tx.From, DryRun: true}, info, false, false)
		return []interface{}{shares, dataxFee, refFee}, err
	})
	c.Handle(addr, meta, "calcTokenOutGivenPoolIn", func(tx Tx, args []interface{}) ([]interface{}, error) {
		info, err := decodeStake(args[0])
		if err != nil {
			return nil, err
		}
		out, dataxFee, refFee, err := r.unstake(Tx{From: tx.From, DryRun: true}, info, false, false)
		return []interface{}{out, dataxFee, refFee}, err
	})
	c.Handle(addr, meta, "calcPoolInGivenTokenOut", func(_ Tx, args []interface{}) ([]interface{}, error) {
		info, err := decodeStake(args[0])
		if err != nil {
			return nil, err
		}
		return r.poolInGivenTokenOut(info)
	})
	c.Handle(addr, meta, "calcFees", func(_ Tx, args []interface{}) ([]interface{}, error) {
		dataxFee, refFee := r.fees(args[0].(*big.Int), args[2].(*big.Int))
		return []interface{}{dataxFee, refFee}, nil
	})
	c.Handle(addr, meta, "referralFees", func(_ Tx, args []interface{}) ([]interface{}, error) {
		return []interface{}{r.accrued(args[0].(common.Address), args[1].(common.Address))}, nil
	})
	c.Handle(addr, meta, "claimRefFees", func(tx Tx, args []interface{}) ([]interface{}, error) {
		token := args[0].(common.Address)
		amount := r.accrued(tx.From, token)
		if amount.Sign() == 0 {
			return nil, errors.New("no fees to claim")
		}
		if !tx.DryRun {
			r.ClaimCalls++
			r.refFees[tx.From][token] = new(big.Int)
			r.baseToken(token).Mint(tx.From, amount)
		}
		return []interface{}{amount}, nil
	})
	return r
}

// AddPool lets the router stake into p.
func (r *StakeRouter) AddPool(p *Pool) { r.pools[p.Address] = p }

// Accrue credits referrer with amount of token, as earlier stakes would have.
func (r *StakeRouter) Accrue(referrer, token common.Address, amount *big.Int) {
	if r.refFees[referrer] == nil {
		r.refFees[referrer] = map[common.Address]*big.Int{}
	}
	r.refFees[referrer][token] = new(big.Int).Add(r.accrued(referrer, token), amount)
}

func (r *StakeRouter) accrued(referrer, token common.Address) *big.Int {
	if v, ok := r.refFees[referrer][token]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (r *StakeRouter) baseToken(addr common.Address) *Token {
	for _, p := range r.pools {
		if t, err := p.token(addr); err == nil {
			return t
		}
	}
	return nil
}

func (r *StakeRouter) fees(base, refRate *big.Int) (dataxFee, refFee *big.Int) {
	dataxFee = new(big.Int).Mul(base, r.DataxFee)
	dataxFee.Div(dataxFee, one18Int)
	refFee = new(big.Int).Mul(base, refRate)
	refFee.Div(refFee, one18Int)
	return dataxFee, refFee
}

var one18Int = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func (r *StakeRouter) pool(info stakeTuple) (*Pool, error) {
	p := r.pools[info.Meta[0]]
	if p == nil {
		return nil, errors.New("unknown pool")
	}
	if len(info.Path) == 0 {
		return nil, errors.New("empty path")
	}
	return p, nil
}

func (r *StakeRouter) convert(amount *big.Int, path []common.Address) (*big.Int, error) {
	if len(path) == 1 {
		return new(big.Int).Set(amount), nil
	}
	if r.adapter == nil {
		return nil, errors.New("no adapter for a multi-hop path")
	}
	amounts, err := r.adapter.amountsOut(amount, path)
	if err != nil {
		return nil, err
	}
	return amounts[len(amounts)-1], nil
}

// stake moves uints[2] of path[0] into the pool as path[last] and mints at
// least uints[0] shares to meta[1]. check disables the limit for quotes.
func (r *StakeRouter) stake(tx Tx, info stakeTuple, eth, check bool) (shares, dataxFee, refFee *big.Int, err error) {
	p, err := r.pool(info)
	if err != nil {
		return nil, nil, nil, err
	}
	amountIn := info.Uints[2]
	base, err := r.convert(amountIn, info.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	bt, err := p.token(info.Path[len(info.Path)-1])
	if err != nil {
		return nil, nil, nil, err
	}
	dataxFee, refFee = r.fees(base, info.Uints[1])
	net := new(big.Int).Sub(base, dataxFee)
	net.Sub(net, refFee)
	shares = toI(CalcPoolOutGivenSingleIn(toF(bt.BalanceOf(p.Address)), toF(p.weights[bt.Address]),
		toF(p.TotalSupply()), toF(p.totalWeight()), toF(net), toF(p.SwapFee)/1e18))
	if check && shares.Cmp(info.Uints[0]) < 0 {
		return nil, nil, nil, errors.New("ERR_LIMIT_OUT")
	}
	if !check {
		return shares, dataxFee, refFee, nil
	}

	if eth {
		if tx.Value == nil || tx.Value.Cmp(amountIn) < 0 {
			return nil, nil, nil, errors.New("insufficient value")
		}
	} else {
		in := r.tokenAt(info.Path[0], p)
		if in == nil {
			return nil, nil, nil, errors.New("unknown token in")
		}
		if err := in.TransferFrom(r.Address, tx.From, r.Address, amountIn, tx.DryRun); err != nil {
			return nil, nil, nil, err
		}
	}
	if tx.DryRun {
		return shares, dataxFee, refFee, nil
	}
	bt.Mint(p.Address, net)
	p.Mint(info.Meta[1], shares)
	// the pool sees the router as the joiner
	r.chain.emitLocked(joinLog(p.Address, r.Address, bt.Address, net))
	r.Accrue(info.Meta[2], bt.Address, refFee)
	return shares, dataxFee, refFee, nil
}

// unstake burns uints[2] shares for path[0] and pays at least uints[0] of
// path[last] to meta[1].
func (r *StakeRouter) unstake(tx Tx, info stakeTuple, eth, check bool) (out, dataxFee, refFee *big.Int, err error) {
	p, err := r.pool(info)
	if err != nil {
		return nil, nil, nil, err
	}
	bt, err := p.token(info.Path[0])
	if err != nil {
		return nil, nil, nil, err
	}
	sharesIn := info.Uints[2]
	base := toI(CalcSingleOutGivenPoolIn(toF(bt.BalanceOf(p.Address)), toF(p.weights[bt.Address]),
		toF(p.TotalSupply()), toF(p.totalWeight()), toF(sharesIn), toF(p.SwapFee)/1e18))
	dataxFee, refFee = r.fees(base, info.Uints[1])
	net := new(big.Int).Sub(base, dataxFee)
	net.Sub(net, refFee)
	if out, err = r.convert(net, info.Path); err != nil {
		return nil, nil, nil, err
	}
	if !check {
		return out, dataxFee, refFee, nil
	}
	if out.Cmp(info.Uints[0]) < 0 {
		return nil, nil, nil, errors.New("ERR_LIMIT_OUT")
	}
	if err := p.TransferFrom(r.Address, tx.From, r.Address, sharesIn, tx.DryRun); err != nil {
		return nil, nil, nil, err
	}
	if tx.DryRun {
		return out, dataxFee, refFee, nil
	}
	p.Burn(r.Address, sharesIn)
	bt.Burn(p.Address, base)
	r.Accrue(info.Meta[2], bt.Address, refFee)
	if eth {
		r.chain.creditLocked(info.Meta[1], out)
	} else {
		r.tokenAt(info.Path[len(info.Path)-1], p).Mint(info.Meta[1], out)
	}
	return out, dataxFee, refFee, nil
}

// poolInGivenTokenOut quotes the shares to burn for uints[0] of path[last].
func (r *StakeRouter) poolInGivenTokenOut(info stakeTuple) ([]interface{}, error) {
	p, err := r.pool(info)
	if err != nil {
		return nil, err
	}
	bt, err := p.token(info.Path[0])
	if err != nil {
		return nil, err
	}
	base := info.Uints[0]
	if len(info.Path) > 1 {
		if r.adapter == nil {
			return nil, errors.New("no adapter for a multi-hop path")
		}
		amounts, err := r.adapter.amountsIn(info.Uints[0], info.Path)
		if err != nil {
			return nil, err
		}
		base = amounts[0]
	}
	dataxFee, refFee := r.fees(base, info.Uints[1])
	gross := new(big.Int).Add(base, dataxFee)
	gross.Add(gross, refFee)
	shares := toI(CalcPoolInGivenSingleOut(toF(bt.BalanceOf(p.Address)), toF(p.weights[bt.Address]),
		toF(p.TotalSupply()), toF(p.totalWeight()), toF(gross), toF(p.SwapFee)/1e18))
	return []interface{}{shares, dataxFee, refFee}, nil
}

func (r *StakeRouter) tokenAt(addr common.Address, p *Pool) *Token {
	if t, err := p.token(addr); err == nil {
		return t
	}
	if r.adapter != nil {
		return r.adapter.tokens[addr]
	}
	return nil
}
