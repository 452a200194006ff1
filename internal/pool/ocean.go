package pool

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/bindings"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/preflight"
	"github.com/dataxfi/datax-go/internal/tokens"
)

// TokenPool names a token together with the pool it trades in.
type TokenPool struct {
	Token common.Address
	Pool  common.Address
}

type MaxInOut struct {
	MaxIn  decimal.Decimal
	MaxOut decimal.Decimal
}

// Removed is what a proportional exit returns.
type Removed struct {
	DtAmount    decimal.Decimal
	OceanAmount decimal.Decimal
}

type Details struct {
	Address      common.Address
	Datatoken    tokens.Token
	DtReserve    decimal.Decimal
	OceanReserve decimal.Decimal
	SwapFee      decimal.Decimal
	TotalShares  decimal.Decimal
}

// Backend is what the pool wrappers read through: contract calls plus log
// queries for share discovery.
type Backend interface {
	bind.ContractCaller
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Ocean answers questions about OCEAN/datatoken pools in token units.
type Ocean struct {
	ocean    common.Address
	router   common.Address
	backend  Backend
	tokens   *tokens.Registry
	flow     *preflight.Flow
	fraction decimal.Decimal

	mu    sync.Mutex
	pools map[common.Address]*Pool
}

// NewOcean fails with ConfigResolutionFailed when network has no OCEAN token.
func NewOcean(network networks.Network, backend Backend, registry *tokens.Registry, flow *preflight.Flow) (*Ocean, error) {
	ocean, err := network.Contract(networks.OceanToken)
	if err != nil {
		return nil, err
	}
	// optional: joins made through the router are logged with it as caller
	router, _ := network.Contract(networks.StakeRouter)
	return &Ocean{
		ocean:    ocean,
		router:   router,
		backend:  backend,
		tokens:   registry,
		flow:     flow,
		fraction: network.MaxTradeFraction,
		pools:    map[common.Address]*Pool{},
	}, nil
}

func (o *Ocean) OceanAddress() common.Address { return o.ocean }

func (o *Ocean) IsOcean(token common.Address) bool { return token == o.ocean }

// Pool returns the wrapper for the pool at addr.
func (o *Ocean) Pool(addr common.Address) (*Pool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.pools[addr]; ok {
		return p, nil
	}
	p, err := New(addr, o.backend, o.tokens, o.flow, o.fraction)
	if err != nil {
		return nil, err
	}
	o.pools[addr] = p
	return p, nil
}

func (o *Ocean) GetBalance(ctx context.Context, token, owner common.Address) (decimal.Decimal, error) {
	return o.tokens.Balance(ctx, token, owner)
}

func (o *Ocean) CheckIfApproved(ctx context.Context, token, owner, spender common.Address, amount decimal.Decimal) (bool, error) {
	return o.tokens.CheckIfApproved(ctx, token, owner, spender, amount)
}

func (o *Ocean) GetAllowance(ctx context.Context, token, owner, spender common.Address) (decimal.Decimal, error) {
	return o.tokens.Allowance(ctx, token, owner, spender)
}

func (o *Ocean) Approve(ctx context.Context, token, spender common.Address, amount decimal.Decimal, sender *bind.TransactOpts) (*types.Receipt, error) {
	return o.tokens.Approve(ctx, token, spender, amount, sender)
}

func (o *Ocean) GetTokenDetails(ctx context.Context, token common.Address) (tokens.Token, error) {
	return o.tokens.Details(ctx, token)
}

// Datatoken returns the non-OCEAN token of an OCEAN pool.
func (o *Ocean) Datatoken(ctx context.Context, poolAddr common.Address) (common.Address, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return common.Address{}, err
	}
	toks, err := p.CurrentTokens(ctx)
	if err != nil {
		return common.Address{}, err
	}
	hasOcean := false
	var dt common.Address
	for _, t := range toks {
		if t == o.ocean {
			hasOcean = true
		} else {
			dt = t
		}
	}
	if !hasOcean || len(toks) != 2 {
		return common.Address{}, dataxerr.New(dataxerr.InvalidArgument, "pool %s is not an OCEAN/datatoken pool", poolAddr.Hex())
	}
	return dt, nil
}

func (o *Ocean) poolAndDt(ctx context.Context, poolAddr common.Address) (*Pool, common.Address, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return nil, common.Address{}, err
	}
	dt, err := o.Datatoken(ctx, poolAddr)
	if err != nil {
		return nil, common.Address{}, err
	}
	return p, dt, nil
}

// GetDtReceived quotes datatokens received for selling oceanAmount.
func (o *Ocean) GetDtReceived(ctx context.Context, poolAddr common.Address, oceanAmount decimal.Decimal) (decimal.Decimal, error) {
	p, dt, err := o.poolAndDt(ctx, poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcOutGivenIn(ctx, o.ocean, dt, oceanAmount)
}

// GetDtNeeded quotes datatokens needed to buy oceanWanted.
func (o *Ocean) GetDtNeeded(ctx context.Context, poolAddr common.Address, oceanWanted decimal.Decimal) (decimal.Decimal, error) {
	p, dt, err := o.poolAndDt(ctx, poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcInGivenOut(ctx, dt, o.ocean, oceanWanted)
}

// GetOceanReceived quotes OCEAN received for selling dtAmount.
func (o *Ocean) GetOceanReceived(ctx context.Context, poolAddr common.Address, dtAmount decimal.Decimal) (decimal.Decimal, error) {
	p, dt, err := o.poolAndDt(ctx, poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcOutGivenIn(ctx, dt, o.ocean, dtAmount)
}

// GetOceanNeeded quotes OCEAN needed to buy dtWanted.
func (o *Ocean) GetOceanNeeded(ctx context.Context, poolAddr common.Address, dtWanted decimal.Decimal) (decimal.Decimal, error) {
	p, dt, err := o.poolAndDt(ctx, poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcInGivenOut(ctx, o.ocean, dt, dtWanted)
}

// GetDtPerOcean is the datatoken cost of one OCEAN.
func (o *Ocean) GetDtPerOcean(ctx context.Context, poolAddr common.Address) (decimal.Decimal, error) {
	return o.GetDtNeeded(ctx, poolAddr, decimal.NewFromInt(1))
}

// GetOceanPerDt is the OCEAN cost of one datatoken.
func (o *Ocean) GetOceanPerDt(ctx context.Context, poolAddr common.Address) (decimal.Decimal, error) {
	return o.GetOceanNeeded(ctx, poolAddr, decimal.NewFromInt(1))
}

// GetDtReceivedForExactDt routes dtIn through OCEAN: sold in poolIn, the
// proceeds buy the output datatoken in poolOut.
func (o *Ocean) GetDtReceivedForExactDt(ctx context.Context, dtIn decimal.Decimal, poolIn, poolOut common.Address) (decimal.Decimal, error) {
	ocean, err := o.GetOceanReceived(ctx, poolIn, dtIn)
	if err != nil {
		return decimal.Zero, err
	}
	return o.GetDtReceived(ctx, poolOut, ocean)
}

// GetDtNeededForExactDt is the input datatoken needed to end with dtOutWanted.
func (o *Ocean) GetDtNeededForExactDt(ctx context.Context, dtOutWanted decimal.Decimal, poolIn, poolOut common.Address) (decimal.Decimal, error) {
	ocean, err := o.GetOceanNeeded(ctx, poolOut, dtOutWanted)
	if err != nil {
		return decimal.Zero, err
	}
	return o.GetDtNeeded(ctx, poolIn, ocean)
}

// CalculateExchange quotes a trade. With sell set, amount is what is sold and
// the result is what is received; otherwise amount is what is bought and the
// result is what must be paid. DT to DT trades need both pools.
func (o *Ocean) CalculateExchange(ctx context.Context, sell bool, amount decimal.Decimal, tokenIn, tokenOut, pool1, pool2 common.Address) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Zero, nil
	}
	switch {
	case o.IsOcean(tokenIn) && sell:
		return o.GetDtReceived(ctx, pool1, amount)
	case o.IsOcean(tokenIn):
		return o.GetOceanNeeded(ctx, pool1, amount)
	case o.IsOcean(tokenOut) && sell:
		return o.GetOceanReceived(ctx, pool1, amount)
	case o.IsOcean(tokenOut):
		return o.GetDtNeeded(ctx, pool1, amount)
	}
	if pool2 == (common.Address{}) {
		return decimal.Zero, dataxerr.New(dataxerr.InvalidArgument, "datatoken to datatoken exchange needs two pools")
	}
	if sell {
		return o.GetDtReceivedForExactDt(ctx, amount, pool1, pool2)
	}
	return o.GetDtNeededForExactDt(ctx, amount, pool1, pool2)
}

func (o *Ocean) maxTradeable(ctx context.Context, tp TokenPool) (decimal.Decimal, error) {
	p, err := o.Pool(tp.Pool)
	if err != nil {
		return decimal.Zero, err
	}
	return p.MaxTradeable(ctx, tp.Token)
}

// GetMaxExchange is the most of token one swap can put into or take out of poolAddr.
func (o *Ocean) GetMaxExchange(ctx context.Context, token, poolAddr common.Address) (MaxInOut, error) {
	return o.GetMaxInAndOut(ctx, TokenPool{Token: token, Pool: poolAddr}, TokenPool{Token: token, Pool: poolAddr})
}

func (o *Ocean) GetMaxInAndOut(ctx context.Context, in, out TokenPool) (MaxInOut, error) {
	maxIn, err := o.maxTradeable(ctx, in)
	if err != nil {
		return MaxInOut{}, err
	}
	maxOut, err := o.maxTradeable(ctx, out)
	if err != nil {
		return MaxInOut{}, err
	}
	return MaxInOut{MaxIn: maxIn, MaxOut: maxOut}, nil
}

// GetMaxDtToDtExchange bounds a datatoken to datatoken swap by whichever side
// runs out first, expressed in OCEAN, and returns the matching amount on the
// other side.
func (o *Ocean) GetMaxDtToDtExchange(ctx context.Context, dtIn, dtOut TokenPool) (MaxInOut, error) {
	m, err := o.GetMaxInAndOut(ctx, dtIn, dtOut)
	if err != nil {
		return MaxInOut{}, err
	}
	oceanFromMaxIn, err := o.GetOceanReceived(ctx, dtIn.Pool, m.MaxIn)
	if err != nil {
		return MaxInOut{}, err
	}
	oceanForMaxOut, err := o.GetOceanNeeded(ctx, dtOut.Pool, m.MaxOut)
	if err != nil {
		return MaxInOut{}, err
	}
	if oceanFromMaxIn.LessThan(oceanForMaxOut) {
		out, err := o.GetDtReceived(ctx, dtOut.Pool, oceanFromMaxIn)
		if err != nil {
			return MaxInOut{}, err
		}
		return MaxInOut{MaxIn: m.MaxIn, MaxOut: out}, nil
	}
	in, err := o.GetDtNeeded(ctx, dtIn.Pool, oceanForMaxOut)
	if err != nil {
		return MaxInOut{}, err
	}
	return MaxInOut{MaxIn: in, MaxOut: m.MaxOut}, nil
}

func (o *Ocean) GetMaxStakeAmount(ctx context.Context, poolAddr, token common.Address) (decimal.Decimal, error) {
	return o.maxTradeable(ctx, TokenPool{Token: token, Pool: poolAddr})
}

func (o *Ocean) GetMaxUnstakeAmount(ctx context.Context, poolAddr, token common.Address) (decimal.Decimal, error) {
	return o.maxTradeable(ctx, TokenPool{Token: token, Pool: poolAddr})
}

func (o *Ocean) GetSwapFee(ctx context.Context, poolAddr common.Address) (decimal.Decimal, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.SwapFee(ctx)
}

// CalculateSwapFee is the fee charged on amountIn.
func (o *Ocean) CalculateSwapFee(ctx context.Context, poolAddr common.Address, amountIn decimal.Decimal) (decimal.Decimal, error) {
	fee, err := o.GetSwapFee(ctx, poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return amountIn.Mul(fee), nil
}

func (o *Ocean) GetTotalPoolShares(ctx context.Context, poolAddr common.Address) (decimal.Decimal, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.TotalSupply(ctx)
}

func (o *Ocean) GetMyPoolSharesForPool(ctx context.Context, poolAddr, account common.Address) (decimal.Decimal, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.SharesBalance(ctx, account)
}

// PoolShare is an account's position in one OCEAN pool.
type PoolShare struct {
	Pool      common.Address
	Datatoken common.Address
	Shares    decimal.Decimal
}

// GetAllStakedPools finds the OCEAN pools account currently holds shares in.
// Candidates are pools that logged a join by account, or by the stake router
// when one is configured, between fromBlock and toBlock (nil is open); each is
// kept only if its share balance is still positive. Results are in order of
// first join.
func (o *Ocean) GetAllStakedPools(ctx context.Context, account common.Address, fromBlock, toBlock *big.Int) ([]PoolShare, error) {
	callers := []common.Address{account}
	if o.router != (common.Address{}) {
		callers = append(callers, o.router)
	}
	q, err := bindings.JoinsByCallerQuery(callers, fromBlock, toBlock)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "build join filter")
	}
	logs, err := o.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "pool joins of %s", account.Hex())
	}

	seen := map[common.Address]bool{}
	var out []PoolShare
	for _, l := range logs {
		if l.Removed || seen[l.Address] {
			continue
		}
		seen[l.Address] = true
		if _, err := bindings.ParsePoolJoin(l); err != nil {
			log.Debug("skipping undecodable join log", "pool", l.Address.Hex(), "error", err)
			continue
		}
		shares, err := o.GetMyPoolSharesForPool(ctx, l.Address, account)
		if err != nil {
			return nil, err
		}
		if !shares.IsPositive() {
			continue
		}
		dt, err := o.Datatoken(ctx, l.Address)
		if k, _ := dataxerr.KindOf(err); k == dataxerr.InvalidArgument {
			// not an OCEAN/datatoken pool
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, PoolShare{Pool: l.Address, Datatoken: dt, Shares: shares})
	}
	return out, nil
}

// GetTokensRemovedForPoolShares is a proportional exit: each reserve times
// shares over total supply.
func (o *Ocean) GetTokensRemovedForPoolShares(ctx context.Context, poolAddr common.Address, shares decimal.Decimal) (Removed, error) {
	p, dt, err := o.poolAndDt(ctx, poolAddr)
	if err != nil {
		return Removed{}, err
	}
	total, err := p.TotalSupply(ctx)
	if err != nil {
		return Removed{}, err
	}
	if total.IsZero() {
		return Removed{}, dataxerr.New(dataxerr.QuoteUnavailable, "pool %s has no shares", poolAddr.Hex())
	}
	dtReserve, err := p.Reserve(ctx, dt)
	if err != nil {
		return Removed{}, err
	}
	oceanReserve, err := p.Reserve(ctx, o.ocean)
	if err != nil {
		return Removed{}, err
	}
	ratio := shares.Div(total)
	return Removed{DtAmount: dtReserve.Mul(ratio), OceanAmount: oceanReserve.Mul(ratio)}, nil
}

// GetOceanRemovedForPoolShares quotes a single-sided exit into OCEAN.
func (o *Ocean) GetOceanRemovedForPoolShares(ctx context.Context, poolAddr common.Address, shares decimal.Decimal) (decimal.Decimal, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcSingleOutGivenPoolIn(ctx, o.ocean, shares)
}

func (o *Ocean) GetSharesReceivedForTokenIn(ctx context.Context, poolAddr, token common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcPoolOutGivenSingleIn(ctx, token, amount)
}

func (o *Ocean) GetPoolSharesRequiredToUnstake(ctx context.Context, poolAddr, token common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	p, err := o.Pool(poolAddr)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CalcPoolInGivenSingleOut(ctx, token, amount)
}

func (o *Ocean) GetPoolDetails(ctx context.Context, poolAddr common.Address) (Details, error) {
	p, dt, err := o.poolAndDt(ctx, poolAddr)
	if err != nil {
		return Details{}, err
	}
	d := Details{Address: poolAddr}
	if d.Datatoken, err = o.tokens.Details(ctx, dt); err != nil {
		return Details{}, err
	}
	if d.DtReserve, err = p.Reserve(ctx, dt); err != nil {
		return Details{}, err
	}
	if d.OceanReserve, err = p.Reserve(ctx, o.ocean); err != nil {
		return Details{}, err
	}
	if d.SwapFee, err = p.SwapFee(ctx); err != nil {
		return Details{}, err
	}
	if d.TotalShares, err = p.TotalSupply(ctx); err != nil {
		return Details{}, err
	}
	return d, nil
}
