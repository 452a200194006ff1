package pool

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/preflight"
	"github.com/dataxfi/datax-go/internal/testutil/fakechain"
	"github.com/dataxfi/datax-go/internal/tokens"
	"github.com/dataxfi/datax-go/internal/txn"
	"github.com/dataxfi/datax-go/internal/units"
)

var (
	oceanAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	dtAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	poolAddr  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	lpAddr    = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type PoolTestSuite struct {
	suite.Suite
	ctx    context.Context
	chain  *fakechain.Chain
	oceanT *fakechain.Token
	dtT    *fakechain.Token
	fpool  *fakechain.Pool
	ocean  *Ocean
	pool   *Pool
	trader *bind.TransactOpts
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

// SetupTest builds a 3000 DT (weight 3) / 7000 OCEAN (weight 7) pool with a 1% fee.
func (s *PoolTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.chain = fakechain.New(fakechain.DevChainID)
	s.oceanT = s.chain.DeployToken(oceanAddr, "OCEAN", 18)
	s.dtT = s.chain.DeployToken(dtAddr, "DT1", 18)
	s.oceanT.Mint(poolAddr, fakechain.E18(7000))
	s.dtT.Mint(poolAddr, fakechain.E18(3000))
	s.fpool = s.chain.DeployPool(poolAddr,
		[]*fakechain.Token{s.dtT, s.oceanT},
		[]*big.Int{fakechain.E18(3), fakechain.E18(7)},
		fakechain.E18(0.01), fakechain.E18(100), lpAddr)

	net := fakechain.Network(s.T(), networks.Contracts{OceanToken: oceanAddr.Hex()})
	exec := txn.NewExecutor(s.chain, net)
	reg := tokens.NewRegistry(s.chain, exec, net, nil)
	var err error
	s.ocean, err = NewOcean(net, s.chain, reg, preflight.NewFlow(reg, exec))
	s.Require().NoError(err)
	s.pool, err = s.ocean.Pool(poolAddr)
	s.Require().NoError(err)

	s.trader = s.chain.NewSender(s.T())
	s.oceanT.Mint(s.trader.From, fakechain.E18(100))
	s.dtT.Mint(s.trader.From, fakechain.E18(50))
}

func (s *PoolTestSuite) balance(t *fakechain.Token) decimal.Decimal {
	return units.FromBaseUnits(t.BalanceOf(s.trader.From), 18)
}

func (s *PoolTestSuite) TestReads() {
	reserve, err := s.pool.Reserve(s.ctx, oceanAddr)
	s.Require().NoError(err)
	s.Equal("7000", reserve.String())

	fee, err := s.pool.SwapFee(s.ctx)
	s.Require().NoError(err)
	s.Equal("0.01", fee.String())

	w, err := s.pool.NormalizedWeight(s.ctx, oceanAddr)
	s.Require().NoError(err)
	s.Equal("0.7", w.String())

	price, err := s.pool.SpotPriceSansFee(s.ctx, oceanAddr, dtAddr)
	s.Require().NoError(err)
	s.True(price.Sub(decimal.NewFromInt(1)).Abs().LessThan(dec("0.000001")), price.String())

	n, err := s.pool.NumTokens(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	dt, err := s.ocean.Datatoken(s.ctx, poolAddr)
	s.Require().NoError(err)
	s.Equal(dtAddr, dt)

	details, err := s.ocean.GetPoolDetails(s.ctx, poolAddr)
	s.Require().NoError(err)
	s.Equal("DT1", details.Datatoken.Symbol)
	s.Equal("3000", details.DtReserve.String())
	s.Equal("100", details.TotalShares.String())
}

func (s *PoolTestSuite) TestSwapScenarioReceivesAtLeastQuoted() {
	quotedDt, err := s.ocean.GetDtReceived(s.ctx, poolAddr, decimal.NewFromInt(30))
	s.Require().NoError(err)
	s.True(quotedDt.IsPositive())

	dtBefore := s.balance(s.dtT)
	_, err = s.pool.SwapExactAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(30), dtAddr, decimal.Zero, decimal.Zero)
	s.Require().NoError(err)
	receivedDt := s.balance(s.dtT).Sub(dtBefore)
	s.True(receivedDt.GreaterThanOrEqual(quotedDt), "received %s < quoted %s", receivedDt, quotedDt)
	s.Equal(1, s.oceanT.ApproveCalls)

	quotedOcean, err := s.ocean.GetOceanReceived(s.ctx, poolAddr, decimal.NewFromInt(10))
	s.Require().NoError(err)
	oceanBefore := s.balance(s.oceanT)
	_, err = s.pool.SwapExactAmountIn(s.ctx, s.trader, dtAddr, decimal.NewFromInt(10), oceanAddr, quotedOcean, decimal.Zero)
	s.Require().NoError(err)
	receivedOcean := s.balance(s.oceanT).Sub(oceanBefore)
	s.True(receivedOcean.GreaterThanOrEqual(quotedOcean), "received %s < quoted %s", receivedOcean, quotedOcean)
}

func (s *PoolTestSuite) TestSwapExactAmountOut() {
	want := decimal.NewFromInt(5)
	need, err := s.ocean.GetOceanNeeded(s.ctx, poolAddr, want)
	s.Require().NoError(err)

	dtBefore := s.balance(s.dtT)
	_, err = s.pool.SwapExactAmountOut(s.ctx, s.trader, oceanAddr, need.Mul(dec("1.01")), dtAddr, want, decimal.Zero)
	s.Require().NoError(err)
	s.Equal("5", s.balance(s.dtT).Sub(dtBefore).String())
}

func (s *PoolTestSuite) TestSwapAboveMaxTradeable() {
	s.oceanT.Mint(s.trader.From, fakechain.E18(5000))

	_, err := s.pool.SwapExactAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(4000), dtAddr, decimal.Zero, decimal.Zero)
	s.Require().Error(err)
	var dxErr *dataxerr.Error
	s.Require().True(errors.As(err, &dxErr))
	s.Equal(dataxerr.ExceedsMaxTradeable, dxErr.Kind())
	s.Equal("3500", dxErr.Details()["max"])
	// the approval went out before the bound was checked
	s.True(dxErr.ApprovalCommitted())
	s.Zero(s.chain.SentTo(poolAddr, "swapExactAmountIn"))
}

func (s *PoolTestSuite) TestInsufficientBalanceSendsNothing() {
	_, err := s.pool.SwapExactAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(101), dtAddr, decimal.Zero, decimal.Zero)
	s.True(dataxerr.HasKind(err, dataxerr.InsufficientBalance))
	s.Empty(s.chain.Sent)
}

func (s *PoolTestSuite) TestCalcInGivenOutWholeReserve() {
	_, err := s.pool.CalcInGivenOut(s.ctx, oceanAddr, dtAddr, decimal.NewFromInt(3000))
	s.True(dataxerr.HasKind(err, dataxerr.QuoteUnavailable))
}

func (s *PoolTestSuite) TestStakeAndUnstake() {
	quotedShares, err := s.ocean.GetSharesReceivedForTokenIn(s.ctx, poolAddr, oceanAddr, decimal.NewFromInt(10))
	s.Require().NoError(err)

	_, err = s.pool.JoinswapExternAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(10), decimal.Zero)
	s.Require().NoError(err)
	shares, err := s.ocean.GetMyPoolSharesForPool(s.ctx, poolAddr, s.trader.From)
	s.Require().NoError(err)
	s.True(shares.GreaterThanOrEqual(quotedShares))

	quotedOut, err := s.ocean.GetOceanRemovedForPoolShares(s.ctx, poolAddr, shares)
	s.Require().NoError(err)
	oceanBefore := s.balance(s.oceanT)
	_, err = s.pool.ExitswapPoolAmountIn(s.ctx, s.trader, oceanAddr, shares, decimal.Zero)
	s.Require().NoError(err)
	s.True(s.balance(s.oceanT).Sub(oceanBefore).GreaterThanOrEqual(quotedOut))
	// pool shares are burned by the pool itself
	s.Zero(s.fpool.ApproveCalls)
}

func (s *PoolTestSuite) TestGetAllStakedPools() {
	exited := common.HexToAddress("0x00000000000000000000000000000000000000f2")
	s.oceanT.Mint(exited, fakechain.E18(1000))
	s.dtT.Mint(exited, fakechain.E18(1000))
	s.chain.DeployPool(exited,
		[]*fakechain.Token{s.dtT, s.oceanT},
		[]*big.Int{fakechain.E18(5), fakechain.E18(5)},
		fakechain.E18(0.01), fakechain.E18(100), lpAddr)

	_, err := s.pool.JoinswapExternAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(10), decimal.Zero)
	s.Require().NoError(err)
	p2, err := s.ocean.Pool(exited)
	s.Require().NoError(err)
	_, err = p2.JoinswapExternAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(10), decimal.Zero)
	s.Require().NoError(err)
	shares, err := p2.SharesBalance(s.ctx, s.trader.From)
	s.Require().NoError(err)
	_, err = p2.ExitswapPoolAmountIn(s.ctx, s.trader, oceanAddr, shares, decimal.Zero)
	s.Require().NoError(err)

	staked, err := s.ocean.GetAllStakedPools(s.ctx, s.trader.From, nil, nil)
	s.Require().NoError(err)
	s.Require().Len(staked, 1)
	s.Equal(poolAddr, staked[0].Pool)
	s.Equal(dtAddr, staked[0].Datatoken)
	held, err := s.ocean.GetMyPoolSharesForPool(s.ctx, poolAddr, s.trader.From)
	s.Require().NoError(err)
	s.Equal(held.String(), staked[0].Shares.String())

	// joins by someone else do not count
	other, err := s.ocean.GetAllStakedPools(s.ctx, lpAddr, nil, nil)
	s.Require().NoError(err)
	s.Empty(other)

	head, err := s.chain.BlockNumber(s.ctx)
	s.Require().NoError(err)
	later, err := s.ocean.GetAllStakedPools(s.ctx, s.trader.From, new(big.Int).SetUint64(head+1), nil)
	s.Require().NoError(err)
	s.Empty(later)
}

func (s *PoolTestSuite) TestGetAllStakedPoolsIgnoresRevertedJoins() {
	// the node cannot estimate, so the join is sent and reverts on chain
	s.chain.EstimateErr = errors.New("eth_estimateGas not supported")
	_, err := s.pool.JoinswapExternAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(10), decimal.NewFromInt(1_000_000))
	s.True(dataxerr.HasKind(err, dataxerr.TransactionFailed), "%v", err)
	s.Equal(1, s.chain.SentTo(poolAddr, "joinswapExternAmountIn"))

	staked, err := s.ocean.GetAllStakedPools(s.ctx, s.trader.From, nil, nil)
	s.Require().NoError(err)
	s.Empty(staked)
}

func (s *PoolTestSuite) TestUnstakeAboveMax() {
	s.fpool.Mint(s.trader.From, fakechain.E18(90))
	_, err := s.pool.ExitswapPoolAmountIn(s.ctx, s.trader, oceanAddr, decimal.NewFromInt(90), decimal.Zero)
	s.True(dataxerr.HasKind(err, dataxerr.ExceedsMaxTradeable))
	s.Empty(s.chain.Sent)
}

func (s *PoolTestSuite) TestMaxHelpers() {
	m, err := s.ocean.GetMaxExchange(s.ctx, dtAddr, poolAddr)
	s.Require().NoError(err)
	s.Equal("1500", m.MaxIn.String())
	s.Equal("1500", m.MaxOut.String())

	stake, err := s.ocean.GetMaxStakeAmount(s.ctx, poolAddr, oceanAddr)
	s.Require().NoError(err)
	s.Equal("3500", stake.String())

	removed, err := s.ocean.GetTokensRemovedForPoolShares(s.ctx, poolAddr, decimal.NewFromInt(10))
	s.Require().NoError(err)
	s.Equal("300", removed.DtAmount.String())
	s.Equal("700", removed.OceanAmount.String())

	fee, err := s.ocean.CalculateSwapFee(s.ctx, poolAddr, decimal.NewFromInt(200))
	s.Require().NoError(err)
	s.Equal("2", fee.String())

	bound, err := s.pool.Bound(oceanAddr)(s.ctx)
	s.Require().NoError(err)
	s.Equal("3500", bound.String())
}

func (s *PoolTestSuite) TestCalculateExchange() {
	zero, err := s.ocean.CalculateExchange(s.ctx, true, decimal.Zero, oceanAddr, dtAddr, poolAddr, common.Address{})
	s.Require().NoError(err)
	s.True(zero.IsZero())

	sell, err := s.ocean.CalculateExchange(s.ctx, true, decimal.NewFromInt(30), oceanAddr, dtAddr, poolAddr, common.Address{})
	s.Require().NoError(err)
	direct, err := s.ocean.GetDtReceived(s.ctx, poolAddr, decimal.NewFromInt(30))
	s.Require().NoError(err)
	s.True(sell.Equal(direct))

	_, err = s.ocean.CalculateExchange(s.ctx, true, decimal.NewFromInt(1), dtAddr, common.HexToAddress("0xdd"), poolAddr, common.Address{})
	s.True(dataxerr.HasKind(err, dataxerr.InvalidArgument))
}

func TestNewOceanNeedsOceanAddress(t *testing.T) {
	chain := fakechain.New(fakechain.DevChainID)
	net := fakechain.Network(t, networks.Contracts{})
	exec := txn.NewExecutor(chain, net)
	reg := tokens.NewRegistry(chain, exec, net, nil)
	_, err := NewOcean(net, chain, reg, preflight.NewFlow(reg, exec))
	if !dataxerr.HasKind(err, dataxerr.ConfigResolutionFailed) {
		t.Fatalf("want ConfigResolutionFailed, got %v", err)
	}
}
