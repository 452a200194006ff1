package stake

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
	"github.com/dataxfi/datax-go/internal/pool"
	"github.com/dataxfi/datax-go/internal/preflight"
	"github.com/dataxfi/datax-go/internal/testutil/fakechain"
	"github.com/dataxfi/datax-go/internal/tokens"
	"github.com/dataxfi/datax-go/internal/trade"
	"github.com/dataxfi/datax-go/internal/txn"
	"github.com/dataxfi/datax-go/internal/units"
)

var (
	oceanAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	dtAddr       = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	wethAddr     = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	usdcAddr     = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	adapterAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	routerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	poolAddr     = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	lpAddr       = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	referrerAddr = common.HexToAddress("0x00000000000000000000000000000000000000e2")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type StakeTestSuite struct {
	suite.Suite
	ctx     context.Context
	chain   *fakechain.Chain
	oceanT  *fakechain.Token
	usdcT   *fakechain.Token
	fpool   *fakechain.Pool
	frouter *fakechain.StakeRouter
	router  *Router
	ocean   *pool.Ocean
	trader  *bind.TransactOpts
}

func TestStakeTestSuite(t *testing.T) {
	suite.Run(t, new(StakeTestSuite))
}

// SetupTest builds a 3000 DT / 7000 OCEAN pool (weights 3/7, 1% fee) behind a
// router whose adapter prices 1 USDC at 2 OCEAN and 1 WETH at 1000 OCEAN.
func (s *StakeTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.chain = fakechain.New(fakechain.DevChainID)
	s.oceanT = s.chain.DeployToken(oceanAddr, "OCEAN", 18)
	dtT := s.chain.DeployToken(dtAddr, "DT1", 18)
	weth := s.chain.DeployToken(wethAddr, "WETH", 18)
	s.usdcT = s.chain.DeployToken(usdcAddr, "USDC", 6)

	s.oceanT.Mint(poolAddr, fakechain.E18(7000))
	dtT.Mint(poolAddr, fakechain.E18(3000))
	s.fpool = s.chain.DeployPool(poolAddr,
		[]*fakechain.Token{dtT, s.oceanT},
		[]*big.Int{fakechain.E18(3), fakechain.E18(7)},
		fakechain.E18(0.01), fakechain.E18(100), lpAddr)

	adapter := s.chain.DeployAdapter(adapterAddr, weth)
	adapter.SetRate(s.usdcT, s.oceanT, 2)
	adapter.SetRate(weth, s.oceanT, 1000)
	s.frouter = s.chain.DeployStakeRouter(routerAddr, adapter)
	s.frouter.AddPool(s.fpool)

	net := fakechain.Network(s.T(), networks.Contracts{
		OceanToken:  oceanAddr.Hex(),
		StakeRouter: routerAddr.Hex(),
		SwapAdapter: adapterAddr.Hex(),
		WETH:        wethAddr.Hex(),
	})
	exec := txn.NewExecutor(s.chain, net)
	reg := tokens.NewRegistry(s.chain, exec, net, nil)
	flow := preflight.NewFlow(reg, exec)
	ocean, err := pool.NewOcean(net, s.chain, reg, flow)
	s.Require().NoError(err)
	tr, err := trade.New(net, s.chain, reg, flow)
	s.Require().NoError(err)
	s.router, err = New(net, s.chain, reg, flow, exec, ocean, tr)
	s.Require().NoError(err)
	s.ocean = ocean

	s.trader = s.chain.NewSender(s.T())
	s.oceanT.Mint(s.trader.From, fakechain.E18(100))
	s.usdcT.Mint(s.trader.From, big.NewInt(1_000_000_000))
}

func (s *StakeTestSuite) info(path []common.Address, u0, u1, u2 string) Info {
	return Info{
		Meta:  [4]common.Address{poolAddr, {}, referrerAddr, adapterAddr},
		Uints: [3]decimal.Decimal{dec(u0), dec(u1), dec(u2)},
		Path:  path,
	}
}

func (s *StakeTestSuite) shares() decimal.Decimal {
	return units.FromBaseUnits(s.fpool.BalanceOf(s.trader.From), 18)
}

func (s *StakeTestSuite) TestClaimRefFeesWithNothingAccrued() {
	claim, err := s.router.ClaimRefFees(s.ctx, oceanAddr, s.trader)
	s.Require().NoError(err)
	s.True(claim.Amount.IsZero())
	s.Nil(claim.Receipt)
	s.Empty(s.chain.Sent)
	s.Zero(s.frouter.ClaimCalls)
}

func (s *StakeTestSuite) TestClaimRefFees() {
	s.frouter.Accrue(s.trader.From, oceanAddr, fakechain.E18(3))

	accrued, err := s.router.AccruedRefFees(s.ctx, s.trader.From, oceanAddr)
	s.Require().NoError(err)
	s.Equal("3", accrued.String())

	claim, err := s.router.ClaimRefFees(s.ctx, oceanAddr, s.trader)
	s.Require().NoError(err)
	s.Equal("3", claim.Amount.String())
	s.Require().NotNil(claim.Receipt)
	s.Equal(1, s.frouter.ClaimCalls)
	s.Equal("103", units.FromBaseUnits(s.oceanT.BalanceOf(s.trader.From), 18).String())

	accrued, err = s.router.AccruedRefFees(s.ctx, s.trader.From, oceanAddr)
	s.Require().NoError(err)
	s.True(accrued.IsZero())
}

func (s *StakeTestSuite) TestStakeTokenSingleHop() {
	info := s.info([]common.Address{oceanAddr}, "0", "0.01", "10")
	q, err := s.router.CalcPoolOutGivenTokenIn(s.ctx, info)
	s.Require().NoError(err)
	s.True(q.Amount.IsPositive())
	s.Equal("0.01", q.ProtocolFee.String())
	s.Equal("0.1", q.ReferrerFee.String())

	_, err = s.router.StakeTokenInDTPool(s.ctx, info, s.trader)
	s.Require().NoError(err)
	s.True(s.shares().GreaterThanOrEqual(q.Amount), "shares %s < quoted %s", s.shares(), q.Amount)
	s.Equal("90", units.FromBaseUnits(s.oceanT.BalanceOf(s.trader.From), 18).String())
	s.Equal(1, s.oceanT.ApproveCalls)

	fees, err := s.router.AccruedRefFees(s.ctx, referrerAddr, oceanAddr)
	s.Require().NoError(err)
	s.Equal("0.1", fees.String())
}

func (s *StakeTestSuite) TestRouterStakeIsFoundAmongStakedPools() {
	none, err := s.ocean.GetAllStakedPools(s.ctx, s.trader.From, nil, nil)
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.router.StakeTokenInDTPool(s.ctx, s.info([]common.Address{oceanAddr}, "0", "0", "10"), s.trader)
	s.Require().NoError(err)

	staked, err := s.ocean.GetAllStakedPools(s.ctx, s.trader.From, nil, nil)
	s.Require().NoError(err)
	s.Require().Len(staked, 1)
	s.Equal(poolAddr, staked[0].Pool)
	s.Equal(dtAddr, staked[0].Datatoken)
	s.Equal(s.shares().String(), staked[0].Shares.String())
}

func (s *StakeTestSuite) TestStakeScalesAmountInByTheFirstToken() {
	info := s.info([]common.Address{usdcAddr, oceanAddr}, "0", "0", "100")
	q, err := s.router.CalcPoolOutGivenTokenIn(s.ctx, info)
	s.Require().NoError(err)
	// 100 USDC reach the pool as 200 OCEAN
	s.Equal("0.2", q.ProtocolFee.String())

	_, err = s.router.StakeTokenInDTPool(s.ctx, info, s.trader)
	s.Require().NoError(err)
	s.Equal("900000000", s.usdcT.BalanceOf(s.trader.From).String())
	s.True(s.shares().IsPositive())
}

func (s *StakeTestSuite) TestStakeMaxIsMeasuredAtThePool() {
	s.usdcT.Mint(s.trader.From, big.NewInt(1_000_000_000))
	// 2000 USDC is 4000 OCEAN at the pool, above half of its 7000 reserve
	info := s.info([]common.Address{usdcAddr, oceanAddr}, "0", "0", "2000")
	_, err := s.router.StakeTokenInDTPool(s.ctx, info, s.trader)
	s.Require().Error(err)

	var dxErr *dataxerr.Error
	s.Require().True(errors.As(err, &dxErr))
	s.Equal(dataxerr.ExceedsMaxTradeable, dxErr.Kind())
	s.Equal("3500", dxErr.Details()["max"])
	s.True(dxErr.ApprovalCommitted())
	s.Zero(s.chain.SentTo(routerAddr, "stakeTokenInDTPool"))
}

func (s *StakeTestSuite) TestStakeETH() {
	before := s.chain.Native(s.trader.From)
	info := s.info([]common.Address{wethAddr, oceanAddr}, "0", "0", "0.5")
	_, err := s.router.StakeETHInDTPool(s.ctx, info, s.trader)
	s.Require().NoError(err)

	spent := new(big.Int).Sub(before, s.chain.Native(s.trader.From))
	s.Equal(fakechain.E18(0.5).String(), spent.String())
	s.Zero(s.chain.SentTo(wethAddr, "approve"))
	s.True(s.shares().IsPositive())
}

func (s *StakeTestSuite) TestStakeETHWithoutFunds() {
	info := s.info([]common.Address{wethAddr, oceanAddr}, "0", "0", "101")
	_, err := s.router.StakeETHInDTPool(s.ctx, info, s.trader)
	s.True(dataxerr.HasKind(err, dataxerr.InsufficientBalance))
	s.Empty(s.chain.Sent)
}

func (s *StakeTestSuite) TestUnstakeToken() {
	s.fpool.Mint(s.trader.From, fakechain.E18(5))
	info := s.info([]common.Address{oceanAddr}, "0", "0", "5")
	q, err := s.router.CalcTokenOutGivenPoolIn(s.ctx, info)
	s.Require().NoError(err)
	s.True(q.Amount.IsPositive())

	before := units.FromBaseUnits(s.oceanT.BalanceOf(s.trader.From), 18)
	_, err = s.router.UnstakeTokenFromDTPool(s.ctx, info, s.trader)
	s.Require().NoError(err)
	gained := units.FromBaseUnits(s.oceanT.BalanceOf(s.trader.From), 18).Sub(before)
	s.True(gained.GreaterThanOrEqual(q.Amount), "gained %s < quoted %s", gained, q.Amount)
	s.True(s.shares().IsZero())
	// the router pulls the shares, so it needs an allowance
	s.Equal(1, s.fpool.ApproveCalls)
}

func (s *StakeTestSuite) TestUnstakeETH() {
	s.fpool.Mint(s.trader.From, fakechain.E18(1))
	info := s.info([]common.Address{oceanAddr, wethAddr}, "0", "0", "1")
	q, err := s.router.CalcTokenOutGivenPoolIn(s.ctx, info)
	s.Require().NoError(err)

	before := s.chain.Native(s.trader.From)
	_, err = s.router.UnstakeETHFromDTPool(s.ctx, info, s.trader)
	s.Require().NoError(err)
	gained := new(big.Int).Sub(s.chain.Native(s.trader.From), before)
	want, err := units.ToBaseUnits(q.Amount, 18)
	s.Require().NoError(err)
	s.Equal(want.String(), gained.String())
}

func (s *StakeTestSuite) TestUnstakeScalesOutputByTheLastToken() {
	s.fpool.Mint(s.trader.From, fakechain.E18(5))
	// 1 USDC minimum out, 5 shares in
	info := s.info([]common.Address{oceanAddr, usdcAddr}, "1", "0", "5")

	encoded, err := info.encode(s.ctx, s.router.quotes.Scaler(), unstakeLayout)
	s.Require().NoError(err)
	s.Equal("1000000", encoded.Uints[0].String())
	s.Equal(fakechain.E18(5).String(), encoded.Uints[2].String())

	q, err := s.router.CalcTokenOutGivenPoolIn(s.ctx, info)
	s.Require().NoError(err)
	s.True(q.Amount.GreaterThan(dec("1")), "quoted %s USDC", q.Amount)

	before := s.usdcT.BalanceOf(s.trader.From)
	_, err = s.router.UnstakeTokenFromDTPool(s.ctx, info, s.trader)
	s.Require().NoError(err)
	gained := units.FromBaseUnits(new(big.Int).Sub(s.usdcT.BalanceOf(s.trader.From), before), 6)
	s.True(gained.GreaterThanOrEqual(q.Amount), "gained %s < quoted %s", gained, q.Amount)
	s.True(s.shares().IsZero())
}

func (s *StakeTestSuite) TestUnstakeMinOutAboveQuoteReverts() {
	s.fpool.Mint(s.trader.From, fakechain.E18(5))
	q, err := s.router.CalcTokenOutGivenPoolIn(s.ctx, s.info([]common.Address{oceanAddr, usdcAddr}, "0", "0", "5"))
	s.Require().NoError(err)

	info := s.info([]common.Address{oceanAddr, usdcAddr}, q.Amount.Add(dec("1")).String(), "0", "5")
	_, err = s.router.UnstakeTokenFromDTPool(s.ctx, info, s.trader)
	s.Require().Error(err)
	s.Equal("5", s.shares().String())
}

func (s *StakeTestSuite) TestUnstakeAboveMax() {
	s.fpool.Mint(s.trader.From, fakechain.E18(90))
	info := s.info([]common.Address{oceanAddr}, "0", "0", "90")
	_, err := s.router.UnstakeTokenFromDTPool(s.ctx, info, s.trader)
	s.True(dataxerr.HasKind(err, dataxerr.ExceedsMaxTradeable))
	s.Zero(s.chain.SentTo(routerAddr, "unstakeTokenFromDTPool"))
}

func (s *StakeTestSuite) TestCalcPoolInGivenTokenOut() {
	info := s.info([]common.Address{oceanAddr}, "10", "0.01", "0")
	q, err := s.router.CalcPoolInGivenTokenOut(s.ctx, info)
	s.Require().NoError(err)
	s.True(q.Amount.IsPositive())
	s.Equal("0.01", q.ProtocolFee.String())
	s.Equal("0.1", q.ReferrerFee.String())
}

func (s *StakeTestSuite) TestCalcFeesUsesTheBaseTokenDecimals() {
	res, err := s.router.CalcFees(s.ctx, oceanAddr, dec("100"), "stake", dec("0.01"))
	s.Require().NoError(err)
	s.Equal("0.1", res.ProtocolFee.String())
	s.Equal("1", res.ReferrerFee.String())
	s.Equal("98.9", res.Amount.String())

	res, err = s.router.CalcFees(s.ctx, usdcAddr, dec("100"), "stake", dec("0.01"))
	s.Require().NoError(err)
	s.Equal("0.1", res.ProtocolFee.String())
	s.Equal("1", res.ReferrerFee.String())
}

func (s *StakeTestSuite) TestInvalidInfoSendsNothing() {
	info := s.info(nil, "0", "0", "1")
	_, err := s.router.StakeTokenInDTPool(s.ctx, info, s.trader)
	s.True(dataxerr.HasKind(err, dataxerr.InvalidArgument))

	info = s.info([]common.Address{oceanAddr}, "0", "0", "1")
	info.Meta[0] = common.Address{}
	_, err = s.router.StakeTokenInDTPool(s.ctx, info, s.trader)
	s.True(dataxerr.HasKind(err, dataxerr.InvalidArgument))

	_, err = s.router.StakeTokenInDTPool(s.ctx, s.info([]common.Address{oceanAddr}, "0", "0", "1"), nil)
	s.True(dataxerr.HasKind(err, dataxerr.InvalidArgument))
	s.Empty(s.chain.Sent)
}

func (s *StakeTestSuite) TestInsufficientBalanceSendsNothing() {
	info := s.info([]common.Address{oceanAddr}, "0", "0", "100.000000000000000001")
	_, err := s.router.StakeTokenInDTPool(s.ctx, info, s.trader)
	s.True(dataxerr.HasKind(err, dataxerr.InsufficientBalance))
	s.Empty(s.chain.Sent)
}

func (s *StakeTestSuite) TestMultiHopWithoutRouteQuoter() {
	net := fakechain.Network(s.T(), networks.Contracts{OceanToken: oceanAddr.Hex(), StakeRouter: routerAddr.Hex()})
	exec := txn.NewExecutor(s.chain, net)
	reg := tokens.NewRegistry(s.chain, exec, net, nil)
	flow := preflight.NewFlow(reg, exec)
	ocean, err := pool.NewOcean(net, s.chain, reg, flow)
	s.Require().NoError(err)
	r, err := New(net, s.chain, reg, flow, exec, ocean, nil)
	s.Require().NoError(err)

	_, err = r.StakeTokenInDTPool(s.ctx, s.info([]common.Address{usdcAddr, oceanAddr}, "0", "0", "1"), s.trader)
	s.True(dataxerr.HasKind(err, dataxerr.ConfigResolutionFailed))
	s.Empty(s.chain.Sent)
}

func TestNewWithoutRouterFails(t *testing.T) {
	chain := fakechain.New(fakechain.DevChainID)
	net := fakechain.Network(t, networks.Contracts{})
	exec := txn.NewExecutor(chain, net)
	reg := tokens.NewRegistry(chain, exec, net, nil)
	_, err := New(net, chain, reg, preflight.NewFlow(reg, exec), exec, nil, nil)
	if !dataxerr.HasKind(err, dataxerr.ConfigResolutionFailed) {
		t.Fatalf("want ConfigResolutionFailed, got %v", err)
	}
}
