package quote

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/units"
)

var (
	dai  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	usdc = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	pool = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

type decimalsMap map[common.Address]uint8

func (m decimalsMap) Decimals(_ context.Context, token common.Address) (uint8, error) {
	d, ok := m[token]
	if !ok {
		return 0, errors.Newf("unknown token %s", token.Hex())
	}
	return d, nil
}

func calculator() *Calculator {
	return NewCalculator(units.NewScaler(decimalsMap{dai: 18, usdc: 6}))
}

func TestOutputsUseTheirOwnDecimals(t *testing.T) {
	var seen []*big.Int
	req := Request{
		Name:    "getAmountsOut",
		Path:    units.NewPath(pool, dai, usdc),
		Inputs:  []Input{{Value: decimal.RequireFromString("2.5"), Role: units.RolePathFirst}},
		Outputs: []Output{{Index: 1, Role: units.RolePathLast}},
		Call: func(_ context.Context, args []*big.Int) ([]*big.Int, error) {
			seen = args
			// 1 DAI -> 0.99 USDC
			out := new(big.Int).Mul(args[0], big.NewInt(99))
			out.Div(out, big.NewInt(100))
			out.Div(out, big.NewInt(1e12))
			return []*big.Int{args[0], out}, nil
		},
	}

	got, err := calculator().Single(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "2500000000000000000", seen[0].String())
	assert.Equal(t, "2.475", got.String())
}

func TestCompoundResult(t *testing.T) {
	req := Request{
		Name: "calcPoolOutGivenTokenIn",
		Path: units.NewPath(pool, usdc),
		Inputs: []Input{
			{Value: decimal.NewFromInt(10), Role: units.RolePathFirst},
			{Value: decimal.RequireFromString("0.01"), Role: units.RoleRate},
		},
		Outputs: []Output{
			{Index: 0, Role: units.RolePoolShares},
			{Index: 1, Role: units.RolePathFirst},
			{Index: 2, Role: units.RolePathFirst},
		},
		Call: func(_ context.Context, args []*big.Int) ([]*big.Int, error) {
			assert.Equal(t, "10000000", args[0].String())
			assert.Equal(t, "10000000000000000", args[1].String())
			return []*big.Int{
				new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18)),
				big.NewInt(10_000),
				big.NewInt(100_000),
			}, nil
		},
	}

	res, err := calculator().Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "3", res.Amount.String())
	assert.Equal(t, "0.01", res.ProtocolFee.String())
	assert.Equal(t, "0.1", res.ReferrerFee.String())
}

func TestCallFailureIsQuoteUnavailable(t *testing.T) {
	cause := errors.New("execution reverted: ERR_MAX_IN_RATIO")
	req := Request{
		Name:    "calcInGivenOut",
		Path:    units.NewPath(pool, dai, usdc),
		Inputs:  []Input{{Value: decimal.NewFromInt(1), Role: units.RolePathLast}},
		Outputs: []Output{{Index: 0, Role: units.RolePathFirst}},
		Call: func(context.Context, []*big.Int) ([]*big.Int, error) {
			return nil, cause
		},
	}

	_, err := calculator().Quote(context.Background(), req)
	require.Error(t, err)
	kind, _ := dataxerr.KindOf(err)
	assert.Equal(t, dataxerr.QuoteUnavailable, kind)
	assert.True(t, errors.Is(err, cause))
}

func TestMissingOutputIndex(t *testing.T) {
	req := Request{
		Path:    units.NewPath(pool, dai),
		Outputs: []Output{{Index: 2, Role: units.RolePathFirst}},
		Call: func(context.Context, []*big.Int) ([]*big.Int, error) {
			return []*big.Int{big.NewInt(1)}, nil
		},
	}
	_, err := calculator().Quote(context.Background(), req)
	assert.True(t, dataxerr.HasKind(err, dataxerr.QuoteUnavailable))
}

func TestUnknownDecimalsIsQuoteUnavailable(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000a9")
	called := false
	req := Request{
		Path:    units.NewPath(pool, other),
		Inputs:  []Input{{Value: decimal.NewFromInt(1), Role: units.RolePathFirst}},
		Outputs: []Output{{Index: 0, Role: units.RolePathFirst}},
		Call: func(context.Context, []*big.Int) ([]*big.Int, error) {
			called = true
			return nil, nil
		},
	}
	_, err := calculator().Quote(context.Background(), req)
	assert.True(t, dataxerr.HasKind(err, dataxerr.QuoteUnavailable))
	assert.False(t, called)
}
