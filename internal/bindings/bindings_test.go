package bindings_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataxfi/datax-go/internal/bindings"
	"github.com/dataxfi/datax-go/internal/testutil/fakechain"
)

var (
	tokenAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	emptyAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	holderAddr = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	routerAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	poolAddr   = common.HexToAddress("0x00000000000000000000000000000000000000b3")
)

func TestReadsThroughBoundContract(t *testing.T) {
	chain := fakechain.New(fakechain.DevChainID)
	tok := chain.DeployToken(tokenAddr, "OCEAN", 18)
	tok.Mint(holderAddr, big.NewInt(1234))

	erc, err := bindings.NewERC20(tokenAddr, chain)
	require.NoError(t, err)

	bal, err := erc.BalanceOf(context.Background(), holderAddr)
	require.NoError(t, err)
	assert.Equal(t, "1234", bal.String())

	sym, err := erc.Symbol(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OCEAN", sym)

	dec, err := erc.Decimals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint8(18), dec)
}

func TestCallWithoutCodeIsErrNoCode(t *testing.T) {
	chain := fakechain.New(fakechain.DevChainID)

	erc, err := bindings.NewERC20(emptyAddr, chain)
	require.NoError(t, err)

	_, err = erc.BalanceOf(context.Background(), holderAddr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bind.ErrNoCode), "%v", err)
	assert.Contains(t, err.Error(), "balanceOf")
}

func TestJoinsByCallerQuery(t *testing.T) {
	id := crypto.Keccak256Hash([]byte("LOG_JOIN(address,address,uint256)"))

	q, err := bindings.JoinsByCallerQuery([]common.Address{holderAddr, routerAddr}, big.NewInt(7), nil)
	require.NoError(t, err)
	assert.Empty(t, q.Addresses)
	assert.Equal(t, big.NewInt(7), q.FromBlock)
	assert.Nil(t, q.ToBlock)
	require.Len(t, q.Topics, 2)
	assert.Equal(t, []common.Hash{id}, q.Topics[0])
	assert.Equal(t, []common.Hash{
		common.BytesToHash(holderAddr.Bytes()),
		common.BytesToHash(routerAddr.Bytes()),
	}, q.Topics[1])
}

func TestParsePoolJoin(t *testing.T) {
	id := crypto.Keccak256Hash([]byte("LOG_JOIN(address,address,uint256)"))
	l := types.Log{
		Address:     poolAddr,
		Topics:      []common.Hash{id, common.BytesToHash(routerAddr.Bytes()), common.BytesToHash(tokenAddr.Bytes())},
		Data:        common.LeftPadBytes(big.NewInt(5_000).Bytes(), 32),
		BlockNumber: 101,
	}

	ev, err := bindings.ParsePoolJoin(l)
	require.NoError(t, err)
	assert.Equal(t, routerAddr, ev.Caller)
	assert.Equal(t, tokenAddr, ev.TokenIn)
	assert.Equal(t, "5000", ev.TokenAmountIn.String())
	assert.Equal(t, poolAddr, ev.Raw.Address)

	l.Topics[0] = crypto.Keccak256Hash([]byte("LOG_EXIT(address,address,uint256)"))
	_, err = bindings.ParsePoolJoin(l)
	assert.Error(t, err)
}
