package bindings

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

type ERC20 struct {
	c *contract
}

func NewERC20(address common.Address, caller bind.ContractCaller) (*ERC20, error) {
	c, err := newContract(ERC20MetaData, address, caller)
	if err != nil {
		return nil, err
	}
	return &ERC20{c: c}, nil
}

func (t *ERC20) Address() common.Address { return t.c.address }

func (t *ERC20) Name(ctx context.Context) (string, error) {
	return t.c.callString(ctx, "name")
}

func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	return t.c.callString(ctx, "symbol")
}

func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	res, err := t.c.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	v, ok := res[0].(uint8)
	if !ok {
		return 0, errors.Newf("decimals: unexpected output type %T", res[0])
	}
	return v, nil
}

func (t *ERC20) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.c.callBig(ctx, "totalSupply")
}

func (t *ERC20) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.c.callBig(ctx, "balanceOf", account)
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.c.callBig(ctx, "allowance", owner, spender)
}

func (t *ERC20) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return t.c.pack("approve", spender, amount)
}

func (t *ERC20) PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return t.c.pack("transfer", to, amount)
}
