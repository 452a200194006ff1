package bindings

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

type SwapAdapter struct {
	c *contract
}

func NewSwapAdapter(address common.Address, caller bind.ContractCaller) (*SwapAdapter, error) {
	c, err := newContract(SwapAdapterMetaData, address, caller)
	if err != nil {
		return nil, err
	}
	return &SwapAdapter{c: c}, nil
}

func (a *SwapAdapter) Address() common.Address { return a.c.address }

func (a *SwapAdapter) WETH(ctx context.Context) (common.Address, error) {
	return a.c.callAddress(ctx, "WETH")
}

// GetAmountsOut returns one amount per path element, in that element's units.
func (a *SwapAdapter) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	return a.c.callBigSlice(ctx, "getAmountsOut", amountIn, path)
}

func (a *SwapAdapter) GetAmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	return a.c.callBigSlice(ctx, "getAmountsIn", amountOut, path)
}

// SwapArgs holds the arguments of the six swap entry points. First and Second
// are the leading uint arguments in ABI order; the ETH-in variants take only
// First since the ETH amount travels as the transaction value.
type SwapArgs struct {
	First    *big.Int
	Second   *big.Int
	Path     []common.Address
	To       common.Address
	Deadline *big.Int
}

func (a *SwapAdapter) PackSwap(method string, s SwapArgs) ([]byte, error) {
	switch method {
	case "swapExactETHForTokens", "swapETHForExactTokens":
		return a.c.pack(method, s.First, s.Path, s.To, s.Deadline)
	default:
		return a.c.pack(method, s.First, s.Second, s.Path, s.To, s.Deadline)
	}
}
