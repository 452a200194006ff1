// Package bindings holds typed, hand-maintained bindings for the DataX contracts.
// Read-only methods and log decoding go through a bind.BoundContract;
// state-changing methods only pack calldata so that submission goes through
// one executor.
package bindings

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type contract struct {
	address common.Address
	abi     *abi.ABI
	bound   *bind.BoundContract
}

func newContract(meta *bind.MetaData, address common.Address, caller bind.ContractCaller) (*contract, error) {
	parsed, err := meta.GetAbi()
	if err != nil {
		return nil, errors.Wrap(err, "parse abi")
	}
	if parsed == nil {
		return nil, errors.New("GetABI returned nil")
	}
	return &contract{
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, *parsed, caller, nil, nil),
	}, nil
}

// call returns bind.ErrNoCode, wrapped, when nothing is deployed at the address.
func (c *contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, errors.Wrapf(err, "call %s on %s", method, c.address.Hex())
	}
	return out, nil
}

func (c *contract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return asBig(method, res, 0)
}

func (c *contract) callBigs(ctx context.Context, method string, n int, args ...interface{}) ([]*big.Int, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, n)
	for i := range out {
		if out[i], err = asBig(method, res, i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *contract) callBigSlice(ctx context.Context, method string, args ...interface{}) ([]*big.Int, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, errors.Newf("%s: expected 1 output, got %d", method, len(res))
	}
	return abi.ConvertType(res[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (c *contract) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(res[0], new(common.Address)).(*common.Address), nil
}

func (c *contract) callAddresses(ctx context.Context, method string, args ...interface{}) ([]common.Address, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(res[0], new([]common.Address)).(*[]common.Address), nil
}

func (c *contract) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(res[0], new(bool)).(*bool), nil
}

func (c *contract) callString(ctx context.Context, method string, args ...interface{}) (string, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(res[0], new(string)).(*string), nil
}

func (c *contract) pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	return data, nil
}

// eventID is the topic0 of event, used to build log filters.
func (c *contract) eventID(event string) (common.Hash, error) {
	ev, ok := c.abi.Events[event]
	if !ok {
		return common.Hash{}, errors.Newf("no event %s in abi", event)
	}
	return ev.ID, nil
}

func (c *contract) unpackLog(out interface{}, event string, l types.Log) error {
	if err := c.bound.UnpackLog(out, event, l); err != nil {
		return errors.Wrapf(err, "unpack %s log", event)
	}
	return nil
}

func asBig(method string, res []interface{}, i int) (*big.Int, error) {
	if i >= len(res) {
		return nil, errors.Newf("%s: output %d missing", method, i)
	}
	v, ok := res[i].(*big.Int)
	if !ok {
		return nil, errors.Newf("%s: output %d has type %T", method, i, res[i])
	}
	return v, nil
}
