package bindings

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// StakeInfo is the ABI shape of the router's stake tuple, already in base units.
type StakeInfo struct {
	Meta  [4]common.Address
	Uints [3]*big.Int
	Path  []common.Address
}

// FeeSplit is a compound router result: the main amount plus both fee legs.
type FeeSplit struct {
	Amount   *big.Int
	DataxFee *big.Int
	RefFee   *big.Int
}

type StakeRouter struct {
	c *contract
}

func NewStakeRouter(address common.Address, caller bind.ContractCaller) (*StakeRouter, error) {
	c, err := newContract(StakeRouterMetaData, address, caller)
	if err != nil {
		return nil, err
	}
	return &StakeRouter{c: c}, nil
}

func (r *StakeRouter) Address() common.Address { return r.c.address }

func (r *StakeRouter) feeSplit(ctx context.Context, method string, info StakeInfo) (FeeSplit, error) {
	v, err := r.c.callBigs(ctx, method, 3, info)
	if err != nil {
		return FeeSplit{}, err
	}
	return FeeSplit{Amount: v[0], DataxFee: v[1], RefFee: v[2]}, nil
}

func (r *StakeRouter) CalcPoolOutGivenTokenIn(ctx context.Context, info StakeInfo) (FeeSplit, error) {
	return r.feeSplit(ctx, "calcPoolOutGivenTokenIn", info)
}

func (r *StakeRouter) CalcPoolInGivenTokenOut(ctx context.Context, info StakeInfo) (FeeSplit, error) {
	return r.feeSplit(ctx, "calcPoolInGivenTokenOut", info)
}

func (r *StakeRouter) CalcTokenOutGivenPoolIn(ctx context.Context, info StakeInfo) (FeeSplit, error) {
	return r.feeSplit(ctx, "calcTokenOutGivenPoolIn", info)
}

// CalcFees returns the protocol and referrer fee for baseAmount.
func (r *StakeRouter) CalcFees(ctx context.Context, baseAmount *big.Int, feeType string, refFeeRate *big.Int) (dataxFee, refFee *big.Int, err error) {
	v, err := r.c.callBigs(ctx, "calcFees", 2, baseAmount, feeType, refFeeRate)
	if err != nil {
		return nil, nil, err
	}
	return v[0], v[1], nil
}

func (r *StakeRouter) ReferralFees(ctx context.Context, referrer, token common.Address) (*big.Int, error) {
	return r.c.callBig(ctx, "referralFees", referrer, token)
}

// PackStake packs one of the four stake/unstake entry points.
func (r *StakeRouter) PackStake(method string, info StakeInfo) ([]byte, error) {
	return r.c.pack(method, info)
}

func (r *StakeRouter) PackClaimRefFees(token common.Address) ([]byte, error) {
	return r.c.pack("claimRefFees", token)
}
