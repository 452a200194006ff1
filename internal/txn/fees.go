package txn

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/networks"
)

// Fees is either a legacy GasPrice or an EIP-1559 fee cap and tip. BaseFee
// and HeaderAge describe the head the suggestion was priced from.
type Fees struct {
	GasPrice  *big.Int
	GasFeeCap *big.Int
	GasTipCap *big.Int

	BaseFee   *big.Int
	HeaderAge time.Duration
}

func (f Fees) Dynamic() bool { return f.GasFeeCap != nil }

// HeadSource is a cached view of the chain head. A backend that implements it
// prices from the cached header and is invalidated once a transaction mines.
type HeadSource interface {
	LatestHeader(ctx context.Context) (*types.Header, time.Duration, error)
	Invalidate()
}

type FeeOracle struct {
	backend Backend
	policy  networks.GasPolicy
}

func NewFeeOracle(backend Backend, policy networks.GasPolicy) *FeeOracle {
	return &FeeOracle{backend: backend, policy: policy}
}

func (o *FeeOracle) head(ctx context.Context) (*types.Header, time.Duration, error) {
	if hs, ok := o.backend.(HeadSource); ok {
		return hs.LatestHeader(ctx)
	}
	hdr, err := o.backend.HeaderByNumber(ctx, nil)
	return hdr, 0, err
}

// Suggest prices a transaction from the latest header: 2*baseFee+tip on
// EIP-1559 chains, otherwise the fair gas price.
func (o *FeeOracle) Suggest(ctx context.Context) (Fees, error) {
	hdr, age, err := o.head(ctx)
	if err != nil {
		return Fees{}, errors.Wrap(err, "latest header")
	}
	if hdr != nil && hdr.BaseFee != nil {
		tip, err := o.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return Fees{}, errors.Wrap(err, "suggest gas tip cap")
		}
		feeCap := new(big.Int).Mul(hdr.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)
		return Fees{GasFeeCap: feeCap, GasTipCap: tip, BaseFee: new(big.Int).Set(hdr.BaseFee), HeaderAge: age}, nil
	}

	gp, err := o.FairGasPrice(ctx)
	if err != nil {
		return Fees{}, err
	}
	return Fees{GasPrice: gp, HeaderAge: age}, nil
}

// FairGasPrice is the node's suggested gas price times the network's fee multiplier.
func (o *FeeOracle) FairGasPrice(ctx context.Context) (*big.Int, error) {
	gp, err := o.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "suggest gas price")
	}
	mult := o.policy.FeeMultiplier
	if mult.IsZero() {
		return gp, nil
	}
	return decimal.NewFromBigInt(gp, 0).Mul(mult).Truncate(0).BigInt(), nil
}
