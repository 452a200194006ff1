// Package txn estimates, prices, signs, submits and confirms transactions.
package txn

import (
	"context"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
)

// Backend is the node surface used to submit and confirm transactions.
type Backend interface {
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

const rpcMethodNotFound = -32601

// Node replies meaning "this node cannot estimate", as opposed to "this call would fail".
var estimateUnsupported = []string{
	"method not found",
	"not supported",
	"not available",
	"does not exist",
}

type Estimator struct {
	backend Backend
	policy  networks.GasPolicy
}

func NewEstimator(backend Backend, policy networks.GasPolicy) *Estimator {
	return &Estimator{backend: backend, policy: policy}
}

// Estimate returns the node's estimate plus the policy margin. A failed
// estimate aborts with GasEstimationFailed unless the node reported that it
// cannot estimate at all and the policy allows the default limit, which then
// gets the same margin.
func (e *Estimator) Estimate(ctx context.Context, msg ethereum.CallMsg, method string) (uint64, error) {
	est, err := e.backend.EstimateGas(ctx, msg)
	if err != nil {
		if e.policy.EstimateFallback && isEstimateUnsupported(err) {
			limit := WithMargin(e.policy.DefaultGasLimit, e.policy.MarginPercent)
			log.Warn("gas estimation unsupported by node, using default limit",
				"method", method, "gasLimit", limit, "error", err)
			return limit, nil
		}
		return 0, dataxerr.Wrap(err, dataxerr.GasEstimationFailed, "estimate gas for %s", method)
	}
	return WithMargin(est, e.policy.MarginPercent), nil
}

// WithMargin adds pct percent to est, never returning less than the 21000 floor.
func WithMargin(est, pct uint64) uint64 {
	u := est + est*pct/100
	if u < constants.MinGasLimit {
		u = constants.MinGasLimit
	}
	return u
}

func isEstimateUnsupported(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == rpcMethodNotFound {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "revert") {
		return false
	}
	for _, s := range estimateUnsupported {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
