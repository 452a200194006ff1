package txn

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
)

// Call is a packed contract call waiting to be submitted.
type Call struct {
	To     common.Address
	Data   []byte
	Value  *big.Int
	Method string
}

// Submitter is what higher layers need from the executor.
type Submitter interface {
	Execute(ctx context.Context, call Call, sender *bind.TransactOpts) (*types.Receipt, error)
}

type Executor struct {
	backend   Backend
	chainID   *big.Int
	estimator *Estimator
	fees      *FeeOracle
	watcher   *Watcher
	policy    networks.GasPolicy
}

func NewExecutor(backend Backend, network networks.Network) *Executor {
	return &Executor{
		backend:   backend,
		chainID:   new(big.Int).SetUint64(network.ChainID),
		estimator: NewEstimator(backend, network.Gas),
		fees:      NewFeeOracle(backend, network.Gas),
		watcher:   NewWatcher(backend, network.Gas.PollInterval),
		policy:    network.Gas,
	}
}

func (x *Executor) Estimator() *Estimator { return x.estimator }

func (x *Executor) Fees() *FeeOracle { return x.fees }

func (x *Executor) Watcher() *Watcher { return x.watcher }

// Execute estimates, prices, signs and submits call from sender, then waits
// for the receipt. Nothing is submitted if estimation fails. A mined but
// reverted transaction returns its receipt together with a TransactionFailed error.
//
// Non-zero sender.GasLimit, GasPrice, GasFeeCap/GasTipCap and Nonce override
// the computed values. sender.Value is ignored; the value travels in call.
func (x *Executor) Execute(ctx context.Context, call Call, sender *bind.TransactOpts) (*types.Receipt, error) {
	if sender == nil || sender.Signer == nil {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "%s: sender with a signer is required", call.Method)
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	to := call.To

	gasLimit := sender.GasLimit
	if gasLimit == 0 {
		var err error
		gasLimit, err = x.estimator.Estimate(ctx, ethereum.CallMsg{
			From:  sender.From,
			To:    &to,
			Value: value,
			Data:  call.Data,
		}, call.Method)
		if err != nil {
			return nil, err
		}
	}

	fees, err := x.feesFor(ctx, sender)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.TransactionFailed, "price %s", call.Method)
	}

	var nonce uint64
	if sender.Nonce != nil {
		nonce = sender.Nonce.Uint64()
	} else if nonce, err = x.backend.PendingNonceAt(ctx, sender.From); err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.TransactionFailed, "nonce for %s", sender.From.Hex())
	}

	var tx *types.Transaction
	if fees.Dynamic() {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   x.chainID,
			Nonce:     nonce,
			GasTipCap: fees.GasTipCap,
			GasFeeCap: fees.GasFeeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      call.Data,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    value,
			Gas:      gasLimit,
			GasPrice: fees.GasPrice,
			Data:     call.Data,
		})
	}

	signed, err := sender.Signer(sender.From, tx)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.TransactionFailed, "sign %s", call.Method)
	}

	log.Info("submitting transaction",
		"method", call.Method,
		"to", to.Hex(),
		"from", sender.From.Hex(),
		"hash", signed.Hash().Hex(),
		"gas", gasLimit,
		"nonce", nonce,
		"baseFee", fees.BaseFee,
		"headerAge", fees.HeaderAge,
	)
	if err := x.backend.SendTransaction(ctx, signed); err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.TransactionFailed, "submit %s", call.Method)
	}

	waitCtx, cancel := context.WithTimeout(ctx, x.policy.ConfirmationTimeout)
	defer cancel()
	receipt, err := x.watcher.WaitMined(waitCtx, signed.Hash())
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.TransactionFailed, "confirm %s", call.Method).
			WithDetail("txHash", signed.Hash().Hex())
	}
	// the head moved past the one this transaction was priced from
	if hs, ok := x.backend.(HeadSource); ok {
		hs.Invalidate()
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		log.Error("transaction reverted", "method", call.Method, "hash", signed.Hash().Hex(), "block", receipt.BlockNumber)
		return receipt, dataxerr.New(dataxerr.TransactionFailed, "%s reverted in tx %s", call.Method, signed.Hash().Hex()).
			WithDetail("txHash", signed.Hash().Hex())
	}

	log.Info("transaction mined", "method", call.Method, "hash", signed.Hash().Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	return receipt, nil
}

func (x *Executor) feesFor(ctx context.Context, sender *bind.TransactOpts) (Fees, error) {
	if sender.GasPrice != nil {
		return Fees{GasPrice: sender.GasPrice}, nil
	}
	if sender.GasFeeCap != nil && sender.GasTipCap != nil {
		return Fees{GasFeeCap: sender.GasFeeCap, GasTipCap: sender.GasTipCap}, nil
	}
	return x.fees.Suggest(ctx)
}
