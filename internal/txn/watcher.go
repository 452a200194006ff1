package txn

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const maxPollDelay = 3 * time.Second

type Watcher struct {
	backend  Backend
	interval time.Duration
}

func NewWatcher(backend Backend, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 750 * time.Millisecond
	}
	return &Watcher{backend: backend, interval: interval}
}

// WaitMined polls for a receipt until the transaction is mined or ctx ends.
// The delay between polls grows up to three seconds.
func (w *Watcher) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	delay := w.interval
	for {
		receipt, err := w.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, errors.Wrapf(err, "receipt for %s", txHash.Hex())
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "timeout waiting for tx %s", txHash.Hex())
		case <-time.After(delay):
			if delay < maxPollDelay {
				delay += 250 * time.Millisecond
			}
		}
	}
}

// WaitOptions controls WaitTransactions.
type WaitOptions struct {
	// Interval between polls; zero uses the watcher's interval.
	Interval time.Duration
	// BlocksToWait is how many blocks must be built on top of the receipt's block.
	BlocksToWait uint64
}

// WaitTransactions waits for every hash in order and returns their receipts.
// Each receipt is returned only after BlocksToWait confirmations.
func (w *Watcher) WaitTransactions(ctx context.Context, hashes []common.Hash, opts WaitOptions) ([]*types.Receipt, error) {
	ww := w
	if opts.Interval > 0 {
		ww = NewWatcher(w.backend, opts.Interval)
	}
	out := make([]*types.Receipt, 0, len(hashes))
	for _, h := range hashes {
		r, err := ww.WaitMined(ctx, h)
		if err != nil {
			return out, err
		}
		if err := ww.waitConfirmations(ctx, r, opts.BlocksToWait); err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (w *Watcher) waitConfirmations(ctx context.Context, r *types.Receipt, blocks uint64) error {
	if blocks == 0 || r.BlockNumber == nil {
		return nil
	}
	target := r.BlockNumber.Uint64() + blocks
	for {
		head, err := w.backend.BlockNumber(ctx)
		if err != nil {
			return errors.Wrap(err, "block number")
		}
		if head >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for %d confirmations of %s", blocks, r.TxHash.Hex())
		case <-time.After(w.interval):
		}
	}
}

// IsSuccessful reports whether a mined receipt executed without reverting.
func IsSuccessful(r *types.Receipt) bool {
	return r != nil && r.Status == types.ReceiptStatusSuccessful
}
