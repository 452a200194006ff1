package chains

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"
)

// Backend is the node surface the SDK needs. *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type observedHead struct {
	header *types.Header
	at     time.Time
}

// HeaderCache serves the latest header from memory so fee suggestions do not
// cost a round trip each. A head older than maxAge, or one dropped by
// Invalidate after a transaction is mined, is refetched on the next read.
type HeaderCache struct {
	Backend
	maxAge time.Duration
	now    func() time.Time
	head   atomic.Pointer[observedHead]
	loads  atomic.Int64
}

func NewHeaderCache(backend Backend, maxAge time.Duration) *HeaderCache {
	return &HeaderCache{Backend: backend, maxAge: maxAge, now: time.Now}
}

// Refresh fetches the latest header and caches it.
func (h *HeaderCache) Refresh(ctx context.Context) (*types.Header, error) {
	header, err := h.Backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetch latest header")
	}
	h.loads.Add(1)
	h.head.Store(&observedHead{header: header, at: h.now()})
	return header, nil
}

// LatestHeader returns the cached head and how long ago it was fetched.
func (h *HeaderCache) LatestHeader(ctx context.Context) (*types.Header, time.Duration, error) {
	if obs := h.head.Load(); obs != nil {
		age := h.now().Sub(obs.at)
		if age <= h.maxAge {
			return obs.header, age, nil
		}
		log.Debug("cached header is stale", "block", obs.header.Number, "age", age)
	}
	header, err := h.Refresh(ctx)
	if err != nil {
		return nil, 0, err
	}
	return header, 0, nil
}

func (h *HeaderCache) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if number != nil {
		return h.Backend.HeaderByNumber(ctx, number)
	}
	header, _, err := h.LatestHeader(ctx)
	return header, err
}

// Invalidate drops the cached head. The next read goes to the node.
func (h *HeaderCache) Invalidate() {
	h.head.Store(nil)
}

// Loads counts the headers fetched from the node.
func (h *HeaderCache) Loads() int64 { return h.loads.Load() }

// Run refreshes the head every interval until ctx is done. A failed refresh
// is retried a few times and then left to the next tick; readers fall back to
// a synchronous fetch once the head is stale.
func (h *HeaderCache) Run(ctx context.Context, interval time.Duration) {
	cfg := retry.DefaultConfig()
	cfg.MaxNumRetries = 3
	cfg.InitialDelayBeforeRetrying = interval / 10
	cfg.MaxDelayBeforeRetrying = interval

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("header refresh exiting", "loads", h.Loads())
			return
		case <-ticker.C:
			_, err := retry.Retry(ctx, cfg,
				func(ctx context.Context) ([]interface{}, error) {
					_, err := h.Refresh(ctx)
					return nil, err
				},
				nil,
				"refresh latest header")
			if err != nil && ctx.Err() == nil {
				log.Warn("header refresh failed", "error", err)
			}
		}
	}
}
