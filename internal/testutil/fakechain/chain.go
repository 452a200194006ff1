// Package fakechain is an in-memory node for tests. Contracts are Go handlers
// keyed by address and ABI method; calldata is decoded with the same ABIs the
// SDK packs with, so a test exercises the real encoding path.
package fakechain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Tx describes the transaction a handler runs in. DryRun is set during gas
// estimation; handlers must validate but not mutate state when it is true.
type Tx struct {
	From   common.Address
	Value  *big.Int
	DryRun bool
}

// Handler implements one contract method. Read-only calls run with DryRun set.
type Handler func(tx Tx, args []interface{}) ([]interface{}, error)

type boundContract struct {
	abis     map[*bind.MetaData]*abi.ABI
	handlers map[string]Handler
}

func (bc *boundContract) method(selector []byte) (*abi.Method, error) {
	for _, a := range bc.abis {
		if m, err := a.MethodById(selector); err == nil {
			return m, nil
		}
	}
	return nil, errors.Newf("no method with id %x", selector)
}

type Chain struct {
	mu sync.Mutex

	chainID   *big.Int
	block     uint64
	contracts map[common.Address]*boundContract
	native    map[common.Address]*big.Int
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*types.Receipt
	logs      []types.Log
	pending   []types.Log

	// BaseFee switches fee suggestions to EIP-1559 when set.
	BaseFee  *big.Int
	GasPrice *big.Int
	TipCap   *big.Int

	// EstimateErr, when set, is returned by every EstimateGas call.
	EstimateErr error
	GasEstimate uint64

	// SendErr, when set, is returned by every SendTransaction call.
	SendErr error

	// WithholdReceipts leaves sent transactions pending forever.
	WithholdReceipts bool

	EstimateCalls int
	Sent          []*types.Transaction
}

func New(chainID int64) *Chain {
	return &Chain{
		chainID:     big.NewInt(chainID),
		block:       100,
		contracts:   map[common.Address]*boundContract{},
		native:      map[common.Address]*big.Int{},
		nonces:      map[common.Address]uint64{},
		receipts:    map[common.Hash]*types.Receipt{},
		GasPrice:    big.NewInt(1_000_000_000),
		TipCap:      big.NewInt(1_000_000_000),
		GasEstimate: 100_000,
	}
}

// Handle registers fn as method of the contract at addr described by meta.
func (c *Chain) Handle(addr common.Address, meta *bind.MetaData, method string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bc := c.contracts[addr]
	if bc == nil {
		bc = &boundContract{abis: map[*bind.MetaData]*abi.ABI{}, handlers: map[string]Handler{}}
		c.contracts[addr] = bc
	}
	parsed, ok := bc.abis[meta]
	if !ok {
		var err error
		if parsed, err = meta.GetAbi(); err != nil {
			panic(err)
		}
		bc.abis[meta] = parsed
	}
	if _, ok := parsed.Methods[method]; !ok {
		panic("fakechain: unknown method " + method)
	}
	bc.handlers[method] = fn
}

// SetNative sets an account's native coin balance.
func (c *Chain) SetNative(addr common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[addr] = new(big.Int).Set(amount)
}

func (c *Chain) Native(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nativeLocked(addr)
}

// creditLocked pays native coin from a handler, which already holds mu.
func (c *Chain) creditLocked(addr common.Address, amount *big.Int) {
	c.native[addr] = new(big.Int).Add(c.nativeLocked(addr), amount)
}

func (c *Chain) nativeLocked(addr common.Address) *big.Int {
	if v, ok := c.native[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// SentTo counts sent transactions whose calldata targets method on addr.
func (c *Chain) SentTo(addr common.Address, method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, tx := range c.Sent {
		if tx.To() == nil || *tx.To() != addr {
			continue
		}
		bc := c.contracts[addr]
		if bc == nil || len(tx.Data()) < 4 {
			continue
		}
		m, err := bc.method(tx.Data()[:4])
		if err == nil && m.Name == method {
			n++
		}
	}
	return n
}

func (c *Chain) dispatch(to *common.Address, data []byte, tx Tx) ([]byte, error) {
	if to == nil {
		return nil, errors.New("contract creation not supported")
	}
	bc := c.contracts[*to]
	if bc == nil {
		// no code: an empty return, like a real node
		return nil, nil
	}
	if len(data) < 4 {
		return nil, errors.New("execution reverted: missing selector")
	}
	m, err := bc.method(data[:4])
	if err != nil {
		return nil, errors.Wrap(err, "execution reverted")
	}
	fn := bc.handlers[m.Name]
	if fn == nil {
		return nil, errors.Newf("execution reverted: %s not implemented", m.Name)
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, errors.Wrapf(err, "execution reverted: decode %s", m.Name)
	}
	outs, err := fn(tx, args)
	if err != nil {
		return nil, errors.Wrap(err, "execution reverted")
	}
	return m.Outputs.Pack(outs...)
}

// emitLocked records a log from a handler running inside a transaction. It is
// kept only if the transaction succeeds.
func (c *Chain) emitLocked(l types.Log) {
	c.pending = append(c.pending, l)
}

// CodeAt reports placeholder code for every address with handlers.
func (c *Chain) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.contracts[addr] == nil {
		return nil, nil
	}
	return []byte{0x60, 0x80}, nil
}

// FilterLogs matches recorded logs on block range, address and positional topics.
func (c *Chain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.Log
	for _, l := range c.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if !topicsMatch(q.Topics, l.Topics) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func containsAddress(set []common.Address, a common.Address) bool {
	for _, v := range set {
		if v == a {
			return true
		}
	}
	return false
}

func topicsMatch(filter [][]common.Hash, topics []common.Hash) bool {
	if len(filter) > len(topics) {
		return false
	}
	for i, alts := range filter {
		if len(alts) == 0 {
			continue
		}
		match := false
		for _, t := range alts {
			if t == topics[i] {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

func (c *Chain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatch(call.To, call.Data, Tx{From: call.From, Value: call.Value, DryRun: true})
}

func (c *Chain) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EstimateCalls++
	if c.EstimateErr != nil {
		return 0, c.EstimateErr
	}
	if call.Value != nil && call.Value.Sign() > 0 && c.nativeLocked(call.From).Cmp(call.Value) < 0 {
		return 0, errors.New("insufficient funds for transfer")
	}
	if _, err := c.dispatch(call.To, call.Data, Tx{From: call.From, Value: call.Value, DryRun: true}); err != nil {
		return 0, err
	}
	return c.GasEstimate, nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.GasPrice), nil
}

func (c *Chain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.TipCap), nil
}

func (c *Chain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := new(big.Int).SetUint64(c.block)
	if number != nil {
		n = new(big.Int).Set(number)
	}
	h := &types.Header{Number: n}
	if c.BaseFee != nil {
		h.BaseFee = new(big.Int).Set(c.BaseFee)
	}
	return h, nil
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	return c.Native(account), nil
}

func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}

	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return errors.Wrap(err, "invalid sender")
	}
	if tx.Nonce() != c.nonces[from] {
		return errors.Newf("nonce too low: have %d want %d", tx.Nonce(), c.nonces[from])
	}
	c.nonces[from]++
	c.Sent = append(c.Sent, tx)

	status := types.ReceiptStatusSuccessful
	value := tx.Value()
	bal := c.nativeLocked(from)
	c.pending = nil
	if bal.Cmp(value) < 0 {
		status = types.ReceiptStatusFailed
	} else if len(tx.Data()) > 0 {
		if _, err := c.dispatch(tx.To(), tx.Data(), Tx{From: from, Value: value}); err != nil {
			status = types.ReceiptStatusFailed
		}
	}
	if status == types.ReceiptStatusSuccessful && value.Sign() > 0 {
		c.native[from] = bal.Sub(bal, value)
	}

	c.block++
	var logs []*types.Log
	if status == types.ReceiptStatusSuccessful {
		for _, l := range c.pending {
			l.BlockNumber = c.block
			l.TxHash = tx.Hash()
			l.Index = uint(len(c.logs))
			c.logs = append(c.logs, l)
			logs = append(logs, &l)
		}
	}
	c.pending = nil
	if !c.WithholdReceipts {
		c.receipts[tx.Hash()] = &types.Receipt{
			Status:      status,
			TxHash:      tx.Hash(),
			BlockNumber: new(big.Int).SetUint64(c.block),
			GasUsed:     tx.Gas() / 2,
			Logs:        logs,
		}
	}
	return nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block, nil
}

// Mine advances the chain by n empty blocks.
func (c *Chain) Mine(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block += n
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

// NewSender creates a funded account and transact opts that sign for it.
func (c *Chain) NewSender(t testing.TB) *bind.TransactOpts {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return c.senderFor(t, key)
}

func (c *Chain) senderFor(t testing.TB, key *ecdsa.PrivateKey) *bind.TransactOpts {
	opts, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	require.NoError(t, err)
	c.SetNative(opts.From, new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)))
	return opts
}
