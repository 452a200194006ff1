// Package tokens reads ERC-20 metadata and balances and guards allowances
// before a spender pulls funds.
package tokens

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/bindings"
	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/txn"
	"github.com/dataxfi/datax-go/internal/units"
)

// Backend is the read surface the registry needs.
type Backend interface {
	bind.ContractCaller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

var native = common.HexToAddress(constants.NativeAddr)

// IsNative reports whether token is the native coin sentinel.
func IsNative(token common.Address) bool { return token == native }

type Registry struct {
	backend          Backend
	submitter        txn.Submitter
	chainID          uint64
	nativeSymbol     string
	infiniteApproval bool
	store            *Store

	mu    sync.RWMutex
	cache map[common.Address]Token
}

// NewRegistry builds a registry for one network. store may be nil.
func NewRegistry(backend Backend, submitter txn.Submitter, network networks.Network, store *Store) *Registry {
	return &Registry{
		backend:          backend,
		submitter:        submitter,
		chainID:          network.ChainID,
		nativeSymbol:     nativeSymbol(network.ChainID),
		infiniteApproval: network.InfiniteApproval,
		store:            store,
		cache:            map[common.Address]Token{},
	}
}

func nativeSymbol(chainID uint64) string {
	switch chainID {
	case 56:
		return "BNB"
	case 137:
		return "MATIC"
	case 246:
		return "EWT"
	case 1285:
		return "MOVR"
	default:
		return "ETH"
	}
}

// Decimals implements units.DecimalsSource.
func (r *Registry) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	t, err := r.Details(ctx, token)
	if err != nil {
		return 0, err
	}
	return t.Decimals, nil
}

// Details returns symbol, name and decimals of token, looking in memory, then
// the JSON store, then the chain.
func (r *Registry) Details(ctx context.Context, token common.Address) (Token, error) {
	if IsNative(token) {
		return Token{Address: token.Hex(), Symbol: r.nativeSymbol, Name: r.nativeSymbol, Decimals: constants.NativeDecimals}, nil
	}

	r.mu.RLock()
	t, ok := r.cache[token]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	if r.store != nil {
		if t, ok, err := r.store.Get(r.chainID, token); err != nil {
			log.Warn("token cache unreadable", "path", r.store.Path(), "error", err)
		} else if ok {
			r.remember(token, t)
			return t, nil
		}
	}

	t, err := r.fetch(ctx, token)
	if err != nil {
		return Token{}, err
	}
	r.remember(token, t)
	if r.store != nil {
		if err := r.store.Put(r.chainID, t); err != nil {
			log.Warn("token cache not written", "path", r.store.Path(), "token", token.Hex(), "error", err)
		}
	}
	return t, nil
}

func (r *Registry) remember(addr common.Address, t Token) {
	r.mu.Lock()
	r.cache[addr] = t
	r.mu.Unlock()
}

func (r *Registry) fetch(ctx context.Context, token common.Address) (Token, error) {
	erc, err := r.erc20(token)
	if err != nil {
		return Token{}, err
	}
	dec, err := erc.Decimals(ctx)
	if err != nil {
		return Token{}, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "decimals of %s", token.Hex())
	}
	t := Token{Address: token.Hex(), Decimals: dec}
	// symbol and name are optional on old tokens
	if sym, err := erc.Symbol(ctx); err == nil {
		t.Symbol = sym
	} else {
		log.Warn("token symbol unavailable", "token", token.Hex(), "error", err)
	}
	if name, err := erc.Name(ctx); err == nil {
		t.Name = name
	}
	return t, nil
}

func (r *Registry) erc20(token common.Address) (*bindings.ERC20, error) {
	erc, err := bindings.NewERC20(token, r.backend)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "bind erc20 %s", token.Hex())
	}
	return erc, nil
}

// BalanceBase returns owner's balance of token in base units. The native
// sentinel reads the account balance.
func (r *Registry) BalanceBase(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if owner == (common.Address{}) {
		return big.NewInt(0), nil
	}
	if IsNative(token) {
		wei, err := r.backend.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "native balance of %s", owner.Hex())
		}
		return wei, nil
	}
	erc, err := r.erc20(token)
	if err != nil {
		return nil, err
	}
	bal, err := erc.BalanceOf(ctx, owner)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "balanceOf %s on %s", owner.Hex(), token.Hex())
	}
	return bal, nil
}

// Balance returns owner's balance of token in token units.
func (r *Registry) Balance(ctx context.Context, token, owner common.Address) (decimal.Decimal, error) {
	bal, err := r.BalanceBase(ctx, token, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return r.fromBase(ctx, token, bal)
}

func (r *Registry) AllowanceBase(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if IsNative(token) {
		// the native coin is sent as value and never needs approval
		return units.MaxUint256(), nil
	}
	erc, err := r.erc20(token)
	if err != nil {
		return nil, err
	}
	v, err := erc.Allowance(ctx, owner, spender)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "allowance of %s for %s on %s", owner.Hex(), spender.Hex(), token.Hex())
	}
	return v, nil
}

func (r *Registry) Allowance(ctx context.Context, token, owner, spender common.Address) (decimal.Decimal, error) {
	v, err := r.AllowanceBase(ctx, token, owner, spender)
	if err != nil {
		return decimal.Zero, err
	}
	return r.fromBase(ctx, token, v)
}

// CheckIfApproved reports whether spender may already pull amount from owner.
func (r *Registry) CheckIfApproved(ctx context.Context, token, owner, spender common.Address, amount decimal.Decimal) (bool, error) {
	required, err := r.toBase(ctx, token, amount)
	if err != nil {
		return false, err
	}
	v, err := r.AllowanceBase(ctx, token, owner, spender)
	if err != nil {
		return false, err
	}
	return v.Cmp(required) >= 0, nil
}

func (r *Registry) TotalSupply(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	erc, err := r.erc20(token)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := erc.TotalSupply(ctx)
	if err != nil {
		return decimal.Zero, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "totalSupply of %s", token.Hex())
	}
	return r.fromBase(ctx, token, v)
}

// Approve sets spender's allowance to amount.
func (r *Registry) Approve(ctx context.Context, token, spender common.Address, amount decimal.Decimal, sender *bind.TransactOpts) (*types.Receipt, error) {
	v, err := r.toBase(ctx, token, amount)
	if err != nil {
		return nil, err
	}
	return r.approveBase(ctx, token, spender, v, sender)
}

func (r *Registry) approveBase(ctx context.Context, token, spender common.Address, v *big.Int, sender *bind.TransactOpts) (*types.Receipt, error) {
	erc, err := r.erc20(token)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ApprovalFailed, "approve %s", token.Hex())
	}
	data, err := erc.PackApprove(spender, v)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ApprovalFailed, "pack approve")
	}
	receipt, err := r.submitter.Execute(ctx, txn.Call{To: token, Data: data, Method: "approve"}, sender)
	if err != nil {
		return receipt, dataxerr.Wrap(err, dataxerr.ApprovalFailed, "approve %s for %s", token.Hex(), spender.Hex())
	}
	return receipt, nil
}

// EnsureAllowance approves spender only when its allowance is below required.
// The approval is for exactly required unless the network enables infinite
// approval. It returns the approval receipt, or nil when none was needed.
func (r *Registry) EnsureAllowance(ctx context.Context, token, owner, spender common.Address, required decimal.Decimal, sender *bind.TransactOpts) (*types.Receipt, error) {
	if IsNative(token) {
		return nil, nil
	}
	need, err := r.toBase(ctx, token, required)
	if err != nil {
		return nil, err
	}
	have, err := r.AllowanceBase(ctx, token, owner, spender)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ApprovalFailed, "read allowance")
	}
	if have.Cmp(need) >= 0 {
		return nil, nil
	}

	amount := need
	if r.infiniteApproval {
		amount = units.MaxUint256()
	}
	log.Info("approval required",
		"token", token.Hex(),
		"spender", spender.Hex(),
		"allowance", have.String(),
		"required", need.String(),
		"infinite", r.infiniteApproval,
	)
	return r.approveBase(ctx, token, spender, amount, sender)
}

// Transfer sends amount of token (or the native coin) to to.
func (r *Registry) Transfer(ctx context.Context, token, to common.Address, amount decimal.Decimal, sender *bind.TransactOpts) (*types.Receipt, error) {
	v, err := r.toBase(ctx, token, amount)
	if err != nil {
		return nil, err
	}
	if IsNative(token) {
		return r.submitter.Execute(ctx, txn.Call{To: to, Value: v, Method: "transfer"}, sender)
	}
	erc, err := r.erc20(token)
	if err != nil {
		return nil, err
	}
	data, err := erc.PackTransfer(to, v)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.InvalidArgument, "pack transfer")
	}
	return r.submitter.Execute(ctx, txn.Call{To: token, Data: data, Method: "transfer"}, sender)
}

func (r *Registry) toBase(ctx context.Context, token common.Address, amount decimal.Decimal) (*big.Int, error) {
	dec, err := r.Decimals(ctx, token)
	if err != nil {
		return nil, err
	}
	return units.ToBaseUnits(amount, dec)
}

func (r *Registry) fromBase(ctx context.Context, token common.Address, v *big.Int) (decimal.Decimal, error) {
	dec, err := r.Decimals(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return units.FromBaseUnits(v, dec), nil
}
