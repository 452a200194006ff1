package fakechain

import (
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dataxfi/datax-go/internal/bindings"
)

// Token is an in-memory ERC-20.
type Token struct {
	Address  common.Address
	Decimals uint8
	Symbol   string

	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	ApproveCalls  int
	DecimalsCalls int
	// FailApprove makes approve revert.
	FailApprove bool
}

// DeployToken registers an ERC-20 at addr.
func (c *Chain) DeployToken(addr common.Address, symbol string, decimals uint8) *Token {
	t := &Token{
		Address:    addr,
		Decimals:   decimals,
		Symbol:     symbol,
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]map[common.Address]*big.Int{},
	}
	meta := bindings.ERC20MetaData
	c.Handle(addr, meta, "name", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{t.Symbol + " Token"}, nil
	})
	c.Handle(addr, meta, "symbol", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{t.Symbol}, nil
	})
	c.Handle(addr, meta, "decimals", func(Tx, []interface{}) ([]interface{}, error) {
		t.mu.Lock()
		t.DecimalsCalls++
		t.mu.Unlock()
		return []interface{}{t.Decimals}, nil
	})
	c.Handle(addr, meta, "totalSupply", func(Tx, []interface{}) ([]interface{}, error) {
		return []interface{}{t.TotalSupply()}, nil
	})
	c.Handle(addr, meta, "balanceOf", func(_ Tx, args []interface{}) ([]interface{}, error) {
		return []interface{}{t.BalanceOf(args[0].(common.Address))}, nil
	})
	c.Handle(addr, meta, "allowance", func(_ Tx, args []interface{}) ([]interface{}, error) {
		return []interface{}{t.Allowance(args[0].(common.Address), args[1].(common.Address))}, nil
	})
	c.Handle(addr, meta, "approve", func(tx Tx, args []interface{}) ([]interface{}, error) {
		if t.FailApprove {
			return nil, errors.New("approve disabled")
		}
		if !tx.DryRun {
			t.mu.Lock()
			t.ApproveCalls++
			t.mu.Unlock()
			t.SetAllowance(tx.From, args[0].(common.Address), args[1].(*big.Int))
		}
		return []interface{}{true}, nil
	})
	c.Handle(addr, meta, "transfer", func(tx Tx, args []interface{}) ([]interface{}, error) {
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		if t.BalanceOf(tx.From).Cmp(amount) < 0 {
			return nil, errors.New("transfer amount exceeds balance")
		}
		if !tx.DryRun {
			t.Move(tx.From, to, amount)
		}
		return []interface{}{true}, nil
	})
	return t
}

func (t *Token) Mint(to common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
}

func (t *Token) BalanceOf(owner common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(owner)
}

func (t *Token) balanceLocked(owner common.Address) *big.Int {
	if v, ok := t.balances[owner]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum := new(big.Int)
	for _, v := range t.balances {
		sum.Add(sum, v)
	}
	return sum
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (t *Token) SetAllowance(owner, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = map[common.Address]*big.Int{}
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

// Move transfers without allowance checks.
func (t *Token) Move(from, to common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[from] = new(big.Int).Sub(t.balanceLocked(from), amount)
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
}

// TransferFrom spends spender's allowance over owner's tokens.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int, dryRun bool) error {
	if t.BalanceOf(from).Cmp(amount) < 0 {
		return errors.Newf("%s: transfer amount exceeds balance", t.Symbol)
	}
	allowed := t.Allowance(from, spender)
	if allowed.Cmp(amount) < 0 {
		return errors.Newf("%s: transfer amount exceeds allowance", t.Symbol)
	}
	if dryRun {
		return nil
	}
	t.SetAllowance(from, spender, new(big.Int).Sub(allowed, amount))
	t.Move(from, to, amount)
	return nil
}
