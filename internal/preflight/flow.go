// Package preflight runs the checks every state-changing operation performs
// before it submits: balance, allowance, then the max-tradeable bound.
package preflight

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/txn"
)

// Guard reads balances and ensures allowances. *tokens.Registry implements it.
type Guard interface {
	Balance(ctx context.Context, token, owner common.Address) (decimal.Decimal, error)
	EnsureAllowance(ctx context.Context, token, owner, spender common.Address, required decimal.Decimal, sender *bind.TransactOpts) (*types.Receipt, error)
}

// MaxFunc returns the largest amount the operation may move, in the unit of Check.Amount.
type MaxFunc func(ctx context.Context) (decimal.Decimal, error)

// Check describes the funds an operation pulls from Owner.
type Check struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  decimal.Decimal
	// Max is optional; without it the bound is not checked.
	Max MaxFunc
	// MaxAmount is compared against Max instead of Amount when set, for
	// operations bounded by an amount other than the one they spend.
	MaxAmount *decimal.Decimal
	// Measure, when set, converts the bounded amount into the unit Max is
	// expressed in, for example through a swap route ending at the pool.
	Measure func(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	// SkipAllowance is set when the spender moves the funds without an allowance.
	SkipAllowance bool
}

type Flow struct {
	guard     Guard
	submitter txn.Submitter
}

func NewFlow(guard Guard, submitter txn.Submitter) *Flow {
	return &Flow{guard: guard, submitter: submitter}
}

// Submit runs the checks in order and submits call. Nothing is submitted when
// a check fails. An approval sent before a later failure stays on chain and
// the returned error reports it through ApprovalCommitted.
func (f *Flow) Submit(ctx context.Context, chk Check, call txn.Call, sender *bind.TransactOpts) (*types.Receipt, error) {
	op := uuid.NewString()
	if sender == nil {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "%s: sender is required", call.Method)
	}
	if chk.Amount.Sign() < 0 {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "%s: negative amount %s", call.Method, chk.Amount)
	}

	bal, err := f.guard.Balance(ctx, chk.Token, chk.Owner)
	if err != nil {
		return nil, dataxerr.Wrap(err, dataxerr.ChainReadFailed, "%s: read balance", call.Method)
	}
	if bal.LessThan(chk.Amount) {
		log.Warn("insufficient balance", "op", op, "method", call.Method, "token", chk.Token.Hex(),
			"balance", bal.String(), "required", chk.Amount.String())
		return nil, dataxerr.New(dataxerr.InsufficientBalance, "%s: balance %s is below %s", call.Method, bal, chk.Amount).
			WithDetail("token", chk.Token.Hex()).
			WithDetail("balance", bal.String()).
			WithDetail("required", chk.Amount.String())
	}

	var approval *types.Receipt
	if !chk.SkipAllowance {
		approval, err = f.guard.EnsureAllowance(ctx, chk.Token, chk.Owner, chk.Spender, chk.Amount, sender)
		if err != nil {
			return nil, dataxerr.Wrap(err, dataxerr.ApprovalFailed, "%s: allowance for %s", call.Method, chk.Spender.Hex())
		}
	}
	committed := approval != nil
	if committed {
		log.Info("approval committed", "op", op, "method", call.Method, "token", chk.Token.Hex(),
			"spender", chk.Spender.Hex(), "hash", approval.TxHash.Hex())
	}
	fail := func(e *dataxerr.Error) error {
		if committed {
			e = e.WithApprovalCommitted().WithDetail("approvalTx", approval.TxHash.Hex())
		}
		return e
	}

	if chk.Max != nil {
		bounded := chk.Amount
		if chk.MaxAmount != nil {
			bounded = *chk.MaxAmount
		}
		if chk.Measure != nil {
			measured, err := chk.Measure(ctx, bounded)
			if err != nil {
				return nil, fail(dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "%s: measure amount", call.Method))
			}
			bounded = measured
		}
		top, err := chk.Max(ctx)
		if err != nil {
			return nil, fail(dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "%s: max tradeable", call.Method))
		}
		if bounded.GreaterThan(top) {
			log.Warn("amount exceeds max tradeable", "op", op, "method", call.Method,
				"amount", bounded.String(), "max", top.String())
			return nil, fail(dataxerr.New(dataxerr.ExceedsMaxTradeable, "%s: %s exceeds max tradeable %s", call.Method, bounded, top).
				WithDetail("max", top.String()))
		}
	}

	log.Info("pre-flight passed", "op", op, "method", call.Method, "amount", chk.Amount.String())
	receipt, err := f.submitter.Execute(ctx, call, sender)
	if err != nil {
		kind, _ := dataxerr.KindOf(err)
		if kind == "" {
			kind = dataxerr.TransactionFailed
		}
		return receipt, fail(dataxerr.Wrap(err, kind, "%s", call.Method))
	}
	return receipt, nil
}
