// Package quote scales decimal inputs for a read-only contract call and
// unscales the outputs it returns, each by the token its role names.
package quote

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/dataxerr"
	"github.com/dataxfi/datax-go/internal/units"
)

// Input is one call argument and the role that scales it.
type Input struct {
	Value decimal.Decimal
	Role  units.Role
}

// Output selects one value of the call result and the role that unscales it.
type Output struct {
	Index int
	Role  units.Role
}

// CallFunc performs the read-only call with base-unit arguments.
type CallFunc func(ctx context.Context, args []*big.Int) ([]*big.Int, error)

type Request struct {
	// Name labels errors and logs.
	Name    string
	Path    units.Path
	Inputs  []Input
	Outputs []Output
	Call    CallFunc
}

// Result holds up to three outputs in request order. Missing ones are zero.
type Result struct {
	Amount      decimal.Decimal
	ProtocolFee decimal.Decimal
	ReferrerFee decimal.Decimal
}

type Calculator struct {
	scaler *units.Scaler
}

func NewCalculator(scaler *units.Scaler) *Calculator {
	return &Calculator{scaler: scaler}
}

func (c *Calculator) Scaler() *units.Scaler { return c.scaler }

// Quote runs req. Each output is unscaled by its own role, so a quote from an
// 18-decimal token into a 6-decimal token reads back in the 6-decimal unit.
func (c *Calculator) Quote(ctx context.Context, req Request) (Result, error) {
	if len(req.Outputs) == 0 || len(req.Outputs) > 3 {
		return Result{}, dataxerr.New(dataxerr.InvalidArgument, "%s: want 1 to 3 outputs, got %d", req.Name, len(req.Outputs))
	}

	args := make([]*big.Int, len(req.Inputs))
	for i, in := range req.Inputs {
		v, err := c.scaler.ToBase(ctx, req.Path, in.Value, in.Role)
		if err != nil {
			return Result{}, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "%s: scale input %d (%s)", req.Name, i, in.Role)
		}
		args[i] = v
	}

	raw, err := req.Call(ctx, args)
	if err != nil {
		return Result{}, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "%s", req.Name)
	}

	vals := make([]decimal.Decimal, 3)
	for i, out := range req.Outputs {
		if out.Index < 0 || out.Index >= len(raw) || raw[out.Index] == nil {
			return Result{}, dataxerr.New(dataxerr.QuoteUnavailable, "%s: result has no output %d", req.Name, out.Index)
		}
		d, err := c.scaler.FromBase(ctx, req.Path, raw[out.Index], out.Role)
		if err != nil {
			return Result{}, dataxerr.Wrap(err, dataxerr.QuoteUnavailable, "%s: unscale output %d (%s)", req.Name, out.Index, out.Role)
		}
		vals[i] = d
	}
	return Result{Amount: vals[0], ProtocolFee: vals[1], ReferrerFee: vals[2]}, nil
}

// Single is Quote for a call with one output.
func (c *Calculator) Single(ctx context.Context, req Request) (decimal.Decimal, error) {
	res, err := c.Quote(ctx, req)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Amount, nil
}
