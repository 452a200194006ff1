// Package units converts between human decimal amounts and on-chain integer base units.
package units

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/dataxerr"
)

// ParseAmount parses a human decimal string such as "1.5" or "0.000001".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, dataxerr.New(dataxerr.InvalidArgument, "empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, dataxerr.Wrap(err, dataxerr.InvalidArgument, "invalid amount %q", s)
	}
	return d, nil
}

// ToBaseUnits scales amount by 10^decimals. Digits beyond the token's precision
// are truncated toward zero. Negative amounts and results that do not fit in a
// uint256 are rejected.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "negative amount %s", amount.String())
	}
	scaled := amount.Shift(int32(decimals)).Truncate(0)
	out := scaled.BigInt()
	if _, overflow := uint256.FromBig(out); overflow {
		return nil, dataxerr.New(dataxerr.InvalidArgument, "amount %s with %d decimals overflows uint256", amount.String(), decimals)
	}
	return out, nil
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

// MaxUint256 returns 2^256-1.
func MaxUint256() *big.Int {
	return new(uint256.Int).SetAllOne().ToBig()
}

// FormatUnitsTrim converts a base-unit amount to a display string with at most
// maxFrac fractional digits and no trailing zeros.
//
//	amount=1234500000000000000, decimals=18 -> "1.2345"
//	amount=1000000000000000000, decimals=18 -> "1"
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if maxFrac < 0 {
		maxFrac = 0
	}
	d := FromBaseUnits(amount, decimals).Truncate(int32(maxFrac))
	return d.String()
}
