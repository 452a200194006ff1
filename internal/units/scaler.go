package units

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/dataxerr"
)

// Role says which token's decimals scale an amount.
type Role int

const (
	// RolePathFirst amounts are denominated in path[0].
	RolePathFirst Role = iota
	// RolePathLast amounts are denominated in path[len-1].
	RolePathLast
	// RolePoolShares amounts are pool share tokens of Path.Pool.
	RolePoolShares
	// RoleRate values are 1e18 fixed-point: fee rates, weights, spot prices.
	RoleRate
)

func (r Role) String() string {
	switch r {
	case RolePathFirst:
		return "path-first"
	case RolePathLast:
		return "path-last"
	case RolePoolShares:
		return "pool-shares"
	case RoleRate:
		return "rate"
	default:
		return "unknown"
	}
}

// Path is the ordered token route of an operation plus the pool it touches.
type Path struct {
	Tokens []common.Address
	Pool   common.Address
}

func NewPath(pool common.Address, tokens ...common.Address) Path {
	return Path{Tokens: tokens, Pool: pool}
}

func (p Path) First() common.Address { return p.Tokens[0] }

func (p Path) Last() common.Address { return p.Tokens[len(p.Tokens)-1] }

func (p Path) Validate() error {
	if len(p.Tokens) == 0 {
		return dataxerr.New(dataxerr.InvalidArgument, "empty token path")
	}
	return nil
}

// Token resolves the address whose decimals apply to role. ok is false for
// RoleRate, which has fixed decimals.
func (p Path) Token(role Role) (common.Address, bool, error) {
	switch role {
	case RoleRate:
		return common.Address{}, false, nil
	case RolePoolShares:
		if p.Pool == (common.Address{}) {
			return common.Address{}, false, dataxerr.New(dataxerr.InvalidArgument, "pool share amount without a pool")
		}
		return p.Pool, true, nil
	case RolePathFirst, RolePathLast:
		if err := p.Validate(); err != nil {
			return common.Address{}, false, err
		}
		if role == RolePathFirst {
			return p.First(), true, nil
		}
		return p.Last(), true, nil
	default:
		return common.Address{}, false, dataxerr.New(dataxerr.InvalidArgument, "unknown amount role %d", role)
	}
}

// DecimalsSource looks up a token's decimals.
type DecimalsSource interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// Scaler converts amounts using the decimals of the token each role points at.
type Scaler struct {
	source DecimalsSource
}

func NewScaler(source DecimalsSource) *Scaler {
	return &Scaler{source: source}
}

func (s *Scaler) DecimalsFor(ctx context.Context, path Path, role Role) (uint8, error) {
	token, ok, err := path.Token(role)
	if err != nil {
		return 0, err
	}
	if !ok {
		return constants.RateDecimals, nil
	}
	if role == RolePoolShares {
		return constants.PoolShareDecimals, nil
	}
	return s.source.Decimals(ctx, token)
}

func (s *Scaler) ToBase(ctx context.Context, path Path, amount decimal.Decimal, role Role) (*big.Int, error) {
	dec, err := s.DecimalsFor(ctx, path, role)
	if err != nil {
		return nil, err
	}
	return ToBaseUnits(amount, dec)
}

func (s *Scaler) FromBase(ctx context.Context, path Path, v *big.Int, role Role) (decimal.Decimal, error) {
	dec, err := s.DecimalsFor(ctx, path, role)
	if err != nil {
		return decimal.Zero, err
	}
	return FromBaseUnits(v, dec), nil
}
