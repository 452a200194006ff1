package networks

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dataxfi/datax-go/internal/constants"
)

// chainDefaults fills names and explorers the config leaves empty.
var chainDefaults = map[uint64]struct {
	Name     string
	Explorer string
}{
	1:    {"mainnet", "https://etherscan.io"},
	4:    {"rinkeby", "https://rinkeby.etherscan.io"},
	56:   {"bsc", "https://bscscan.com"},
	137:  {"polygon", "https://polygonscan.com"},
	246:  {"energyweb", "https://explorer.energyweb.org"},
	1285: {"moonriver", "https://moonriver.moonscan.io"},
	8996: {"development", ""},
}

const (
	defaultConfirmationTimeout = 5 * time.Minute
	defaultPollInterval        = 750 * time.Millisecond
)

func applyGasDefaults(g GasConfig) (GasPolicy, error) {
	p := GasPolicy{
		DefaultGasLimit:     g.DefaultGasLimit,
		MarginPercent:       constants.DefaultMarginPercent,
		EstimateFallback:    true,
		ConfirmationTimeout: g.ConfirmationTimeout,
		PollInterval:        g.PollInterval,
	}
	if p.DefaultGasLimit == 0 {
		p.DefaultGasLimit = constants.DefaultGasLimit
	}
	// zero is a valid margin, so only an absent value takes the default
	if g.MarginPercent != nil {
		p.MarginPercent = *g.MarginPercent
	}
	if g.EstimateFallback != nil {
		p.EstimateFallback = *g.EstimateFallback
	}
	if p.ConfirmationTimeout <= 0 {
		p.ConfirmationTimeout = defaultConfirmationTimeout
	}
	if p.PollInterval <= 0 {
		p.PollInterval = defaultPollInterval
	}

	mult := g.FeeMultiplier
	if mult == "" {
		mult = constants.DefaultFeeMultiplier
	}
	m, err := decimal.NewFromString(mult)
	if err != nil {
		return GasPolicy{}, err
	}
	if !m.IsPositive() {
		return GasPolicy{}, errNonPositive("gas.feeMultiplier", mult)
	}
	p.FeeMultiplier = m
	return p, nil
}

func parseTradeFraction(raw string) (decimal.Decimal, error) {
	if raw == "" {
		raw = constants.DefaultMaxTradeFraction
	}
	f, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !f.IsPositive() || f.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, errNonPositive("trading.maxTradeFraction", raw)
	}
	return f, nil
}
