package constants

const (
	AppName         = "datax"
	ConfigFileName  = "datax"
	TokensCacheFile = "tokens.json"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// NativeAddr stands in for the chain's native coin wherever a token address is expected.
	NativeAddr  = "0x0000000000000000000000000000000000000000"
	ZeroAddress = NativeAddr

	NativeDecimals = 18
	// RateDecimals is the fixed-point scale of fee rates, weights and spot prices (1e18).
	RateDecimals = 18
	// PoolShareDecimals is the decimals of every pool share token.
	PoolShareDecimals = 18

	DefaultGasLimit      = 1_000_000
	DefaultMarginPercent = 20
	MinGasLimit          = 21_000

	DefaultMaxTradeFraction = "0.5"
	DefaultFeeMultiplier    = "1"

	DefaultSwapDeadlineSeconds = 20 * 60

	// HeaderRefreshMilliseconds is how often the latest block header is polled.
	HeaderRefreshMilliseconds = 4_000
	// HeaderMaxAgeMilliseconds bounds how old a cached header may be before a
	// read fetches a fresh one.
	HeaderMaxAgeMilliseconds = 12_000
)
