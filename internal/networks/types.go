package networks

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config is the on-disk shape of the network table.
type Config struct {
	Networks     map[string]NetworkConfig `json:"networks" yaml:"networks" mapstructure:"networks"`
	PreferredRPC string                   `json:"preferredRPC" yaml:"preferredRPC" mapstructure:"preferredRPC"`
}

// NetworkConfig describes one chain, its RPC endpoints and DataX contract addresses.
type NetworkConfig struct {
	Name        string    `json:"name" yaml:"name" mapstructure:"name"`
	ChainID     uint64    `json:"chainId" yaml:"chainId" mapstructure:"chainId"`
	ChainIDHex  string    `json:"chainIdHex" yaml:"chainIdHex" mapstructure:"chainIdHex"`
	RPCs        []RPC     `json:"rpcs" yaml:"rpcs" mapstructure:"rpcs"`
	Explorer    string    `json:"explorer" yaml:"explorer" mapstructure:"explorer"`
	SubgraphURI string    `json:"subgraphUri" yaml:"subgraphUri" mapstructure:"subgraphUri"`
	InfuraSlug  string    `json:"infuraSlug" yaml:"infuraSlug" mapstructure:"infuraSlug"`
	Contracts   Contracts `json:"contracts" yaml:"contracts" mapstructure:"contracts"`
	Gas         GasConfig `json:"gas" yaml:"gas" mapstructure:"gas"`
	Trading     Trading   `json:"trading" yaml:"trading" mapstructure:"trading"`
}

type RPC struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
	WSS  string `json:"wss" yaml:"wss" mapstructure:"wss"`
}

type Contracts struct {
	OceanToken       string `json:"oceanToken" yaml:"oceanToken" mapstructure:"oceanToken"`
	PoolFactory      string `json:"poolFactory" yaml:"poolFactory" mapstructure:"poolFactory"`
	DatatokenFactory string `json:"datatokenFactory" yaml:"datatokenFactory" mapstructure:"datatokenFactory"`
	StakeRouter      string `json:"stakeRouter" yaml:"stakeRouter" mapstructure:"stakeRouter"`
	SwapAdapter      string `json:"swapAdapter" yaml:"swapAdapter" mapstructure:"swapAdapter"`
	WETH             string `json:"weth" yaml:"weth" mapstructure:"weth"`
}

type GasConfig struct {
	DefaultGasLimit     uint64        `json:"defaultGasLimit" yaml:"defaultGasLimit" mapstructure:"defaultGasLimit"`
	MarginPercent       *uint64       `json:"marginPercent" yaml:"marginPercent" mapstructure:"marginPercent"`
	FeeMultiplier       string        `json:"feeMultiplier" yaml:"feeMultiplier" mapstructure:"feeMultiplier"`
	EstimateFallback    *bool         `json:"estimateFallback" yaml:"estimateFallback" mapstructure:"estimateFallback"`
	ConfirmationTimeout time.Duration `json:"confirmationTimeout" yaml:"confirmationTimeout" mapstructure:"confirmationTimeout"`
	PollInterval        time.Duration `json:"pollInterval" yaml:"pollInterval" mapstructure:"pollInterval"`
}

type Trading struct {
	MaxTradeFraction string `json:"maxTradeFraction" yaml:"maxTradeFraction" mapstructure:"maxTradeFraction"`
	InfiniteApproval bool   `json:"infiniteApproval" yaml:"infiniteApproval" mapstructure:"infiniteApproval"`
}

// ContractName selects one address of Contracts.
type ContractName string

const (
	OceanToken       ContractName = "oceanToken"
	PoolFactory      ContractName = "poolFactory"
	DatatokenFactory ContractName = "datatokenFactory"
	StakeRouter      ContractName = "stakeRouter"
	SwapAdapter      ContractName = "swapAdapter"
	WETH             ContractName = "weth"
)

// GasPolicy is the validated gas configuration of a network.
type GasPolicy struct {
	DefaultGasLimit     uint64
	MarginPercent       uint64
	FeeMultiplier       decimal.Decimal
	EstimateFallback    bool
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
}

// Network is a resolved, validated network. Values are copied out of the
// registry so callers cannot mutate shared state.
type Network struct {
	Name        string
	ChainID     uint64
	ChainIDHex  string
	Explorer    string
	SubgraphURI string

	Gas              GasPolicy
	MaxTradeFraction decimal.Decimal
	InfiniteApproval bool

	rpcs      []RPC
	contracts map[ContractName]common.Address
}
