package networks

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dataxfi/datax-go/internal/dataxerr"
)

// Registry maps chain ids to validated networks. It is immutable after NewRegistry.
type Registry struct {
	byChain      map[uint64]Network
	byName       map[string]uint64
	preferredRPC string
}

// NewRegistry validates every configured network up front so that a bad
// entry fails at startup instead of at first use.
func NewRegistry(cfg Config) (*Registry, error) {
	r := &Registry{
		byChain:      make(map[uint64]Network, len(cfg.Networks)),
		byName:       make(map[string]uint64, len(cfg.Networks)),
		preferredRPC: strings.TrimSpace(cfg.PreferredRPC),
	}
	if len(cfg.Networks) == 0 {
		return nil, dataxerr.New(dataxerr.ConfigResolutionFailed, "no networks configured")
	}

	for key, nc := range cfg.Networks {
		n, err := validate(key, nc)
		if err != nil {
			return nil, dataxerr.Wrap(err, dataxerr.ConfigResolutionFailed, "network %q", key)
		}
		if prev, dup := r.byChain[n.ChainID]; dup {
			return nil, dataxerr.New(dataxerr.ConfigResolutionFailed,
				"chain id %d configured twice (%s, %s)", n.ChainID, prev.Name, n.Name)
		}
		r.byChain[n.ChainID] = n
		r.byName[n.Name] = n.ChainID
	}
	return r, nil
}

// Resolve accepts a chain id as a decimal string ("137") or a hex quantity ("0x89").
func (r *Registry) Resolve(chainID string) (Network, error) {
	id, err := ParseChainID(chainID)
	if err != nil {
		return Network{}, err
	}
	return r.ResolveChainID(id)
}

func (r *Registry) ResolveChainID(id uint64) (Network, error) {
	n, ok := r.byChain[id]
	if !ok {
		return Network{}, dataxerr.New(dataxerr.ConfigResolutionFailed, "chain id %d is not supported", id)
	}
	return n.clone(), nil
}

func (r *Registry) ResolveName(name string) (Network, error) {
	id, ok := r.byName[normalizeNetworkKey(name)]
	if !ok {
		return Network{}, dataxerr.New(dataxerr.ConfigResolutionFailed, "network %q is not configured", name)
	}
	return r.ResolveChainID(id)
}

func (r *Registry) PreferredRPC() string { return r.preferredRPC }

// Networks lists every network ordered by chain id.
func (r *Registry) Networks() []Network {
	out := make([]Network, 0, len(r.byChain))
	for _, n := range r.byChain {
		out = append(out, n.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// ParseChainID parses a decimal or 0x-prefixed hex chain id.
func ParseChainID(s string) (uint64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, dataxerr.New(dataxerr.ConfigResolutionFailed, "missing chain id")
	}
	var (
		id  uint64
		err error
	)
	if strings.HasPrefix(s, "0x") {
		id, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		id, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil || id == 0 {
		return 0, dataxerr.New(dataxerr.ConfigResolutionFailed, "invalid chain id %q", s)
	}
	return id, nil
}

// ChainIDHex formats id as a hex quantity.
func ChainIDHex(id uint64) string {
	return "0x" + new(big.Int).SetUint64(id).Text(16)
}

// Contract returns the configured address of name, failing when the network
// has none.
func (n Network) Contract(name ContractName) (common.Address, error) {
	addr, ok := n.contracts[name]
	if !ok {
		return common.Address{}, dataxerr.New(dataxerr.ConfigResolutionFailed,
			"no %s address configured for %s (chain %d)", name, n.Name, n.ChainID)
	}
	return addr, nil
}

// WithContract returns a copy of n with name set to addr.
func (n Network) WithContract(name ContractName, addr common.Address) Network {
	out := n.clone()
	out.contracts[name] = addr
	return out
}

// RPCs returns the endpoints in configured order.
func (n Network) RPCs() []RPC {
	return append([]RPC(nil), n.rpcs...)
}

// RPC picks the endpoint called preferred, else the first one.
func (n Network) RPC(preferred string) (RPC, error) {
	if len(n.rpcs) == 0 {
		return RPC{}, dataxerr.New(dataxerr.ConfigResolutionFailed, "no rpc configured for %s", n.Name)
	}
	if preferred != "" {
		for _, r := range n.rpcs {
			if strings.EqualFold(r.Name, preferred) {
				return r, nil
			}
		}
	}
	return n.rpcs[0], nil
}

func (n Network) clone() Network {
	out := n
	out.rpcs = append([]RPC(nil), n.rpcs...)
	out.contracts = make(map[ContractName]common.Address, len(n.contracts))
	for k, v := range n.contracts {
		out.contracts[k] = v
	}
	return out
}

func validate(key string, nc NetworkConfig) (Network, error) {
	name := normalizeNetworkKey(nc.Name)
	if name == "" {
		name = normalizeNetworkKey(key)
	}

	chainID := nc.ChainID
	hexID := normalizeChainIdHex(nc.ChainIDHex)
	if hexID != "" {
		parsed, err := ParseChainID(hexID)
		if err != nil {
			return Network{}, err
		}
		if chainID != 0 && chainID != parsed {
			return Network{}, errors.Newf("chainId %d does not match chainIdHex %s", chainID, hexID)
		}
		chainID = parsed
	}
	if chainID == 0 {
		return Network{}, errors.New("chainId is required")
	}

	n := Network{
		Name:        name,
		ChainID:     chainID,
		ChainIDHex:  ChainIDHex(chainID),
		Explorer:    strings.TrimSpace(nc.Explorer),
		SubgraphURI: strings.TrimSpace(nc.SubgraphURI),
		rpcs:        normalizeRPCs(nc.RPCs),
		contracts:   map[ContractName]common.Address{},
	}
	if d, ok := chainDefaults[chainID]; ok {
		if n.Name == "" {
			n.Name = d.Name
		}
		if n.Explorer == "" {
			n.Explorer = d.Explorer
		}
	}
	if n.Name == "" {
		return Network{}, errors.New("name is required")
	}
	if len(n.rpcs) == 0 {
		return Network{}, errors.New("at least one rpc url is required")
	}

	for cname, raw := range map[ContractName]string{
		OceanToken:       nc.Contracts.OceanToken,
		PoolFactory:      nc.Contracts.PoolFactory,
		DatatokenFactory: nc.Contracts.DatatokenFactory,
		StakeRouter:      nc.Contracts.StakeRouter,
		SwapAdapter:      nc.Contracts.SwapAdapter,
		WETH:             nc.Contracts.WETH,
	} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := normalizeAddress(raw)
		if err != nil {
			return Network{}, errors.Wrapf(err, "contracts.%s", cname)
		}
		n.contracts[cname] = addr
	}

	gas, err := applyGasDefaults(nc.Gas)
	if err != nil {
		return Network{}, errors.Wrap(err, "gas")
	}
	n.Gas = gas

	frac, err := parseTradeFraction(nc.Trading.MaxTradeFraction)
	if err != nil {
		return Network{}, errors.Wrap(err, "trading")
	}
	n.MaxTradeFraction = frac
	n.InfiniteApproval = nc.Trading.InfiniteApproval

	return n, nil
}

func errNonPositive(field, raw string) error {
	return errors.Newf("%s must be in range, got %q", field, raw)
}

func normalizeAddress(raw string) (common.Address, error) {
	a := strings.TrimSpace(raw)
	if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
		a = "0x" + a
	}
	if !common.IsHexAddress(a) {
		return common.Address{}, errors.Newf("invalid address %q", raw)
	}
	return common.HexToAddress(a), nil
}

func normalizeNetworkKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeChainIdHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}

func normalizeRPCs(in []RPC) []RPC {
	out := make([]RPC, 0, len(in))
	seen := map[string]bool{}
	for _, r := range in {
		r.Name = strings.TrimSpace(r.Name)
		r.URL = strings.TrimSpace(r.URL)
		r.WSS = strings.TrimSpace(r.WSS)
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
