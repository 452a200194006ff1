package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	"github.com/dataxfi/datax-go"
	dataxconfig "github.com/dataxfi/datax-go/cmd/datax/config"
	"github.com/dataxfi/datax-go/internal/networks"
	"github.com/dataxfi/datax-go/internal/tokens"
	"github.com/dataxfi/datax-go/internal/units"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	chain     string
	configDir string
	noCache   bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "datax",
		Short:         "Read-only queries against DataX and Ocean pools.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.chain, "chain", "137", "chain id, decimal or 0x-prefixed hex")
	root.PersistentFlags().StringVar(&g.configDir, "config-dir", "", "directory holding datax.yaml, searched after the defaults")
	root.PersistentFlags().BoolVar(&g.noCache, "no-token-cache", false, "do not read or write the token metadata cache")

	root.AddCommand(
		newNetworksCmd(g),
		newTokenCmd(g),
		newBalanceCmd(g),
		newQuoteCmd(g),
		newMaxExchangeCmd(g),
		newAmountsOutCmd(g),
		newStakedCmd(g),
	)
	return root
}

func loadConfig(g *globalFlags) (*dataxconfig.Config, error) {
	paths := dataxconfig.Paths()
	if g.configDir != "" {
		paths = append(paths, g.configDir)
	}
	return dataxconfig.Load(paths)
}

func dial(ctx context.Context, g *globalFlags) (*datax.Client, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	var opts []datax.Option
	if !g.noCache {
		store, err := tokens.OpenDefaultStore()
		if err != nil {
			log.Warn("token cache unavailable", "error", err)
		} else {
			opts = append(opts, datax.WithTokenStore(store))
		}
	}
	return datax.Dial(ctx, cfg.Config, g.chain, opts...)
}

func parseAddress(flag, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("--%s: invalid address %q", flag, raw)
	}
	return common.HexToAddress(raw), nil
}

func newNetworksCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the configured networks.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			r, err := networks.NewRegistry(cfg.Config)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range r.Networks() {
				fmt.Fprintf(out, "%-12s %-6d %-8s", n.Name, n.ChainID, n.ChainIDHex)
				for _, name := range []networks.ContractName{networks.OceanToken, networks.StakeRouter, networks.SwapAdapter} {
					if addr, err := n.Contract(name); err == nil {
						fmt.Fprintf(out, " %s=%s", name, addr.Hex())
					}
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func newTokenCmd(g *globalFlags) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show a token's name, symbol and decimals.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := parseAddress("token", token)
			if err != nil {
				return err
			}
			c, err := dial(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer c.Close()
			t, err := c.Tokens.Details(cmd.Context(), addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) decimals=%d\n", t.Name, t.Symbol, t.Decimals)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token address")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newBalanceCmd(g *globalFlags) *cobra.Command {
	var token, owner string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of a token, or of the native coin when --token is omitted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerAddr, err := parseAddress("owner", owner)
			if err != nil {
				return err
			}
			var tokenAddr common.Address
			if token != "" {
				if tokenAddr, err = parseAddress("token", token); err != nil {
					return err
				}
			}
			c, err := dial(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer c.Close()
			bal, err := c.Tokens.Balance(cmd.Context(), tokenAddr, ownerAddr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bal.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token address")
	cmd.Flags().StringVar(&owner, "owner", "", "account address")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newQuoteCmd(g *globalFlags) *cobra.Command {
	var poolAddr, sell, amount string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against an OCEAN/datatoken pool.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parseAddress("pool", poolAddr)
			if err != nil {
				return err
			}
			amt, err := units.ParseAmount(amount)
			if err != nil {
				return err
			}
			c, err := dial(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer c.Close()
			if c.Ocean == nil {
				return fmt.Errorf("%s has no OCEAN token configured", c.Network().Name)
			}
			ctx := cmd.Context()
			switch strings.ToLower(sell) {
			case "ocean":
				dt, err := c.Ocean.GetDtReceived(ctx, p, amt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s OCEAN -> %s DT\n", amt, dt)
			case "dt":
				ocean, err := c.Ocean.GetOceanReceived(ctx, p, amt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s DT -> %s OCEAN\n", amt, ocean)
			default:
				return fmt.Errorf("--sell must be ocean or dt, got %q", sell)
			}
			fee, err := c.Ocean.CalculateSwapFee(ctx, p, amt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swap fee: %s\n", fee)
			return nil
		},
	}
	cmd.Flags().StringVar(&poolAddr, "pool", "", "pool address")
	cmd.Flags().StringVar(&sell, "sell", "ocean", "side sold: ocean or dt")
	cmd.Flags().StringVar(&amount, "amount", "", "amount sold, in token units")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newMaxExchangeCmd(g *globalFlags) *cobra.Command {
	var poolAddr, token string
	cmd := &cobra.Command{
		Use:   "max-exchange",
		Short: "Show the most of a token one operation may move through a pool.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parseAddress("pool", poolAddr)
			if err != nil {
				return err
			}
			t, err := parseAddress("token", token)
			if err != nil {
				return err
			}
			c, err := dial(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer c.Close()
			if c.Ocean == nil {
				return fmt.Errorf("%s has no OCEAN token configured", c.Network().Name)
			}
			m, err := c.Ocean.GetMaxExchange(cmd.Context(), t, p)
			if err != nil {
				return err
			}
			stake, err := c.Ocean.GetMaxStakeAmount(cmd.Context(), p, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "max in: %s\nmax out: %s\nmax stake: %s\n", m.MaxIn, m.MaxOut, stake)
			return nil
		},
	}
	cmd.Flags().StringVar(&poolAddr, "pool", "", "pool address")
	cmd.Flags().StringVar(&token, "token", "", "token bound to the pool")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newAmountsOutCmd(g *globalFlags) *cobra.Command {
	var amount string
	var path []string
	cmd := &cobra.Command{
		Use:   "amounts-out",
		Short: "Quote every hop of a swap route through the swap adapter.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := units.ParseAmount(amount)
			if err != nil {
				return err
			}
			route := make([]common.Address, len(path))
			for i, raw := range path {
				if route[i], err = parseAddress("path", raw); err != nil {
					return err
				}
			}
			c, err := dial(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer c.Close()
			if c.Trade == nil {
				return fmt.Errorf("%s has no swap adapter configured", c.Network().Name)
			}
			amounts, err := c.Trade.GetAmountsOut(cmd.Context(), amt, route)
			if err != nil {
				return err
			}
			for i, a := range amounts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", route[i].Hex(), a)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount of the first token")
	cmd.Flags().StringSliceVar(&path, "path", nil, "comma separated token addresses")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newStakedCmd(g *globalFlags) *cobra.Command {
	var account string
	var fromBlock uint64
	cmd := &cobra.Command{
		Use:   "staked",
		Short: "List the OCEAN pools an account holds shares in.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := parseAddress("account", account)
			if err != nil {
				return err
			}
			c, err := dial(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer c.Close()
			if c.Ocean == nil {
				return fmt.Errorf("%s has no OCEAN token configured", c.Network().Name)
			}
			pools, err := c.Ocean.GetAllStakedPools(cmd.Context(), addr, new(big.Int).SetUint64(fromBlock), nil)
			if err != nil {
				return err
			}
			for _, p := range pools {
				fmt.Fprintf(cmd.OutOrStdout(), "%s dt=%s shares=%s\n", p.Pool.Hex(), p.Datatoken.Hex(), p.Shares)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account address")
	cmd.Flags().Uint64Var(&fromBlock, "from-block", 0, "first block scanned for pool joins")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
