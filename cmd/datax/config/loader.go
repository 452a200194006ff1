package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/dataxfi/datax-go/internal/constants"
	"github.com/dataxfi/datax-go/internal/networks"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

const envPrefix = "DATAX"

// Config is the CLI configuration: the network table plus credentials that
// only the CLI knows about.
type Config struct {
	networks.Config `mapstructure:",squash"`
	InfuraKey       string `mapstructure:"infuraKey"`
}

func infuraRPC(slug string, key string) string {
	return fmt.Sprintf("https://%s.infura.io/v3/%s", slug, key)
}

// Paths lists the directories searched for a datax.yaml, highest priority last.
func Paths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".config", constants.AppName),
		".",
	}
}

// Load reads the embedded defaults, merges every datax.yaml found in paths
// over them and finally applies DATAX_* environment variables.
func Load(paths []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, errors.Wrap(err, "read embedded config")
	}
	for _, dir := range paths {
		file := filepath.Join(dir, constants.ConfigFileName+".yaml")
		if _, err := os.Stat(file); err != nil {
			continue
		}
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "merge %s", file)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("infuraKey", envPrefix+"_INFURA_KEY"); err != nil {
		return nil, errors.Wrap(err, "bind infura key")
	}
	if err := v.BindEnv("preferredRPC", envPrefix+"_PREFERRED_RPC"); err != nil {
		return nil, errors.Wrap(err, "bind preferred rpc")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if cfg.InfuraKey != "" {
		if err := cfg.InjectInfuraKey(cfg.InfuraKey); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// InjectInfuraKey points the first RPC of every network with an Infura slug at
// Infura.
func (c *Config) InjectInfuraKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("infura api key is empty")
	}

	for name, net := range c.Networks {
		if net.InfuraSlug == "" {
			continue
		}
		rpcURL := infuraRPC(net.InfuraSlug, key)
		if len(net.RPCs) == 0 {
			net.RPCs = []networks.RPC{{Name: "Infura", URL: rpcURL}}
		} else {
			// copy before writing so the decoded slice is not shared
			rpcs := append([]networks.RPC(nil), net.RPCs...)
			rpcs[0] = networks.RPC{Name: "Infura", URL: rpcURL}
			net.RPCs = rpcs
		}
		c.Networks[name] = net
	}
	return nil
}
