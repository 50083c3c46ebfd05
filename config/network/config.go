// Package network holds the static registry of networks the client contracts are deployed to.
package network

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
)

//go:embed networks.yaml
var defaultManifest []byte

// Manifest is the YAML representation of network configuration.
type Manifest struct {
	// A YAML array of networks.
	Networks []Network `yaml:"networks"`
}

// Config is a collection of networks keyed by name. It is immutable once loaded.
type Config struct {
	networks map[string]Network
}

// NewConfig creates a config from networks. Names must be unique.
func NewConfig(networks []Network) (*Config, error) {
	nmap := make(map[string]Network, len(networks))
	for _, n := range networks {
		if _, ok := nmap[n.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate network %q", deployment.ErrConfiguration, n.Name)
		}
		nmap[n.Name] = n
	}

	return &Config{networks: nmap}, nil
}

// Validate ensures every network is valid and that chain ids are unique.
func (c *Config) Validate() error {
	seen := make(map[uint32]string, len(c.networks))
	for _, n := range c.Networks() {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("%w: network %q: %w", deployment.ErrConfiguration, n.Name, err)
		}
		if other, ok := seen[n.ChainID]; ok {
			return fmt.Errorf("%w: networks %q and %q share chain id %d",
				deployment.ErrConfiguration, other, n.Name, n.ChainID)
		}
		seen[n.ChainID] = n.Name
	}

	return nil
}

// Lookup returns the network with the given name.
func (c *Config) Lookup(name string) (Network, error) {
	n, ok := c.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q (known networks: %s)",
			deployment.ErrUnknownNetwork, name, strings.Join(c.Names(), ", "))
	}

	return n, nil
}

// LookupAll returns the networks with the given names, in order.
func (c *Config) LookupAll(names ...string) ([]Network, error) {
	out := make([]Network, 0, len(names))
	for _, name := range names {
		n, err := c.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, nil
}

// Names returns the sorted network names.
func (c *Config) Names() []string {
	return slices.Sorted(maps.Keys(c.networks))
}

// Networks returns all networks sorted by name.
func (c *Config) Networks() []Network {
	out := make([]Network, 0, len(c.networks))
	for _, name := range c.Names() {
		out = append(out, c.networks[name])
	}

	return out
}

// Merge merges another config into the current config, replacing networks with the same name.
func (c *Config) Merge(other *Config) {
	maps.Copy(c.networks, other.networks)
}

// MarshalYAML implements the yaml.Marshaler interface for the Config struct.
func (c *Config) MarshalYAML() (any, error) {
	return Manifest{Networks: c.Networks()}, nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for the Config struct.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var node Manifest
	if err := value.Decode(&node); err != nil {
		return err
	}

	cfg, err := NewConfig(node.Networks)
	if err != nil {
		return err
	}
	*c = *cfg

	return nil
}

// NetworkFilter defines a function type that filters networks based on certain criteria.
type NetworkFilter func(Network) bool

// FilterWith returns a new Config containing only Networks that pass all provided filter functions.
// Filters are applied in sequence (AND logic) - a network must pass all filters to be included.
func (c *Config) FilterWith(filters ...NetworkFilter) *Config {
	networks := c.Networks()
	for _, filter := range filters {
		networks = slices.DeleteFunc(networks, func(n Network) bool {
			return !filter(n)
		})
	}

	// names are already unique
	cfg, _ := NewConfig(networks)

	return cfg
}

// TypesFilter matches networks of the given types.
func TypesFilter(networkTypes ...NetworkType) NetworkFilter {
	return func(n Network) bool {
		return slices.Contains(networkTypes, n.Type)
	}
}

// NamesFilter matches networks with one of the given names.
func NamesFilter(names ...string) NetworkFilter {
	return func(n Network) bool {
		return slices.Contains(names, n.Name)
	}
}

// ChainIDFilter matches the network with the given chain id.
func ChainIDFilter(chainID uint32) NetworkFilter {
	return func(n Network) bool {
		return n.ChainID == chainID
	}
}

// expandURLs replaces ${VAR} references in RPC and explorer URLs.
func (c *Config) expandURLs(expand func(string) string) {
	for name, n := range c.networks {
		rpcs := make([]RPC, len(n.RPCs))
		for i, rpc := range n.RPCs {
			rpc.HTTPURL = expand(rpc.HTTPURL)
			rpc.WSURL = expand(rpc.WSURL)
			rpcs[i] = rpc
		}
		n.RPCs = rpcs
		n.BlockExplorer.APIURL = expand(n.BlockExplorer.APIURL)

		c.networks[name] = n
	}
}

// Load reads the embedded default manifest, then each override file in order. Networks in later
// files replace earlier networks with the same name. Environment variable references in URLs
// are expanded and the result is validated.
func Load(filePaths ...string) (*Config, error) {
	cfg, err := parse(defaultManifest)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default networks manifest: %w", err)
	}

	for _, fp := range filePaths {
		data, err := os.ReadFile(fp)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read networks file: %w", deployment.ErrConfiguration, err)
		}

		fileCfg, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal networks YAML %s: %w",
				deployment.ErrConfiguration, fp, err)
		}

		cfg.Merge(fileCfg)
	}

	cfg.expandURLs(os.ExpandEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate networks configuration: %w", err)
	}

	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := &Config{networks: map[string]Network{}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
