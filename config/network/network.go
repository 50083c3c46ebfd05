package network

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm/provider/rpcclient"
)

// NetworkType represents the type of network, which can either be mainnet or testnet.
type NetworkType string

const (
	NetworkTypeMainnet NetworkType = "mainnet"
	NetworkTypeTestnet NetworkType = "testnet"
)

// Network is the static configuration of one EVM network.
type Network struct {
	// Name is the registry key of the network, e.g. "sepolia".
	Name string `yaml:"name"`
	// ChainID is the EVM chain id, also used as the message domain.
	ChainID uint32      `yaml:"chain_id"`
	Type    NetworkType `yaml:"type"`
	// SecurityModule is the interchain security module set on the client of this network.
	SecurityModule common.Address `yaml:"security_module"`
	// Router is the mailbox of the network. When nil the router is resolved from the Hyperlane
	// registry.
	Router        *common.Address `yaml:"router,omitempty"`
	BlockExplorer BlockExplorer   `yaml:"block_explorer"`
	RPCs          []RPC           `yaml:"rpcs"`
}

// Validate checks that all required fields are set.
func (n *Network) Validate() error {
	if n.Name == "" {
		return errors.New("name is required")
	}
	if n.ChainID == 0 {
		return errors.New("chain id is required")
	}
	if n.Type != "" && n.Type != NetworkTypeMainnet && n.Type != NetworkTypeTestnet {
		return fmt.Errorf("unknown network type %q", n.Type)
	}
	if n.SecurityModule == (common.Address{}) {
		return errors.New("security module is required")
	}
	if n.Router != nil && *n.Router == (common.Address{}) {
		return errors.New("router must not be the zero address")
	}
	if len(n.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	return nil
}

// ChainSelector returns the chain-selectors selector of the network.
func (n *Network) ChainSelector() (uint64, error) {
	return chainsel.SelectorFromChainId(uint64(n.ChainID))
}

// ChainSelectorName returns the chain-selectors name of the network, e.g.
// "ethereum-testnet-sepolia".
func (n *Network) ChainSelectorName() (string, error) {
	selector, err := n.ChainSelector()
	if err != nil {
		return "", err
	}

	return chainsel.GetChainNameFromSelector(selector)
}

// RPCURL returns the preferred endpoint of the first RPC.
func (n *Network) RPCURL() string {
	if len(n.RPCs) == 0 {
		return ""
	}

	return n.RPCs[0].PreferredEndpoint()
}

// RPCConfig converts the RPCs of the network for the multi-client.
func (n *Network) RPCConfig() (rpcclient.RPCConfig, error) {
	rpcs := make([]rpcclient.RPC, 0, len(n.RPCs))
	for _, r := range n.RPCs {
		scheme, err := rpcclient.URLSchemePreferenceFromString(r.PreferredURLScheme)
		if err != nil {
			return rpcclient.RPCConfig{}, fmt.Errorf("rpc %s: %w", r.RPCName, err)
		}

		rpcs = append(rpcs, rpcclient.RPC{
			Name:               r.RPCName,
			WSURL:              r.WSURL,
			HTTPURL:            r.HTTPURL,
			PreferredURLScheme: scheme,
		})
	}

	return rpcclient.RPCConfig{
		ChainName: n.Name,
		ChainID:   uint64(n.ChainID),
		RPCs:      rpcs,
	}, nil
}

// RPC represents an RPC configuration in the flattened structure
type RPC struct {
	RPCName            string `yaml:"rpc_name"`
	PreferredURLScheme string `yaml:"preferred_url_scheme"`
	HTTPURL            string `yaml:"http_url"`
	WSURL              string `yaml:"ws_url,omitempty"`
}

// PreferredEndpoint returns the correct endpoint based on the preferred URL scheme. By default, it
// returns the HTTP URL.
func (rpc *RPC) PreferredEndpoint() string {
	if rpc.PreferredURLScheme == "ws" {
		return rpc.WSURL
	}

	return rpc.HTTPURL
}

// BlockExplorer is the explorer used to verify sources.
type BlockExplorer struct {
	Type string `yaml:"type"`
	// URL is the browser URL, used to print links.
	URL string `yaml:"url"`
	// APIURL is the Etherscan compatible API endpoint.
	APIURL string `yaml:"api_url"`
	// APIKey is usually left empty in files and provided through the environment.
	APIKey string `yaml:"api_key,omitempty"`
}

// AddressURL returns the explorer page of addr, or "" when no explorer is configured.
func (b BlockExplorer) AddressURL(addr common.Address) string {
	if b.URL == "" {
		return ""
	}

	return fmt.Sprintf("%s/address/%s", b.URL, addr.Hex())
}
