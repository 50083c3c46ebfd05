package network

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm/provider/rpcclient"
)

func Test_Network_Validate(t *testing.T) {
	t.Parallel()

	zero := common.Address{}

	tests := []struct {
		name    string
		mutate  func(n *Network)
		wantErr string
	}{
		{name: "valid", mutate: func(*Network) {}},
		{name: "missing name", mutate: func(n *Network) { n.Name = "" }, wantErr: "name is required"},
		{name: "missing chain id", mutate: func(n *Network) { n.ChainID = 0 }, wantErr: "chain id is required"},
		{name: "unknown type", mutate: func(n *Network) { n.Type = "devnet" }, wantErr: `unknown network type "devnet"`},
		{name: "missing ISM", mutate: func(n *Network) { n.SecurityModule = zero }, wantErr: "security module is required"},
		{name: "zero router", mutate: func(n *Network) { n.Router = &zero }, wantErr: "router must not be the zero address"},
		{name: "missing rpcs", mutate: func(n *Network) { n.RPCs = nil }, wantErr: "at least one RPC is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := testNetwork("sepolia", 11155111)
			tt.mutate(&n)

			err := n.Validate()
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_Network_ChainSelector(t *testing.T) {
	t.Parallel()

	n := testNetwork("sepolia", 11155111)

	selector, err := n.ChainSelector()
	require.NoError(t, err)
	assert.Equal(t, chainsel.ETHEREUM_TESTNET_SEPOLIA.Selector, selector)

	name, err := n.ChainSelectorName()
	require.NoError(t, err)
	assert.Equal(t, "ethereum-testnet-sepolia", name)

	unknown := testNetwork("custom", 4294967295)
	_, err = unknown.ChainSelectorName()
	require.Error(t, err)
}

func Test_Network_RPCConfig(t *testing.T) {
	t.Parallel()

	n := testNetwork("arbitrumsepolia", 421614)
	n.RPCs = []RPC{
		{RPCName: "ws-first", PreferredURLScheme: "ws", WSURL: "ws://localhost:8546", HTTPURL: "http://localhost:8545"},
		{RPCName: "http-only", HTTPURL: "http://localhost:8547"},
	}

	got, err := n.RPCConfig()
	require.NoError(t, err)

	assert.Equal(t, "arbitrumsepolia", got.ChainName)
	assert.Equal(t, uint64(421614), got.ChainID)
	require.Len(t, got.RPCs, 2)
	assert.Equal(t, rpcclient.URLSchemePreferenceWS, got.RPCs[0].PreferredURLScheme)
	assert.Equal(t, rpcclient.URLSchemePreferenceNone, got.RPCs[1].PreferredURLScheme)
	assert.Equal(t, "ws://localhost:8546", n.RPCURL())

	n.RPCs[1].PreferredURLScheme = "grpc"
	_, err = n.RPCConfig()
	require.ErrorContains(t, err, "rpc http-only")
}

func Test_BlockExplorer_AddressURL(t *testing.T) {
	t.Parallel()

	addr := common.HexToAddress("0x598facE78a4302f11E3de0bee1894Da0b2Cb71F8")

	assert.Equal(t,
		"https://sepolia.arbiscan.io/address/0x598facE78a4302f11E3de0bee1894Da0b2Cb71F8",
		BlockExplorer{URL: "https://sepolia.arbiscan.io"}.AddressURL(addr),
	)
	assert.Empty(t, BlockExplorer{}.AddressURL(addr))
}
