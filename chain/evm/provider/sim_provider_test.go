package provider

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SimChainProvider_Initialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		giveConfig     SimChainProviderConfig
		wantChainID    uint32
		wantMinedBlock bool
	}{
		{
			name:        "default chain id",
			wantChainID: SimDefaultChainID,
		},
		{
			name:        "custom chain id",
			giveConfig:  SimChainProviderConfig{ChainID: 421614},
			wantChainID: 421614,
		},
		{
			name:           "automated block mining",
			giveConfig:     SimChainProviderConfig{BlockTime: 10 * time.Millisecond},
			wantChainID:    SimDefaultChainID,
			wantMinedBlock: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewSimChainProvider(t, "arbitrumsepolia", tt.giveConfig)

			got, err := p.Initialize(t.Context())
			require.NoError(t, err)

			assert.Equal(t, "arbitrumsepolia", got.Network)
			assert.Equal(t, tt.wantChainID, got.ChainID)
			require.NotNil(t, got.DeployerKey)
			require.NotNil(t, p.Client())

			chainID, err := got.Client.ChainID(t.Context())
			require.NoError(t, err)
			assert.Equal(t, uint64(tt.wantChainID), chainID.Uint64())

			balance, err := got.Client.BalanceAt(t.Context(), got.DeployerKey.From, nil)
			require.NoError(t, err)
			assert.Zero(t, prefundAmountWei.Cmp(balance))

			if tt.wantMinedBlock {
				require.Eventually(t, func() bool {
					n, err := p.Client().BlockNumber(t.Context())
					require.NoError(t, err)

					return n > 1
				}, 5*time.Second, 20*time.Millisecond)
			}
		})
	}
}

func Test_SimChainProvider_Confirm(t *testing.T) {
	t.Parallel()

	p := NewSimChainProvider(t, "sepolia", SimChainProviderConfig{ChainID: 11155111})
	chain, err := p.Initialize(t.Context())
	require.NoError(t, err)

	// Creation code that stores a runtime returning 42.
	bytecode := common.FromHex("600a600c600039600a6000f3602a60005260206000f3")
	// Creation code that reverts.
	reverting := common.FromHex("60006000fd")

	t.Run("deploy confirms and stores code", func(t *testing.T) {
		addr, tx, _, err := bind.DeployContract(chain.TransactOpts(t.Context()), emptyABI(t), bytecode, chain.Client)
		require.NoError(t, err)

		blockNum, err := chain.Confirm(tx)
		require.NoError(t, err)
		assert.Positive(t, blockNum)

		code, err := chain.Client.CodeAt(t.Context(), addr, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, code)
	})

	t.Run("reverted creation reports an error", func(t *testing.T) {
		nonce, err := chain.Client.PendingNonceAt(t.Context(), chain.DeployerKey.From)
		require.NoError(t, err)

		gasPrice, err := chain.Client.SuggestGasPrice(t.Context())
		require.NoError(t, err)

		tx := types.NewContractCreation(nonce, big.NewInt(0), 100000, gasPrice, reverting)
		signed, err := chain.DeployerKey.Signer(chain.DeployerKey.From, tx)
		require.NoError(t, err)
		require.NoError(t, chain.Client.SendTransaction(t.Context(), signed))

		_, err = chain.Confirm(signed)
		require.ErrorContains(t, err, "reverted on sepolia")
	})

	t.Run("nil transaction", func(t *testing.T) {
		_, err := chain.Confirm(nil)
		require.ErrorContains(t, err, "tx was nil")
	})
}

func Test_SimChainProvider_Name(t *testing.T) {
	t.Parallel()

	p := &SimChainProvider{}
	assert.Equal(t, "Simulated EVM Chain Provider", p.Name())
}
