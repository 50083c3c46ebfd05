package provider

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/eth/ethconfig"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
)

var (
	// SimDefaultChainID is the chain id of the go-ethereum simulated backend.
	SimDefaultChainID = uint32(params.AllDevChainProtocolChanges.ChainID.Uint64())

	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: chain id of the simulated network. Defaults to SimDefaultChainID. Give each
	// simulated network of a test its own id so that their message domains differ.
	ChainID uint32
	// Optional: interval at which blocks are committed. By default blocks are only committed
	// by Confirm or an explicit SimClient.Commit.
	BlockTime time.Duration
}

// SimChainProvider provides a chain backed by go-ethereum's in memory simulated backend with
// a prefunded deployer.
type SimChainProvider struct {
	t       *testing.T
	network string
	config  SimChainProviderConfig

	chain  *evm.Chain
	client *SimClient
}

// NewSimChainProvider creates a new SimChainProvider for the named network.
func NewSimChainProvider(t *testing.T, network string, config SimChainProviderConfig) *SimChainProvider {
	t.Helper()

	if config.ChainID == 0 {
		config.ChainID = SimDefaultChainID
	}

	return &SimChainProvider{t: t, network: network, config: config}
}

// Initialize starts the simulated backend. Confirm commits a block before waiting for the
// receipt.
func (p *SimChainProvider) Initialize(_ context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	chainID := new(big.Int).SetUint64(uint64(p.config.ChainID))

	key, err := crypto.GenerateKey()
	require.NoError(p.t, err, "failed to generate deployer key")

	deployer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	require.NoError(p.t, err)

	backend := simulated.NewBackend(
		types.GenesisAlloc{deployer.From: {Balance: prefundAmountWei}},
		simulated.WithBlockGasLimit(50000000),
		withChainID(chainID),
	)
	p.t.Cleanup(func() { _ = backend.Close() })
	backend.Commit()

	if p.config.BlockTime > 0 {
		startAutoMine(p.t, backend, p.config.BlockTime)
	}

	client := NewSimClient(p.t, backend)
	p.client = client

	p.chain = &evm.Chain{
		Network:     p.network,
		ChainID:     p.config.ChainID,
		Selector:    selectorOf(p.config.ChainID),
		Client:      client,
		DeployerKey: deployer,
		SignHash: func(hash []byte) ([]byte, error) {
			return crypto.Sign(hash, key)
		},
		Confirm: func(tx *types.Transaction) (uint64, error) {
			if tx == nil {
				return 0, fmt.Errorf("tx was nil, nothing to confirm on %s", p.network)
			}

			client.Commit()

			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()

			receipt, err := bind.WaitMined(ctx, client, tx)
			if err != nil {
				return 0, fmt.Errorf("tx %s failed to confirm on %s: %w", tx.Hash().Hex(), p.network, err)
			}

			return checkReceipt(ctx, p.network, client, deployer.From, tx, receipt)
		},
	}

	return *p.chain, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// Client returns the simulated client. Initialize must be called first.
func (p *SimChainProvider) Client() *SimClient {
	return p.client
}

// withChainID replaces the chain id of the simulated genesis.
func withChainID(chainID *big.Int) func(*node.Config, *ethconfig.Config) {
	return func(_ *node.Config, ethConf *ethconfig.Config) {
		cfg := *ethConf.Genesis.Config
		cfg.ChainID = chainID
		ethConf.Genesis.Config = &cfg
	}
}

// startAutoMine commits a block every blockTime until the test ends.
func startAutoMine(t *testing.T, backend *simulated.Backend, blockTime time.Duration) {
	t.Helper()

	ctx := t.Context()
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
