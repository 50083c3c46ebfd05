// Package provider builds evm.Chain values: a connection to one network plus the deployer key
// and confirmation function used on it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm/provider/rpcclient"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// ChainProvider initializes the chain of one network.
type ChainProvider interface {
	Initialize(ctx context.Context) (evm.Chain, error)
	Name() string
}

var (
	_ ChainProvider = (*RPCChainProvider)(nil)
	_ ChainProvider = (*SimChainProvider)(nil)
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: registry name of the network.
	Network string
	// Required: EVM chain id. Endpoints serving another chain id are skipped.
	ChainID uint32
	// Required: use TransactorFromRaw for a private key or TransactorFromKMS for a KMS key.
	DeployerTransactorGen SignerGenerator
	// Required: at least one RPC endpoint.
	RPCs []rpcclient.RPC
	// Required: use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: options applied to the MultiClient.
	ClientOpts []func(client *rpcclient.MultiClient)
	// Optional: defaults to logger.New().
	Logger logger.Logger
}

func (c RPCChainProviderConfig) validate() error {
	if c.Network == "" {
		return errors.New("network name is required")
	}
	if c.ChainID == 0 {
		return errors.New("chain id is required")
	}
	if c.DeployerTransactorGen == nil {
		return errors.New("deployer transactor generator is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}
	if len(c.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	return nil
}

// RPCChainProvider connects to a network through its RPC endpoints. Each provider owns its
// client and transact options, so providers must not be shared between networks.
type RPCChainProvider struct {
	config RPCChainProviderConfig

	chain *evm.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider.
func NewRPCChainProvider(config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{config: config}
}

// Initialize dials the network and generates the deployer key. Subsequent calls return the
// same chain.
func (p *RPCChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	if err := p.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	chainID := new(big.Int).SetUint64(uint64(p.config.ChainID))

	deployerKey, err := p.config.DeployerTransactorGen.Generate(chainID)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	client, err := rpcclient.NewMultiClient(p.config.Logger, rpcclient.RPCConfig{
		ChainName: p.config.Network,
		ChainID:   uint64(p.config.ChainID),
		RPCs:      p.config.RPCs,
	}, p.config.ClientOpts...)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to create multi-client: %w", err)
	}

	confirmFunc, err := p.config.ConfirmFunctor.Generate(ctx, p.config.Network, client, deployerKey.From)
	if err != nil {
		client.Close()

		return evm.Chain{}, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.chain = &evm.Chain{
		Network:     p.config.Network,
		ChainID:     p.config.ChainID,
		Selector:    selectorOf(p.config.ChainID),
		Client:      client,
		DeployerKey: deployerKey,
		Confirm:     confirmFunc,
		SignHash:    p.config.DeployerTransactorGen.SignHash,
	}

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}

// selectorOf returns the chain-selectors selector of an EVM chain id, or zero when unknown.
func selectorOf(chainID uint32) uint64 {
	selector, err := chainsel.SelectorFromChainId(uint64(chainID))
	if err != nil {
		return 0
	}

	return selector
}
