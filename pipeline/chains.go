package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	evmprov "github.com/smartcontractkit/mailbox-client-deployments/chain/evm/provider"
	evmclient "github.com/smartcontractkit/mailbox-client-deployments/chain/evm/provider/rpcclient"
	cfgenv "github.com/smartcontractkit/mailbox-client-deployments/config/env"
	cfgnet "github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// ChainLoader connects to a network. Every call returns a chain with its own client and signer,
// owned by the caller.
type ChainLoader func(ctx context.Context, network cfgnet.Network) (evm.Chain, error)

// ChainLoaderConfig configures NewChainLoader.
type ChainLoaderConfig struct {
	// ConfirmTimeout bounds every transaction wait. Defaults to 5 minutes.
	ConfirmTimeout time.Duration
	// ReadOnly loads chains with a throwaway key when no signer is configured, for commands that
	// never send transactions.
	ReadOnly bool
}

// NewChainLoader returns a ChainLoader dialing the RPCs of a network and signing with the raw
// deployer key or the KMS key of cfg. Without either, ErrConfiguration is returned before any
// network is dialed, unless the loader is read only.
func NewChainLoader(lggr logger.Logger, cfg cfgenv.OnchainConfig, loaderCfg ChainLoaderConfig) (ChainLoader, error) {
	if !cfg.HasSigner() && !loaderCfg.ReadOnly {
		return nil, fmt.Errorf("%w: no deployer key or KMS key configured (set ONCHAIN_EVM_DEPLOYER_KEY or ONCHAIN_KMS_KEY_ID and ONCHAIN_KMS_KEY_REGION)",
			deployment.ErrConfiguration)
	}

	confirmFunctor := evmprov.ConfirmFuncGeth(loaderCfg.ConfirmTimeout)

	// Define the client options to use for the MultiClient.
	clientOpts := []func(client *evmclient.MultiClient){
		func(client *evmclient.MultiClient) {
			client.RetryConfig = evmclient.RetryConfig{
				Attempts:     5,
				Delay:        10 * time.Millisecond,
				Timeout:      5 * time.Second,
				DialAttempts: 5,
				DialDelay:    10 * time.Millisecond,
				DialTimeout:  2 * time.Second,
			}
		},
	}

	return func(ctx context.Context, network cfgnet.Network) (evm.Chain, error) {
		rpcCfg, err := network.RPCConfig()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("%w: invalid RPCs of %s: %w", deployment.ErrConfiguration, network.Name, err)
		}

		transactorGen, err := signerGenerator(cfg)
		if err != nil {
			return evm.Chain{}, fmt.Errorf("%w: failed to create EVM signer generator: %w", deployment.ErrConfiguration, err)
		}

		chain, err := evmprov.NewRPCChainProvider(evmprov.RPCChainProviderConfig{
			Network:               network.Name,
			ChainID:               network.ChainID,
			DeployerTransactorGen: transactorGen,
			RPCs:                  rpcCfg.RPCs,
			ConfirmFunctor:        confirmFunctor,
			ClientOpts:            clientOpts,
			Logger:                lggr,
		}).Initialize(ctx)
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to initialize chain %s: %w", network.Name, err)
		}

		return chain, nil
	}, nil
}

// signerGenerator prefers the KMS key over the raw key. With neither it returns a random key.
func signerGenerator(cfg cfgenv.OnchainConfig) (evmprov.SignerGenerator, error) {
	switch {
	case cfg.KMS.IsSet():
		return evmprov.TransactorFromKMS(cfg.KMS.KeyID, cfg.KMS.KeyRegion, cfg.KMS.AWSProfile)
	case cfg.EVM.DeployerKey != "":
		return evmprov.TransactorFromRaw(cfg.EVM.DeployerKey), nil
	default:
		return evmprov.TransactorRandom(), nil
	}
}
