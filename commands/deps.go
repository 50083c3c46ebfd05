package commands

import (
	"github.com/smartcontractkit/mailbox-client-deployments/config/env"
	"github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/pipeline"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
	"github.com/smartcontractkit/mailbox-client-deployments/registry/hyperlane"
	"github.com/smartcontractkit/mailbox-client-deployments/verification"
)

// NetworksLoaderFunc loads the network registry from the embedded manifest and override files.
type NetworksLoaderFunc func(filePaths ...string) (*network.Config, error)

// EnvLoaderFunc loads the secrets and endpoints. An empty path reads the environment only.
type EnvLoaderFunc func(filePath string) (*env.Config, error)

// ChainLoaderFactoryFunc builds the loader connecting to each network.
type ChainLoaderFactoryFunc func(
	lggr logger.Logger, cfg env.OnchainConfig, loaderCfg pipeline.ChainLoaderConfig,
) (pipeline.ChainLoader, error)

// ResolverFactoryFunc builds the router resolver of a run.
type ResolverFactoryFunc func(
	lggr logger.Logger, networks *network.Config, cfg env.RegistryConfig,
) pipeline.RouterResolver

// ArtifactLoaderFunc reads the compiled MockClient.
type ArtifactLoaderFunc func(path string) (*contracts.Artifact, error)

// SourceLoaderFunc reads what is submitted to the block explorer.
type SourceLoaderFunc func(artifactPath string) (verification.Source, error)

// defaultEnvLoader reads filePath when set, the environment otherwise.
func defaultEnvLoader(filePath string) (*env.Config, error) {
	if filePath == "" {
		return env.LoadEnv()
	}

	return env.Load(filePath)
}

// defaultResolverFactory resolves routers from the manifest, then from the Hyperlane registry.
func defaultResolverFactory(
	lggr logger.Logger, networks *network.Config, cfg env.RegistryConfig,
) pipeline.RouterResolver {
	return hyperlane.NewResolver(lggr, networks,
		hyperlane.WithRegistryDir(cfg.Dir),
		hyperlane.WithRegistryURL(cfg.URL),
	)
}

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// NetworksLoader loads the network registry.
	// Default: network.Load
	NetworksLoader NetworksLoaderFunc

	// EnvLoader loads the secrets.
	// Default: env.Load, or env.LoadEnv without a config file
	EnvLoader EnvLoaderFunc

	// ChainLoaderFactory builds the chain loader.
	// Default: pipeline.NewChainLoader
	ChainLoaderFactory ChainLoaderFactoryFunc

	// ResolverFactory builds the router resolver.
	// Default: hyperlane.NewResolver
	ResolverFactory ResolverFactoryFunc

	// ArtifactLoader reads the compiled client.
	// Default: contracts.LoadArtifact
	ArtifactLoader ArtifactLoaderFunc

	// SourceLoader reads the verification source.
	// Default: verification.LoadSource
	SourceLoader SourceLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.NetworksLoader == nil {
		d.NetworksLoader = network.Load
	}
	if d.EnvLoader == nil {
		d.EnvLoader = defaultEnvLoader
	}
	if d.ChainLoaderFactory == nil {
		d.ChainLoaderFactory = pipeline.NewChainLoader
	}
	if d.ResolverFactory == nil {
		d.ResolverFactory = defaultResolverFactory
	}
	if d.ArtifactLoader == nil {
		d.ArtifactLoader = contracts.LoadArtifact
	}
	if d.SourceLoader == nil {
		d.SourceLoader = verification.LoadSource
	}
}
