// Package commands provides the mailboxctl command line: deploy, send, verify and status.
//
// Usage:
//
//	root := commands.NewCommand(commands.Config{Logger: lggr})
//	if err := root.ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
//
// Tests inject Deps to replace the network registry, the secrets and the chain connections.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/mailbox-client-deployments/config/env"
	"github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/pipeline"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
	"github.com/smartcontractkit/mailbox-client-deployments/verification"
)

// Config holds the configuration of the commands.
type Config struct {
	// Logger is the logger to use for command output. Required.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

var (
	rootLong = longDesc(`
		Deploys a MockClient on each selected network, links every client with its peers and
		sends fee-paying messages between them.

		Deployments are recorded in a JSON file keyed by network name, and every on-chain
		operation is recorded in a reports file next to it.
	`)

	rootExample = examples(`
		# Deploy and enroll the default pair
		mailboxctl deploy

		# Send "Hello World!" from sepolia to arbitrumsepolia
		mailboxctl send --from sepolia --to arbitrumsepolia

		# Show the recorded clients and their on-chain enrollment
		mailboxctl status
	`)
)

// NewCommand creates the mailboxctl root command with all subcommands.
func NewCommand(cfg Config) *cobra.Command {
	// Apply defaults for optional dependencies
	cfg.deps()
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "mailboxctl",
		Short:         "Deploy, link and exercise mailbox clients across EVM networks",
		Long:          rootLong,
		Example:       rootExample,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.register(cmd.PersistentFlags())

	cmd.AddCommand(
		newDeployCmd(cfg, g),
		newSendCmd(cfg, g),
		newVerifyCmd(cfg, g),
		newStatusCmd(cfg, g),
	)

	return cmd
}

// runtime is what a command needs to build a pipeline.
type runtime struct {
	networks *network.Config
	env      *env.Config
}

func loadRuntime(cfg Config, g *globalFlags) (*runtime, error) {
	deps := cfg.deps()

	networks, err := deps.NetworksLoader(g.networksFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load networks: %w", err)
	}

	envCfg, err := deps.EnvLoader(g.config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load config: %w", deployment.ErrConfiguration, err)
	}

	return &runtime{networks: networks, env: envCfg}, nil
}

// pipelineOptions selects what newPipeline loads.
type pipelineOptions struct {
	// readOnly allows running without a signer.
	readOnly bool
	// artifact loads the compiled client, required to deploy.
	artifact bool
	// verify sets up verification when an explorer API key is configured.
	verify bool
}

func newPipeline(cfg Config, g *globalFlags, opts pipelineOptions) (*pipeline.Pipeline, error) {
	deps := cfg.deps()

	rt, err := loadRuntime(cfg, g)
	if err != nil {
		return nil, err
	}

	loadChain, err := deps.ChainLoaderFactory(cfg.Logger, rt.env.Onchain, pipeline.ChainLoaderConfig{
		ConfirmTimeout: g.confirmTimeout,
		ReadOnly:       opts.readOnly,
	})
	if err != nil {
		return nil, err
	}

	pcfg := pipeline.Config{
		Networks:       rt.networks,
		LoadChain:      loadChain,
		Resolver:       deps.ResolverFactory(cfg.Logger, rt.networks, rt.env.Registry),
		DeploymentPath: g.deployments,
		Logger:         cfg.Logger,
	}

	if opts.artifact {
		pcfg.Artifact, err = deps.ArtifactLoader(g.artifact)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", deployment.ErrConfiguration, err)
		}
	}

	if opts.verify {
		pcfg.Verifier, pcfg.Source = setupVerification(cfg, g, rt.env.Explorer)
	}

	return pipeline.New(pcfg)
}

// setupVerification returns a verifier and its source, or nils when verification cannot run.
// Verification is best effort, so a missing source is only logged.
func setupVerification(
	cfg Config, g *globalFlags, explorer env.ExplorerConfig,
) (*verification.Verifier, *verification.Source) {
	if explorer.APIKey == "" {
		cfg.Logger.Infow("No explorer API key configured, verification disabled")

		return nil, nil
	}

	source, err := cfg.deps().SourceLoader(g.artifact)
	if err != nil {
		cfg.Logger.Warnw("verification failed; continuing", "artifact", g.artifact, "error", err)

		return nil, nil
	}

	return verification.NewVerifier(cfg.Logger, explorer.APIKey), &source
}
