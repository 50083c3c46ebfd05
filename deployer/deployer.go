// Package deployer deploys one MockClient per network and waits for its confirmation.
package deployer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/operations"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// DeployInput is the input of the deploy operation.
type DeployInput struct {
	Network string         `json:"network"`
	ChainID uint32         `json:"chainId"`
	Mailbox common.Address `json:"mailbox"`
	Hook    common.Address `json:"hook"`
}

// DeployDeps are the dependencies of the deploy operation.
type DeployDeps struct {
	Chain    evm.Chain
	Artifact *contracts.Artifact
}

// DeployOp submits the MockClient creation transaction and waits for it to be confirmed.
var DeployOp = operations.NewOperation(
	"mockclient-deploy",
	semver.MustParse("1.0.0"),
	"Deploys the MockClient contract",
	func(b operations.Bundle, deps DeployDeps, in DeployInput) (deployment.Record, error) {
		opts := deps.Chain.TransactOpts(b.GetContext())

		addr, tx, _, err := contracts.DeployMockClient(opts, deps.Chain.Client, deps.Artifact, in.Mailbox, in.Hook)
		if err != nil {
			return deployment.Record{}, fmt.Errorf("%w: send creation tx on %s: %w",
				deployment.ErrDeploymentFailed, in.Network, err)
		}
		b.Logger.Infow("Submitted MockClient creation", "network", in.Network, "txHash", tx.Hash().Hex(),
			"address", addr.Hex())

		block, err := deps.Chain.Confirm(tx)
		if err != nil {
			return deployment.Record{}, fmt.Errorf("%w: confirm creation of %s on %s: %w",
				deployment.ErrDeploymentFailed, addr.Hex(), in.Network, err)
		}
		b.Logger.Infow("Deployed MockClient", "network", in.Network, "address", addr.Hex(), "block", block)

		return deployment.NewRecord(in.Network, in.ChainID, addr, in.Mailbox, in.Hook), nil
	},
)

// Option configures a Deployer.
type Option func(*Deployer)

// WithReporter records the deploy operations with reporter.
func WithReporter(reporter operations.Reporter) Option {
	return func(d *Deployer) {
		d.reporter = reporter
	}
}

// WithHook constructs clients with hook instead of the zero address, which makes the mailbox
// use its default hook.
func WithHook(hook common.Address) Option {
	return func(d *Deployer) {
		d.hook = hook
	}
}

// Deployer deploys MockClient contracts from a compiled artifact.
type Deployer struct {
	lggr     logger.Logger
	artifact *contracts.Artifact
	reporter operations.Reporter
	hook     common.Address
}

// New creates a Deployer for artifact.
func New(lggr logger.Logger, artifact *contracts.Artifact, opts ...Option) (*Deployer, error) {
	if artifact == nil {
		return nil, errors.New("artifact is required")
	}

	d := &Deployer{
		lggr:     lggr.Named("deployer"),
		artifact: artifact,
		reporter: operations.NewMemoryReporter(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Deploy deploys a MockClient constructed with (mailbox, hook) on chain and returns its
// record once the creation is confirmed. Every call submits a new creation. Persisting the
// record is left to the caller.
func (d *Deployer) Deploy(ctx context.Context, chain evm.Chain, mailbox common.Address) (deployment.Record, error) {
	if mailbox == (common.Address{}) {
		return deployment.Record{}, fmt.Errorf("%w: router address of %s is the zero address",
			deployment.ErrConfiguration, chain.Network)
	}

	lggr := d.lggr.With("network", chain.Network)
	b := operations.NewBundle(func() context.Context { return ctx }, lggr, d.reporter)

	report, err := operations.ExecuteOperation(b, DeployOp,
		DeployDeps{Chain: chain, Artifact: d.artifact},
		DeployInput{Network: chain.Network, ChainID: chain.ChainID, Mailbox: mailbox, Hook: d.hook},
		operations.WithForce[DeployInput, DeployDeps](),
	)
	if err != nil {
		lggr.Errorw("MockClient deployment failed", "mailbox", mailbox.Hex(), "error", err)

		return deployment.Record{}, err
	}

	return report.Output, nil
}

// Ensure returns existing when it was deployed with mailbox on this chain and its code is still
// present, otherwise it deploys a new client. force always deploys. The boolean reports whether
// existing was reused.
func (d *Deployer) Ensure(
	ctx context.Context, chain evm.Chain, mailbox common.Address, existing *deployment.Record, force bool,
) (deployment.Record, bool, error) {
	lggr := d.lggr.With("network", chain.Network)

	if existing == nil || force {
		rec, err := d.Deploy(ctx, chain, mailbox)

		return rec, false, err
	}

	switch {
	case existing.ChainID != chain.ChainID:
		lggr.Infow("Recorded client is for another chain id, redeploying",
			"address", existing.Address.Hex(), "recordedChainId", existing.ChainID)
	case existing.Mailbox != mailbox:
		lggr.Infow("Recorded client uses another mailbox, redeploying",
			"address", existing.Address.Hex(), "recordedMailbox", existing.Mailbox.Hex(), "mailbox", mailbox.Hex())
	case existing.Hook() != d.hook:
		lggr.Infow("Recorded client uses another hook, redeploying", "address", existing.Address.Hex())
	default:
		code, err := chain.Client.CodeAt(ctx, existing.Address, nil)
		if err != nil {
			return deployment.Record{}, false, fmt.Errorf("%w: read code of %s on %s: %w",
				deployment.ErrDeploymentFailed, existing.Address.Hex(), chain.Network, err)
		}
		if len(code) > 0 {
			lggr.Infow("Reusing deployed MockClient", "address", existing.Address.Hex())

			return *existing, true, nil
		}
		lggr.Warnw("Recorded client has no code on chain, redeploying", "address", existing.Address.Hex())
	}

	rec, err := d.Deploy(ctx, chain, mailbox)

	return rec, false, err
}
