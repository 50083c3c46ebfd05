// Package enrollment links a deployed client to its peer on another network: it enrolls the
// peer as the remote router for the peer's domain and sets the client's interchain security
// module.
package enrollment

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/operations"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// Router is the part of the client contract enrollment reads and writes.
type Router interface {
	Routers(opts *bind.CallOpts, domain uint32) ([32]byte, error)
	InterchainSecurityModule(opts *bind.CallOpts) (common.Address, error)
	EnrollRemoteRouter(opts *bind.TransactOpts, domain uint32, router [32]byte) (*types.Transaction, error)
	SetInterchainSecurityModule(opts *bind.TransactOpts, module common.Address) (*types.Transaction, error)
}

// RouterFactory binds the client at address.
type RouterFactory func(address common.Address, backend bind.ContractBackend) (Router, error)

// StepStatus is the outcome of one enrollment step.
type StepStatus string

const (
	// StepSubmitted means a transaction was sent and confirmed.
	StepSubmitted StepStatus = "submitted"
	// StepAlreadyEnrolled means the peer was already enrolled and no transaction was sent.
	StepAlreadyEnrolled StepStatus = "already-enrolled"
	// StepAlreadySet means the ISM was already set and no transaction was sent.
	StepAlreadySet StepStatus = "already-set"
)

// Result describes the enrollment of one client.
type Result struct {
	Network string         `json:"network"`
	Client  common.Address `json:"client"`
	Domain  uint32         `json:"domain"`
	Peer    common.Address `json:"peer"`

	RouterStatus StepStatus  `json:"routerStatus"`
	RouterTx     common.Hash `json:"routerTx"`

	SecurityModule common.Address `json:"securityModule"`
	ISMStatus      StepStatus     `json:"ismStatus"`
	ISMTx          common.Hash    `json:"ismTx"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithReporter records the enrollment operations with reporter.
func WithReporter(reporter operations.Reporter) Option {
	return func(c *Coordinator) {
		c.reporter = reporter
	}
}

// WithRouterFactory replaces the contract binding, mostly for tests.
func WithRouterFactory(f RouterFactory) Option {
	return func(c *Coordinator) {
		c.newRouter = f
	}
}

// Coordinator enrolls clients with their peers.
type Coordinator struct {
	lggr      logger.Logger
	reporter  operations.Reporter
	newRouter RouterFactory
}

// NewCoordinator creates a Coordinator binding clients with the MockClient binding.
func NewCoordinator(lggr logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		lggr:     lggr.Named("enrollment"),
		reporter: operations.NewMemoryReporter(),
		newRouter: func(address common.Address, backend bind.ContractBackend) (Router, error) {
			return contracts.NewMockClient(address, backend)
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Enroll runs on local's network: it enrolls remote.Address for remote.ChainID, then sets the
// security module. The two steps are sequential and a failure of the second does not undo the
// first. Each step first reads the on-chain value and is skipped when it already matches.
func (c *Coordinator) Enroll(
	ctx context.Context, chain evm.Chain, local, remote deployment.Record, securityModule common.Address,
) (Result, error) {
	if err := checkPair(chain, local, remote); err != nil {
		return Result{}, err
	}
	if securityModule == (common.Address{}) {
		return Result{}, fmt.Errorf("%w: security module of %s is the zero address", deployment.ErrConfiguration, local.Network)
	}

	lggr := c.lggr.With("network", local.Network, "address", local.Address.Hex(), "domain", remote.ChainID)
	b := operations.NewBundle(func() context.Context { return ctx }, lggr, c.reporter)

	router, err := c.newRouter(local.Address, chain.Client)
	if err != nil {
		return Result{}, fmt.Errorf("%w: bind client %s on %s: %w", deployment.ErrConfiguration, local.Address.Hex(), local.Network, err)
	}

	res := Result{
		Network:        local.Network,
		Client:         local.Address,
		Domain:         remote.ChainID,
		Peer:           remote.Address,
		SecurityModule: securityModule,
	}

	peer := evm.AddressToBytes32(remote.Address)
	current, err := router.Routers(chain.CallOpts(ctx), remote.ChainID)
	switch {
	case err != nil:
		lggr.Warnw("Failed to read enrolled router, submitting enrollment anyway", "error", err)
	case current == peer:
		lggr.Infow("Remote router already enrolled", "peer", remote.Address.Hex())
		res.RouterStatus = StepAlreadyEnrolled
	}

	if res.RouterStatus == "" {
		report, err := operations.ExecuteOperation(b, EnrollRemoteRouterOp,
			Deps{Chain: chain, Router: router},
			EnrollRemoteRouterInput{Network: local.Network, Client: local.Address, Domain: remote.ChainID, Peer: remote.Address},
		)
		if err != nil {
			lggr.Errorw("Remote router enrollment failed", "peer", remote.Address.Hex(), "error", err)

			return res, err
		}
		res.RouterStatus = StepSubmitted
		res.RouterTx = report.Output.TxHash
	}

	currentISM, err := router.InterchainSecurityModule(chain.CallOpts(ctx))
	switch {
	case err != nil:
		lggr.Warnw("Failed to read interchain security module, submitting it anyway", "error", err)
	case currentISM == securityModule:
		lggr.Infow("Interchain security module already set", "securityModule", securityModule.Hex())
		res.ISMStatus = StepAlreadySet
	}

	if res.ISMStatus == "" {
		report, err := operations.ExecuteOperation(b, SetISMOp,
			Deps{Chain: chain, Router: router},
			SetISMInput{Network: local.Network, Client: local.Address, SecurityModule: securityModule},
		)
		if err != nil {
			lggr.Errorw("Setting interchain security module failed, remote router stays enrolled",
				"securityModule", securityModule.Hex(), "routerStatus", res.RouterStatus, "error", err)

			return res, err
		}
		res.ISMStatus = StepSubmitted
		res.ISMTx = report.Output.TxHash
	}

	lggr.Infow("Client enrolled", "peer", remote.Address.Hex(), "routerStatus", res.RouterStatus,
		"ismStatus", res.ISMStatus)

	return res, nil
}

// checkPair verifies that chain is local's network and that the two records form a pair.
func checkPair(chain evm.Chain, local, remote deployment.Record) error {
	switch {
	case local.Network != chain.Network:
		return fmt.Errorf("%w: record of %q used on chain %q", deployment.ErrConfiguration, local.Network, chain.Network)
	case local.ChainID != chain.ChainID:
		return fmt.Errorf("%w: record of %q has chain id %d, chain has %d",
			deployment.ErrConfiguration, local.Network, local.ChainID, chain.ChainID)
	case local.Network == remote.Network || local.ChainID == remote.ChainID:
		return fmt.Errorf("%w: %q cannot be its own peer", deployment.ErrConfiguration, local.Network)
	case remote.Address == (common.Address{}):
		return fmt.Errorf("%w: peer %q has no address", deployment.ErrMissingPeer, remote.Network)
	}

	return nil
}
