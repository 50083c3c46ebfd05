package enrollment

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/operations"
)

// Deps are the dependencies of the enrollment operations.
type Deps struct {
	Chain  evm.Chain
	Router Router
}

// TxOutput is the output of an operation sending one transaction.
type TxOutput struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
}

// EnrollRemoteRouterInput is the input of EnrollRemoteRouterOp.
type EnrollRemoteRouterInput struct {
	Network string         `json:"network"`
	Client  common.Address `json:"client"`
	Domain  uint32         `json:"domain"`
	Peer    common.Address `json:"peer"`
}

// EnrollRemoteRouterOp calls enrollRemoteRouter(domain, bytes32(peer)) and waits for it.
var EnrollRemoteRouterOp = operations.NewOperation(
	"mockclient-enroll-remote-router",
	semver.MustParse("1.0.0"),
	"Enrolls the peer client as remote router of the MockClient",
	func(b operations.Bundle, deps Deps, in EnrollRemoteRouterInput) (TxOutput, error) {
		peer := evm.AddressToBytes32(in.Peer)

		tx, err := deps.Router.EnrollRemoteRouter(deps.Chain.TransactOpts(b.GetContext()), in.Domain, peer)
		if err != nil {
			return TxOutput{}, fmt.Errorf("%w: enrollRemoteRouter(%d, %s) on %s client %s: %w",
				deployment.ErrTransaction, in.Domain, common.Hash(peer).Hex(), in.Network, in.Client.Hex(), err)
		}

		block, err := deps.Chain.Confirm(tx)
		if err != nil {
			return TxOutput{}, fmt.Errorf("%w: enrollRemoteRouter(%d, %s) on %s client %s: %w",
				deployment.ErrTransaction, in.Domain, common.Hash(peer).Hex(), in.Network, in.Client.Hex(), err)
		}
		b.Logger.Infow("Enrolled remote router", "txHash", tx.Hash().Hex(), "peer", in.Peer.Hex(), "block", block)

		return TxOutput{TxHash: tx.Hash(), BlockNumber: block}, nil
	},
)

// SetISMInput is the input of SetISMOp.
type SetISMInput struct {
	Network        string         `json:"network"`
	Client         common.Address `json:"client"`
	SecurityModule common.Address `json:"securityModule"`
}

// SetISMOp calls setInterchainSecurityModule(module) and waits for it.
var SetISMOp = operations.NewOperation(
	"mockclient-set-ism",
	semver.MustParse("1.0.0"),
	"Sets the interchain security module of the MockClient",
	func(b operations.Bundle, deps Deps, in SetISMInput) (TxOutput, error) {
		tx, err := deps.Router.SetInterchainSecurityModule(deps.Chain.TransactOpts(b.GetContext()), in.SecurityModule)
		if err != nil {
			return TxOutput{}, fmt.Errorf("%w: setInterchainSecurityModule(%s) on %s client %s: %w",
				deployment.ErrTransaction, in.SecurityModule.Hex(), in.Network, in.Client.Hex(), err)
		}

		block, err := deps.Chain.Confirm(tx)
		if err != nil {
			return TxOutput{}, fmt.Errorf("%w: setInterchainSecurityModule(%s) on %s client %s: %w",
				deployment.ErrTransaction, in.SecurityModule.Hex(), in.Network, in.Client.Hex(), err)
		}
		b.Logger.Infow("Set interchain security module", "txHash", tx.Hash().Hex(),
			"securityModule", in.SecurityModule.Hex(), "block", block)

		return TxOutput{TxHash: tx.Hash(), BlockNumber: block}, nil
	},
)
