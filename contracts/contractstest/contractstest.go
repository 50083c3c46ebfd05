// Package contractstest provides stand-in contracts for tests running on the simulated backend.
package contractstest

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
)

// StubFee is the value every call to a stub contract returns, so a stub mailbox quotes StubFee
// wei and a stub client reports a router of 0x…2a.
const StubFee = 42

var (
	// StubBytecode is creation code of a contract that accepts any call and value and returns
	// the 32 byte word StubFee.
	StubBytecode = common.FromHex("600a600c600039600a6000f3602a60005260206000f3")
	// RevertingBytecode is creation code that always reverts.
	RevertingBytecode = common.FromHex("60006000fd")
)

// StubArtifact returns a MockClient artifact deploying StubBytecode.
func StubArtifact(t *testing.T) *contracts.Artifact {
	t.Helper()

	a, err := contracts.MockClientArtifact(StubBytecode)
	require.NoError(t, err)

	return a
}

// RevertingArtifact returns a MockClient artifact whose creation reverts.
func RevertingArtifact(t *testing.T) *contracts.Artifact {
	t.Helper()

	a, err := contracts.MockClientArtifact(RevertingBytecode)
	require.NoError(t, err)

	return a
}

// DeployStub deploys StubBytecode on chain and waits for it, e.g. to stand in for a mailbox.
func DeployStub(t *testing.T, chain evm.Chain) common.Address {
	t.Helper()

	empty, err := abi.JSON(strings.NewReader("[]"))
	require.NoError(t, err)

	addr, tx, _, err := bind.DeployContract(chain.TransactOpts(t.Context()), empty, StubBytecode, chain.Client)
	require.NoError(t, err)

	_, err = chain.Confirm(tx)
	require.NoError(t, err)

	return addr
}
